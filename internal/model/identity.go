package model

// Identity is the authenticated caller of a request.  It is built once
// by the session middleware and handed by value to every service call,
// so business code never reads ambient session state.
type Identity struct {
	UserID uint64 `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// Is reports whether the caller holds the given role.
func (i Identity) Is(r Role) bool { return i.Role == r }
