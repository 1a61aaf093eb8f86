package model

import "time"

// DefaultCounselorBio is written to new counselor profiles.
const DefaultCounselorBio = "BK Counselor"

// CounselorProfile extends a User whose role is counselor.  A profile
// exists exactly as long as the owning user keeps the counselor role.
type CounselorProfile struct {
	ID             uint64    `json:"id" db:"id"`
	UserID         uint64    `json:"user_id" db:"user_id"`
	Bio            string    `json:"bio" db:"bio"`
	Specialization *string   `json:"specialization" db:"specialization"`
	ProfilePicture *string   `json:"profile_picture" db:"profile_picture"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// CounselorSummary is the directory view of a counselor: the profile
// joined with the owning user and the number of open future slots.
type CounselorSummary struct {
	ID             uint64  `json:"id" db:"id"`
	UserID         uint64  `json:"user_id" db:"user_id"`
	Name           string  `json:"name" db:"name"`
	Email          string  `json:"email" db:"email"`
	Bio            string  `json:"bio" db:"bio"`
	Specialization *string `json:"specialization" db:"specialization"`
	ProfilePicture *string `json:"profile_picture" db:"profile_picture"`
	TotalSchedules int     `json:"total_schedules" db:"total_schedules"`
}
