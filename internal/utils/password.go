package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), normalizeCost(cost))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// PasswordPad is compared against when a login names an unknown email.
// Its hash uses the same cost as stored passwords so both outcomes take
// one comparison of equal weight.
type PasswordPad struct {
	cost int
	once sync.Once
	hash []byte
}

func NewPasswordPad(cost int) *PasswordPad {
	return &PasswordPad{cost: normalizeCost(cost)}
}

// Burn performs a throwaway comparison.  The pad hash is built on first
// use.
func (p *PasswordPad) Burn(plain string) {
	p.once.Do(func() {
		p.hash, _ = bcrypt.GenerateFromPassword([]byte("counseling-timing-pad"), p.cost)
	})
	_ = bcrypt.CompareHashAndPassword(p.hash, []byte(plain))
}
