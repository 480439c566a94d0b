package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password. Costs outside bcrypt's range fall back to
// the library default.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// PasswordMatches reports whether plain hashes to hashed.
func PasswordMatches(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// DummyHash returns a hash of a throwaway password at the given cost. Login compares
// against it for unknown emails, so it must be built at the same cost as real accounts.
func DummyHash(cost int) (string, error) {
	return HashPassword("unused-placeholder", cost)
}

// BurnPasswordCheck spends the same time as a real comparison against a hash of equal cost.
func BurnPasswordCheck(dummyHash, plain string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
}
