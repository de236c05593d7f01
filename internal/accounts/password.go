package accounts

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a password with bcrypt at the given cost, replacing
// the teacher's legacy SHA-1 scheme: the spec requires a recognized KDF,
// and bcrypt is the one already present in the pack's go.mod closure.
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. bcrypt's own
// comparison is already constant-time relative to the hash check, so no
// additional precaution is needed beyond not short-circuiting on a
// missing account (handlers compare against a throwaway hash instead).
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
