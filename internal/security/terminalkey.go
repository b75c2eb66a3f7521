package security

import "golang.org/x/crypto/bcrypt"

// TerminalKeyVerifier checks the shared key presented by punch-clock
// terminals against a stored bcrypt hash. Callers must not log the
// plaintext key.
type TerminalKeyVerifier struct {
	hash string
}

// NewTerminalKeyVerifier returns a verifier for the given bcrypt hash.
// An empty hash disables terminal punches entirely.
func NewTerminalKeyVerifier(hash string) *TerminalKeyVerifier {
	return &TerminalKeyVerifier{hash: hash}
}

// Enabled reports whether a terminal key is configured.
func (v *TerminalKeyVerifier) Enabled() bool {
	return v != nil && v.hash != ""
}

// Verify reports whether key matches the configured hash, using
// bcrypt's constant-time comparison.
func (v *TerminalKeyVerifier) Verify(key string) bool {
	if !v.Enabled() || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(key)) == nil
}

// HashTerminalKey produces a bcrypt hash of key for storage in config.
// Used by seeding and provisioning tooling.
func HashTerminalKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
