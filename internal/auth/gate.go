package auth

import "crypto/subtle"

// Gate checks credentials against the configured shared passwords.
type Gate struct {
	passwords []string
	admins    []string
}

func NewGate(passwords, adminPasswords []string) *Gate {
	return &Gate{passwords: passwords, admins: adminPasswords}
}

// Check reports whether credential is accepted and whether it is an admin one.
func (g *Gate) Check(credential string) (ok, admin bool) {
	if credential == "" {
		return false, false
	}
	if matchAny(g.admins, credential) {
		return true, true
	}
	return matchAny(g.passwords, credential), false
}

// Enabled reports whether any password is configured.
func (g *Gate) Enabled() bool {
	return len(g.passwords)+len(g.admins) > 0
}

func matchAny(list []string, credential string) bool {
	found := false
	for _, p := range list {
		if subtle.ConstantTimeCompare([]byte(p), []byte(credential)) == 1 {
			found = true
		}
	}
	return found
}
