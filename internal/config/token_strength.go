package config

import zxcvbn "github.com/ccojocar/zxcvbn-go"

// minAdminTokenScore is the lowest zxcvbn score (0-4) accepted without a
// startup warning.
const minAdminTokenScore = 3

// AdminTokenWarnings lists the startup warnings for an admin token. An empty
// token turns authentication off, which is reported instead of its strength.
func AdminTokenWarnings(token string) []string {
	if token == "" {
		return []string{"PORTWATCH_ADMIN_TOKEN is empty; the API is unauthenticated"}
	}
	if IsWeakToken(token) {
		return []string{"PORTWATCH_ADMIN_TOKEN is weak; use a long random token"}
	}
	return nil
}

// IsWeakToken reports whether a non-empty token scores below
// minAdminTokenScore. The empty token is not weak.
func IsWeakToken(token string) bool {
	return token != "" && zxcvbn.PasswordStrength(token, nil).Score < minAdminTokenScore
}
