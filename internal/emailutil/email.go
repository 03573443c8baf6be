// Package emailutil holds the email helpers shared by user provisioning
// (lookup keys) and provider domain restrictions.
package emailutil

import "strings"

// Normalize lowercases and trims an address so it can serve as a stable
// storage key.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ExtractDomain returns the domain part of an address, or "" when the
// address does not contain exactly one "@".
func ExtractDomain(email string) string {
	_, domain, found := strings.Cut(email, "@")
	if !found || domain == "" || strings.Contains(domain, "@") {
		return ""
	}
	return domain
}
