package github

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var (
	reGitHubToken   = regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)
	reFineGrained   = regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{11,221}\b`)
	reURLCredential = regexp.MustCompile(`(https?://[^:/\s@]+:)[^@\s]+@`)
)

// Redact removes secrets from s before it reaches a log line or an issue
// comment. Literal secrets are replaced first, then anything shaped like a
// GitHub token or a password embedded in a URL.
func Redact(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, redacted)
		}
	}
	s = reGitHubToken.ReplaceAllString(s, redacted)
	s = reFineGrained.ReplaceAllString(s, redacted)
	s = reURLCredential.ReplaceAllString(s, "${1}"+redacted+"@")
	return s
}
