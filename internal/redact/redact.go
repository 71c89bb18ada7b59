// Package redact removes sensitive values from strings before they are logged,
// persisted as job failure messages, or returned in error responses. It covers
// the secrets this service handles: database and SMTP credentials, bearer and
// refresh tokens, password hashes, recipient addresses and SQL text.
package redact

import (
	"regexp"
	"strings"
)

// Placeholders substituted for redacted values.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedTokenPlaceholder      = "[REDACTED_JWT]"
	RedactedHashPlaceholder       = "[REDACTED_HASH]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
)

// rule replaces every match of pattern with placeholder.
type rule struct {
	name        string
	pattern     *regexp.Regexp
	placeholder string
}

// rules run in order. Credential-bearing URLs go first so the host rule
// does not split them.
var rules = []rule{
	{
		name:        "url_credentials",
		pattern:     regexp.MustCompile(`(?i)\b(postgres(?:ql)?|smtps?|pgx)://[^@\s]+@`),
		placeholder: RedactedCredentialPlaceholder,
	},
	{
		name:        "dsn_password",
		pattern:     regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[=:]\s*['"]?[^'"&\s]{3,}['"]?`),
		placeholder: RedactedCredentialPlaceholder,
	},
	{
		name:        "bearer",
		pattern:     regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-.~+/]{8,}=*`),
		placeholder: "Bearer " + RedactedTokenPlaceholder,
	},
	{
		name:        "jwt",
		pattern:     regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		placeholder: RedactedTokenPlaceholder,
	},
	{
		name: "secret_key",
		pattern: regexp.MustCompile(
			`(?i)\b(api[_-]?key|secret|refresh[_-]?token|access[_-]?token)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
		),
		placeholder: RedactedKeyPlaceholder,
	},
	{
		name:        "bcrypt",
		pattern:     regexp.MustCompile(`\$2[abxy]?\$\d{2}\$[./A-Za-z0-9]{53}`),
		placeholder: RedactedHashPlaceholder,
	},
	{
		name:        "email",
		pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		placeholder: RedactedEmailPlaceholder,
	},
	{
		name: "sql",
		pattern: regexp.MustCompile(
			`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b[\s\w,*()."$=]+?\b(FROM|INTO|SET)\b[\s\w,*()."$=']*`,
		),
		placeholder: RedactedSQLPlaceholder,
	},
	{
		name:        "unix_path",
		pattern:     regexp.MustCompile(`(/[\w.-]+){2,}`),
		placeholder: RedactedPathPlaceholder,
	},
	{
		name: "host",
		pattern: regexp.MustCompile(
			`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
		),
		placeholder: RedactedHostPlaceholder,
	},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Address masks an email address for logs, keeping the first character of the
// local part and the domain: "wes@example.com" becomes "w***@example.com".
func Address(addr string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(addr), "@")
	if !ok || local == "" || domain == "" {
		return RedactedEmailPlaceholder
	}
	return local[:1] + "***@" + domain
}
