// Package redact scrubs credential material from strings before they are
// logged. Provider token-endpoint errors embed the raw response body, so
// an unscrubbed exchange failure can put access and refresh tokens into
// the log stream; everything that logs an error it did not construct
// itself goes through this package first.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
)

// rule pairs a pattern with its replacement template.
type rule struct {
	pattern *regexp.Regexp
	repl    string
}

var rules = []rule{
	// OAuth token-endpoint response bodies: "access_token":"ya29...".
	{
		regexp.MustCompile(`(?i)"(access_token|refresh_token|id_token|client_secret|code)"\s*:\s*"[^"]*"`),
		`"$1":"` + RedactedTokenPlaceholder + `"`,
	},
	// Form-encoded token parameters: refresh_token=1%2F...&.
	{
		regexp.MustCompile(`(?i)\b(access_token|refresh_token|id_token|client_secret|code)=[^&\s"]+`),
		"$1=" + RedactedTokenPlaceholder,
	},
	// Authorization header values.
	{
		regexp.MustCompile(`(?i)\b(bearer|basic)\s+[A-Za-z0-9_\-.~+/]+=*`),
		"$1 " + RedactedTokenPlaceholder,
	},
	// Three-part base64url JWTs.
	{
		regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		RedactedJWTPlaceholder,
	},
	// Database connection strings with inline credentials.
	{
		regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb)://[^@\s]+@`),
		"$1://" + RedactedCredentialPlaceholder + "@",
	},
	// Password assignments in messages and DSN fragments.
	{
		regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]['"]?)[^'"&\s]{3,}`),
		"$1$2" + RedactedCredentialPlaceholder,
	},
	// API keys and generic secrets.
	{
		regexp.MustCompile(`(?i)(api[_-]?key|secret|token)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		"$1$2" + RedactedKeyPlaceholder,
	},
}

// String redacts credential material from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.repl)
	}
	return result
}

// Error redacts credential material from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
