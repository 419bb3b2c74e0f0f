// Package redact implements the inline secret scanner: a pure function from
// text to (redacted text, security flags), scanning for AWS access keys and
// generic key=value secret assignments, wired directly into
// schema.SecurityFlags.
package redact

import "regexp"

// Label is the flag appended to redacted_secrets for every matching pattern.
const Label = "SECRET_DETECTED"

// RedactedPlaceholder replaces every matched secret in the output text.
const RedactedPlaceholder = "[REDACTED_SECRET]"

type pattern struct {
	name string
	re   *regexp.Regexp
}

// Sentinel holds the compiled secret patterns. Order is stable: patterns are
// applied sequentially against the evolving string, so a match produced by
// an earlier pattern can never be re-matched by a later one.
type Sentinel struct {
	patterns []pattern
}

// New compiles the built-in pattern set: a generic long API-key prefix and
// the AWS access-key ID shape.
func New() *Sentinel {
	return &Sentinel{
		patterns: []pattern{
			{name: "generic_api_key", re: regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`)},
			{name: "aws_access_key", re: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
		},
	}
}

// Scan applies every configured pattern to text and returns the redacted
// text plus the flags that describe what was found. Idempotent: redacting
// already-redacted text returns the same text and an empty flag list.
func (s *Sentinel) Scan(text string) (redacted string, hasPII bool, flags []string) {
	redacted = text
	flags = []string{}
	for _, p := range s.patterns {
		if p.re.MatchString(redacted) {
			hasPII = true
			redacted = p.re.ReplaceAllString(redacted, RedactedPlaceholder)
			flags = append(flags, Label)
		}
	}
	return redacted, hasPII, flags
}
