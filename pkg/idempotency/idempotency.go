// Package idempotency reads client supplied idempotency keys.
package idempotency

import (
	"net/http"
	"regexp"
	"strings"
)

const Header = "Idempotency-Key"

var valid = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// Key returns the request's idempotency key, or "" when absent.
func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Valid reports whether k is empty or a well-formed key.
func Valid(k string) bool { return k == "" || valid.MatchString(k) }
