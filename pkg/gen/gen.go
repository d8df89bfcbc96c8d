// Package gen provides helpers for deriving stable identifiers.
package gen

import "strings"

const sep = "|"

// Key joins the given parts into a stable lookup key.
func Key(parts ...string) string {
	return strings.Join(parts, sep)
}
