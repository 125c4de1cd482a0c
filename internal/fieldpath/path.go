// Package fieldpath parses and evaluates dot-separated traversals such as
// "Contact.Account.Email" over generic records.
package fieldpath

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxSegments bounds the number of segments in a path (relationship hops plus the terminal field).
const MaxSegments = 5

// ErrInvalidPath reports a malformed or structurally unusable path.
var ErrInvalidPath = errors.New("invalid field path")

var segmentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Path is a parsed field path. The zero value means "not configured".
type Path struct {
	raw      string
	segments []string
}

// Parse validates the raw path. An empty string yields the zero Path.
func Parse(raw string) (Path, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Path{}, nil
	}
	segments := strings.Split(raw, ".")
	if len(segments) > MaxSegments {
		return Path{}, fmt.Errorf("%w: %q has %d segments (max %d)", ErrInvalidPath, raw, len(segments), MaxSegments)
	}
	for _, segment := range segments {
		if !segmentPattern.MatchString(segment) {
			return Path{}, fmt.Errorf("%w: %q has malformed segment %q", ErrInvalidPath, raw, segment)
		}
	}
	return Path{raw: raw, segments: segments}, nil
}

// MustParse is Parse for literals in tests and defaults.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// IsZero reports whether the path is unset.
func (p Path) IsZero() bool { return len(p.segments) == 0 }

func (p Path) String() string { return p.raw }

// Segments returns a copy of the path segments.
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Hops returns the relationship segments that precede the terminal field.
func (p Path) Hops() []string {
	if len(p.segments) <= 1 {
		return nil
	}
	return append([]string(nil), p.segments[:len(p.segments)-1]...)
}

// Terminal returns the final field name.
func (p Path) Terminal() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}
