package fieldpath

import (
	"fmt"
	"strings"
	"time"
)

// Node is a record that exposes named fields. Relationship fields must hold another Node.
type Node interface {
	Field(name string) (interface{}, bool)
}

type nilChecker interface {
	IsNil() bool
}

// referencer is implemented by relationship values that can report the id they point at.
type referencer interface {
	ReferenceID() string
}

// Evaluate walks the path from root and returns the terminal value as trimmed text.
// A null relationship or an absent field anywhere along the way short-circuits to ("", nil).
// A relationship used as the terminal field yields the id it references.
// A hop through a value that is not a relationship is ErrInvalidPath.
func (p Path) Evaluate(root Node) (string, error) {
	if p.IsZero() {
		return "", nil
	}
	current := root
	for i, segment := range p.segments {
		if isNilNode(current) {
			return "", nil
		}
		value, ok := current.Field(segment)
		if i == len(p.segments)-1 {
			return scalarText(value), nil
		}
		if !ok || value == nil {
			return "", nil
		}
		next, ok := value.(Node)
		if !ok {
			return "", fmt.Errorf("%w: %q: %q is not a relationship", ErrInvalidPath, p.raw, segment)
		}
		current = next
	}
	return "", nil
}

func isNilNode(n Node) bool {
	if n == nil {
		return true
	}
	if checker, ok := n.(nilChecker); ok {
		return checker.IsNil()
	}
	return false
}

func scalarText(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case referencer:
		return strings.TrimSpace(v.ReferenceID())
	case Node:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
