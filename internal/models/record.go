package models

import "strings"

// EntityRef identifies an internal record.
type EntityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ReferenceID returns the referenced entity id.
func (e EntityRef) ReferenceID() string {
	return e.ID
}

// Record is a generic key-value view of an internal entity. Relationship fields hold
// *Record values once resolved (nil when the reference is empty) or EntityRef values
// while unresolved; other fields hold scalars.
type Record struct {
	Ref    EntityRef
	Fields map[string]interface{}
}

// Field returns the named field, matching case-insensitively when no exact key exists.
func (r *Record) Field(name string) (interface{}, bool) {
	if r == nil || r.Fields == nil {
		return nil, false
	}
	if v, ok := r.Fields[name]; ok {
		return v, true
	}
	for key, v := range r.Fields {
		if strings.EqualFold(key, name) {
			return v, true
		}
	}
	return nil, false
}

// IsNil reports whether the record pointer is nil.
func (r *Record) IsNil() bool {
	return r == nil
}

// ReferenceID returns the id of the record, or "" for a nil record.
func (r *Record) ReferenceID() string {
	if r == nil {
		return ""
	}
	return r.Ref.ID
}
