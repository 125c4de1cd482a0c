package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/docrequest-portal/internal/fieldpath"
	"github.com/noah-isme/docrequest-portal/internal/models"
)

// refKey is the JSON key marking a relationship value inside a record's fields document.
const refKey = "$ref"

// RecordRepository reads internal entities stored as typed JSON documents.
// Relationship fields are stored as {"$ref": {"type": "...", "id": "..."}}.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

type recordRow struct {
	EntityType string `db:"entity_type"`
	EntityID   string `db:"entity_id"`
	Fields     []byte `db:"fields"`
}

type cursor struct {
	record *models.Record
	hops   []string
}

type pendingAttach struct {
	record *models.Record
	field  string
	ref    models.EntityRef
	rest   []string
}

// Fetch loads the root record and resolves every relationship needed by the given paths.
// Related records are loaded one level at a time with a single batched query per level.
// Returns sql.ErrNoRows when the root record does not exist.
func (r *RecordRepository) Fetch(ctx context.Context, entityType, entityID string, paths []fieldpath.Path) (*models.Record, error) {
	rootRef := models.EntityRef{Type: entityType, ID: entityID}
	loaded, err := r.load(ctx, []models.EntityRef{rootRef})
	if err != nil {
		return nil, err
	}
	root, ok := loaded[refString(rootRef)]
	if !ok {
		return nil, sql.ErrNoRows
	}

	cursors := make([]cursor, 0, len(paths))
	for _, p := range paths {
		if hops := p.Hops(); len(hops) > 0 {
			cursors = append(cursors, cursor{record: root, hops: hops})
		}
	}

	for depth := 0; len(cursors) > 0 && depth < fieldpath.MaxSegments; depth++ {
		pending := make(map[string]models.EntityRef)
		attaches := make([]pendingAttach, 0, len(cursors))
		next := make([]cursor, 0, len(cursors))

		for _, c := range cursors {
			field, raw, found := lookupField(c.record, c.hops[0])
			if !found {
				continue
			}
			if resolved, isRecord := raw.(*models.Record); isRecord {
				if resolved != nil && len(c.hops) > 1 {
					next = append(next, cursor{record: resolved, hops: c.hops[1:]})
				}
				continue
			}
			ref, isRef := asRef(raw)
			if !isRef {
				continue
			}
			pending[refString(ref)] = ref
			attaches = append(attaches, pendingAttach{record: c.record, field: field, ref: ref, rest: c.hops[1:]})
		}

		if len(pending) > 0 {
			refs := make([]models.EntityRef, 0, len(pending))
			for _, ref := range pending {
				refs = append(refs, ref)
			}
			related, err := r.load(ctx, refs)
			if err != nil {
				return nil, err
			}
			for _, a := range attaches {
				child := related[refString(a.ref)]
				a.record.Fields[a.field] = child
				if child != nil && len(a.rest) > 0 {
					next = append(next, cursor{record: child, hops: a.rest})
				}
			}
		}
		cursors = next
	}

	return root, nil
}

func (r *RecordRepository) load(ctx context.Context, refs []models.EntityRef) (map[string]*models.Record, error) {
	types := make([]string, len(refs))
	ids := make([]string, len(refs))
	for i, ref := range refs {
		types[i] = ref.Type
		ids[i] = ref.ID
	}
	const query = `SELECT r.entity_type, r.entity_id, r.fields
FROM records r
JOIN unnest($1::text[], $2::text[]) AS k(entity_type, entity_id)
  ON r.entity_type = k.entity_type AND r.entity_id = k.entity_id`
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(types), pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	result := make(map[string]*models.Record, len(rows))
	for _, row := range rows {
		fields, err := decodeFields(row.Fields)
		if err != nil {
			return nil, fmt.Errorf("decode record %s/%s: %w", row.EntityType, row.EntityID, err)
		}
		ref := models.EntityRef{Type: row.EntityType, ID: row.EntityID}
		result[refString(ref)] = &models.Record{Ref: ref, Fields: fields}
	}
	return result, nil
}

func decodeFields(raw []byte) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if len(raw) == 0 {
		return fields, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return nil, err
	}
	for key, value := range fields {
		obj, ok := value.(map[string]interface{})
		if !ok {
			continue
		}
		target, has := obj[refKey]
		if !has {
			continue
		}
		if ref, valid := parseRef(target); valid {
			fields[key] = ref
		} else {
			fields[key] = nil
		}
	}
	return fields, nil
}

func lookupField(record *models.Record, name string) (string, interface{}, bool) {
	if record == nil || record.Fields == nil {
		return "", nil, false
	}
	if v, ok := record.Fields[name]; ok {
		return name, v, true
	}
	for key, v := range record.Fields {
		if strings.EqualFold(key, name) {
			return key, v, true
		}
	}
	return "", nil, false
}

func asRef(value interface{}) (models.EntityRef, bool) {
	ref, ok := value.(models.EntityRef)
	return ref, ok
}

// parseRef reads the {"type","id"} object under a $ref key. A null or incomplete target is not a reference.
func parseRef(value interface{}) (models.EntityRef, bool) {
	target, ok := value.(map[string]interface{})
	if !ok {
		return models.EntityRef{}, false
	}
	entityType, _ := target["type"].(string)
	entityID, _ := target["id"].(string)
	if entityType == "" || entityID == "" {
		return models.EntityRef{}, false
	}
	return models.EntityRef{Type: entityType, ID: entityID}, true
}

func refString(ref models.EntityRef) string {
	return ref.Type + "/" + ref.ID
}
