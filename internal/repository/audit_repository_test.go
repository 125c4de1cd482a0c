package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/docrequest-portal/internal/models"
)

func TestAuditRepositoryCreateSendsJSONAsText(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewAuditRepository(sqlx.NewDb(db, "sqlmock"))

	resourceID := "req-1"
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	entry := &models.AuditLog{
		ID:         "log-1",
		Action:     models.AuditActionRequestCommit,
		Resource:   "document_request",
		ResourceID: &resourceID,
		NewValues:  json.RawMessage(`{"linked":2}`),
		CreatedAt:  at,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs("log-1", nil, models.AuditActionRequestCommit, "document_request", "req-1", nil, `{"linked":2}`, "", "", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListByResource(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewAuditRepository(sqlx.NewDb(db, "sqlmock"))

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "resource_id", "old_values", "new_values", "ip_address", "user_agent", "created_at"}).
		AddRow("log-1", "op-1", models.AuditActionRequestCreate, "document_request", "req-1", nil, []byte(`{"status":"SENT"}`), "", "", at)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE resource = $1 AND resource_id = $2")).
		WithArgs("document_request", "req-1").
		WillReturnRows(rows)

	logs, err := repo.ListByResource(context.Background(), "document_request", "req-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.JSONEq(t, `{"status":"SENT"}`, string(logs[0].NewValues))
	require.NoError(t, mock.ExpectationsWereMet())
}
