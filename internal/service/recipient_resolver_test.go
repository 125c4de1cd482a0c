package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/docrequest-portal/internal/fieldpath"
	"github.com/noah-isme/docrequest-portal/internal/models"
	appErrors "github.com/noah-isme/docrequest-portal/pkg/errors"
)

type recordFetcherStub struct {
	mu      sync.Mutex
	records map[string]*models.Record
	calls   int
	paths   []string
}

func (s *recordFetcherStub) Fetch(ctx context.Context, entityType, entityID string, paths []fieldpath.Path) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, p := range paths {
		s.paths = append(s.paths, p.String())
	}
	record, ok := s.records[entityType+"/"+entityID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

type configProviderStub map[string]models.EntityTypeConfig

func (s configProviderStub) GetConfig(ctx context.Context, typeID string) (*models.EntityTypeConfig, error) {
	cfg, ok := s[typeID]
	if !ok || !cfg.IsActive {
		return nil, notConfigured(typeID)
	}
	return &cfg, nil
}

func invoiceConfig() models.EntityTypeConfig {
	cfg := vendorConfig()
	cfg.TypeID = "Invoice"
	cfg.RecipientEmailPath = "Vendor.PrimaryContact.Email"
	cfg.RecipientNamePath = "Vendor.PrimaryContact.FullName"
	cfg.RecipientRefPath = "Vendor.PrimaryContact.Id"
	return cfg
}

func invoiceRecord(contact *models.Record) *models.Record {
	vendor := &models.Record{
		Ref:    models.EntityRef{Type: "Vendor", ID: "v-1"},
		Fields: map[string]interface{}{"Name": "Acme", "PrimaryContact": contact},
	}
	return &models.Record{
		Ref:    models.EntityRef{Type: "Invoice", ID: "inv-1"},
		Fields: map[string]interface{}{"Number": "INV-1", "Vendor": vendor},
	}
}

func TestRecipientResolverFollowsRelationships(t *testing.T) {
	contact := &models.Record{
		Ref:    models.EntityRef{Type: "Contact", ID: "c-7"},
		Fields: map[string]interface{}{"Email": " ap@acme.test ", "FullName": "Pat Doe", "Id": "c-7"},
	}
	records := &recordFetcherStub{records: map[string]*models.Record{"Invoice/inv-1": invoiceRecord(contact)}}
	resolver := NewRecipientResolver(configProviderStub{"Invoice": invoiceConfig()}, records, nil)

	recipient, err := resolver.Resolve(context.Background(), "Invoice", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "ap@acme.test", recipient.Email)
	assert.Equal(t, "Pat Doe", recipient.Name)
	require.NotNil(t, recipient.ContactRef)
	assert.Equal(t, "c-7", *recipient.ContactRef)
	assert.Equal(t, 1, records.calls)
	assert.ElementsMatch(t, []string{"Vendor.PrimaryContact.Email", "Vendor.PrimaryContact.FullName", "Vendor.PrimaryContact.Id"}, records.paths)
}

func TestRecipientResolverNullRelationshipMeansMissingEmail(t *testing.T) {
	records := &recordFetcherStub{records: map[string]*models.Record{"Invoice/inv-1": invoiceRecord(nil)}}
	resolver := NewRecipientResolver(configProviderStub{"Invoice": invoiceConfig()}, records, nil)

	_, err := resolver.Resolve(context.Background(), "Invoice", "inv-1")
	assertErrorCode(t, err, appErrors.ErrMissingRecipientEmail)
}

func TestRecipientResolverBlankNameFallsBack(t *testing.T) {
	contact := &models.Record{Fields: map[string]interface{}{"Email": "ap@acme.test", "FullName": "  ", "Id": nil}}
	records := &recordFetcherStub{records: map[string]*models.Record{"Invoice/inv-1": invoiceRecord(contact)}}
	resolver := NewRecipientResolver(configProviderStub{"Invoice": invoiceConfig()}, records, nil)

	recipient, err := resolver.Resolve(context.Background(), "Invoice", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, defaultRecipientName, recipient.Name)
	assert.Nil(t, recipient.ContactRef)
}

func TestRecipientResolverAbsentEmailFieldMeansMissingEmail(t *testing.T) {
	contact := &models.Record{
		Ref:    models.EntityRef{Type: "Contact", ID: "c-7"},
		Fields: map[string]interface{}{"FullName": "Pat Doe"},
	}
	records := &recordFetcherStub{records: map[string]*models.Record{"Invoice/inv-1": invoiceRecord(contact)}}
	resolver := NewRecipientResolver(configProviderStub{"Invoice": invoiceConfig()}, records, nil)

	_, err := resolver.Resolve(context.Background(), "Invoice", "inv-1")
	assertErrorCode(t, err, appErrors.ErrMissingRecipientEmail)

	cfg := invoiceConfig()
	cfg.RecipientEmailPath = "Vendor.Missing.Email"
	resolver = NewRecipientResolver(configProviderStub{"Invoice": cfg}, records, nil)
	_, err = resolver.Resolve(context.Background(), "Invoice", "inv-1")
	assertErrorCode(t, err, appErrors.ErrMissingRecipientEmail)
}

func TestRecipientResolverRefPathOnRelationshipUsesReferencedID(t *testing.T) {
	cfg := invoiceConfig()
	cfg.RecipientRefPath = "Vendor.PrimaryContact"
	contact := &models.Record{
		Ref:    models.EntityRef{Type: "Contact", ID: "c-7"},
		Fields: map[string]interface{}{"Email": "ap@acme.test"},
	}
	records := &recordFetcherStub{records: map[string]*models.Record{"Invoice/inv-1": invoiceRecord(contact)}}
	resolver := NewRecipientResolver(configProviderStub{"Invoice": cfg}, records, nil)

	recipient, err := resolver.Resolve(context.Background(), "Invoice", "inv-1")
	require.NoError(t, err)
	require.NotNil(t, recipient.ContactRef)
	assert.Equal(t, "c-7", *recipient.ContactRef)
}

func TestRecipientResolverInvalidPath(t *testing.T) {
	cfg := invoiceConfig()
	cfg.RecipientEmailPath = "Number.Email"
	contact := &models.Record{Fields: map[string]interface{}{"Email": "ap@acme.test"}}
	records := &recordFetcherStub{records: map[string]*models.Record{"Invoice/inv-1": invoiceRecord(contact)}}
	resolver := NewRecipientResolver(configProviderStub{"Invoice": cfg}, records, nil)

	_, err := resolver.Resolve(context.Background(), "Invoice", "inv-1")
	assertErrorCode(t, err, appErrors.ErrInvalidFieldPath)

	cfg.RecipientEmailPath = "Vendor..Email"
	resolver = NewRecipientResolver(configProviderStub{"Invoice": cfg}, records, nil)
	_, err = resolver.Resolve(context.Background(), "Invoice", "inv-1")
	assertErrorCode(t, err, appErrors.ErrInvalidFieldPath)
}

func TestRecipientResolverUnknownEntity(t *testing.T) {
	resolver := NewRecipientResolver(configProviderStub{"Invoice": invoiceConfig()}, &recordFetcherStub{}, nil)

	_, err := resolver.Resolve(context.Background(), "Invoice", "missing")
	assertErrorCode(t, err, appErrors.ErrNotFound)

	_, err = resolver.Resolve(context.Background(), "Unknown", "x")
	assertErrorCode(t, err, appErrors.ErrNotConfigured)
}
