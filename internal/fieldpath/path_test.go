package fieldpath

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/docrequest-portal/internal/models"
)

func TestParse(t *testing.T) {
	p, err := Parse("Contact.Account.Email")
	require.NoError(t, err)
	assert.Equal(t, []string{"Contact", "Account"}, p.Hops())
	assert.Equal(t, "Email", p.Terminal())
	assert.Equal(t, "Contact.Account.Email", p.String())

	empty, err := Parse("   ")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{"A.B.C.D.E.F", "Contact..Email", "Contact.", "1Contact.Email", "Contact.E-mail"}
	for _, raw := range cases {
		_, err := Parse(raw)
		assert.Truef(t, errors.Is(err, ErrInvalidPath), "expected invalid path for %q", raw)
	}

	_, err := Parse("A.B.C.D.E")
	assert.NoError(t, err)
}

func TestEvaluateTraversesRelationships(t *testing.T) {
	account := &models.Record{Fields: map[string]interface{}{"Email": "  ops@acme.test "}}
	contact := &models.Record{Fields: map[string]interface{}{"Account": account, "Name": "Jane"}}
	root := &models.Record{Fields: map[string]interface{}{"Contact": contact}}

	value, err := MustParse("Contact.Account.Email").Evaluate(root)
	require.NoError(t, err)
	assert.Equal(t, "ops@acme.test", value)

	value, err = MustParse("contact.name").Evaluate(root)
	require.NoError(t, err)
	assert.Equal(t, "Jane", value)
}

func TestEvaluateShortCircuitsOnNullRelationship(t *testing.T) {
	var missing *models.Record
	root := &models.Record{Fields: map[string]interface{}{"Contact": missing, "Owner": nil}}

	value, err := MustParse("Contact.Email").Evaluate(root)
	require.NoError(t, err)
	assert.Empty(t, value)

	value, err = MustParse("Owner.Email").Evaluate(root)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestEvaluateTreatsAbsentFieldsAsBlank(t *testing.T) {
	contact := &models.Record{Fields: map[string]interface{}{"Name": "Jane"}}
	root := &models.Record{Fields: map[string]interface{}{"Contact": contact}}

	value, err := MustParse("Contact.Email").Evaluate(root)
	require.NoError(t, err)
	assert.Empty(t, value)

	value, err = MustParse("Owner.Email").Evaluate(root)
	require.NoError(t, err)
	assert.Empty(t, value)

	value, err = MustParse("Email").Evaluate(root)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestEvaluateReportsScalarUsedAsRelationship(t *testing.T) {
	root := &models.Record{Fields: map[string]interface{}{"Email": "a@b.test"}}

	_, err := MustParse("Email.Domain").Evaluate(root)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestEvaluateRelationshipTerminalYieldsReferencedID(t *testing.T) {
	var missing *models.Record
	contact := &models.Record{Ref: models.EntityRef{Type: "contact", ID: "c-1"}, Fields: map[string]interface{}{}}
	root := &models.Record{Fields: map[string]interface{}{
		"Contact": contact,
		"Account": models.EntityRef{Type: "account", ID: " a-9 "},
		"Owner":   missing,
	}}

	value, err := MustParse("Contact").Evaluate(root)
	require.NoError(t, err)
	assert.Equal(t, "c-1", value)

	value, err = MustParse("Account").Evaluate(root)
	require.NoError(t, err)
	assert.Equal(t, "a-9", value)

	value, err = MustParse("Owner").Evaluate(root)
	require.NoError(t, err)
	assert.Empty(t, value)
}
