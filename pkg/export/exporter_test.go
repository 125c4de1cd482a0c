package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"File", "Decision"},
		Rows: []map[string]string{
			{"File": "passport.pdf", "Decision": "APPROVED"},
			{"File": "=HYPERLINK(\"x\")", "Decision": "REJECTED"},
		},
		Summary: []SummaryLine{{Label: "Request", Value: "DR-000001"}},
	}
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	assert.Equal(t, "File,Decision\npassport.pdf,APPROVED\n\"'=HYPERLINK(\"\"x\"\")\",REJECTED\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRendersDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Review manifest DR-000001")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
