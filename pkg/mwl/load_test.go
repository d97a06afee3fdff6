package mwl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadItems(t *testing.T) {
	path := writeFile(t, "items.json", `[
		{"patient_name": "Doe^Jane", "patient_id": 1001, "accession_number": "A1",
		 "date": "20250430", "time": "090000", "sex": "F", "size": 1.6, "unknown": true},
		{"patient_name": "Roe^Rick", "patient_id": "P2", "accession_number": "A2", "station": "ECHO2"}
	]`)
	items, err := LoadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Doe^Jane", items[0].PatientName)
	assert.Equal(t, "1001", items[0].PatientID)
	assert.Equal(t, "090000", items[0].ScheduledTime)
	assert.InDelta(t, 1.6, items[0].PatientSize, 1e-9)
	assert.Equal(t, "ECHO2", items[1].StationName)
}

func TestLoadItems_NotArray(t *testing.T) {
	path := writeFile(t, "item.json", `{"patient_name": "Doe^Jane"}`)
	_, err := LoadItems(path)
	assert.ErrorIs(t, err, ErrNotArray)
}

func TestLoadItems_Errors(t *testing.T) {
	_, err := LoadItems(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadItems(writeFile(t, "bad.json", `[{`))
	assert.Error(t, err)

	_, err = LoadItems(writeFile(t, "scalar.json", `["x"]`))
	assert.ErrorContains(t, err, "item 0")
}
