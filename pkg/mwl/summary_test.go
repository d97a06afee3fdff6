package mwl

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryFromDataset(t *testing.T) {
	ds, err := sampleItem().Dataset()
	require.NoError(t, err)

	s := SummaryFromDataset(ds)
	assert.Equal(t, "Doe^Jane", s.PatientName)
	assert.Equal(t, "P-1001", s.PatientID)
	assert.Equal(t, "20250430", s.ScheduledDate)
	assert.Equal(t, "US", s.Modality)
	assert.Equal(t, DefaultDescription, s.Description)
	assert.Equal(t, DefaultStationName, s.StationName)
	assert.Empty(t, s.ID)
}

func TestSummaryFromDataset_Missing(t *testing.T) {
	ds, err := dicom.NewDataset(dicom.WithElement(tag.PatientID, "P1"))
	require.NoError(t, err)

	s := SummaryFromDataset(ds)
	assert.Equal(t, "P1", s.PatientID)
	assert.Equal(t, NotAvailable, s.PatientName)
	assert.Equal(t, NotAvailable, s.ScheduledDate)
	assert.Equal(t, NotAvailable, s.Modality)
}

func TestSummaryFromTags(t *testing.T) {
	tags := map[string]interface{}{
		"PatientName":                   "Doe^Jane",
		"PatientID":                     "P-1001",
		"AccessionNumber":               "ACC1001",
		"RequestedProcedureDescription": "Cardiac Echo",
		"ScheduledProcedureStepSequence": []interface{}{
			map[string]interface{}{
				"ScheduledProcedureStepStartDate": "20250430",
				"ScheduledProcedureStepStartTime": "095939",
				"Modality":                        "US",
			},
		},
	}
	s := SummaryFromTags("abc-123", tags)
	assert.Equal(t, "abc-123", s.ID)
	assert.Equal(t, "Doe^Jane", s.PatientName)
	assert.Equal(t, "20250430", s.ScheduledDate)
	assert.Equal(t, "095939", s.ScheduledTime)
	assert.Equal(t, "US", s.Modality)
	assert.Equal(t, "Cardiac Echo", s.Description)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, nil))
	assert.Equal(t, "No worklist items found.\n", buf.String())

	buf.Reset()
	items := []Summary{
		{PatientName: "Doe^Jane", PatientID: "P1", AccessionNumber: "A1", ScheduledDate: "20250430",
			ScheduledTime: "0900", Modality: "US", Description: "Ultrasound", StationName: "STATION1"},
		{ID: "abc", PatientName: "Roe^Rick"},
	}
	require.NoError(t, WriteText(&buf, items))
	out := buf.String()
	assert.Contains(t, out, "=== Worklist Items ===\n\nWorklist #1:\n  Patient: Doe^Jane\n  Patient ID: P1\n")
	assert.Contains(t, out, "  Station: STATION1\n")
	assert.Contains(t, out, "Worklist #2:\n  Patient: Roe^Rick\n")
	assert.Contains(t, out, "  ID: abc\n")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, []Summary{{PatientName: "Doe^Jane", ID: "x", Description: "Ultrasound"}}))
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Doe^Jane", decoded[0]["PatientName"])
	assert.Equal(t, "x", decoded[0]["ID"])
	assert.Equal(t, "Ultrasound", decoded[0]["RequestedProcedureDescription"])
	assert.NotContains(t, decoded[0], "Description")
	assert.NotContains(t, decoded[0], "StationName")
}
