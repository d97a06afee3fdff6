package cmd

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/dimse"
	"github.com/jpfielding/dicomctl.go/pkg/dimse/dimsetest"
	"github.com/jpfielding/dicomctl.go/pkg/mwl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItem() mwl.Item {
	return mwl.Item{
		PatientName:     "Doe^Jane",
		PatientID:       "P100",
		AccessionNumber: "ACC42",
		ScheduledDate:   "20250430",
		ScheduledTime:   "095939",
	}
}

func TestFind_Text(t *testing.T) {
	match, err := sampleItem().Dataset()
	require.NoError(t, err)
	scp := &dimsetest.SCP{Matches: []*dicom.Dataset{match}}
	srv := dimsetest.NewServer(t, dimsetest.Options{}, scp.Handle)

	args := append([]string{"find", "--modality", "US", "--start-date", "20250401", "--end-date", "20250430"}, targetArgs(srv)...)
	out, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Worklist Items ===")
	assert.Contains(t, out, "Patient: Doe^Jane")
	assert.Contains(t, out, "Station: STATION1")

	sps := dicom.FirstItem(scp.Queries()[0], tag.ScheduledProcedureStepSequence)
	assert.Equal(t, "20250401-20250430", dicom.GetString(sps, tag.ScheduledProcedureStepStartDate))
}

func TestFind_JSONEmpty(t *testing.T) {
	srv := dimsetest.NewServer(t, dimsetest.Options{}, (&dimsetest.SCP{}).Handle)

	out, err := run(t, append([]string{"find", "--output", "json"}, targetArgs(srv)...)...)
	require.NoError(t, err)
	var items []mwl.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Empty(t, items)
}

func TestFind_QueryFile(t *testing.T) {
	scp := &dimsetest.SCP{}
	srv := dimsetest.NewServer(t, dimsetest.Options{}, scp.Handle)

	query, err := mwl.Query{PatientName: "Roe*"}.Dataset()
	require.NoError(t, err)
	require.NoError(t, mwl.AddFileMeta(query))
	path := filepath.Join(t.TempDir(), "query.dcm")
	_, err = dicom.WriteFile(path, query)
	require.NoError(t, err)

	_, err = run(t, append([]string{"find", "--query-file", path}, targetArgs(srv)...)...)
	require.NoError(t, err)
	require.Len(t, scp.Queries(), 1)
	assert.Equal(t, "Roe*", dicom.GetString(scp.Queries()[0], tag.PatientName))
}

func TestSendWorklist(t *testing.T) {
	scp := &dimsetest.SCP{}
	srv := dimsetest.NewServer(t, dimsetest.Options{}, scp.Handle)
	dir := t.TempDir()

	args := append([]string{"send-worklist",
		"--patient-name", "Doe^Jane", "--patient-id", "P100", "--accession", "ACC42",
		"--save-dir", dir}, targetArgs(srv)...)
	_, err := run(t, args...)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "worklist_Doe_Jane_ACC42.dcm"))
	require.NoError(t, err)
	stored := scp.Stored()
	require.Len(t, stored, 1)
	assert.Equal(t, "ACC42", dicom.GetString(stored[0], tag.AccessionNumber))
}

func TestSendWorklist_RequiredFlags(t *testing.T) {
	_, err := run(t, "send-worklist", "--patient-name", "Doe^Jane")
	assert.Error(t, err)
}

func TestSendWorklist_Rejected(t *testing.T) {
	scp := &dimsetest.SCP{StoreStatus: dimse.StatusOutOfResources}
	srv := dimsetest.NewServer(t, dimsetest.Options{}, scp.Handle)

	args := append([]string{"send-worklist",
		"--patient-name", "Doe^Jane", "--patient-id", "P100", "--accession", "ACC42",
		"--save-dir", ""}, targetArgs(srv)...)
	_, err := run(t, args...)
	assert.Error(t, err)
}

func TestUploadImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	scp := &dimsetest.SCP{}
	srv := dimsetest.NewServer(t, dimsetest.Options{}, scp.Handle)
	args := append([]string{"upload-image", "--image", path,
		"--patient-name", "Haque^Nirab", "--exam-date", "20250223", "--exam-time", "101010"}, targetArgs(srv)...)
	_, err = run(t, args...)
	require.NoError(t, err)

	stored := scp.Stored()
	require.Len(t, stored, 1)
	assert.Equal(t, "Haque^Nirab", dicom.GetString(stored[0], tag.PatientName))
	assert.Equal(t, dicom.SecondaryCaptureImageStorage, dicom.GetString(stored[0], tag.SOPClassUID))
	assert.Equal(t, "20250223", dicom.GetString(stored[0], tag.StudyDate))
}

func TestUploadImage_MissingImage(t *testing.T) {
	_, err := run(t, "upload-image")
	assert.Error(t, err)
}
