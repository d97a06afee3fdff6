package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/orthanc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrthanc records uploads and serves them back as simplified tags
type fakeOrthanc struct {
	mu      sync.Mutex
	uploads []*dicom.Dataset
	deleted []string
	failAt  map[int]bool
}

func (f *fakeOrthanc) server(t *testing.T) string {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /instances", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		ds, err := dicom.Parse(bytes.NewReader(b))
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		n := len(f.uploads)
		f.uploads = append(f.uploads, ds)
		if f.failAt[n] {
			http.Error(w, "storage full", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(orthanc.UploadResult{ID: "id-" + dicom.GetString(ds, tag.AccessionNumber), Status: "Success"})
	})
	mux.HandleFunc("POST /modalities/orthanc/find-worklist", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["id-ACC42"]`))
	})
	mux.HandleFunc("GET /instances/{id}/simplified-tags", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"PatientName":"Doe^Jane","AccessionNumber":"ACC42","RequestedProcedureDescription":"Ultrasound"}`))
	})
	mux.HandleFunc("DELETE /instances/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, r.PathValue("id"))
		f.mu.Unlock()
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestWorklistCreate(t *testing.T) {
	f := &fakeOrthanc{}
	url := f.server(t)

	out, err := run(t, "worklist", "--orthanc-url", url, "create",
		"--patient-name", "Doe^Jane", "--patient-id", "P100", "--accession", "ACC42",
		"--date", "20250501", "--time", "083000", "--sex", "F")
	require.NoError(t, err)

	var res orthanc.UploadResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "id-ACC42", res.ID)
	assert.Contains(t, out, "\n  \"ID\"")

	require.Len(t, f.uploads, 1)
	ds := f.uploads[0]
	assert.Equal(t, dicom.ModalityWorklistFindSOPClass, dicom.GetString(ds, tag.MediaStorageSOPClassUID))
	sps := dicom.FirstItem(ds, tag.ScheduledProcedureStepSequence)
	assert.Equal(t, "20250501", dicom.GetString(sps, tag.ScheduledProcedureStepStartDate))
	assert.Equal(t, "STATION1", dicom.GetString(sps, tag.ScheduledStationName))
}

func TestWorklistCreate_InvalidSex(t *testing.T) {
	f := &fakeOrthanc{}
	url := f.server(t)
	_, err := run(t, "worklist", "--orthanc-url", url, "create",
		"--patient-name", "Doe^Jane", "--patient-id", "P100", "--accession", "ACC42", "--sex", "X")
	assert.Error(t, err)
	assert.Empty(t, f.uploads)
}

func TestWorklistList(t *testing.T) {
	url := (&fakeOrthanc{}).server(t)

	out, err := run(t, "worklist", "--orthanc-url", url, "list", "--start-date", "20250101", "--end-date", "20251231")
	require.NoError(t, err)
	assert.Contains(t, out, "Patient: Doe^Jane")
	assert.Contains(t, out, "ID: id-ACC42")

	out, err = run(t, "worklist", "--orthanc-url", url, "list", "--start-date", "20250101", "--end-date", "20251231", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"AccessionNumber": "ACC42"`)
	assert.Contains(t, out, `"RequestedProcedureDescription": "Ultrasound"`)
}

func TestWorklist_UnknownOutput(t *testing.T) {
	url := (&fakeOrthanc{}).server(t)

	for _, args := range [][]string{
		{"list", "--start-date", "20250101", "--end-date", "20251231", "-o", "xml"},
		{"get", "--id", "id-ACC42", "-o", "xml"},
	} {
		out, err := run(t, append([]string{"worklist", "--orthanc-url", url}, args...)...)
		require.Error(t, err, args[0])
		assert.Contains(t, err.Error(), "--output must be text or json", args[0])
		assert.Empty(t, out, args[0])
	}
}

func TestWorklistList_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	out, err := run(t, "worklist", "--orthanc-url", srv.URL, "list", "--start-date", "20250101", "--end-date", "20250102")
	require.NoError(t, err)
	assert.Equal(t, "No worklist items found for the specified date range.\n", out)
}

func TestWorklistGetDelete(t *testing.T) {
	f := &fakeOrthanc{}
	url := f.server(t)

	out, err := run(t, "worklist", "--orthanc-url", url, "get", "--id", "id-ACC42")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Worklist Details ===")
	assert.Contains(t, out, "AccessionNumber: ACC42\nPatientName: Doe^Jane\n")

	_, err = run(t, "worklist", "--orthanc-url", url, "delete", "--id", "id-ACC42")
	require.NoError(t, err)
	assert.Equal(t, []string{"id-ACC42"}, f.deleted)
}

func TestWorklistBatch(t *testing.T) {
	f := &fakeOrthanc{failAt: map[int]bool{1: true}}
	url := f.server(t)

	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"patient_name": "Doe^Jane", "patient_id": "P1", "accession_number": "A1", "date": "20250501", "time": "080000"},
		{"patient_name": "Roe^Rick", "patient_id": 2, "accession_number": "A2", "date": "20250501", "time": "090000"},
		{"patient_name": "", "patient_id": "P3", "accession_number": "A3"}
	]`), 0o644))

	_, err := run(t, "worklist", "--orthanc-url", url, "batch", "--file", path)
	require.NoError(t, err)
	assert.Len(t, f.uploads, 2)
}

func TestWorklistBatch_NothingUploaded(t *testing.T) {
	f := &fakeOrthanc{failAt: map[int]bool{0: true, 1: true}}
	url := f.server(t)

	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"patient_name": "Doe^Jane", "patient_id": "P1", "accession_number": "A1"},
		{"patient_name": "Roe^Rick", "patient_id": "P2", "accession_number": "A2"}
	]`), 0o644))

	_, err := run(t, "worklist", "--orthanc-url", url, "batch", "--file", path, "--concurrency", "2")
	assert.Error(t, err)
}
