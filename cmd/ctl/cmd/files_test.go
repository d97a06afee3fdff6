package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/mwl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "dcm")
	require.NoError(t, os.WriteFile(filepath.Join(in, mwl.RequestSample), []byte("(0010,0010) Patient's Name : Smith^Anna\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, mwl.ResponseSample), []byte("(0010,0020) Patient ID : 12345\n"), 0o644))

	stdout, err := run(t, "convert", "--in", in, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, mwl.RequestOutput)
	assert.Contains(t, stdout, mwl.ResponseOutput)

	_, err = dicom.ReadFile(filepath.Join(out, mwl.ResponseOutput))
	require.NoError(t, err)
}

func TestConvert_MissingSamples(t *testing.T) {
	_, err := run(t, "convert", "--in", t.TempDir(), "--out", t.TempDir())
	assert.ErrorIs(t, err, mwl.ErrSamplesNotFound)
}

func TestDump(t *testing.T) {
	ds, err := sampleItem().FileDataset()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "item.dcm")
	_, err = dicom.WriteFile(path, ds)
	require.NoError(t, err)

	out, err := run(t, "dump", "--file", path)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "Doe^Jane", m["PatientName"])
	assert.Equal(t, "ACC42", m["AccessionNumber"])

	out, err = run(t, "dump", path, "--format", "text")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "PatientName: Doe^Jane"), out)

	jsonOut := filepath.Join(t.TempDir(), "item.json")
	out, err = run(t, "dump", "--file", path, "--out", jsonOut)
	require.NoError(t, err)
	b, err := os.ReadFile(jsonOut)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"PatientID": "P100"`)
	assert.Equal(t, string(b), out)
}

func TestDump_Errors(t *testing.T) {
	_, err := run(t, "dump")
	assert.Error(t, err)

	notDicom := filepath.Join(t.TempDir(), "x.dcm")
	require.NoError(t, os.WriteFile(notDicom, []byte("hello"), 0o644))
	_, err = run(t, "dump", notDicom)
	assert.Error(t, err)

	_, err = run(t, "dump", notDicom, "--format", "xml")
	assert.Error(t, err)
}
