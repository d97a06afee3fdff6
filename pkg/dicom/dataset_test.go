package dicom

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/module"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataset_DictionaryVR(t *testing.T) {
	ds, err := NewDataset(
		WithElement(tag.PatientName, "Doe^John"),
		WithElement(tag.Rows, uint16(10)),
		WithVR(tag.New(0x0009, 0x0010), "LO", "PRIVATE"),
	)
	require.NoError(t, err)
	assert.Equal(t, "PN", ds.Elements[tag.PatientName].VR)
	assert.Equal(t, "US", ds.Elements[tag.Rows].VR)
	assert.Equal(t, "LO", ds.Elements[tag.New(0x0009, 0x0010)].VR)
	assert.Equal(t, 3, ds.Len())
}

func TestWithVR_Invalid(t *testing.T) {
	_, err := NewDataset(WithVR(tag.PatientID, "LONG", "x"))
	assert.Error(t, err)

	_, err = NewDataset(WithVR(tag.ScheduledProcedureStepSequence, "SQ", "not items"))
	assert.Error(t, err)
}

func TestWithFileMeta_UnsupportedSyntax(t *testing.T) {
	_, err := NewDataset(WithFileMeta(SecondaryCaptureImageStorage, "1.2.3", transfer.JPEGBaseline))
	assert.Error(t, err)
}

func TestWithModules(t *testing.T) {
	patient := &module.PatientModule{PatientName: module.ParsePersonName("Doe^John"), PatientID: "P1"}
	sop := &module.SOPCommonModule{SOPClassUID: SecondaryCaptureImageStorage, SOPInstanceUID: "1.2.3"}
	ds, err := NewDataset(WithModules(patient, sop))
	require.NoError(t, err)
	assert.Equal(t, "Doe^John", GetString(ds, tag.PatientName))
	assert.Equal(t, SecondaryCaptureImageStorage, GetString(ds, tag.SOPClassUID))
	assert.False(t, HasElement(ds, tag.InstanceCreationDate))
}

func TestSequenceBuilder_Basic(t *testing.T) {
	builder := NewSequenceBuilder(tag.ScheduledProcedureStepSequence)
	builder.AddItem(
		WithElement(tag.ScheduledStationAETitle, "US01"),
	).AddItem(
		WithElement(tag.ScheduledStationAETitle, "US02"),
	)
	assert.False(t, builder.HasErrors())

	opt, err := builder.Build()
	require.NoError(t, err)
	ds, err := NewDataset(opt)
	require.NoError(t, err)
	items := GetSequenceItems(ds, tag.ScheduledProcedureStepSequence)
	require.Len(t, items, 2)
	assert.Equal(t, "US02", GetString(items[1], tag.ScheduledStationAETitle))
}

func TestSequenceBuilder_AccumulatesErrors(t *testing.T) {
	builder := NewSequenceBuilder(tag.ScheduledProcedureStepSequence)
	builder.AddItem(WithVR(tag.Modality, "X", "US")).
		AddItem(WithElement(tag.Modality, "US")).
		AddItem(WithVR(tag.Modality, "LONG", "US"))
	assert.True(t, builder.HasErrors())
	assert.Len(t, builder.Errors(), 2)
	_, err := builder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 0")
	assert.Contains(t, err.Error(), "item 1")
}

func TestAddSequenceItem(t *testing.T) {
	ds, err := NewDataset(WithElement(tag.PatientID, "P1"))
	require.NoError(t, err)

	item, _ := NewDataset(WithElement(tag.Modality, "US"))
	require.NoError(t, AddSequenceItem(ds, tag.ScheduledProcedureStepSequence, item))
	require.NoError(t, AddSequenceItem(ds, tag.ScheduledProcedureStepSequence, item))
	assert.Len(t, GetSequenceItems(ds, tag.ScheduledProcedureStepSequence), 2)
	assert.Equal(t, item, FirstItem(ds, tag.ScheduledProcedureStepSequence))

	assert.Error(t, AddSequenceItem(ds, tag.PatientID, item))
	assert.Error(t, AddSequenceItem(ds, tag.ScheduledProcedureStepSequence, nil))
	assert.Nil(t, FirstItem(ds, tag.ReferringPhysicianName))
}

func TestCloneDataset_Deep(t *testing.T) {
	item, _ := NewDataset(WithElement(tag.Modality, "US"))
	ds, _ := NewDataset(
		WithElement(tag.PatientID, "P1"),
		WithSequence(tag.ScheduledProcedureStepSequence, item),
	)
	clone := CloneDataset(ds)
	FirstItem(clone, tag.ScheduledProcedureStepSequence).Elements[tag.Modality].Value = "CT"
	assert.Equal(t, "US", GetString(item, tag.Modality))
}

func TestWithoutFileMeta(t *testing.T) {
	ds, _ := NewDataset(
		WithElement(tag.PatientID, "P1"),
		WithFileMeta(SecondaryCaptureImageStorage, "1.2.3", transfer.ExplicitVRLittleEndian),
	)
	body := WithoutFileMeta(ds)
	assert.Equal(t, 1, body.Len())
	assert.True(t, HasElement(ds, tag.TransferSyntaxUID))
}

func TestElement_Accessors(t *testing.T) {
	e := &Element{Value: "ORIGINAL\\PRIMARY"}
	vals, ok := e.GetStrings()
	require.True(t, ok)
	assert.Equal(t, []string{"ORIGINAL", "PRIMARY"}, vals)

	e = &Element{Value: []string{"A", "B"}}
	s, _ := e.GetString()
	assert.Equal(t, "A\\B", s)

	n, ok := (&Element{Value: " 42"}).GetInt()
	require.True(t, ok)
	assert.Equal(t, 42, n)

	f, ok := (&Element{Value: "1.73"}).GetFloat()
	require.True(t, ok)
	assert.InDelta(t, 1.73, f, 1e-9)

	_, ok = (&Element{Value: uint16(1)}).GetString()
	assert.False(t, ok)
}

func TestToKeywordMap(t *testing.T) {
	item, _ := NewDataset(WithElement(tag.Modality, "US"))
	ds, err := NewDataset(
		WithElement(tag.PatientName, "Doe^John"),
		WithElement(tag.ImageType, "ORIGINAL\\PRIMARY"),
		WithElement(tag.Rows, uint16(2)),
		WithVR(tag.PixelData, "OB", []byte{1, 2, 3, 4, 5, 6}),
		WithVR(tag.New(0x0009, 0x1001), "UN", []byte{0xff, 0x00, 0x01, 0x02}),
		WithSequence(tag.ScheduledProcedureStepSequence, item),
		WithFileMeta(SecondaryCaptureImageStorage, "1.2.3", transfer.ExplicitVRLittleEndian),
	)
	require.NoError(t, err)

	m := ToKeywordMap(ds)
	assert.Equal(t, "Doe^John", m["PatientName"])
	assert.Equal(t, []string{"ORIGINAL", "PRIMARY"}, m["ImageType"])
	assert.Equal(t, uint16(2), m["Rows"])
	assert.Equal(t, "[Binary data with length 6 bytes]", m["PixelData"])
	assert.Equal(t, "[Binary data with length 4 bytes]", m["(0009,1001)"])
	assert.NotContains(t, m, "TransferSyntaxUID")

	seq, ok := m["ScheduledProcedureStepSequence"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, seq, 1)
	assert.Equal(t, "US", seq[0]["Modality"])

	_, err = json.Marshal(m)
	assert.NoError(t, err)
}

func TestDataset_StringAndJSON(t *testing.T) {
	item, _ := NewDataset(WithElement(tag.Modality, "US"))
	ds, _ := NewDataset(
		WithElement(tag.PatientID, "P1"),
		WithElement(tag.PatientName, "Doe^John"),
		WithSequence(tag.ScheduledProcedureStepSequence, item),
	)
	s := ds.String()
	lines := strings.Split(strings.TrimSpace(s), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "[(0010,0010)] PN PatientName: Doe^John"))
	assert.Contains(t, s, "Sequence (1 items)")
	assert.Contains(t, s, "[(0008,0060)] CS Modality: US")

	b, err := json.Marshal(ds)
	require.NoError(t, err)
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "(0010,0010)", decoded[0]["tag"])
	assert.Equal(t, "PatientName", decoded[0]["name"])

	var nilDS *Dataset
	assert.Equal(t, "<nil>", nilDS.String())
}
