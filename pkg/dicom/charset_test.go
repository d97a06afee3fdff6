package dicom

import (
	"strings"
	"testing"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCharset_Latin1(t *testing.T) {
	cs, err := LookupCharset("ISO_IR 100")
	require.NoError(t, err)

	b, err := cs.Encode("Ærø")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC6, 'r', 0xF8}, b)

	s, err := cs.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "Ærø", s)
}

func TestLookupCharset_PassThrough(t *testing.T) {
	for _, term := range []string{"", "ISO_IR 6", "ISO_IR 192"} {
		cs, err := LookupCharset(term)
		require.NoError(t, err, term)
		b, err := cs.Encode("Ωmega")
		require.NoError(t, err)
		assert.Equal(t, []byte("Ωmega"), b)
	}

	var nilCS *Charset
	s, err := nilCS.Decode([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
}

func TestLookupCharset_MultiByte(t *testing.T) {
	cs, err := LookupCharset("ISO_IR 13")
	require.NoError(t, err)
	b, err := cs.Encode("ｱ")
	require.NoError(t, err)
	s, err := cs.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "ｱ", s)
}

func TestLookupCharset_Unknown(t *testing.T) {
	_, err := LookupCharset("ISO_IR 999")
	assert.Error(t, err)
}

func TestLookupCharset_ReplacesUnsupported(t *testing.T) {
	cs, err := LookupCharset("ISO_IR 100")
	require.NoError(t, err)
	b, err := cs.Encode("Ω")
	require.NoError(t, err)
	assert.Len(t, b, 1)
}

func TestCharset_NestedItemInherits(t *testing.T) {
	item, _ := NewDataset(WithElement(tag.ScheduledProcedureStepDescription, "Échographie"))
	ds, err := NewDataset(
		WithElement(tag.SpecificCharacterSet, "ISO_IR 100"),
		WithSequence(tag.ScheduledProcedureStepSequence, item),
	)
	require.NoError(t, err)

	b, err := EncodeDataset(ds, transfer.ExplicitVRLittleEndian)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "\xc9chographie"))

	got, err := ParseDataset(b, transfer.ExplicitVRLittleEndian)
	require.NoError(t, err)
	assert.Equal(t, "Échographie", GetString(FirstItem(got, tag.ScheduledProcedureStepSequence), tag.ScheduledProcedureStepDescription))
}
