package pdu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociate_RoundTrip(t *testing.T) {
	rq := &Associate{
		CalledAE:           "MERCURE",
		CallingAE:          "BEXA",
		ApplicationContext: "1.2.840.10008.3.1.1.1",
		Contexts: []PresentationContext{
			{ID: 1, AbstractSyntax: "1.2.840.10008.1.1", TransferSyntaxes: []string{"1.2.840.10008.1.2.1", "1.2.840.10008.1.2"}},
			{ID: 3, AbstractSyntax: "1.2.840.10008.5.1.4.31", TransferSyntaxes: []string{"1.2.840.10008.1.2"}},
		},
		MaxPDU:                 16384,
		ImplementationClassUID: "1.2.3",
		ImplementationVersion:  "V1",
	}
	b := rq.Marshal(false)
	assert.Equal(t, "MERCURE         ", string(b[4:20]))
	got, err := ParseAssociate(b, false)
	require.NoError(t, err)
	assert.Equal(t, rq, got)
}

func TestAssociate_AC(t *testing.T) {
	ac := &Associate{
		CalledAE:           "MERCURE",
		CallingAE:          "BEXA",
		ApplicationContext: "1.2.840.10008.3.1.1.1",
		Contexts: []PresentationContext{
			{ID: 1, Result: ResultAcceptance, TransferSyntaxes: []string{"1.2.840.10008.1.2.1"}},
			{ID: 3, Result: ResultAbstractSyntaxUnsupported},
		},
	}
	got, err := ParseAssociate(ac.Marshal(true), true)
	require.NoError(t, err)
	assert.Equal(t, ac, got)
}

func TestParseAssociate_Malformed(t *testing.T) {
	_, err := ParseAssociate([]byte{0, 1}, false)
	assert.ErrorIs(t, err, ErrMalformed)

	b := (&Associate{ApplicationContext: "1.2"}).Marshal(false)
	_, err = ParseAssociate(b[:len(b)-1], false)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, TypeReleaseRQ, Release()))
	assert.Equal(t, []byte{0x05, 0, 0, 0, 0, 4, 0, 0, 0, 0}, buf.Bytes())

	typ, body, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, TypeReleaseRQ, typ)
	assert.Len(t, body, 4)

	_, _, err = Read(bytes.NewReader([]byte{0x04, 0, 0, 0, 0, 9, 1}))
	assert.Error(t, err)

	_, _, err = Read(bytes.NewReader([]byte{0x04, 0, 0xFF, 0xFF, 0xFF, 0xFF}))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestPDataTF(t *testing.T) {
	b := append(PDV{ContextID: 1, Command: true, Last: true, Data: []byte{1, 2}}.Marshal(),
		PDV{ContextID: 1, Data: []byte{3, 4, 5, 6}}.Marshal()...)
	pdvs, err := ParsePDataTF(b)
	require.NoError(t, err)
	require.Len(t, pdvs, 2)
	assert.True(t, pdvs[0].Command)
	assert.True(t, pdvs[0].Last)
	assert.False(t, pdvs[1].Command)
	assert.False(t, pdvs[1].Last)
	assert.Equal(t, []byte{3, 4, 5, 6}, pdvs[1].Data)

	_, err = ParsePDataTF(b[:len(b)-1])
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestBodies(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 2, 1}, Abort(2, 1))
	assert.Equal(t, []byte{0, 1, 1, 7}, Reject(1, 1, 7))
}

func TestValidateAETitle(t *testing.T) {
	tests := []struct {
		ae string
		ok bool
	}{
		{"MERCURE", true},
		{"A", true},
		{"SIXTEEN_CHARS_AE", true},
		{"SEVENTEEN_CHARS_A", false},
		{"ORTHANC_PRIMARY_PACS", false},
		{"", false},
		{"    ", false},
		{"BAD\\AE", false},
		{"TAB\tAE", false},
	}
	for _, tt := range tests {
		err := ValidateAETitle(tt.ae)
		if tt.ok {
			assert.NoError(t, err, tt.ae)
		} else {
			assert.ErrorIs(t, err, ErrInvalidAETitle, tt.ae)
		}
	}
}
