package dicom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/transfer"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/vr"
)

// ErrNoFileMeta is returned when a Part 10 write has no transfer syntax to follow
var ErrNoFileMeta = errors.New("dataset has no file meta transfer syntax")

// WriteFile writes a dataset to a DICOM Part 10 file
func WriteFile(path string, ds *Dataset) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := Write(f, ds)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Write writes a Part 10 stream: preamble, DICM magic, the group 0002 meta
// elements in Explicit VR Little Endian and then the body in the transfer
// syntax named by the meta.
func Write(w io.Writer, ds *Dataset) (int64, error) {
	cw := &CountingWriter{Writer: w}

	tsElem, ok := ds.Get(tag.TransferSyntaxUID)
	if !ok {
		return 0, ErrNoFileMeta
	}
	tsUID, _ := tsElem.GetString()
	ts := transfer.FromUID(strings.TrimRight(tsUID, "\x00 "))
	if !ts.IsSupported() {
		return 0, fmt.Errorf("unsupported transfer syntax %s", ts.Name())
	}

	meta, err := encodeFileMeta(ds)
	if err != nil {
		return 0, err
	}

	// 1. Write Preamble (128 bytes 0x00)
	preamble := make([]byte, 128)
	if _, err := cw.Write(preamble); err != nil {
		return cw.Count.Load(), err
	}

	// 2. Write DICM Magic
	if _, err := cw.Write([]byte("DICM")); err != nil {
		return cw.Count.Load(), err
	}

	// 3. File meta group
	if _, err := cw.Write(meta); err != nil {
		return cw.Count.Load(), err
	}

	// 4. Dataset body
	if _, err := WriteDataset(cw, ds, ts); err != nil {
		return cw.Count.Load(), err
	}
	return cw.Count.Load(), nil
}

// EncodeDataset encodes the body of ds (no preamble, no group 0002) as sent
// in a P-DATA-TF data set fragment.
func EncodeDataset(ds *Dataset, ts transfer.Syntax) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := WriteDataset(&buf, ds, ts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDataset writes every element outside group 0002 in ts
func WriteDataset(w io.Writer, ds *Dataset, ts transfer.Syntax) (int64, error) {
	if !ts.IsSupported() {
		return 0, fmt.Errorf("unsupported transfer syntax %s", ts.Name())
	}
	enc := &encoder{explicit: ts.IsExplicitVR(), cs: charsetOf(ds, nil)}
	var buf bytes.Buffer
	if err := enc.writeBody(&buf, ds, false); err != nil {
		return 0, err
	}
	cw := &CountingWriter{Writer: w}
	_, err := cw.Write(buf.Bytes())
	return cw.Count.Load(), err
}

// encodeFileMeta returns the group 0002 elements with a computed group length
func encodeFileMeta(ds *Dataset) ([]byte, error) {
	meta := &Dataset{Elements: make(map[Tag]*Element)}
	for t, elem := range ds.Elements {
		if t.IsGroup0002() && !t.IsGroupLength() {
			meta.Elements[t] = elem
		}
	}
	if _, ok := meta.Elements[tag.FileMetaInformationVersion]; !ok {
		meta.Elements[tag.FileMetaInformationVersion] = &Element{
			Tag:   tag.FileMetaInformationVersion,
			VR:    "OB",
			Value: []byte{0x00, 0x01},
		}
	}

	enc := &encoder{explicit: true}
	var body bytes.Buffer
	if err := enc.writeBody(&body, meta, true); err != nil {
		return nil, fmt.Errorf("file meta: %w", err)
	}

	var out bytes.Buffer
	groupLength := &Element{Tag: tag.FileMetaInformationGroupLength, VR: "UL", Value: uint32(body.Len())}
	if err := enc.writeElement(&out, groupLength); err != nil {
		return nil, err
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

type encoder struct {
	explicit bool
	cs       *Charset
}

// writeBody writes the elements of ds sorted by tag. Group 0002 is only
// written when meta is set, and group length elements are always recomputed
// by their writer so they are skipped here.
func (e *encoder) writeBody(buf *bytes.Buffer, ds *Dataset, meta bool) error {
	elements := make([]*Element, 0, len(ds.Elements))
	for t, elem := range ds.Elements {
		if t.IsGroup0002() != meta {
			continue
		}
		if t.IsGroupLength() {
			continue
		}
		elements = append(elements, elem)
	}

	sort.Slice(elements, func(i, j int) bool {
		return elements[i].Tag.Less(elements[j].Tag)
	})

	for _, elem := range elements {
		if err := e.writeElement(buf, elem); err != nil {
			return fmt.Errorf("failed to write element %v: %w", elem.Tag, err)
		}
	}
	return nil
}

func (e *encoder) writeElement(buf *bytes.Buffer, elem *Element) error {
	v := vr.VR(elem.VR)
	if len(v) != 2 {
		slog.Warn("Invalid VR length, defaulting to UN", "vr", elem.VR, "tag", elem.Tag)
		v = vr.UN
	}

	valBytes, undefinedLength, err := e.encodeValue(elem.Value, v)
	if err != nil {
		return err
	}

	binary.Write(buf, binary.LittleEndian, elem.Tag.Group)
	binary.Write(buf, binary.LittleEndian, elem.Tag.Element)

	length := uint32(len(valBytes))
	if undefinedLength {
		length = 0xFFFFFFFF
	}

	switch {
	case !e.explicit:
		binary.Write(buf, binary.LittleEndian, length)
	case v.IsLongLength():
		buf.WriteString(string(v))
		buf.Write([]byte{0, 0})
		binary.Write(buf, binary.LittleEndian, length)
	default:
		if undefinedLength {
			return fmt.Errorf("undefined length not supported for Short VR %s", v)
		}
		if len(valBytes) > math.MaxUint16 {
			return fmt.Errorf("value of %d bytes too long for VR %s", len(valBytes), v)
		}
		buf.WriteString(string(v))
		binary.Write(buf, binary.LittleEndian, uint16(len(valBytes)))
	}

	buf.Write(valBytes)
	return nil
}

// encodeValue returns encoded bytes and a bool indicating if undefined length used
func (e *encoder) encodeValue(value interface{}, v vr.VR) ([]byte, bool, error) {
	if value == nil {
		return []byte{}, false, nil
	}

	switch val := value.(type) {
	case *EncapsulatedPixelData:
		return encodeEncapsulatedPixelData(val), true, nil
	case []*Dataset:
		if !v.IsSequence() {
			return nil, false, fmt.Errorf("unexpected []*Dataset for VR %s", v)
		}
		b, err := e.encodeSequence(val)
		return b, true, err
	case string:
		b, err := e.encodeString(val, v)
		return b, false, err
	case []string:
		b, err := e.encodeString(strings.Join(val, "\\"), v)
		return b, false, err
	case []byte:
		return pad(val, v), false, nil
	case Tag:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint16(b, val.Group)
		binary.LittleEndian.PutUint16(b[2:], val.Element)
		return b, false, nil
	case int:
		return encodeInts(v, []int64{int64(val)})
	case []int:
		ints := make([]int64, len(val))
		for i, n := range val {
			ints[i] = int64(n)
		}
		return encodeInts(v, ints)
	case uint16:
		return encodeInts(v, []int64{int64(val)})
	case []uint16:
		ints := make([]int64, len(val))
		for i, n := range val {
			ints[i] = int64(n)
		}
		return encodeInts(v, ints)
	case int16:
		return encodeInts(v, []int64{int64(val)})
	case uint32:
		return encodeInts(v, []int64{int64(val)})
	case []uint32:
		ints := make([]int64, len(val))
		for i, n := range val {
			ints[i] = int64(n)
		}
		return encodeInts(v, ints)
	case int32:
		return encodeInts(v, []int64{int64(val)})
	case float64:
		return encodeFloats(v, []float64{val})
	case []float64:
		return encodeFloats(v, val)
	case float32:
		return encodeFloats(v, []float64{float64(val)})
	case []float32:
		fs := make([]float64, len(val))
		for i, f := range val {
			fs[i] = float64(f)
		}
		return encodeFloats(v, fs)
	}

	return nil, false, fmt.Errorf("unsupported value type %T for VR %s", value, v)
}

func (e *encoder) encodeString(s string, v vr.VR) ([]byte, error) {
	b := []byte(s)
	if v.IsText() {
		var err error
		if b, err = e.cs.Encode(s); err != nil {
			return nil, err
		}
	}
	return pad(b, v), nil
}

func (e *encoder) encodeSequence(datasets []*Dataset) ([]byte, error) {
	var buf bytes.Buffer

	for _, item := range datasets {
		// nested items keep the enclosing character set unless they declare one
		inner := &encoder{explicit: e.explicit, cs: charsetOf(item, e.cs)}
		var itemBuf bytes.Buffer
		if err := inner.writeBody(&itemBuf, item, false); err != nil {
			return nil, fmt.Errorf("failed to encode sequence item: %w", err)
		}

		// Item Tag (FFFE, E000) with explicit length
		binary.Write(&buf, binary.LittleEndian, tag.Item.Group)
		binary.Write(&buf, binary.LittleEndian, tag.Item.Element)
		binary.Write(&buf, binary.LittleEndian, uint32(itemBuf.Len()))
		buf.Write(itemBuf.Bytes())
	}

	// Sequence Delimitation Item (FFFE, E0DD), length 0
	binary.Write(&buf, binary.LittleEndian, tag.SequenceDelimitationItem.Group)
	binary.Write(&buf, binary.LittleEndian, tag.SequenceDelimitationItem.Element)
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	return buf.Bytes(), nil
}

// encodeInts writes integers in the width of the VR, or as text for IS/DS
func encodeInts(v vr.VR, ints []int64) ([]byte, bool, error) {
	switch v {
	case vr.IS, vr.DS:
		parts := make([]string, len(ints))
		for i, n := range ints {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return pad([]byte(strings.Join(parts, "\\")), v), false, nil
	case vr.US, vr.SS, vr.OW:
		b := make([]byte, 2*len(ints))
		for i, n := range ints {
			binary.LittleEndian.PutUint16(b[i*2:], uint16(n))
		}
		return b, false, nil
	case vr.UL, vr.SL, vr.OL:
		b := make([]byte, 4*len(ints))
		for i, n := range ints {
			binary.LittleEndian.PutUint32(b[i*4:], uint32(n))
		}
		return b, false, nil
	case vr.UV, vr.SV, vr.OV:
		b := make([]byte, 8*len(ints))
		for i, n := range ints {
			binary.LittleEndian.PutUint64(b[i*8:], uint64(n))
		}
		return b, false, nil
	case vr.OB:
		b := make([]byte, len(ints))
		for i, n := range ints {
			b[i] = byte(n)
		}
		return pad(b, v), false, nil
	}
	return nil, false, fmt.Errorf("integer value for VR %s not implemented", v)
}

// encodeFloats writes floats in the width of the VR, or as text for DS
func encodeFloats(v vr.VR, fs []float64) ([]byte, bool, error) {
	switch v {
	case vr.DS:
		parts := make([]string, len(fs))
		for i, f := range fs {
			parts[i] = FormatDS(f)
		}
		return pad([]byte(strings.Join(parts, "\\")), v), false, nil
	case vr.FD, vr.OD:
		b := make([]byte, 8*len(fs))
		for i, f := range fs {
			binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(f))
		}
		return b, false, nil
	case vr.FL, vr.OF:
		b := make([]byte, 4*len(fs))
		for i, f := range fs {
			binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(f)))
		}
		return b, false, nil
	}
	return nil, false, fmt.Errorf("float64 for VR %s not implemented", v)
}

// FormatDS renders a decimal string within the 16 byte limit of DS
func FormatDS(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if len(s) <= 16 {
		return s
	}
	for prec := 15; prec > 0; prec-- {
		s = strconv.FormatFloat(f, 'g', prec, 64)
		if len(s) <= 16 {
			return s
		}
	}
	return s
}

// pad brings b to an even length with the padding byte of the VR
func pad(b []byte, v vr.VR) []byte {
	if len(b)%2 == 0 {
		return b
	}
	out := make([]byte, len(b)+1)
	copy(out, b)
	out[len(b)] = v.Padding()
	return out
}

// CountingWriter counts the bytes successfully written through it
type CountingWriter struct {
	Count  atomic.Int64
	Writer io.Writer
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.Writer.Write(p)
	c.Count.Add(int64(n))
	return n, err
}
