package dicom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/transfer"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/vr"
)

// ErrNotPart10 is returned when the DICM magic is missing
var ErrNotPart10 = errors.New("invalid DICOM file: missing DICM magic")

const undefinedLength = 0xFFFFFFFF

// ReadFile reads a DICOM Part 10 file
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a complete Part 10 stream. Group 0002 is always Explicit VR
// Little Endian; the body follows the meta TransferSyntaxUID and defaults to
// Implicit VR Little Endian when the meta names none.
func Parse(r io.Reader) (*Dataset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) < 132 {
		return nil, fmt.Errorf("failed to read preamble: %w", io.ErrUnexpectedEOF)
	}
	if string(b[128:132]) != "DICM" {
		return nil, ErrNotPart10
	}

	ds := &Dataset{Elements: make(map[Tag]*Element)}
	d := &decoder{buf: b, off: 132, explicit: true}

	// File Meta Information
	for d.off+4 <= len(d.buf) {
		group := binary.LittleEndian.Uint16(d.buf[d.off:])
		if group != 0x0002 {
			break
		}
		elem, err := d.readElement()
		if err != nil {
			return nil, fmt.Errorf("failed to read file meta: %w", err)
		}
		ds.Elements[elem.Tag] = elem
	}

	ts := transfer.ImplicitVRLittleEndian
	if elem, ok := ds.Get(tag.TransferSyntaxUID); ok {
		if s, ok := elem.GetString(); ok && s != "" {
			ts = transfer.FromUID(s)
		}
	}
	if ts.IsEncapsulated() || ts.IsSupported() {
		d.explicit = ts.IsExplicitVR()
	} else {
		return nil, fmt.Errorf("unsupported transfer syntax %s", ts.Name())
	}

	if err := d.readElements(ds, false); err != nil {
		return nil, err
	}
	return ds, nil
}

// ParseDataset decodes a raw dataset body such as a P-DATA-TF data fragment
func ParseDataset(b []byte, ts transfer.Syntax) (*Dataset, error) {
	if !ts.IsSupported() {
		return nil, fmt.Errorf("unsupported transfer syntax %s", ts.Name())
	}
	ds := &Dataset{Elements: make(map[Tag]*Element)}
	d := &decoder{buf: b, explicit: ts.IsExplicitVR()}
	if err := d.readElements(ds, false); err != nil {
		return nil, err
	}
	return ds, nil
}

type decoder struct {
	buf      []byte
	off      int
	explicit bool
	cs       *Charset
}

func (d *decoder) need(n int) error {
	if n < 0 || d.off+n > len(d.buf) {
		return fmt.Errorf("need %d bytes at offset %d: %w", n, d.off, io.ErrUnexpectedEOF)
	}
	return nil
}

func (d *decoder) u16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) readTag() (Tag, error) {
	group, err := d.u16()
	if err != nil {
		return Tag{}, err
	}
	element, err := d.u16()
	if err != nil {
		return Tag{}, err
	}
	return Tag{Group: group, Element: element}, nil
}

// readElements fills ds until the buffer ends, or until an Item
// Delimitation Item when inItem is set.
func (d *decoder) readElements(ds *Dataset, inItem bool) error {
	for d.off < len(d.buf) {
		if inItem && d.off+4 <= len(d.buf) {
			group := binary.LittleEndian.Uint16(d.buf[d.off:])
			element := binary.LittleEndian.Uint16(d.buf[d.off+2:])
			if group == tag.ItemDelimitationItem.Group && element == tag.ItemDelimitationItem.Element {
				d.off += 8
				return nil
			}
		}
		elem, err := d.readElement()
		if err != nil {
			return err
		}
		ds.Elements[elem.Tag] = elem
		if elem.Tag == tag.SpecificCharacterSet {
			d.cs = charsetOf(ds, d.cs)
		}
	}
	if inItem {
		return fmt.Errorf("item without delimitation: %w", io.ErrUnexpectedEOF)
	}
	return nil
}

// readElement reads one element header and value
func (d *decoder) readElement() (*Element, error) {
	t, err := d.readTag()
	if err != nil {
		return nil, fmt.Errorf("failed to read tag: %w", err)
	}
	if t.IsDelimiter() {
		return nil, fmt.Errorf("unexpected delimiter %v at offset %d", t, d.off-4)
	}

	var v vr.VR
	var vl uint32
	if d.explicit {
		raw, err := d.bytes(2)
		if err != nil {
			return nil, err
		}
		v = vr.VR(raw)
		if v.IsLongLength() {
			if _, err := d.bytes(2); err != nil {
				return nil, err
			}
			if vl, err = d.u32(); err != nil {
				return nil, err
			}
		} else {
			vl16, err := d.u16()
			if err != nil {
				return nil, err
			}
			vl = uint32(vl16)
		}
	} else {
		if vl, err = d.u32(); err != nil {
			return nil, err
		}
		v = vr.VR(t.VR())
	}

	value, err := d.readValue(t, v, vl)
	if err != nil {
		return nil, fmt.Errorf("failed to read element %v: %w", t, err)
	}
	return &Element{Tag: t, VR: string(v), Value: value}, nil
}

func (d *decoder) readValue(t Tag, v vr.VR, vl uint32) (interface{}, error) {
	if t == tag.PixelData && vl == undefinedLength {
		return d.readEncapsulatedPixelData()
	}
	if v.IsSequence() {
		return d.readSequence(vl, d.explicit)
	}
	if vl == undefinedLength {
		if v == vr.UN {
			// unknown sequences with undefined length are implicit VR
			return d.readSequence(vl, false)
		}
		return nil, fmt.Errorf("undefined length for VR %s", v)
	}
	data, err := d.bytes(int(vl))
	if err != nil {
		return nil, err
	}
	return parseValue(v, data, d.cs)
}

func (d *decoder) readSequence(vl uint32, explicit bool) ([]*Dataset, error) {
	items := []*Dataset{}
	end := -1
	if vl != undefinedLength {
		if err := d.need(int(vl)); err != nil {
			return nil, err
		}
		end = d.off + int(vl)
	}

	for {
		if end >= 0 && d.off >= end {
			return items, nil
		}
		t, err := d.readTag()
		if err != nil {
			return nil, fmt.Errorf("reading sequence item tag: %w", err)
		}
		length, err := d.u32()
		if err != nil {
			return nil, err
		}
		switch t {
		case tag.SequenceDelimitationItem:
			return items, nil
		case tag.Item:
		default:
			return nil, fmt.Errorf("expected item tag, got %v", t)
		}

		item := &Dataset{Elements: make(map[Tag]*Element)}
		if length == undefinedLength {
			child := &decoder{buf: d.buf, off: d.off, explicit: explicit, cs: d.cs}
			if err := child.readElements(item, true); err != nil {
				return nil, err
			}
			d.off = child.off
		} else {
			body, err := d.bytes(int(length))
			if err != nil {
				return nil, err
			}
			child := &decoder{buf: body, explicit: explicit, cs: d.cs}
			if err := child.readElements(item, false); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}
}

func (d *decoder) readEncapsulatedPixelData() (*EncapsulatedPixelData, error) {
	pd := &EncapsulatedPixelData{}
	first := true
	for {
		t, err := d.readTag()
		if err != nil {
			return nil, err
		}
		length, err := d.u32()
		if err != nil {
			return nil, err
		}
		if t == tag.SequenceDelimitationItem {
			return pd, nil
		}
		if t != tag.Item {
			return nil, fmt.Errorf("expected item tag, got %v", t)
		}
		data, err := d.bytes(int(length))
		if err != nil {
			return nil, err
		}
		if first {
			// Basic Offset Table
			for i := 0; i+4 <= len(data); i += 4 {
				pd.Offsets = append(pd.Offsets, binary.LittleEndian.Uint32(data[i:]))
			}
			first = false
			continue
		}
		pd.Fragments = append(pd.Fragments, data)
	}
}

// parseValue converts raw bytes to typed value based on VR
func parseValue(v vr.VR, data []byte, cs *Charset) (interface{}, error) {
	if v.IsString() {
		s := string(data)
		if v.IsText() {
			var err error
			if s, err = cs.Decode(data); err != nil {
				return nil, err
			}
		}
		return strings.TrimRight(s, "\x00 "), nil
	}
	if size := v.ValueSize(); size > 0 && len(data)%size != 0 {
		return nil, fmt.Errorf("%s value length %d is not a multiple of %d", v, len(data), size)
	}

	switch v {
	case vr.US:
		if len(data) == 2 {
			return binary.LittleEndian.Uint16(data), nil
		}
		values := make([]uint16, len(data)/2)
		for i := range values {
			values[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
		return values, nil
	case vr.UL:
		if len(data) == 4 {
			return binary.LittleEndian.Uint32(data), nil
		}
		values := make([]uint32, len(data)/4)
		for i := range values {
			values[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
		return values, nil
	case vr.SS:
		if len(data) == 2 {
			return int16(binary.LittleEndian.Uint16(data)), nil
		}
	case vr.SL:
		if len(data) == 4 {
			return int32(binary.LittleEndian.Uint32(data)), nil
		}
	case vr.FL:
		if len(data) == 4 {
			return math.Float32frombits(binary.LittleEndian.Uint32(data)), nil
		}
		values := make([]float32, len(data)/4)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return values, nil
	case vr.FD:
		if len(data) == 8 {
			return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
		}
		values := make([]float64, len(data)/8)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		}
		return values, nil
	case vr.AT:
		if len(data) == 4 {
			return Tag{Group: binary.LittleEndian.Uint16(data), Element: binary.LittleEndian.Uint16(data[2:])}, nil
		}
	}
	// Binary data, copied so the value does not pin the read buffer
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
