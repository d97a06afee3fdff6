package dicom

import (
	"bytes"
	"encoding/binary"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
)

// EncapsulatedPixelData holds compressed pixel data fragments as read from a
// file. The toolkit never decodes them; they are kept for dumps and rewrites.
type EncapsulatedPixelData struct {
	Offsets   []uint32 // Basic Offset Table
	Fragments [][]byte
}

// Size returns the total number of fragment bytes
func (pd *EncapsulatedPixelData) Size() int {
	n := 0
	for _, f := range pd.Fragments {
		n += len(f)
	}
	return n
}

func encodeEncapsulatedPixelData(pd *EncapsulatedPixelData) []byte {
	var buf bytes.Buffer

	// 1. Basic Offset Table item
	binary.Write(&buf, binary.LittleEndian, tag.Item.Group)
	binary.Write(&buf, binary.LittleEndian, tag.Item.Element)
	binary.Write(&buf, binary.LittleEndian, uint32(len(pd.Offsets)*4))
	for _, off := range pd.Offsets {
		binary.Write(&buf, binary.LittleEndian, off)
	}

	// 2. Fragments, each padded to even length
	for _, frag := range pd.Fragments {
		if len(frag)%2 != 0 {
			frag = append(append([]byte{}, frag...), 0)
		}
		binary.Write(&buf, binary.LittleEndian, tag.Item.Group)
		binary.Write(&buf, binary.LittleEndian, tag.Item.Element)
		binary.Write(&buf, binary.LittleEndian, uint32(len(frag)))
		buf.Write(frag)
	}

	// 3. Sequence Delimitation Item
	binary.Write(&buf, binary.LittleEndian, tag.SequenceDelimitationItem.Group)
	binary.Write(&buf, binary.LittleEndian, tag.SequenceDelimitationItem.Element)
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	return buf.Bytes()
}
