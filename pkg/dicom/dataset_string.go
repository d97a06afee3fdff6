package dicom

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/vr"
)

// String returns a string representation of the Element
func (e *Element) String() string {
	return e.indented("")
}

func (e *Element) indented(indent string) string {
	// Format: [Tag] [VR] (Name) ... : Value
	tagName := e.Tag.LookupName()
	if tagName != "" {
		tagName = " " + tagName
	}

	valStr := ""
	switch v := e.Value.(type) {
	case []*Dataset:
		var b strings.Builder
		fmt.Fprintf(&b, "Sequence (%d items)", len(v))
		for i, item := range v {
			fmt.Fprintf(&b, "\n%s  > Item #%d", indent, i+1)
			for _, k := range sortedTags(item) {
				b.WriteString("\n")
				b.WriteString(indent + "    ")
				b.WriteString(item.Elements[k].indented(indent + "    "))
			}
		}
		valStr = b.String()
	case *EncapsulatedPixelData:
		valStr = fmt.Sprintf("Encapsulated Pixel Data (%d fragments, %d bytes)", len(v.Fragments), v.Size())
	case []uint16:
		if len(v) > 10 {
			valStr = fmt.Sprintf("Array of %d params", len(v))
		} else {
			valStr = fmt.Sprintf("%v", v)
		}
	case []byte:
		if len(v) > 20 {
			valStr = fmt.Sprintf("Binary Data (%d bytes)", len(v))
		} else {
			valStr = fmt.Sprintf("%v", v)
		}
	default:
		valStr = fmt.Sprintf("%v", v)
	}

	return fmt.Sprintf("[%s] %s%s: %s", e.Tag, e.VR, tagName, valStr)
}

// MarshalJSON returns a JSON representation of the Element
func (e *Element) MarshalJSON() ([]byte, error) {
	value := e.Value
	if pd, ok := value.(*EncapsulatedPixelData); ok {
		value = binaryPlaceholder(pd.Size())
	}
	return json.Marshal(&struct {
		Tag   string      `json:"tag"`
		Name  string      `json:"name,omitempty"`
		VR    string      `json:"vr"`
		Value interface{} `json:"value"`
	}{
		Tag:   e.Tag.String(),
		Name:  e.Tag.LookupName(),
		VR:    e.VR,
		Value: value,
	})
}

// String returns a string representation of the Dataset
func (ds *Dataset) String() string {
	if ds == nil {
		return "<nil>"
	}
	var b strings.Builder
	for _, k := range sortedTags(ds) {
		elem := ds.Elements[k]
		b.WriteString(elem.String())
		b.WriteString("\n")
	}
	return b.String()
}

// MarshalJSON returns a JSON representation of the Dataset
// It returns a sorted array of Elements instead of a Map
func (ds *Dataset) MarshalJSON() ([]byte, error) {
	elements := []*Element{}
	for _, k := range sortedTags(ds) {
		elements = append(elements, ds.Elements[k])
	}
	return json.Marshal(elements)
}

// ToKeywordMap flattens ds into {Keyword: value} for JSON dumps. File meta
// is left out, sequences become arrays of maps, multi-valued strings become
// arrays and binary values are summarised by length.
func ToKeywordMap(ds *Dataset) map[string]interface{} {
	out := make(map[string]interface{}, ds.Len())
	if ds == nil {
		return out
	}
	for t, elem := range ds.Elements {
		if t.IsGroup0002() {
			continue
		}
		key := t.LookupName()
		if key == "" {
			key = t.String()
		}
		out[key] = keywordValue(elem)
	}
	return out
}

func keywordValue(elem *Element) interface{} {
	switch v := elem.Value.(type) {
	case nil:
		return nil
	case []*Dataset:
		items := make([]map[string]interface{}, len(v))
		for i, item := range v {
			items[i] = ToKeywordMap(item)
		}
		return items
	case *EncapsulatedPixelData:
		return binaryPlaceholder(v.Size())
	case []byte:
		if elem.Tag == tag.PixelData || !printable(v) {
			return binaryPlaceholder(len(v))
		}
		return strings.TrimRight(string(v), "\x00 ")
	case string:
		if vr.VR(elem.VR).IsMultiValued() && strings.Contains(v, "\\") {
			return strings.Split(v, "\\")
		}
		return v
	case Tag:
		return v.String()
	default:
		return v
	}
}

func binaryPlaceholder(n int) string {
	return fmt.Sprintf("[Binary data with length %d bytes]", n)
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' && r != 0 {
			return false
		}
	}
	return true
}

func sortedTags(ds *Dataset) []Tag {
	keys := make([]Tag, 0, ds.Len())
	if ds == nil {
		return keys
	}
	for k := range ds.Elements {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
	return keys
}
