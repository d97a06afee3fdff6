package dicom

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
)

// Dataset represents a complete DICOM dataset
type Dataset struct {
	Elements map[Tag]*Element
}

// Element represents a single DICOM element
type Element struct {
	Tag   Tag
	VR    string      // Value Representation
	Value interface{} // Parsed value
}

// Tag alias to avoid duplication
type Tag = tag.Tag

// FindElement returns an element by tag
func (ds *Dataset) FindElement(group, element uint16) (*Element, bool) {
	if ds == nil {
		return nil, false
	}
	elem, ok := ds.Elements[Tag{Group: group, Element: element}]
	return elem, ok
}

// Get returns the element stored under t
func (ds *Dataset) Get(t Tag) (*Element, bool) {
	return ds.FindElement(t.Group, t.Element)
}

// Len returns the number of top level elements
func (ds *Dataset) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.Elements)
}

// GetString returns a string value from an element. Multi-valued strings are
// joined with a backslash.
func (elem *Element) GetString() (string, bool) {
	switch v := elem.Value.(type) {
	case string:
		return v, true
	case []string:
		return strings.Join(v, "\\"), true
	}
	return "", false
}

// GetStrings returns the individual values of a string element
func (elem *Element) GetStrings() ([]string, bool) {
	switch v := elem.Value.(type) {
	case string:
		if v == "" {
			return nil, true
		}
		return strings.Split(v, "\\"), true
	case []string:
		return v, true
	}
	return nil, false
}

// GetUint16 returns a uint16 value from an element
func (elem *Element) GetUint16() (uint16, bool) {
	if u, ok := elem.Value.(uint16); ok {
		return u, true
	}
	return 0, false
}

// GetUint32 returns a uint32 value from an element
func (elem *Element) GetUint32() (uint32, bool) {
	if u, ok := elem.Value.(uint32); ok {
		return u, true
	}
	return 0, false
}

// GetInt returns an int value from an element
func (elem *Element) GetInt() (int, bool) {
	switch v := elem.Value.(type) {
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case int:
		return v, true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return i, true
		}
	case []byte:
		if len(v) == 2 {
			return int(binary.LittleEndian.Uint16(v)), true
		}
		if len(v) == 4 {
			return int(binary.LittleEndian.Uint32(v)), true
		}
	}
	return 0, false
}

// GetFloat returns a float64 from numeric or decimal string elements
func (elem *Element) GetFloat() (float64, bool) {
	switch v := elem.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// GetBytes returns the raw bytes of a binary element
func (elem *Element) GetBytes() ([]byte, bool) {
	b, ok := elem.Value.([]byte)
	return b, ok
}

// GetItems returns the items of a sequence element
func (elem *Element) GetItems() ([]*Dataset, bool) {
	items, ok := elem.Value.([]*Dataset)
	return items, ok
}

// GetString returns the string value stored under t, or "" when absent.
func GetString(ds *Dataset, t Tag) string {
	elem, ok := ds.Get(t)
	if !ok {
		return ""
	}
	if s, ok := elem.GetString(); ok {
		return s
	}
	if elem.Value == nil {
		return ""
	}
	return fmt.Sprintf("%v", elem.Value)
}
