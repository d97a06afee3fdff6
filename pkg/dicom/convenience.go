package dicom

import (
	"fmt"
)

// AddSequenceItem appends a dataset item to an existing sequence element.
//
// If the sequence doesn't exist, it creates a new one.
func AddSequenceItem(ds *Dataset, t Tag, item *Dataset) error {
	if item == nil {
		return fmt.Errorf("cannot add nil dataset to sequence")
	}

	elem, exists := ds.FindElement(t.Group, t.Element)
	if !exists {
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    "SQ",
			Value: []*Dataset{item},
		}
		return nil
	}

	seq, ok := elem.Value.([]*Dataset)
	if !ok {
		return fmt.Errorf("element %v exists but is not a sequence (VR=%s)", t, elem.VR)
	}

	elem.Value = append(seq, item)
	return nil
}

// GetSequenceItems returns all items from a sequence element.
//
// Returns nil if the element doesn't exist or isn't a sequence.
func GetSequenceItems(ds *Dataset, t Tag) []*Dataset {
	elem, ok := ds.FindElement(t.Group, t.Element)
	if !ok {
		return nil
	}

	seq, ok := elem.Value.([]*Dataset)
	if !ok {
		return nil
	}

	return seq
}

// FirstItem returns the first item of a sequence, or nil
func FirstItem(ds *Dataset, t Tag) *Dataset {
	items := GetSequenceItems(ds, t)
	if len(items) == 0 {
		return nil
	}
	return items[0]
}

// HasElement returns true if the dataset contains the specified element.
func HasElement(ds *Dataset, t Tag) bool {
	_, ok := ds.FindElement(t.Group, t.Element)
	return ok
}

// WithoutFileMeta returns a shallow copy of ds with group 0002 removed, as
// sent over the network.
func WithoutFileMeta(ds *Dataset) *Dataset {
	out := &Dataset{Elements: make(map[Tag]*Element, len(ds.Elements))}
	for t, elem := range ds.Elements {
		if t.IsGroup0002() {
			continue
		}
		out.Elements[t] = elem
	}
	return out
}

// CloneDataset creates a deep copy of a dataset.
func CloneDataset(ds *Dataset) *Dataset {
	clone := &Dataset{
		Elements: make(map[Tag]*Element, len(ds.Elements)),
	}

	for t, elem := range ds.Elements {
		clonedElem := &Element{
			Tag: elem.Tag,
			VR:  elem.VR,
		}

		switch v := elem.Value.(type) {
		case []byte:
			copied := make([]byte, len(v))
			copy(copied, v)
			clonedElem.Value = copied
		case []string:
			copied := make([]string, len(v))
			copy(copied, v)
			clonedElem.Value = copied
		case []*Dataset:
			clonedSeq := make([]*Dataset, len(v))
			for i, item := range v {
				clonedSeq[i] = CloneDataset(item)
			}
			clonedElem.Value = clonedSeq
		default:
			clonedElem.Value = v
		}

		clone.Elements[t] = clonedElem
	}

	return clone
}
