package dicom

import (
	"fmt"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/module"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/transfer"
)

// Implementation identifiers written into file meta and association requests
const (
	ImplementationClassUID    = "1.2.826.0.1.3680043.8.498.1"
	ImplementationVersionName = "DICOMCTL_1"
)

// Option configures a Dataset during construction
type Option func(*Dataset) error

// NewDataset creates a Dataset with the given options
func NewDataset(opts ...Option) (*Dataset, error) {
	ds := &Dataset{Elements: make(map[Tag]*Element)}
	for _, opt := range opts {
		if err := opt(ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Apply runs additional options against an existing dataset
func (ds *Dataset) Apply(opts ...Option) error {
	if ds.Elements == nil {
		ds.Elements = make(map[Tag]*Element)
	}
	for _, opt := range opts {
		if err := opt(ds); err != nil {
			return err
		}
	}
	return nil
}

// WithElement adds a single element using the dictionary VR of the tag
func WithElement(t tag.Tag, value interface{}) Option {
	return WithVR(t, t.VR(), value)
}

// WithVR adds a single element with an explicit VR
func WithVR(t tag.Tag, vr string, value interface{}) Option {
	return func(ds *Dataset) error {
		if len(vr) != 2 {
			return fmt.Errorf("invalid VR %q for %v", vr, t)
		}
		if vr == "SQ" {
			if _, ok := value.([]*Dataset); !ok && value != nil {
				return fmt.Errorf("sequence %v requires []*Dataset, got %T", t, value)
			}
		}
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    vr,
			Value: value,
		}
		return nil
	}
}

// WithSequence adds a sequence element to the dataset
func WithSequence(t tag.Tag, items ...*Dataset) Option {
	return func(ds *Dataset) error {
		if items == nil {
			items = []*Dataset{}
		}
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    "SQ",
			Value: items,
		}
		return nil
	}
}

// WithFileMeta adds standard file meta information elements. The group
// length and version are computed by the writer.
func WithFileMeta(sopClassUID, sopInstanceUID string, ts transfer.Syntax) Option {
	return func(ds *Dataset) error {
		if !ts.IsSupported() {
			return fmt.Errorf("unsupported transfer syntax %s", ts.Name())
		}
		opts := []Option{
			WithElement(tag.MediaStorageSOPClassUID, sopClassUID),
			WithElement(tag.MediaStorageSOPInstanceUID, sopInstanceUID),
			WithElement(tag.TransferSyntaxUID, string(ts)),
			WithElement(tag.ImplementationClassUID, ImplementationClassUID),
			WithElement(tag.ImplementationVersionName, ImplementationVersionName),
		}
		for _, opt := range opts {
			if err := opt(ds); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithModule adds all elements from a module's ToTags() result
func WithModule(tags []module.IODElement) Option {
	return func(ds *Dataset) error {
		for _, el := range tags {
			if err := WithElement(el.Tag, el.Value)(ds); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithModules adds every element of each module
func WithModules(mods ...module.IODModule) Option {
	return func(ds *Dataset) error {
		for _, m := range mods {
			if err := WithModule(m.ToTags())(ds); err != nil {
				return err
			}
		}
		return nil
	}
}
