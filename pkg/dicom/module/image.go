package module

import "github.com/jpfielding/dicomctl.go/pkg/dicom/tag"

// GeneralImageModule represents the General Image Module
type GeneralImageModule struct {
	InstanceNumber     int
	ImageType          []string
	PatientOrientation string
	ContentDate        Date
	ContentTime        Time
}

func (m *GeneralImageModule) ToTags() []IODElement {
	var e elements
	e.add(tag.InstanceNumber, m.InstanceNumber)
	e.add(tag.PatientOrientation, m.PatientOrientation)
	if len(m.ImageType) > 0 {
		e.add(tag.ImageType, m.ImageType)
	}
	if !m.ContentDate.IsZero() {
		e.add(tag.ContentDate, m.ContentDate.String())
		e.add(tag.ContentTime, m.ContentTime.String())
	}
	return e
}

// ImagePixelModule describes native pixel data; the pixel bytes themselves
// are added by the caller.
type ImagePixelModule struct {
	SamplesPerPixel           uint16
	PhotometricInterpretation string
	Rows                      uint16
	Columns                   uint16
	BitsAllocated             uint16
	BitsStored                uint16
	HighBit                   uint16
	PixelRepresentation       uint16
	PlanarConfiguration       uint16
}

// NewRGBPixelModule returns an 8-bit interleaved RGB description
func NewRGBPixelModule(rows, cols uint16) *ImagePixelModule {
	return &ImagePixelModule{
		SamplesPerPixel:           3,
		PhotometricInterpretation: "RGB",
		Rows:                      rows,
		Columns:                   cols,
		BitsAllocated:             8,
		BitsStored:                8,
		HighBit:                   7,
		PixelRepresentation:       0,
		PlanarConfiguration:       0,
	}
}

// ToTags writes PlanarConfiguration only for multi-sample pixels
func (m *ImagePixelModule) ToTags() []IODElement {
	var e elements
	e.add(tag.SamplesPerPixel, m.SamplesPerPixel)
	e.add(tag.PhotometricInterpretation, m.PhotometricInterpretation)
	if m.SamplesPerPixel > 1 {
		e.add(tag.PlanarConfiguration, m.PlanarConfiguration)
	}
	e.add(tag.Rows, m.Rows)
	e.add(tag.Columns, m.Columns)
	e.add(tag.BitsAllocated, m.BitsAllocated)
	e.add(tag.BitsStored, m.BitsStored)
	e.add(tag.HighBit, m.HighBit)
	e.add(tag.PixelRepresentation, m.PixelRepresentation)
	return e
}
