package module

import (
	"time"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
)

// SOPCommonModule represents the SOP Common Module
type SOPCommonModule struct {
	SOPClassUID          string
	SOPInstanceUID       string
	SpecificCharacterSet string
	InstanceCreationDate Date
	InstanceCreationTime Time
}

func NewSOPCommonModule() SOPCommonModule {
	t := time.Now()
	return SOPCommonModule{
		SpecificCharacterSet: "ISO_IR 100", // Latin 1
		InstanceCreationDate: NewDate(t),
		InstanceCreationTime: NewTime(t),
	}
}

func (m *SOPCommonModule) ToTags() []IODElement {
	var e elements
	e.add(tag.SOPClassUID, m.SOPClassUID)
	e.add(tag.SOPInstanceUID, m.SOPInstanceUID)
	e.optional(tag.SpecificCharacterSet, m.SpecificCharacterSet)
	if !m.InstanceCreationDate.IsZero() {
		e.add(tag.InstanceCreationDate, m.InstanceCreationDate.String())
		e.add(tag.InstanceCreationTime, m.InstanceCreationTime.String())
	}
	return e
}
