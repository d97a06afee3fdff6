package module

import (
	"time"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
)

// GeneralStudyModule represents the General Study Module
type GeneralStudyModule struct {
	StudyInstanceUID       string
	StudyDate              Date
	StudyTime              Time
	StudyID                string
	AccessionNumber        string
	ReferringPhysicianName PersonName
	StudyDescription       string
}

func NewGeneralStudyModule() GeneralStudyModule {
	t := time.Now()
	return GeneralStudyModule{
		StudyDate: NewDate(t),
		StudyTime: NewTime(t),
	}
}

// ToTags writes the type 2 attributes even when empty
func (m *GeneralStudyModule) ToTags() []IODElement {
	var e elements
	e.add(tag.StudyInstanceUID, m.StudyInstanceUID)
	e.add(tag.StudyDate, m.StudyDate.String())
	e.add(tag.StudyTime, m.StudyTime.String())
	e.add(tag.StudyID, m.StudyID)
	e.add(tag.AccessionNumber, m.AccessionNumber)
	e.add(tag.ReferringPhysicianName, m.ReferringPhysicianName.String())
	e.optional(tag.StudyDescription, m.StudyDescription)
	return e
}
