package module

import "github.com/jpfielding/dicomctl.go/pkg/dicom/tag"

// PatientModule represents the Patient Module (PS3.3 C.7.1.1)
type PatientModule struct {
	PatientName      PersonName
	PatientID        string
	PatientBirthDate Date
	PatientSex       string // M, F, O
	PatientAge       string
	PatientComments  string
}

// ToTags returns name and ID always and the remaining attributes when set
func (m *PatientModule) ToTags() []IODElement {
	var e elements
	e.add(tag.PatientName, m.PatientName.String())
	e.add(tag.PatientID, m.PatientID)
	e.optional(tag.PatientBirthDate, m.PatientBirthDate.String())
	e.optional(tag.PatientSex, m.PatientSex)
	e.optional(tag.PatientAge, m.PatientAge)
	e.optional(tag.PatientComments, m.PatientComments)
	return e
}

// PatientMedicalModule carries the alerts and allergies a worklist can announce
type PatientMedicalModule struct {
	MedicalAlerts string
	Allergies     string
	PatientSize   float64 // meters
	PatientWeight float64 // kilograms
}

func (m *PatientMedicalModule) ToTags() []IODElement {
	var e elements
	if m.PatientSize > 0 {
		e.add(tag.PatientSize, m.PatientSize)
	}
	if m.PatientWeight > 0 {
		e.add(tag.PatientWeight, m.PatientWeight)
	}
	e.optional(tag.MedicalAlerts, m.MedicalAlerts)
	e.optional(tag.Allergies, m.Allergies)
	return e
}
