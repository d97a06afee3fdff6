package module

import "github.com/jpfielding/dicomctl.go/pkg/dicom/tag"

// ScheduledProcedureStep is one item of the Scheduled Procedure Step
// Sequence (PS3.3 C.4.10). Dates are YYYYMMDD and times HHMMSS strings so
// query ranges such as "20250101-20250131" pass through unchanged.
type ScheduledProcedureStep struct {
	StationAETitle      string
	StartDate           string
	StartTime           string
	Modality            string
	PerformingPhysician PersonName
	Description         string
	StepID              string
	StationName         string
	Location            string
	Status              string // SCHEDULED, ARRIVED, READY, STARTED
}

// ToTags returns the item attributes; type 1 and 2 keys are always present
func (m *ScheduledProcedureStep) ToTags() []IODElement {
	var e elements
	e.add(tag.ScheduledStationAETitle, m.StationAETitle)
	e.add(tag.ScheduledProcedureStepStartDate, m.StartDate)
	e.add(tag.ScheduledProcedureStepStartTime, m.StartTime)
	e.add(tag.Modality, m.Modality)
	e.add(tag.ScheduledPerformingPhysicianName, m.PerformingPhysician.String())
	e.add(tag.ScheduledProcedureStepDescription, m.Description)
	e.add(tag.ScheduledProcedureStepID, m.StepID)
	e.add(tag.ScheduledStationName, m.StationName)
	e.optional(tag.ScheduledProcedureStepLocation, m.Location)
	e.optional(tag.ScheduledProcedureStepStatus, m.Status)
	return e
}

// RequestedProcedureModule represents the Requested Procedure Module
type RequestedProcedureModule struct {
	RequestedProcedureID string
	Description          string
	StudyInstanceUID     string
	Priority             string // STAT, HIGH, ROUTINE, MEDIUM, LOW
}

func (m *RequestedProcedureModule) ToTags() []IODElement {
	var e elements
	e.add(tag.RequestedProcedureID, m.RequestedProcedureID)
	e.add(tag.RequestedProcedureDescription, m.Description)
	e.add(tag.StudyInstanceUID, m.StudyInstanceUID)
	e.optional(tag.RequestedProcedurePriority, m.Priority)
	return e
}

// ImagingServiceRequestModule represents the Imaging Service Request Module
type ImagingServiceRequestModule struct {
	AccessionNumber        string
	ReferringPhysicianName PersonName
	RequestingPhysician    PersonName
	PlacerOrderNumber      string
	FillerOrderNumber      string
}

// ToTags writes the accession number always; physicians and order numbers when set
func (m *ImagingServiceRequestModule) ToTags() []IODElement {
	var e elements
	e.add(tag.AccessionNumber, m.AccessionNumber)
	e.optional(tag.ReferringPhysicianName, m.ReferringPhysicianName.String())
	e.optional(tag.RequestingPhysician, m.RequestingPhysician.String())
	e.optional(tag.PlacerOrderNumberImagingServiceRequest, m.PlacerOrderNumber)
	e.optional(tag.FillerOrderNumberImagingServiceRequest, m.FillerOrderNumber)
	return e
}
