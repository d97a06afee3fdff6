package mwl

import (
	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
)

// Query holds C-FIND matching keys for a worklist search. Empty fields match
// everything.
type Query struct {
	PatientName    string
	StartDate      string // YYYYMMDD
	EndDate        string // YYYYMMDD
	Modality       string
	StationAETitle string
}

// DateRange renders the scheduled date matching key: "start-end", "start"
// or empty. An end date alone does not filter.
func (q Query) DateRange() string {
	switch {
	case q.StartDate != "" && q.EndDate != "":
		return q.StartDate + "-" + q.EndDate
	case q.StartDate != "":
		return q.StartDate
	}
	return ""
}

// Dataset builds the identifier: matching keys plus empty return keys for
// every attribute a summary shows.
func (q Query) Dataset() (*dicom.Dataset, error) {
	patientName := q.PatientName
	if patientName == "" {
		patientName = "*"
	}
	sps, err := dicom.NewSequenceBuilder(tag.ScheduledProcedureStepSequence).
		AddItem(
			dicom.WithElement(tag.ScheduledStationAETitle, q.StationAETitle),
			dicom.WithElement(tag.ScheduledProcedureStepStartDate, q.DateRange()),
			dicom.WithElement(tag.ScheduledProcedureStepStartTime, ""),
			dicom.WithElement(tag.Modality, q.Modality),
			dicom.WithElement(tag.ScheduledPerformingPhysicianName, ""),
			dicom.WithElement(tag.ScheduledProcedureStepDescription, ""),
			dicom.WithElement(tag.ScheduledProcedureStepID, ""),
			dicom.WithElement(tag.ScheduledStationName, ""),
		).
		Build()
	if err != nil {
		return nil, err
	}
	return dicom.NewDataset(
		// not a worklist key, kept because some providers expect it
		dicom.WithElement(tag.QueryRetrieveLevel, "WORKLIST"),
		dicom.WithElement(tag.PatientName, patientName),
		dicom.WithElement(tag.PatientID, ""),
		dicom.WithElement(tag.PatientBirthDate, ""),
		dicom.WithElement(tag.PatientSex, ""),
		dicom.WithElement(tag.AccessionNumber, ""),
		dicom.WithElement(tag.ReferringPhysicianName, ""),
		dicom.WithElement(tag.RequestedProcedureID, ""),
		dicom.WithElement(tag.RequestedProcedureDescription, ""),
		dicom.WithElement(tag.StudyInstanceUID, ""),
		sps,
	)
}
