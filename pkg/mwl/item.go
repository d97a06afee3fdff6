// Package mwl shapes Modality Worklist items: building item and query
// datasets, summarising results and converting sample dumps.
package mwl

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/module"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/transfer"
)

// Defaults applied to empty item fields
const (
	DefaultModality    = "US"
	DefaultDescription = "Ultrasound"
	DefaultStationName = "STATION1"
)

// Item is a worklist entry as entered on the command line or in a batch file
type Item struct {
	PatientName         string  `json:"patient_name" mapstructure:"patient_name"`
	PatientID           string  `json:"patient_id" mapstructure:"patient_id"`
	AccessionNumber     string  `json:"accession_number" mapstructure:"accession_number"`
	ScheduledDate       string  `json:"date" mapstructure:"date"` // YYYYMMDD
	ScheduledTime       string  `json:"time" mapstructure:"time"` // HHMMSS
	Modality            string  `json:"modality,omitempty" mapstructure:"modality"`
	Description         string  `json:"description,omitempty" mapstructure:"description"`
	StationName         string  `json:"station,omitempty" mapstructure:"station"`
	StationAETitle      string  `json:"station_ae,omitempty" mapstructure:"station_ae"`
	ReferringPhysician  string  `json:"physician,omitempty" mapstructure:"physician"`
	PerformingPhysician string  `json:"performing_physician,omitempty" mapstructure:"performing_physician"`
	BirthDate           string  `json:"birth_date,omitempty" mapstructure:"birth_date"`
	Sex                 string  `json:"sex,omitempty" mapstructure:"sex"`
	MedicalAlerts       string  `json:"alerts,omitempty" mapstructure:"alerts"`
	ContrastAllergies   string  `json:"allergies,omitempty" mapstructure:"allergies"`
	PatientSize         float64 `json:"size,omitempty" mapstructure:"size"`     // meters
	PatientWeight       float64 `json:"weight,omitempty" mapstructure:"weight"` // kilograms

	// generated when empty
	StudyInstanceUID string `json:"study_instance_uid,omitempty" mapstructure:"study_instance_uid"`
}

// WithDefaults returns a copy with modality, description and station filled in
func (it Item) WithDefaults() Item {
	if it.Modality == "" {
		it.Modality = DefaultModality
	}
	if it.Description == "" {
		it.Description = DefaultDescription
	}
	if it.StationName == "" {
		it.StationName = DefaultStationName
	}
	if it.StationAETitle == "" {
		it.StationAETitle = it.StationName
	}
	return it
}

// Validate checks required fields and value formats
func (it Item) Validate() error {
	var errs []error
	required := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	maxLen := func(name, v string, n int) {
		if len(v) > n {
			errs = append(errs, fmt.Errorf("%s %q exceeds %d characters", name, v, n))
		}
	}
	required("patient name", it.PatientName)
	required("patient id", it.PatientID)
	required("accession number", it.AccessionNumber)
	maxLen("patient id", it.PatientID, 64)
	maxLen("accession number", it.AccessionNumber, 16)
	maxLen("station name", it.StationName, 16)
	maxLen("station AE title", it.StationAETitle, 16)
	maxLen("modality", it.Modality, 16)

	if it.ScheduledDate != "" {
		if _, err := module.ParseDate(it.ScheduledDate); err != nil {
			errs = append(errs, fmt.Errorf("scheduled date: %w", err))
		}
	}
	if it.ScheduledTime != "" {
		if _, err := module.ParseTime(it.ScheduledTime); err != nil {
			errs = append(errs, fmt.Errorf("scheduled time: %w", err))
		}
	}
	if it.BirthDate != "" {
		if _, err := module.ParseDate(it.BirthDate); err != nil {
			errs = append(errs, fmt.Errorf("birth date: %w", err))
		}
	}
	if it.StudyInstanceUID != "" && !dicom.ValidUID(it.StudyInstanceUID) {
		errs = append(errs, fmt.Errorf("study instance UID %q is not a valid UID", it.StudyInstanceUID))
	}
	switch it.Sex {
	case "", "M", "F", "O":
	default:
		errs = append(errs, fmt.Errorf("sex %q must be one of M, F, O", it.Sex))
	}
	return errors.Join(errs...)
}

// Dataset builds the worklist item: patient, one scheduled procedure step,
// requested procedure and imaging service request attributes.
func (it Item) Dataset() (*dicom.Dataset, error) {
	it = it.WithDefaults()

	patient := &module.PatientModule{
		PatientName: module.ParsePersonName(it.PatientName),
		PatientID:   it.PatientID,
		PatientSex:  it.Sex,
	}
	if it.BirthDate != "" {
		birth, err := module.ParseDate(it.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("birth date: %w", err)
		}
		patient.PatientBirthDate = birth
	}
	medical := &module.PatientMedicalModule{
		MedicalAlerts: it.MedicalAlerts,
		Allergies:     it.ContrastAllergies,
		PatientSize:   it.PatientSize,
		PatientWeight: it.PatientWeight,
	}
	step := &module.ScheduledProcedureStep{
		StationAETitle:      it.StationAETitle,
		StartDate:           it.ScheduledDate,
		StartTime:           it.ScheduledTime,
		Modality:            it.Modality,
		PerformingPhysician: module.ParsePersonName(it.PerformingPhysician),
		Description:         it.Description,
		StepID:              NewShortID(),
		StationName:         it.StationName,
	}
	studyUID := it.StudyInstanceUID
	if studyUID == "" {
		studyUID = dicom.GenerateUID()
	}
	requested := &module.RequestedProcedureModule{
		RequestedProcedureID: NewShortID(),
		Description:          it.Description,
		StudyInstanceUID:     studyUID,
	}
	request := &module.ImagingServiceRequestModule{
		AccessionNumber:        it.AccessionNumber,
		ReferringPhysicianName: module.ParsePersonName(it.ReferringPhysician),
	}

	sps, err := dicom.NewSequenceBuilder(tag.ScheduledProcedureStepSequence).
		AddItem(dicom.WithModule(step.ToTags())).
		Build()
	if err != nil {
		return nil, err
	}

	ds, err := dicom.NewDataset(
		dicom.WithElement(tag.SpecificCharacterSet, dicom.DefaultCharacterSet),
		dicom.WithModules(patient, medical, requested, request),
		sps,
	)
	if err != nil {
		return nil, err
	}
	slog.Info("created worklist item",
		slog.String("patient", it.PatientName),
		slog.String("accession", it.AccessionNumber))
	return ds, nil
}

// FileDataset builds the item with file meta and SOP identifiers so it can
// be written as Part 10 or sent with C-STORE.
func (it Item) FileDataset() (*dicom.Dataset, error) {
	ds, err := it.Dataset()
	if err != nil {
		return nil, err
	}
	if err := AddFileMeta(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// AddFileMeta stamps ds as a worklist instance with a fresh SOP instance UID
func AddFileMeta(ds *dicom.Dataset) error {
	instanceUID := dicom.GenerateUID()
	return ds.Apply(
		dicom.WithFileMeta(dicom.ModalityWorklistFindSOPClass, instanceUID, transfer.ExplicitVRLittleEndian),
		dicom.WithElement(tag.SOPClassUID, dicom.ModalityWorklistFindSOPClass),
		dicom.WithElement(tag.SOPInstanceUID, instanceUID),
	)
}

// NewShortID returns a 16 character identifier that fits an SH value such
// as Scheduled Procedure Step ID or Requested Procedure ID.
func NewShortID() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return id[:16]
}
