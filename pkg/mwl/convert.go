package mwl

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
)

// Sample dump file names
const (
	RequestSample  = "DMWL - Query Request.txt"
	ResponseSample = "DMWL - Query Response.txt"
	RequestOutput  = "mwl_request.dcm"
	ResponseOutput = "mwl_response.dcm"
)

// ErrSamplesNotFound is returned when either sample dump is missing
var ErrSamplesNotFound = errors.New("MWL sample files not found")

// ExtractValue returns the trimmed text after "label :" on the first
// matching line, or "" when the label does not occur. The match never runs
// onto the next line, so an empty value stays empty.
func ExtractValue(content, label string) string {
	re := regexp.MustCompile(regexp.QuoteMeta(label) + `[ \t]*:[ \t]*(.*)`)
	m := re.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// dump labels in the order they appear in a worklist dump
var (
	lblPatientName         = "Patient's Name"
	lblPatientID           = "Patient ID"
	lblBirthDate           = "Patient's Birth Date"
	lblSex                 = "Patient's Sex"
	lblSize                = "Patient's Size"
	lblWeight              = "Patient's Weight"
	lblStationAE           = "Scheduled Station AE Title"
	lblStartDate           = "Scheduled Procedure Step Start Date"
	lblStartTime           = "Scheduled Procedure Step Start Time"
	lblModality            = "Modality"
	lblPerformingPhysician = "Scheduled Performing Physician's Name"
	lblStepDescription     = "Scheduled Procedure Step Description"
	lblStationName         = "Scheduled Station Name"
	lblRequestedDesc       = "Requested Procedure Description"
	lblAccession           = "Accession Number"
	lblReferring           = "Referring Physician's Name"
	lblAlerts              = "Medical Alerts"
	lblAllergies           = "Contrast Allergies"
)

// RequestFromDump builds a worklist query request from a text dump. Every
// key is present, empty when the dump has no value, so it acts as a return key.
func RequestFromDump(content string) (*dicom.Dataset, error) {
	v := func(label string) string { return ExtractValue(content, label) }

	sps, err := dicom.NewSequenceBuilder(tag.ScheduledProcedureStepSequence).
		AddItem(
			dicom.WithElement(tag.ScheduledStationAETitle, v(lblStationAE)),
			dicom.WithElement(tag.ScheduledProcedureStepStartDate, v(lblStartDate)),
			dicom.WithElement(tag.ScheduledProcedureStepStartTime, v(lblStartTime)),
			dicom.WithElement(tag.Modality, v(lblModality)),
			dicom.WithElement(tag.ScheduledPerformingPhysicianName, v(lblPerformingPhysician)),
			dicom.WithElement(tag.ScheduledProcedureStepDescription, v(lblStepDescription)),
			dicom.WithElement(tag.ScheduledProcedureStepID, NewShortID()),
			dicom.WithElement(tag.ScheduledStationName, v(lblStationName)),
		).
		Build()
	if err != nil {
		return nil, err
	}
	ds, err := dicom.NewDataset(
		dicom.WithElement(tag.PatientName, v(lblPatientName)),
		dicom.WithElement(tag.PatientID, v(lblPatientID)),
		dicom.WithElement(tag.PatientBirthDate, v(lblBirthDate)),
		dicom.WithElement(tag.PatientSex, v(lblSex)),
		sps,
		dicom.WithElement(tag.RequestedProcedureID, NewShortID()),
		dicom.WithElement(tag.RequestedProcedureDescription, v(lblRequestedDesc)),
		dicom.WithElement(tag.AccessionNumber, v(lblAccession)),
		dicom.WithElement(tag.ReferringPhysicianName, v(lblReferring)),
		dicom.WithElement(tag.MedicalAlerts, v(lblAlerts)),
		dicom.WithElement(tag.Allergies, v(lblAllergies)),
		dicom.WithElement(tag.StudyInstanceUID, dicom.GenerateUID()),
	)
	if err != nil {
		return nil, err
	}
	if err := AddFileMeta(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// ReferenceResponse is the worklist answer the sample response dump
// describes; its values fill anything the dump leaves out.
var ReferenceResponse = Item{
	PatientName:         "Patient_Name",
	PatientID:           "488390",
	BirthDate:           "19670416",
	Sex:                 "M",
	PatientSize:         1.73,
	PatientWeight:       78,
	StationAETitle:      "OUMQHUS06",
	StationName:         "OUMQHUS06",
	ScheduledDate:       "20250430",
	ScheduledTime:       "095939",
	Modality:            "US",
	PerformingPhysician: "REFERRAL",
	ReferringPhysician:  "REFERRAL",
	Description:         "Cardiac Echo",
	AccessionNumber:     "5880936",
}

// ResponseFromDump builds a worklist item file from a response dump
func ResponseFromDump(content string) (*dicom.Dataset, error) {
	ref := ReferenceResponse
	v := func(label, fallback string) string {
		if s := ExtractValue(content, label); s != "" {
			return s
		}
		return fallback
	}
	f := func(label string, fallback float64) float64 {
		if s := ExtractValue(content, label); s != "" {
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				return n
			}
		}
		return fallback
	}
	description := v(lblRequestedDesc, v(lblStepDescription, ref.Description))

	item := Item{
		PatientName:         v(lblPatientName, ref.PatientName),
		PatientID:           v(lblPatientID, ref.PatientID),
		BirthDate:           v(lblBirthDate, ref.BirthDate),
		Sex:                 v(lblSex, ref.Sex),
		PatientSize:         f(lblSize, ref.PatientSize),
		PatientWeight:       f(lblWeight, ref.PatientWeight),
		StationAETitle:      v(lblStationAE, ref.StationAETitle),
		StationName:         v(lblStationName, ref.StationName),
		ScheduledDate:       v(lblStartDate, ref.ScheduledDate),
		ScheduledTime:       v(lblStartTime, ref.ScheduledTime),
		Modality:            v(lblModality, ref.Modality),
		PerformingPhysician: v(lblPerformingPhysician, ref.PerformingPhysician),
		ReferringPhysician:  v(lblReferring, ref.ReferringPhysician),
		Description:         description,
		AccessionNumber:     v(lblAccession, ref.AccessionNumber),
		MedicalAlerts:       ExtractValue(content, lblAlerts),
		ContrastAllergies:   ExtractValue(content, lblAllergies),
	}
	return item.FileDataset()
}

// ConvertSamples converts the request and response dumps found in inDir into
// Part 10 files in outDir and returns their paths.
func ConvertSamples(inDir, outDir string) (string, string, error) {
	requestPath := filepath.Join(inDir, RequestSample)
	responsePath := filepath.Join(inDir, ResponseSample)
	for _, p := range []string{requestPath, responsePath} {
		if _, err := os.Stat(p); err != nil {
			return "", "", fmt.Errorf("%w: %s", ErrSamplesNotFound, p)
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", err
	}

	requestOut := filepath.Join(outDir, RequestOutput)
	if err := convertFile(requestPath, requestOut, RequestFromDump); err != nil {
		return "", "", fmt.Errorf("request: %w", err)
	}
	slog.Info("saved MWL request", slog.String("path", requestOut))

	responseOut := filepath.Join(outDir, ResponseOutput)
	if err := convertFile(responsePath, responseOut, ResponseFromDump); err != nil {
		return "", "", fmt.Errorf("response: %w", err)
	}
	slog.Info("saved MWL response", slog.String("path", responseOut))

	return requestOut, responseOut, nil
}

func convertFile(in, out string, build func(string) (*dicom.Dataset, error)) error {
	content, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	ds, err := build(string(content))
	if err != nil {
		return err
	}
	_, err = dicom.WriteFile(out, ds)
	return err
}
