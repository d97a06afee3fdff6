package mwl

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
)

// NotAvailable marks attributes missing from a result
const NotAvailable = "N/A"

// Summary is the flattened view of a worklist item used for display. ID is
// the server side identifier when the item came from a REST listing.
type Summary struct {
	ID               string `json:"ID,omitempty"`
	PatientName      string `json:"PatientName"`
	PatientID        string `json:"PatientID"`
	AccessionNumber  string `json:"AccessionNumber"`
	ScheduledDate    string `json:"ScheduledDate"`
	ScheduledTime    string `json:"ScheduledTime"`
	Modality         string `json:"Modality"`
	Description      string `json:"RequestedProcedureDescription"`
	StationName      string `json:"StationName,omitempty"`
	StationAETitle   string `json:"StationAETitle,omitempty"`
	StudyInstanceUID string `json:"StudyInstanceUID,omitempty"`
}

// SummaryFromDataset reads a worklist dataset, taking schedule details from
// the first scheduled procedure step item.
func SummaryFromDataset(ds *dicom.Dataset) Summary {
	get := func(d *dicom.Dataset, t dicom.Tag) string {
		if d == nil || !dicom.HasElement(d, t) {
			return NotAvailable
		}
		return dicom.GetString(d, t)
	}
	sps := dicom.FirstItem(ds, tag.ScheduledProcedureStepSequence)
	return Summary{
		PatientName:      get(ds, tag.PatientName),
		PatientID:        get(ds, tag.PatientID),
		AccessionNumber:  get(ds, tag.AccessionNumber),
		ScheduledDate:    get(sps, tag.ScheduledProcedureStepStartDate),
		ScheduledTime:    get(sps, tag.ScheduledProcedureStepStartTime),
		Modality:         get(sps, tag.Modality),
		Description:      get(ds, tag.RequestedProcedureDescription),
		StationName:      get(sps, tag.ScheduledStationName),
		StationAETitle:   get(sps, tag.ScheduledStationAETitle),
		StudyInstanceUID: get(ds, tag.StudyInstanceUID),
	}
}

// SummaryFromTags reads a keyword keyed tag map such as a REST server's
// simplified tags. Schedule keys are looked up at the top level first and
// then in the first scheduled procedure step item.
func SummaryFromTags(id string, tags map[string]interface{}) Summary {
	var sps map[string]interface{}
	if seq, ok := tags["ScheduledProcedureStepSequence"].([]interface{}); ok && len(seq) > 0 {
		sps, _ = seq[0].(map[string]interface{})
	}
	get := func(key string) string {
		for _, m := range []map[string]interface{}{tags, sps} {
			if v, ok := m[key]; ok && v != nil {
				return fmt.Sprint(v)
			}
		}
		return ""
	}
	return Summary{
		ID:              id,
		PatientName:     get("PatientName"),
		PatientID:       get("PatientID"),
		AccessionNumber: get("AccessionNumber"),
		ScheduledDate:   get("ScheduledProcedureStepStartDate"),
		ScheduledTime:   get("ScheduledProcedureStepStartTime"),
		Modality:        get("Modality"),
		Description:     get("RequestedProcedureDescription"),
		StationName:     get("ScheduledStationName"),
		StationAETitle:  get("ScheduledStationAETitle"),
	}
}

// WriteText renders summaries in the console layout. REST results end with
// their ID, C-FIND results with the station name.
func WriteText(w io.Writer, items []Summary) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No worklist items found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "=== Worklist Items ==="); err != nil {
		return err
	}
	for i, s := range items {
		last := fmt.Sprintf("  Station: %s", s.StationName)
		if s.ID != "" {
			last = fmt.Sprintf("  ID: %s", s.ID)
		}
		_, err := fmt.Fprintf(w, "\nWorklist #%d:\n  Patient: %s\n  Patient ID: %s\n  Accession: %s\n  Date: %s\n  Time: %s\n  Modality: %s\n  Description: %s\n%s\n",
			i+1, s.PatientName, s.PatientID, s.AccessionNumber, s.ScheduledDate, s.ScheduledTime, s.Modality, s.Description, last)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON renders summaries as an indented JSON array
func WriteJSON(w io.Writer, items []Summary) error {
	if items == nil {
		items = []Summary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}
