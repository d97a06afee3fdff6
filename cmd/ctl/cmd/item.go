package cmd

import (
	"time"

	"github.com/jpfielding/dicomctl.go/pkg/mwl"
	"github.com/spf13/cobra"
)

func addItemFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("patient-name", "", "patient name (Last^First)")
	f.String("patient-id", "", "patient ID")
	f.String("accession", "", "accession number")
	f.String("date", "", "scheduled procedure date (YYYYMMDD), defaults to tomorrow")
	f.String("time", "", "scheduled procedure time (HHMMSS), defaults to now")
	f.String("modality-type", mwl.DefaultModality, "modality type")
	f.String("description", mwl.DefaultDescription, "procedure description")
	f.String("station", mwl.DefaultStationName, "station name")
	f.String("station-ae", "", "scheduled station AE title (defaults to the station name)")
	f.String("physician", "", "referring physician name (Last^First)")
	f.String("birth-date", "", "patient birth date (YYYYMMDD)")
	f.String("sex", "", "patient sex (M|F|O)")
	f.String("alerts", "", "medical alerts")
	f.String("allergies", "", "allergies")
	for _, name := range []string{"patient-name", "patient-id", "accession"} {
		cmd.MarkFlagRequired(name)
	}
}

// itemFromFlags reads the item flags, scheduling tomorrow at the current
// time when no date or time is given
func itemFromFlags(cmd *cobra.Command, now time.Time) (mwl.Item, error) {
	f := cmd.Flags()
	var it mwl.Item
	it.PatientName, _ = f.GetString("patient-name")
	it.PatientID, _ = f.GetString("patient-id")
	it.AccessionNumber, _ = f.GetString("accession")
	it.ScheduledDate, _ = f.GetString("date")
	it.ScheduledTime, _ = f.GetString("time")
	it.Modality, _ = f.GetString("modality-type")
	it.Description, _ = f.GetString("description")
	it.StationName, _ = f.GetString("station")
	it.StationAETitle, _ = f.GetString("station-ae")
	it.ReferringPhysician, _ = f.GetString("physician")
	it.BirthDate, _ = f.GetString("birth-date")
	it.Sex, _ = f.GetString("sex")
	it.MedicalAlerts, _ = f.GetString("alerts")
	it.ContrastAllergies, _ = f.GetString("allergies")
	if it.ScheduledDate == "" {
		it.ScheduledDate = now.AddDate(0, 0, 1).Format("20060102")
	}
	if it.ScheduledTime == "" {
		it.ScheduledTime = now.Format("150405")
	}
	it = it.WithDefaults()
	return it, it.Validate()
}
