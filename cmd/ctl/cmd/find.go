package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpfielding/dicomctl.go/pkg/config"
	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/mwl"
	"github.com/jpfielding/dicomctl.go/pkg/scu"
	"github.com/spf13/cobra"
)

// NewFindCmd queries the SCP's modality worklist
func NewFindCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "C-FIND modality worklist query",
		Long:  "Queries the SCP's modality worklist. Matching keys come from flags or, with --query-file, from a DICOM identifier file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := targetFromFlags(cmd)
			if err != nil {
				return err
			}
			output, err := outputFlag(cmd)
			if err != nil {
				return err
			}

			var identifier *dicom.Dataset
			if path, _ := cmd.Flags().GetString("query-file"); path != "" {
				ds, err := dicom.ReadFile(config.Expand(path))
				if err != nil {
					return fmt.Errorf("read query: %w", err)
				}
				identifier = dicom.WithoutFileMeta(ds)
			} else {
				var q mwl.Query
				q.PatientName, _ = cmd.Flags().GetString("patient-name")
				q.StartDate, _ = cmd.Flags().GetString("start-date")
				q.EndDate, _ = cmd.Flags().GetString("end-date")
				q.Modality, _ = cmd.Flags().GetString("modality")
				q.StationAETitle, _ = cmd.Flags().GetString("station-ae")
				if identifier, err = q.Dataset(); err != nil {
					return err
				}
			}
			slog.DebugContext(ctx, "C-FIND identifier", slog.String("dataset", identifier.String()))

			found, err := scu.FindWorklist(ctx, t, identifier)
			if err != nil {
				return err
			}
			items := make([]mwl.Summary, 0, len(found))
			for _, ds := range found {
				items = append(items, mwl.SummaryFromDataset(ds))
			}
			if output == "json" {
				return mwl.WriteJSON(cmd.OutOrStdout(), items)
			}
			return mwl.WriteText(cmd.OutOrStdout(), items)
		},
	}
	addTargetFlags(cmd)
	f := cmd.Flags()
	f.String("patient-name", "", "patient name matching key, wildcards allowed (default *)")
	f.String("start-date", "", "first scheduled date (YYYYMMDD)")
	f.String("end-date", "", "last scheduled date (YYYYMMDD)")
	f.String("modality", "", "modality matching key")
	f.String("station-ae", "", "scheduled station AE title matching key")
	f.String("query-file", "", "DICOM file holding a complete C-FIND identifier")
	f.StringP("output", "o", "text", "output format (text|json)")
	return cmd
}
