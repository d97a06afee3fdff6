package cmd

import (
	"context"
	"fmt"

	"github.com/jpfielding/dicomctl.go/pkg/config"
	"github.com/jpfielding/dicomctl.go/pkg/mwl"
	"github.com/spf13/cobra"
)

// NewConvertCmd turns the MWL sample dumps into Part 10 files
func NewConvertCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "convert MWL sample dumps to DICOM",
		Long:  fmt.Sprintf("Reads %q and %q from --in and writes %s and %s to --out.", mwl.RequestSample, mwl.ResponseSample, mwl.RequestOutput, mwl.ResponseOutput),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			req, rsp, err := mwl.ConvertSamples(config.Expand(in), config.Expand(out))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), req)
			fmt.Fprintln(cmd.OutOrStdout(), rsp)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("in", "data/mwl-sample", "directory holding the sample dumps")
	f.String("out", "data/mwl-sample/dcm", "output directory")
	return cmd
}
