package cmd

import (
	"context"
	"log/slog"

	"github.com/jpfielding/dicomctl.go/pkg/scu"
	"github.com/spf13/cobra"
)

// NewEchoCmd checks that the SCP answers C-ECHO
func NewEchoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "C-ECHO connectivity check",
		Long:  "Associates with the SCP, sends a C-ECHO and releases. A non-success status is an error.",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := targetFromFlags(cmd)
			if err != nil {
				return err
			}
			slog.InfoContext(ctx, "sending C-ECHO",
				slog.String("addr", t.Addr()),
				slog.String("called_ae", t.CalledAE),
				slog.String("calling_ae", t.CallingAE))
			if err := scu.Echo(ctx, t); err != nil {
				return err
			}
			slog.InfoContext(ctx, "server is accessible", slog.String("addr", t.Addr()))
			return nil
		},
	}
	addTargetFlags(cmd)
	return cmd
}
