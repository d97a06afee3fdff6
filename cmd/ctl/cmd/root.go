package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/dicomctl.go/pkg/config"
	"github.com/jpfielding/dicomctl.go/pkg/logging"
	"github.com/spf13/cobra"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "dicomctl",
		Short:        "a CLI to exercise DICOM worklist, storage and Orthanc operations",
		Long:         "dicomctl converts worklist samples, checks connectivity with C-ECHO, queries and sends worklist items, uploads images and manages Orthanc worklists",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logLevel := cfg.Log.Level
			if cmd.Flags().Changed("log-level") {
				logLevel, _ = cmd.Flags().GetString("log-level")
			}
			asJSON := cfg.Log.JSON
			if cmd.Flags().Changed("log-json") {
				asJSON, _ = cmd.Flags().GetBool("log-json")
			}
			logFile := cfg.Log.File
			if cmd.Flags().Changed("log-file") {
				logFile, _ = cmd.Flags().GetString("log-file")
			}

			var w io.Writer = os.Stderr
			if logFile != "" {
				w = logging.FileWriter(config.Expand(logFile))
			}
			level, levelErr := logging.ParseLevel(logLevel)
			slog.SetDefault(logging.Logger(w, asJSON, level))
			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewConvertCmd(ctx),
		NewEchoCmd(ctx),
		NewFindCmd(ctx),
		NewSendWorklistCmd(ctx),
		NewUploadImageCmd(ctx),
		NewDumpCmd(ctx),
		NewWorklistCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default "+config.DefaultPath+")")
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.Bool("log-json", false, "log as JSON")
	pf.String("log-file", "", "write logs to a rotated file instead of stderr")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}

// loadConfig reads --config, falling back to the default location
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// stringFlag prefers an explicitly set flag over the configured value
func stringFlag(cmd *cobra.Command, name, configured string) string {
	if cmd.Flags().Changed(name) || configured == "" {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return configured
}

// writeOutput sends command output to stdout and, when path is set, also
// saves it there
func writeOutput(cmd *cobra.Command, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(config.Expand(path))
	if err != nil {
		return err
	}
	if err := fn(io.MultiWriter(cmd.OutOrStdout(), f)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("output saved", slog.String("path", path))
	return nil
}

// outputFlag reads --output, which must be text or json
func outputFlag(cmd *cobra.Command) (string, error) {
	output, _ := cmd.Flags().GetString("output")
	if output != "text" && output != "json" {
		return "", fmt.Errorf("--output must be text or json, got %q", output)
	}
	return output, nil
}
