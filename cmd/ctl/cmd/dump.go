package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/jpfielding/dicomctl.go/pkg/config"
	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/spf13/cobra"
)

// NewDumpCmd prints a DICOM file as keyword JSON or text
func NewDumpCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "dump a DICOM file as JSON or text",
		Long:  "Parses a Part 10 file from a path, '-' for stdin, or an http(s) URL and prints its elements.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" && len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")

			in, err := openInput(ctx, path)
			if err != nil {
				return err
			}
			defer in.Close()
			ds, err := dicom.Parse(in)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}
			slog.DebugContext(ctx, "parsed DICOM file", slog.String("file", path), slog.Int("elements", ds.Len()))

			return writeOutput(cmd, out, func(w io.Writer) error {
				switch format {
				case "text":
					_, err := fmt.Fprint(w, ds.String())
					return err
				case "json":
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(dicom.ToKeywordMap(ds))
				default:
					return fmt.Errorf("--format must be json or text, got %q", format)
				}
			})
		},
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "DICOM file path, '-' for stdin or an http(s) URL")
	f.String("format", "json", "output format (json|text)")
	f.String("out", "", "also save the dump to this file")
	return cmd
}

func openInput(ctx context.Context, path string) (io.ReadCloser, error) {
	path = strings.TrimPrefix(path, "file://")
	switch {
	case path == "-":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := cleanhttp.DefaultClient().Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to download: %s", resp.Status)
		}
		return resp.Body, nil
	default:
		f, err := os.Open(config.Expand(path))
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		return f, nil
	}
}
