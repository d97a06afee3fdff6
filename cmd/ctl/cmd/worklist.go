package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jpfielding/dicomctl.go/pkg/config"
	"github.com/jpfielding/dicomctl.go/pkg/dicom"
	"github.com/jpfielding/dicomctl.go/pkg/logging"
	"github.com/jpfielding/dicomctl.go/pkg/mwl"
	"github.com/jpfielding/dicomctl.go/pkg/orthanc"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewWorklistCmd groups the Orthanc REST worklist commands
func NewWorklistCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worklist",
		Short: "manage worklist items through the Orthanc REST API",
		Long:  "Create, list, inspect, delete and batch upload worklist items on an Orthanc server.",
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewWorklistCreateCmd(ctx),
		NewWorklistListCmd(ctx),
		NewWorklistGetCmd(ctx),
		NewWorklistDeleteCmd(ctx),
		NewWorklistBatchCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("orthanc-url", "", "Orthanc URL (default from config, "+orthanc.DefaultURL+")")
	pf.String("username", "", "Orthanc username")
	pf.String("password", "", "Orthanc password")
	pf.String("modality", "", "Orthanc modality answering worklist queries (default from config, "+orthanc.DefaultModality+")")
	return cmd
}

func orthancFromFlags(cmd *cobra.Command) (*orthanc.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	o := cfg.Orthanc
	return orthanc.New(orthanc.Config{
		URL:      stringFlag(cmd, "orthanc-url", o.URL),
		Username: stringFlag(cmd, "username", o.Username),
		Password: stringFlag(cmd, "password", o.Password),
		Modality: stringFlag(cmd, "modality", o.Modality),
		Timeout:  o.Timeout,
	})
}

// part10 encodes an item as a Part 10 file
func part10(it mwl.Item) ([]byte, error) {
	ds, err := it.FileDataset()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := dicom.Write(&buf, ds); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeIndentedJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func NewWorklistCreateCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "create a worklist item",
		Long:  "Builds a worklist item from flags, uploads it to Orthanc and prints the upload result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := orthancFromFlags(cmd)
			if err != nil {
				return err
			}
			it, err := itemFromFlags(cmd, time.Now())
			if err != nil {
				return err
			}
			slog.InfoContext(ctx, "creating worklist item", slog.String("patient", it.PatientName))
			b, err := part10(it)
			if err != nil {
				return err
			}
			res, err := cl.UploadInstance(ctx, b)
			if err != nil {
				return err
			}
			return writeIndentedJSON(cmd.OutOrStdout(), res)
		},
	}
	addItemFlags(cmd)
	return cmd
}

func NewWorklistListCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list worklist items in a date range",
		Long:  "Queries the Orthanc modality's worklist for items scheduled between --start-date and --end-date.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := orthancFromFlags(cmd)
			if err != nil {
				return err
			}
			start, _ := cmd.Flags().GetString("start-date")
			end, _ := cmd.Flags().GetString("end-date")
			output, err := outputFlag(cmd)
			if err != nil {
				return err
			}
			items, err := cl.FindWorklists(ctx, start, end)
			if err != nil {
				return err
			}
			if output == "json" {
				return mwl.WriteJSON(cmd.OutOrStdout(), items)
			}
			if len(items) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No worklist items found for the specified date range.")
				return err
			}
			return mwl.WriteText(cmd.OutOrStdout(), items)
		},
	}
	f := cmd.Flags()
	f.String("start-date", "", "start date (YYYYMMDD)")
	f.String("end-date", "", "end date (YYYYMMDD)")
	f.StringP("output", "o", "text", "output format (text|json)")
	cmd.MarkFlagRequired("start-date")
	cmd.MarkFlagRequired("end-date")
	return cmd
}

func NewWorklistGetCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "show a worklist item's tags",
		Long:  "Prints the simplified tags Orthanc holds for a worklist instance.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := orthancFromFlags(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("id")
			output, err := outputFlag(cmd)
			if err != nil {
				return err
			}
			tags, err := cl.GetInstance(ctx, id)
			if err != nil {
				return err
			}
			if output == "json" {
				return writeIndentedJSON(cmd.OutOrStdout(), tags)
			}
			return writeDetails(cmd.OutOrStdout(), tags)
		},
	}
	f := cmd.Flags()
	f.String("id", "", "worklist item (instance) ID")
	f.StringP("output", "o", "text", "output format (text|json)")
	cmd.MarkFlagRequired("id")
	return cmd
}

func writeDetails(w io.Writer, tags map[string]interface{}) error {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, err := fmt.Fprintln(w, "=== Worklist Details ==="); err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s: %v\n", k, tags[k]); err != nil {
			return err
		}
	}
	return nil
}

func NewWorklistDeleteCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "delete a worklist item",
		Long:  "Deletes a worklist instance from Orthanc.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := orthancFromFlags(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("id")
			return cl.DeleteInstance(ctx, id)
		},
	}
	cmd.Flags().String("id", "", "worklist item (instance) ID")
	cmd.MarkFlagRequired("id")
	return cmd
}

func NewWorklistBatchCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "upload worklist items from a JSON file",
		Long:  "Reads a JSON array of worklist items and uploads each one. Failed items are logged and skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := orthancFromFlags(cmd)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("file")
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			items, err := mwl.LoadItems(config.Expand(path))
			if err != nil {
				return err
			}
			uploaded := uploadBatch(ctx, cl, items, concurrency)
			slog.InfoContext(ctx, fmt.Sprintf("Batch processing complete. %d/%d items uploaded successfully.", uploaded, len(items)),
				slog.Int("uploaded", uploaded),
				slog.Int("total", len(items)))
			if len(items) > 0 && uploaded == 0 {
				return fmt.Errorf("no worklist items were uploaded")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.String("file", "", "JSON file containing worklist items")
	f.Int("concurrency", 1, "uploads in flight at once")
	cmd.MarkFlagRequired("file")
	return cmd
}

// uploadBatch uploads items with at most concurrency in flight and returns
// how many succeeded
func uploadBatch(ctx context.Context, cl *orthanc.Client, items []mwl.Item, concurrency int) int {
	var uploaded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, it := range items {
		g.Go(func() error {
			ictx := logging.AppendCtx(gctx, slog.Int("item", i+1), slog.Int("total", len(items)))
			slog.InfoContext(ictx, "processing item")
			res, err := uploadItem(ictx, cl, it)
			if err != nil {
				slog.ErrorContext(ictx, "failed to upload item", slog.Any("error", err))
				return nil
			}
			slog.InfoContext(ictx, "uploaded item", slog.String("id", res.ID))
			uploaded.Add(1)
			return nil
		})
	}
	g.Wait()
	return int(uploaded.Load())
}

func uploadItem(ctx context.Context, cl *orthanc.Client, it mwl.Item) (*orthanc.UploadResult, error) {
	it = it.WithDefaults()
	if err := it.Validate(); err != nil {
		return nil, err
	}
	b, err := part10(it)
	if err != nil {
		return nil, err
	}
	return cl.UploadInstance(ctx, b)
}
