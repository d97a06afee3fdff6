package orthanc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jpfielding/dicomctl.go/pkg/mwl"
)

// FindRequest is the body of /modalities/{name}/find-worklist
type FindRequest struct {
	Level string                 `json:"Level"`
	Query map[string]interface{} `json:"Query"`
}

// NewWorklistFind builds a query over the scheduled start date range with
// empty return keys for what a summary shows
func NewWorklistFind(start, end string) FindRequest {
	date := start
	if start != "" || end != "" {
		date = start + "-" + end
	}
	return FindRequest{
		Level: "WorkList",
		Query: map[string]interface{}{
			"ScheduledProcedureStepSequence": map[string]interface{}{
				"Sequence": []map[string]interface{}{
					{"ScheduledProcedureStepStartDate": date},
				},
			},
			"PatientName":                   "",
			"PatientID":                     "",
			"AccessionNumber":               "",
			"RequestedProcedureDescription": "",
			"StudyInstanceUID":              "",
		},
	}
}

// FindWorklists asks the configured modality for worklist items scheduled
// between start and end (YYYYMMDD, inclusive)
func (c *Client) FindWorklists(ctx context.Context, start, end string) ([]mwl.Summary, error) {
	body, err := json.Marshal(NewWorklistFind(start, end))
	if err != nil {
		return nil, err
	}
	var answers []json.RawMessage
	target := c.endpoint("modalities", c.cfg.Modality, "find-worklist")
	if err := c.do(ctx, http.MethodPost, target, "application/json", body, &answers); err != nil {
		return nil, fmt.Errorf("find worklists: %w", err)
	}
	slog.Info("found worklist items",
		slog.Int("count", len(answers)),
		slog.String("start", start),
		slog.String("end", end))

	items := make([]mwl.Summary, 0, len(answers))
	for i, raw := range answers {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			tags, err := c.GetInstance(ctx, id)
			if err != nil {
				slog.Warn("skipping worklist answer", slog.String("id", id), slog.Any("error", err))
				continue
			}
			items = append(items, mwl.SummaryFromTags(id, tags))
			continue
		}
		var tags map[string]interface{}
		if err := json.Unmarshal(raw, &tags); err != nil {
			return nil, fmt.Errorf("find worklists: answer %d: %w", i, err)
		}
		id, _ = tags["ID"].(string)
		items = append(items, mwl.SummaryFromTags(id, tags))
	}
	return items, nil
}
