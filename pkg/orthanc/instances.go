package orthanc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// UploadResult is Orthanc's answer to POST /instances
type UploadResult struct {
	ID            string `json:"ID"`
	Path          string `json:"Path"`
	Status        string `json:"Status"`
	ParentPatient string `json:"ParentPatient,omitempty"`
	ParentStudy   string `json:"ParentStudy,omitempty"`
	ParentSeries  string `json:"ParentSeries,omitempty"`
}

// UploadInstance posts a Part 10 file
func (c *Client) UploadInstance(ctx context.Context, dcm []byte) (*UploadResult, error) {
	if len(dcm) == 0 {
		return nil, fmt.Errorf("upload instance: empty file")
	}
	var res UploadResult
	if err := c.do(ctx, http.MethodPost, c.endpoint("instances"), "application/dicom", dcm, &res); err != nil {
		return nil, fmt.Errorf("upload instance: %w", err)
	}
	slog.Info("uploaded instance",
		slog.String("id", res.ID),
		slog.String("status", res.Status))
	return &res, nil
}

// GetInstance returns the simplified tags of an instance. Answers are cached
// for a few minutes per client.
func (c *Client) GetInstance(ctx context.Context, id string) (map[string]interface{}, error) {
	if id == "" {
		return nil, fmt.Errorf("get instance: empty id")
	}
	if v, ok := c.tags.Get(id); ok {
		return v.(map[string]interface{}), nil
	}
	var tags map[string]interface{}
	if err := c.do(ctx, http.MethodGet, c.endpoint("instances", id, "simplified-tags"), "", nil, &tags); err != nil {
		return nil, fmt.Errorf("get instance %s: %w", id, err)
	}
	c.tags.SetDefault(id, tags)
	return tags, nil
}

// DeleteInstance removes an instance
func (c *Client) DeleteInstance(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete instance: empty id")
	}
	if err := c.do(ctx, http.MethodDelete, c.endpoint("instances", id), "", nil, nil); err != nil {
		return fmt.Errorf("delete instance %s: %w", id, err)
	}
	c.tags.Delete(id)
	slog.Info("deleted instance", slog.String("id", id))
	return nil
}
