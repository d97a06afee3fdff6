package mwl

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mitchellh/mapstructure"
)

// ErrNotArray is returned when a batch file is not a JSON array
var ErrNotArray = errors.New("batch file must contain a JSON array of items")

// LoadItems reads a JSON array of loosely typed worklist objects
func LoadItems(path string) ([]Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	list, ok := doc.([]interface{})
	if !ok {
		return nil, ErrNotArray
	}
	items, err := DecodeItems(list)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded worklist items", slog.String("file", path), slog.Int("count", len(items)))
	return items, nil
}

// DecodeItems converts generic JSON objects to items. Numbers are accepted
// for string fields and unknown keys are logged and ignored.
func DecodeItems(list []interface{}) ([]Item, error) {
	items := make([]Item, 0, len(list))
	for i, entry := range list {
		if _, ok := entry.(map[string]interface{}); !ok {
			return nil, fmt.Errorf("item %d: expected an object, got %T", i, entry)
		}
		var item Item
		var md mapstructure.Metadata
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			TagName:          "mapstructure",
			Metadata:         &md,
			Result:           &item,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(entry); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if len(md.Unused) > 0 {
			slog.Warn("ignoring unknown item keys", slog.Int("item", i), slog.Any("keys", md.Unused))
		}
		items = append(items, item)
	}
	return items, nil
}
