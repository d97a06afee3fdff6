package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, true, slog.LevelInfo)

	ctx := AppendCtx(context.Background(), slog.String("app", "dicomctl"))
	ctx = AppendCtx(ctx, slog.Int("item", 3))
	log.InfoContext(ctx, "uploaded")
	log.DebugContext(ctx, "hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "uploaded", rec["msg"])
	assert.Equal(t, "dicomctl", rec["app"])
	assert.Equal(t, float64(3), rec["item"])
}

func TestLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, false, slog.LevelDebug).With(slog.String("cmd", "echo"))
	log.DebugContext(AppendCtx(context.Background(), slog.String("host", "pacs")), "dialing")
	assert.Contains(t, buf.String(), "msg=dialing")
	assert.Contains(t, buf.String(), "cmd=echo")
	assert.Contains(t, buf.String(), "host=pacs")
}

func TestAppendCtx_DoesNotLeakToParent(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("a", "1"))
	_ = AppendCtx(parent, slog.String("b", "2"))
	attrs := parent.Value(ctxKey{}).([]slog.Attr)
	assert.Len(t, attrs, 1)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" Warn": slog.LevelWarn,
		"ERROR": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	got, err := ParseLevel("LOUD")
	assert.Error(t, err)
	assert.Equal(t, slog.LevelInfo, got)
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dicomctl.log")
	w := FileWriter(path)
	Logger(w, false, slog.LevelInfo).Info("to file")
	require.NoError(t, w.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "to file")
}
