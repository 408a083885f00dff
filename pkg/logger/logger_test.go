package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) }

func TestLogger_JSONLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelInfo, Now: fixedNow}).WithRequestID("req-1")

	l.Info("state saved", ClassID("c1"), Err(errors.New("nope")))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "INFO", got["level"])
	assert.Equal(t, "state saved", got["message"])
	assert.Equal(t, "2025-05-01T10:00:00Z", got["timestamp"])

	fields := got["fields"].(map[string]any)
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "c1", fields["class_id"])
	assert.Equal(t, "nope", fields["error"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelWarn})

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Format: FormatText, Now: fixedNow})

	l.Error("report failed", StudentID("s1"), Int("status", 500))
	assert.Equal(t, "2025-05-01T10:00:00Z ERROR report failed status=500 student_id=s1\n", buf.String())
}

func TestLogger_WithDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Output: &buf})
	_ = base.With(String("a", "1"))

	base.Info("plain")
	assert.NotContains(t, buf.String(), `"a"`)
}

func TestFromContext(t *testing.T) {
	l := New(Options{Output: &bytes.Buffer{}})
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParse(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, FormatText, ParseFormat("TEXT"))
	assert.Equal(t, FormatJSON, ParseFormat(""))
}
