package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: WarnLevel}, &buf)

	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %s", buf.String())
	}

	l.Warn().Str("draft_id", "mock-1").Msg("visible")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["message"] != "visible" || line["draft_id"] != "mock-1" {
		t.Errorf("unexpected log line: %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Errorf("log line has no timestamp: %v", line)
	}
}

func TestSetReplacesGlobal(t *testing.T) {
	var buf bytes.Buffer
	prev := *Get()
	defer Set(prev)

	Set(New(Config{Level: DebugLevel}, &buf))
	Get().Debug().Msg("hello")

	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("global logger did not write: %q", buf.String())
	}
}

func TestWithTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := *Get()
	defer Set(prev)

	Set(New(Config{Level: InfoLevel}, &buf))
	l := With("resty")
	l.Info().Msg("retrying")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["component"] != "resty" || line["message"] != "retrying" {
		t.Errorf("unexpected log line: %v", line)
	}
}
