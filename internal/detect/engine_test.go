package detect

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

const sampleOutput = `{
	"version": 2,
	"data_type": "alpr_results",
	"processing_time_ms": 93.4,
	"results": [
		{
			"plate": "ABC123",
			"confidence": 92.1,
			"matches_template": 1,
			"coordinates": [{"x": 10, "y": 20}, {"x": 110, "y": 20}, {"x": 110, "y": 60}, {"x": 10, "y": 60}],
			"candidates": [
				{"plate": "ABC123", "confidence": 92.1},
				{"plate": "A8C123", "confidence": 78.4}
			]
		},
		{
			"plate": "ZZZ999",
			"confidence": 61.0,
			"coordinates": [],
			"candidates": []
		}
	]
}`

func TestParseRecognitionFiltersByConfidence(t *testing.T) {
	results, err := parseRecognition([]byte(sampleOutput), 90*time.Millisecond, 80)
	if err != nil {
		t.Fatalf("parseRecognition failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (61.0 is below the floor)", len(results))
	}
	r := results[0]
	if r.Plate != "ABC123" || r.Confidence != 92.1 {
		t.Errorf("result = %+v", r)
	}
	if len(r.Coordinates) != 4 {
		t.Errorf("coordinates = %d, want 4", len(r.Coordinates))
	}
	if len(r.Candidates) != 2 {
		t.Errorf("candidates = %d, want 2", len(r.Candidates))
	}
	if r.Latency != 90*time.Millisecond {
		t.Errorf("latency = %v", r.Latency)
	}
}

// Drives the full CLI path with a stub binary that prints a canned response.
func TestRecognizeInvokesBinary(t *testing.T) {
	script := filepath.Join(t.TempDir(), "fakealpr")
	body := "#!/bin/sh\ncat <<'EOF'\n" + sampleOutput + "\nEOF\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("failed to write stub binary: %v", err)
	}

	var logs bytes.Buffer
	e := &OpenALPR{
		Binary:     script,
		Country:    "us",
		ConfigFile: "/dev/null",
		Timeout:    5 * time.Second,
		Log:        zerolog.New(&logs),
	}

	frame := &alpr.Frame{Data: []byte{0xFF, 0xD8}, Width: 2, Height: 2, CapturedAt: time.Now()}
	results, err := e.Recognize(context.Background(), frame, 3, 80)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(results) != 1 || results[0].Plate != "ABC123" {
		t.Fatalf("results = %+v, want one ABC123", results)
	}
	if results[0].Latency <= 0 {
		t.Error("latency not measured")
	}
	if !strings.Contains(logs.String(), "recognition complete") {
		t.Errorf("completion not logged: %s", logs.String())
	}
}

func TestParseRecognitionMalformedOutput(t *testing.T) {
	_, err := parseRecognition([]byte("not json at all"), 0, 80)
	if !errors.Is(err, alpr.ErrRecognitionOutput) {
		t.Errorf("error = %v, want ErrRecognitionOutput", err)
	}
}

func TestParseRecognitionEmptyResults(t *testing.T) {
	results, err := parseRecognition([]byte(`{"version":2,"results":[]}`), 0, 80)
	if err != nil {
		t.Fatalf("parseRecognition failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}
