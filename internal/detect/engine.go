package detect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

// Engine recognizes plates in a single frame.
type Engine interface {
	Recognize(ctx context.Context, frame *alpr.Frame, topN int, minConfidence float64) ([]alpr.DetectionResult, error)
}

// OpenALPR shells out to the alpr CLI with JSON output, the engine's
// published integration contract.
type OpenALPR struct {
	Binary     string
	Country    string
	Region     string
	ConfigFile string
	Timeout    time.Duration
	Log        zerolog.Logger
}

// cliResponse mirrors the alpr -j output document.
type cliResponse struct {
	Version        float32     `json:"version"`
	ProcessingTime float64     `json:"processing_time_ms"`
	Results        []cliResult `json:"results"`
}

type cliResult struct {
	Plate       string            `json:"plate"`
	Confidence  float64           `json:"confidence"`
	Coordinates []alpr.Coordinate `json:"coordinates"`
	Candidates  []alpr.Candidate  `json:"candidates"`
}

func (e *OpenALPR) Recognize(ctx context.Context, frame *alpr.Frame, topN int, minConfidence float64) ([]alpr.DetectionResult, error) {
	tmp, err := os.CreateTemp("", "alpr_frame_*.jpg")
	if err != nil {
		return nil, fmt.Errorf("%w: temp frame: %v", alpr.ErrEngineUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(frame.Data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: write frame: %v", alpr.ErrEngineUnavailable, err)
	}
	tmp.Close()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-c", e.Country, "-n", strconv.Itoa(topN), "--config", e.ConfigFile, "-j"}
	if e.Region != "" {
		args = append(args, "-p", e.Region)
	}
	args = append(args, tmp.Name())

	start := time.Now()
	out, err := exec.CommandContext(ctx, e.Binary, args...).Output()
	latency := time.Since(start)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			e.Log.Warn().Dur("latency", latency).Msg("recognition timed out")
			return nil, fmt.Errorf("%w: after %v", alpr.ErrRecognitionTimeout, timeout)
		}
		return nil, fmt.Errorf("%w: %v", alpr.ErrEngineUnavailable, err)
	}

	results, err := parseRecognition(out, latency, minConfidence)
	if err != nil {
		return nil, err
	}
	e.Log.Debug().Int("plates", len(results)).Dur("latency", latency).Msg("recognition complete")
	return results, nil
}

func parseRecognition(out []byte, latency time.Duration, minConfidence float64) ([]alpr.DetectionResult, error) {
	var resp cliResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", alpr.ErrRecognitionOutput, err)
	}

	results := make([]alpr.DetectionResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Confidence < minConfidence {
			continue
		}
		results = append(results, alpr.DetectionResult{
			Plate:       r.Plate,
			Confidence:  r.Confidence,
			Coordinates: r.Coordinates,
			Candidates:  r.Candidates,
			Latency:     latency,
		})
	}
	return results, nil
}
