package alpr

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicateKey = errors.New("duplicate key")

	// Open failures are fatal for the stream's Start; read failures are
	// absorbed by the capture loop's reconnect policy and surface only
	// through health snapshots.
	ErrCameraOpen = errors.New("camera open failed")

	// Recognition errors. Non-fatal: the orchestrator skips the cycle.
	ErrRecognitionTimeout = errors.New("recognition timed out")
	ErrRecognitionOutput  = errors.New("malformed recognition output")
	ErrEngineUnavailable  = errors.New("recognition engine unavailable")

	// Barrier errors. ErrSafetyCheck aborts a single open request with no
	// state change; ErrBarrierError means the actuator is latched in its
	// error state and needs an explicit reset.
	ErrSafetyCheck     = errors.New("safety check failed")
	ErrBarrierError    = errors.New("barrier in error state")
	ErrBarrierNotFound = errors.New("barrier not found")
)
