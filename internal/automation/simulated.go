package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// ErrSimulatedFailure is the error returned when the simulated task rolls a
// failure. Tests and load drivers match on it to tell simulated failures
// from real ones.
var ErrSimulatedFailure = errors.New("test task failed (simulated failure)")

// defaultSuccessRate is the probability of success when the submission does
// not specify one.
const defaultSuccessRate = 0.8

// SimulatedResult is the payload a successful simulated run produces. Its
// shape matches what the real automation flows report so downstream
// consumers can be exercised without a browser.
type SimulatedResult struct {
	Status        string            `json:"status"`
	ApprovedCount int               `json:"approved_count"`
	Details       []SimulatedDetail `json:"details"`
	Summary       string            `json:"summary"`
	ExecutionTime float64           `json:"execution_time"`
}

// SimulatedDetail is a single simulated approval action.
type SimulatedDetail struct {
	Item      string `json:"item"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

// SimulatedExecutor runs the built-in test task: sleep for a configurable
// duration, then succeed or fail according to a configurable probability.
//
// Parameters:
//   - "duration": seconds of simulated work (default: uniform between 1 and 5)
//   - "success_rate": probability of success in [0, 1] (default: 0.8)
type SimulatedExecutor struct {
	logger *slog.Logger
}

// NewSimulatedExecutor creates the built-in simulated task executor.
func NewSimulatedExecutor(logger *slog.Logger) *SimulatedExecutor {
	return &SimulatedExecutor{
		logger: logger.With("component", "simulated_executor"),
	}
}

// Execute performs the simulated work. It honors context cancellation while
// sleeping and reports ctx.Err() so timeouts surface as such.
func (e *SimulatedExecutor) Execute(ctx context.Context, params map[string]any) (any, error) {
	e.logger.Info("executing simulated task", "params", params)

	duration := floatParam(params, "duration", 1+rand.Float64()*4)
	successRate := floatParam(params, "success_rate", defaultSuccessRate)

	timer := time.NewTimer(time.Duration(duration * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() >= successRate {
		return nil, ErrSimulatedFailure
	}

	detailCount := rand.Intn(5) + 1
	details := make([]SimulatedDetail, 0, detailCount)
	for i := 0; i < detailCount; i++ {
		details = append(details, SimulatedDetail{
			Item:      fmt.Sprintf("test_item_%d", i),
			Action:    "approved",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}

	return &SimulatedResult{
		Status:        "completed",
		ApprovedCount: rand.Intn(10) + 1,
		Details:       details,
		Summary:       fmt.Sprintf("Test task completed successfully in %.2fs", duration),
		ExecutionTime: duration,
	}, nil
}

// floatParam reads a numeric parameter, tolerating the types JSON decoding
// and direct construction produce.
func floatParam(params map[string]any, key string, fallback float64) float64 {
	value, ok := params[key]
	if !ok {
		return fallback
	}

	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}
