// Package turn folds council stream events into an in-progress assistant
// message and drives one question/answer turn end to end.
package turn

import (
	"encoding/json"
	"log/slog"

	"github.com/elazargur/llm-council/internal/domain"
)

// genericErrorMessage is recorded when an error event carries no usable
// message in any of its fields.
const genericErrorMessage = "An error occurred"

// Apply folds one stream event into an assistant message and returns the
// next state. The input is never mutated: maps are replaced or cloned
// before writing, so earlier snapshots stay valid. Events must be applied
// in the order received.
func Apply(msg domain.Message, ev domain.StreamEvent) domain.Message {
	switch ev.Type {
	case domain.EventStage1Start:
		msg.Loading.Stage1 = true
		msg.ModelStatus = resetStatus(msg.ModelStatus, ev.Models)

	case domain.EventStage1Complete:
		var data map[string]string
		if decodeStage(ev, &data) {
			msg.Stage1 = data
		}
		msg.Loading.Stage1 = false

	case domain.EventStage2Start:
		msg.Loading.Stage2 = true
		msg.ModelStatus = resetStatus(msg.ModelStatus, ev.Models)

	case domain.EventStage2Complete:
		var data map[string]domain.Ranking
		if decodeStage(ev, &data) {
			msg.Stage2 = data
		}
		msg.Metadata = ev.Metadata
		msg.Loading.Stage2 = false

	case domain.EventStage3Start:
		msg.Loading.Stage3 = true
		if ev.Model != "" {
			msg.ModelStatus = map[string]domain.ModelStatus{ev.Model: domain.ModelPending}
		}

	case domain.EventStage3Complete:
		var data domain.Synthesis
		if decodeStage(ev, &data) {
			msg.Stage3 = &data
		}
		msg.Loading.Stage3 = false

	case domain.EventModelStatus:
		if ev.Model == "" {
			break
		}
		status := make(map[string]domain.ModelStatus, len(msg.ModelStatus)+1)
		for model, s := range msg.ModelStatus {
			status[model] = s
		}
		status[ev.Model] = ev.Status
		msg.ModelStatus = status

	case domain.EventError:
		msg.Err = errorMessage(ev)
		msg.Loading = domain.LoadingState{}

	case domain.EventComplete:
		// Terminal success; the turn-level flag is the orchestrator's.

	default:
		slog.Debug("ignoring unknown stream event", "type", ev.Type)
	}

	return msg
}

// resetStatus builds a fresh all-pending map when a stage start carries its
// participant list; otherwise the existing map is kept.
func resetStatus(current map[string]domain.ModelStatus, models []string) map[string]domain.ModelStatus {
	if len(models) == 0 {
		return current
	}
	status := make(map[string]domain.ModelStatus, len(models))
	for _, model := range models {
		status[model] = domain.ModelPending
	}
	return status
}

func decodeStage(ev domain.StreamEvent, out any) bool {
	if len(ev.Data) == 0 {
		return false
	}
	if err := json.Unmarshal(ev.Data, out); err != nil {
		slog.Warn("dropping undecodable stage payload", "type", ev.Type, "error", err)
		return false
	}
	return true
}

// errorMessage resolves the failure text: the top-level message, then the
// data object's message, then a generic fallback.
func errorMessage(ev domain.StreamEvent) string {
	if ev.Message != "" {
		return ev.Message
	}
	var data struct {
		Message string `json:"message"`
	}
	if len(ev.Data) > 0 && json.Unmarshal(ev.Data, &data) == nil && data.Message != "" {
		return data.Message
	}
	return genericErrorMessage
}
