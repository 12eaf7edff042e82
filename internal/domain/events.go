package domain

import "encoding/json"

// Stream event types emitted over the council SSE stream, in the order a
// turn produces them. model_status may interleave anywhere within a stage.
const (
	EventStage1Start    = "stage1_start"
	EventStage1Complete = "stage1_complete"
	EventStage2Start    = "stage2_start"
	EventStage2Complete = "stage2_complete"
	EventStage3Start    = "stage3_start"
	EventStage3Complete = "stage3_complete"
	EventModelStatus    = "model_status"
	EventComplete       = "complete"
	EventError          = "error"
)

// StreamEvent is the single wire shape for every frame on the council
// stream. Only the fields relevant to a given Type are populated; Data is
// kept raw because its schema differs per stage.
type StreamEvent struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Metadata *TurnMetadata   `json:"metadata,omitempty"`
	Models   []string        `json:"models,omitempty"`
	Model    string          `json:"model,omitempty"`
	Status   ModelStatus     `json:"status,omitempty"`
	Message  string          `json:"message,omitempty"`
}
