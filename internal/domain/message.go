package domain

// Roles for the two message variants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ModelStatus tracks one model's progress within a stage.
type ModelStatus string

const (
	ModelPending ModelStatus = "pending"
	ModelSuccess ModelStatus = "success"
	ModelFailed  ModelStatus = "failed"
)

// Ranking is one council member's evaluation of the anonymized stage 1 answers.
type Ranking struct {
	Text   string   `json:"ranking"`
	Parsed []string `json:"parsed_ranking,omitempty"`
}

// Synthesis is the chairman's final answer.
type Synthesis struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// AggregateRank is one model's average position across all rankings.
type AggregateRank struct {
	Model       string  `json:"model"`
	AverageRank float64 `json:"average_rank"`
}

// TurnMetadata is attached when stage 2 completes: the label de-anonymization
// map and the aggregate ranking summary.
type TurnMetadata struct {
	LabelToModel      map[string]string `json:"label_to_model"`
	AggregateRankings []AggregateRank   `json:"aggregate_rankings"`
}

// LoadingState holds one in-flight flag per deliberation stage.
type LoadingState struct {
	Stage1 bool
	Stage2 bool
	Stage3 bool
}

// Any reports whether any stage is still in flight.
func (l LoadingState) Any() bool {
	return l.Stage1 || l.Stage2 || l.Stage3
}

// Message is one turn entry: either a user question or the assistant's
// three-stage deliberation record. Loading, ModelStatus and Err are
// client-side view state and are never persisted or sent on the wire.
type Message struct {
	Role     string             `json:"role"`
	Content  string             `json:"content,omitempty"`
	Stage1   map[string]string  `json:"stage1,omitempty"`
	Stage2   map[string]Ranking `json:"stage2,omitempty"`
	Stage3   *Synthesis         `json:"stage3,omitempty"`
	Metadata *TurnMetadata      `json:"metadata,omitempty"`

	Loading     LoadingState           `json:"-"`
	ModelStatus map[string]ModelStatus `json:"-"`
	Err         string                 `json:"-"`
}

// NewUserMessage builds the user variant.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantShell builds the empty assistant record that a turn's events
// are folded into.
func NewAssistantShell() Message {
	return Message{Role: RoleAssistant}
}

// ModelConfig is the council/chairman selection passed into each turn request.
type ModelConfig struct {
	CouncilModels []string `json:"council_models,omitempty"`
	ChairmanModel string   `json:"chairman_model,omitempty"`
}

// ModelCatalog is the server's advertised model set and defaults.
type ModelCatalog struct {
	AvailableModels      []string `json:"available_models"`
	DefaultCouncilModels []string `json:"default_council_models"`
	DefaultChairmanModel string   `json:"default_chairman_model"`
}
