package council

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/elazargur/llm-council/internal/domain"
)

// ErrAllModelsFailed means no council member produced a stage 1 answer, so
// the deliberation cannot continue.
var ErrAllModelsFailed = errors.New("all models failed to respond")

// Request is one deliberation turn.
type Request struct {
	Content       string
	CouncilModels []string
	ChairmanModel string
}

// Outcome carries the completed stage data for persistence.
type Outcome struct {
	Stage1   map[string]string
	Stage2   map[string]domain.Ranking
	Stage3   *domain.Synthesis
	Metadata *domain.TurnMetadata
}

// Service orchestrates the three stages, reporting progress through typed
// stream events.
type Service struct {
	querier Querier
	logger  *slog.Logger
}

// New creates a council service on top of a model querier.
func New(querier Querier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{querier: querier, logger: logger}
}

// Run executes a full deliberation, calling emit for every stage event in
// order. emit is always called from a single goroutine. The terminal
// "complete" event is the caller's responsibility: it is sent only after the
// turn has been persisted.
func (s *Service) Run(ctx context.Context, req Request, emit func(domain.StreamEvent)) (*Outcome, error) {
	// Stage 1: independent answers.
	emit(domain.StreamEvent{Type: domain.EventStage1Start, Models: req.CouncilModels})

	stage1 := s.queryParallel(ctx, req.CouncilModels, []ChatMessage{
		{Role: "user", Content: req.Content},
	}, emit)

	if len(stage1) == 0 {
		emit(domain.StreamEvent{Type: domain.EventError, Message: "All models failed to respond"})
		return nil, ErrAllModelsFailed
	}
	emit(domain.StreamEvent{Type: domain.EventStage1Complete, Data: mustJSON(stage1)})

	// Stage 2: anonymized peer ranking.
	emit(domain.StreamEvent{Type: domain.EventStage2Start, Models: req.CouncilModels})

	labelToModel, prompt := buildRankingPrompt(req.Content, stage1)
	rawRankings := s.queryParallel(ctx, req.CouncilModels, []ChatMessage{
		{Role: "user", Content: prompt},
	}, emit)

	stage2 := make(map[string]domain.Ranking, len(rawRankings))
	for model, text := range rawRankings {
		stage2[model] = domain.Ranking{Text: text, Parsed: parseRanking(text)}
	}
	metadata := &domain.TurnMetadata{
		LabelToModel:      labelToModel,
		AggregateRankings: aggregateRankings(stage2, labelToModel),
	}
	emit(domain.StreamEvent{
		Type:     domain.EventStage2Complete,
		Data:     mustJSON(stage2),
		Metadata: metadata,
	})

	// Stage 3: chairman synthesis.
	emit(domain.StreamEvent{Type: domain.EventStage3Start, Model: req.ChairmanModel})

	answer, err := s.querier.QueryModel(ctx, req.ChairmanModel, []ChatMessage{
		{Role: "user", Content: buildSynthesisPrompt(req.Content, stage1, stage2)},
	})
	status := domain.ModelSuccess
	if err != nil {
		s.logger.Error("chairman query failed", "model", req.ChairmanModel, "error", err)
		status = domain.ModelFailed
		answer = "Error: Unable to synthesize."
	}
	emit(domain.StreamEvent{Type: domain.EventModelStatus, Model: req.ChairmanModel, Status: status})

	stage3 := &domain.Synthesis{Model: req.ChairmanModel, Response: answer}
	emit(domain.StreamEvent{Type: domain.EventStage3Complete, Data: mustJSON(stage3)})

	return &Outcome{Stage1: stage1, Stage2: stage2, Stage3: stage3, Metadata: metadata}, nil
}

// queryParallel fans one prompt out to all models, emitting a model_status
// event as each finishes. Failed models are omitted from the result.
func (s *Service) queryParallel(ctx context.Context, models []string, messages []ChatMessage, emit func(domain.StreamEvent)) map[string]string {
	type result struct {
		model  string
		answer string
		err    error
	}

	results := make(chan result, len(models))
	var wg sync.WaitGroup
	for _, model := range models {
		wg.Add(1)
		go func() {
			defer wg.Done()
			answer, err := s.querier.QueryModel(ctx, model, messages)
			results <- result{model: model, answer: answer, err: err}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	answers := make(map[string]string, len(models))
	for res := range results {
		status := domain.ModelSuccess
		if res.err != nil {
			s.logger.Error("model query failed", "model", res.model, "error", res.err)
			status = domain.ModelFailed
		} else {
			answers[res.model] = res.answer
		}
		emit(domain.StreamEvent{Type: domain.EventModelStatus, Model: res.model, Status: status})
	}
	return answers
}

// buildRankingPrompt anonymizes the stage 1 answers behind "Response A" style
// labels and asks each council member to rank them.
func buildRankingPrompt(question string, stage1 map[string]string) (map[string]string, string) {
	models := make([]string, 0, len(stage1))
	for model := range stage1 {
		models = append(models, model)
	}
	sort.Strings(models)

	labelToModel := make(map[string]string, len(models))
	var sections []string
	for i, model := range models {
		label := fmt.Sprintf("Response %c", 'A'+i)
		labelToModel[label] = model
		sections = append(sections, fmt.Sprintf("%s:\n%s", label, stage1[model]))
	}

	prompt := fmt.Sprintf(`Evaluate these responses to: %s

%s

Evaluate each response, then provide:
FINAL RANKING:
1. Response X
2. Response Y
...`, question, strings.Join(sections, "\n\n"))

	return labelToModel, prompt
}

func buildSynthesisPrompt(question string, stage1 map[string]string, stage2 map[string]domain.Ranking) string {
	models := make([]string, 0, len(stage1))
	for model := range stage1 {
		models = append(models, model)
	}
	sort.Strings(models)

	var answers []string
	for _, model := range models {
		answers = append(answers, fmt.Sprintf("%s: %s", model, stage1[model]))
	}

	rankers := make([]string, 0, len(stage2))
	for model := range stage2 {
		rankers = append(rankers, model)
	}
	sort.Strings(rankers)

	var rankings []string
	for _, model := range rankers {
		rankings = append(rankings, fmt.Sprintf("%s: %s", model, stage2[model].Text))
	}

	return fmt.Sprintf(`You are the Chairman. Synthesize the best answer.

Question: %s

Responses:
%s

Rankings:
%s

Provide the final answer:`, question, strings.Join(answers, "\n\n"), strings.Join(rankings, "\n\n"))
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// All stage payloads are plain maps and structs; this cannot fail.
		panic(fmt.Sprintf("marshal stage payload: %v", err))
	}
	return data
}
