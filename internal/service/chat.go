// Package service implements the dashboard's chat turn controller and case
// series queries on top of the session store, LLM client and warehouse.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/covid-dashboard/internal/llm"
	"github.com/capitalize-ai/covid-dashboard/internal/model"
	"github.com/capitalize-ai/covid-dashboard/internal/session"
	"github.com/capitalize-ai/covid-dashboard/pkg/logger"
	"github.com/capitalize-ai/covid-dashboard/pkg/metrics"
	"github.com/capitalize-ai/covid-dashboard/pkg/tracing"
)

var (
	// ErrTurnInProgress is returned when the session already has a turn in flight.
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")

	// ErrCompletionFailed wraps a failed chat completion. The user turn is kept.
	ErrCompletionFailed = errors.New("chat completion failed")
)

// DefaultSystemPrompt is the persona directive that opens every conversation.
const DefaultSystemPrompt = "You are a helpful assistant."

// TurnRecorder receives an audit event for every change to a conversation.
type TurnRecorder interface {
	Record(ctx context.Context, event *model.ConversationEvent) error
}

// NopRecorder discards events.
type NopRecorder struct{}

// Record implements TurnRecorder.
func (NopRecorder) Record(context.Context, *model.ConversationEvent) error { return nil }

// ChatOptions configures a ChatService.
type ChatOptions struct {
	SystemPrompt string
	MaxTokens    int
}

// SubmitResult is the outcome of Submit.
type SubmitResult struct {
	// Turns is the conversation after the call, including a user turn left
	// without a reply when the completion failed.
	Turns []model.Turn

	// Submitted is false when the normalized input was empty.
	Submitted bool

	Reply *model.Turn
	Usage *model.UsageRecord
}

// ChatService runs chat turns against a session's conversation.
type ChatService struct {
	store     session.Store
	locker    session.TurnLocker
	client    llm.Client
	recorder  TurnRecorder
	logger    *logger.Logger
	prompt    string
	maxTokens int
	now       func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(
	store session.Store,
	locker session.TurnLocker,
	client llm.Client,
	recorder TurnRecorder,
	log *logger.Logger,
	opts ChatOptions,
) *ChatService {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	return &ChatService{
		store:     store,
		locker:    locker,
		client:    client,
		recorder:  recorder,
		logger:    log,
		prompt:    opts.SystemPrompt,
		maxTokens: opts.MaxTokens,
		now:       time.Now,
	}
}

// Normalize removes every line break from raw input, joining the lines
// without a separator.
func Normalize(raw string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(raw)
}

// Submit appends a user turn, asks the model for a reply using the whole
// transcript and appends the reply. Empty input changes nothing.
func (s *ChatService) Submit(ctx context.Context, sessionID, raw string, cfg llm.ModelConfig) (*SubmitResult, error) {
	text := Normalize(raw)
	if strings.TrimSpace(text) == "" {
		turns, err := s.Snapshot(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Turns: turns}, nil
	}

	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := tracing.Tracer().Start(ctx, "chat.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("llm.model", cfg.Model),
		attribute.Float64("llm.temperature", cfg.Temperature),
	)

	state, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userTurn := session.NewUserTurn(text)
	state.Conversation.Append(userTurn)
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	metrics.ChatTurnsTotal.WithLabelValues(string(model.RoleUser)).Inc()
	s.record(ctx, sessionID, model.EventTypeTurn, &userTurn, "")

	resp, err := s.complete(ctx, state.Conversation.Snapshot(), cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		s.logger.Warn("chat completion failed",
			zap.String("session_id", sessionID),
			zap.String("model", cfg.Model),
			zap.Error(err),
		)
		s.record(ctx, sessionID, model.EventTypeError, nil, err.Error())
		return &SubmitResult{Turns: state.Conversation.Snapshot(), Submitted: true},
			fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	reply := session.NewAssistantTurn(resp.Content)
	modelName := resp.Model
	if modelName == "" {
		modelName = cfg.Model
	}
	usage := model.UsageRecord{
		Model:     modelName,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
		Cost:      llm.EstimateCost(modelName, resp.TokensIn, resp.TokensOut),
		LatencyMs: resp.LatencyMs,
		CreatedAt: s.now().UTC(),
	}
	state.Conversation.Append(reply)
	state.Conversation.RecordUsage(usage)
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	metrics.ChatTurnsTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	s.record(ctx, sessionID, model.EventTypeTurn, &reply, "")

	return &SubmitResult{
		Turns:     state.Conversation.Snapshot(),
		Submitted: true,
		Reply:     &reply,
		Usage:     &usage,
	}, nil
}

// Reset returns the session's conversation to the system turn alone.
func (s *ChatService) Reset(ctx context.Context, sessionID string) ([]model.Turn, error) {
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state.Conversation.Reset(s.prompt)
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}

	metrics.ChatResetsTotal.Inc()
	s.record(ctx, sessionID, model.EventTypeReset, nil, "cleared by user")

	return state.Conversation.Snapshot(), nil
}

// Snapshot returns the session's transcript. Unknown sessions read as a
// fresh conversation; nothing is stored until the first turn.
func (s *ChatService) Snapshot(ctx context.Context, sessionID string) ([]model.Turn, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.Conversation.Snapshot(), nil
}

// Usage returns the session's usage records and their total cost.
func (s *ChatService) Usage(ctx context.Context, sessionID string) ([]model.UsageRecord, float64, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, 0, err
	}
	return state.Conversation.Usage(), state.Conversation.TotalCost(), nil
}

func (s *ChatService) complete(ctx context.Context, turns []model.Turn, cfg llm.ModelConfig) (*llm.CompletionResponse, error) {
	ctx, span := tracing.Tracer().Start(ctx, "llm.Complete")
	defer span.End()

	messages := make([]llm.ChatMessage, len(turns))
	for i, t := range turns {
		messages[i] = llm.ChatMessage{Role: string(t.Role), Content: t.Content}
	}

	start := time.Now()
	resp, err := s.client.Complete(ctx, &llm.CompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		MaxTokens:   s.maxTokens,
		Temperature: cfg.Temperature,
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		span.RecordError(err)
		metrics.RecordCompletion(cfg.Model, "error", elapsed, 0, 0, 0)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.tokens_in", resp.TokensIn),
		attribute.Int("llm.tokens_out", resp.TokensOut),
	)
	metrics.RecordCompletion(cfg.Model, "success", elapsed, resp.TokensIn, resp.TokensOut,
		llm.EstimateCost(cfg.Model, resp.TokensIn, resp.TokensOut))
	return resp, nil
}

func (s *ChatService) lock(ctx context.Context, sessionID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if errors.Is(err, session.ErrLocked) {
		return nil, ErrTurnInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	return release, nil
}

// load reads a session, substituting a fresh unsaved state when none exists.
func (s *ChatService) load(ctx context.Context, sessionID string) (*session.State, error) {
	state, err := s.store.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return session.NewState(sessionID, s.prompt), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return state, nil
}

func (s *ChatService) loadOrCreate(ctx context.Context, sessionID string) (*session.State, error) {
	state, err := s.store.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		metrics.SessionsCreated.Inc()
		s.logger.Debug("session started", zap.String("session_id", sessionID))
		return session.NewState(sessionID, s.prompt), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return state, nil
}

func (s *ChatService) save(ctx context.Context, state *session.State) error {
	state.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *ChatService) record(ctx context.Context, sessionID string, eventType model.EventType, turn *model.Turn, reason string) {
	event := &model.ConversationEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Type:      eventType,
		Turn:      turn,
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		s.logger.Warn("failed to record conversation event",
			zap.String("session_id", sessionID),
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}
