package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/digipin/internal/core/domain"
	"github.com/samirrijal/digipin/internal/core/ports"
	"github.com/samirrijal/digipin/internal/pkg/digipin"
	"github.com/samirrijal/digipin/internal/pkg/metrics"
	"github.com/samirrijal/digipin/internal/pkg/telemetry"
)

// SystemIntro is the system instruction sent with every turn.
const SystemIntro = "You are DigiPin Navigator, an assistant that specialises in India's DIGIPIN grid system. " +
	"You can explain how to encode and decode DIGIPINs, validate codes, compare multiple pins, " +
	"and summarise geo insights. Use the provided tools to guarantee factual geo computations."

// FallbackReply is returned when the model produces no text.
const FallbackReply = "I'm sorry, I could not generate a response."

// AgentOptions tunes the agent loop.
type AgentOptions struct {
	// MaxToolRounds bounds the model/tool round trips per turn (default 5).
	MaxToolRounds int
	// CacheTTLSeconds is the reply cache lifetime; 0 disables caching.
	CacheTTLSeconds int
}

// AgentService answers natural-language prompts by letting a language model
// call the codec operations as tools.
type AgentService struct {
	model  ports.LanguageModel
	codec  *DigipinService
	cache  ports.CacheService
	events ports.EventPublisher
	opts   AgentOptions
	tools  []domain.ToolDeclaration

	newID func() string
	now   func() time.Time
}

// NewAgentService creates a new AgentService. model may be nil, in which case
// Respond returns domain.ErrAgentUnavailable. cache and events are optional.
func NewAgentService(model ports.LanguageModel, codec *DigipinService, cache ports.CacheService, events ports.EventPublisher, opts AgentOptions) *AgentService {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 5
	}
	if codec == nil {
		codec = NewDigipinService(nil)
	}
	return &AgentService{
		model:  model,
		codec:  codec,
		cache:  cache,
		events: events,
		opts:   opts,
		tools:  ToolDeclarations(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Ready reports whether a language model is configured.
func (s *AgentService) Ready() bool {
	return s != nil && s.model != nil
}

// Respond runs one conversational turn.
func (s *AgentService) Respond(ctx context.Context, req domain.AgentRequest) (*domain.AgentReply, error) {
	if !s.Ready() {
		return nil, domain.ErrAgentUnavailable
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, &digipin.ValidationError{Field: "message", Reason: "message must not be empty"}
	}

	start := s.now()
	turnID := s.newID()

	ctx, span := telemetry.Tracer().Start(ctx, "agent.respond")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrAgentTurnID, turnID))

	prompt, err := buildPrompt(req.Message, req.Context)
	if err != nil {
		return nil, err
	}
	cacheKey := replyCacheKey(prompt)

	if reply, ok := s.cachedReply(ctx, cacheKey); ok {
		reply.TurnID = turnID
		reply.Cached = true
		span.SetAttributes(attribute.Bool(telemetry.AttrAgentCached, true))
		s.publish(ctx, reply, 0, start)
		metrics.AgentTurnDuration.WithLabelValues("cached").Observe(time.Since(start).Seconds())
		return reply, nil
	}

	reply, rounds, err := s.converse(ctx, prompt)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.AgentTurnDuration.WithLabelValues(metrics.OutcomeError).Observe(time.Since(start).Seconds())
		return nil, err
	}
	reply.TurnID = turnID
	reply.Message = req.Message
	span.SetAttributes(attribute.Int(telemetry.AttrAgentRounds, rounds))

	s.storeReply(ctx, cacheKey, reply)
	s.publish(ctx, reply, rounds, start)
	metrics.AgentTurnDuration.WithLabelValues(metrics.OutcomeOK).Observe(time.Since(start).Seconds())

	slog.InfoContext(ctx, "agent turn completed",
		"turn_id", turnID,
		"rounds", rounds,
		"tools", len(reply.ToolCalls),
	)
	return reply, nil
}

// converse loops model and tool calls until the model stops calling tools
// or the round limit is reached.
func (s *AgentService) converse(ctx context.Context, prompt string) (*domain.AgentReply, int, error) {
	req := &domain.ModelRequest{
		SystemInstruction: SystemIntro,
		Contents: []domain.ChatContent{{
			Role:  domain.RoleUser,
			Parts: []domain.ChatPart{{Text: prompt}},
		}},
		Tools: s.tools,
		Generation: domain.GenerationConfig{
			Temperature:     0.5,
			TopP:            0.8,
			TopK:            40,
			MaxOutputTokens: 4096,
		},
	}

	reply := &domain.AgentReply{}
	rounds := 0
	for {
		resp, err := s.model.Generate(ctx, req)
		if err != nil {
			return nil, rounds, fmt.Errorf("%w: %w", domain.ErrModel, err)
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			reply.Response = resp.Text()
			break
		}
		if rounds >= s.opts.MaxToolRounds {
			slog.WarnContext(ctx, "agent tool round limit reached", "rounds", rounds)
			reply.Response = resp.Text()
			break
		}
		rounds++

		responses := make([]domain.ChatPart, 0, len(calls))
		for _, call := range calls {
			result := s.runTool(ctx, call)
			reply.ToolCalls = append(reply.ToolCalls, domain.ToolInvocation{
				Name:   call.Name,
				Args:   call.Args,
				Result: result,
			})
			responses = append(responses, domain.ChatPart{
				FunctionResponse: &domain.FunctionResponse{
					Name:     call.Name,
					Response: map[string]any{"result": result},
				},
			})
		}
		req.Contents = append(req.Contents,
			resp.Content,
			domain.ChatContent{Role: domain.RoleUser, Parts: responses},
		)
	}

	if reply.Response == "" {
		reply.Response = FallbackReply
	}
	return reply, rounds, nil
}

// buildPrompt embeds caller context next to the message when present.
func buildPrompt(message string, extra map[string]any) (string, error) {
	if extra == nil {
		return message, nil
	}
	data, err := json.Marshal(map[string]any{"message": message, "context": extra})
	if err != nil {
		return "", &digipin.ValidationError{Field: "context", Reason: "context must be JSON serialisable"}
	}
	return string(data), nil
}

func replyCacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return "agent:reply:" + hex.EncodeToString(sum[:])
}

func (s *AgentService) cachedReply(ctx context.Context, key string) (*domain.AgentReply, bool) {
	if s.cache == nil || s.opts.CacheTTLSeconds <= 0 {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil || data == nil {
		metrics.CacheMisses.WithLabelValues("agent_reply").Inc()
		return nil, false
	}
	var reply domain.AgentReply
	if err := json.Unmarshal(data, &reply); err != nil {
		metrics.CacheMisses.WithLabelValues("agent_reply").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("agent_reply").Inc()
	return &reply, true
}

func (s *AgentService) storeReply(ctx context.Context, key string, reply *domain.AgentReply) {
	if s.cache == nil || s.opts.CacheTTLSeconds <= 0 {
		return
	}
	if data, err := json.Marshal(reply); err == nil {
		_ = s.cache.Set(ctx, key, data, s.opts.CacheTTLSeconds)
	}
}

func (s *AgentService) publish(ctx context.Context, reply *domain.AgentReply, rounds int, start time.Time) {
	if s.events == nil {
		return
	}
	tools := make([]string, 0, len(reply.ToolCalls))
	for _, tc := range reply.ToolCalls {
		tools = append(tools, tc.Name)
	}
	now := s.now()
	turn := &domain.AgentTurn{
		TurnID:     reply.TurnID,
		Message:    reply.Message,
		Response:   reply.Response,
		Tools:      tools,
		Rounds:     rounds,
		Cached:     reply.Cached,
		DurationMS: now.Sub(start).Milliseconds(),
		CreatedAt:  now.UTC(),
	}
	if err := s.events.PublishAgentTurn(ctx, turn); err != nil {
		slog.WarnContext(ctx, "publish agent turn", "turn_id", reply.TurnID, "error", err)
	}
}
