package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/telemetry"
)

// placeholderSession is the session id clients send before they own one.
const placeholderSession = "1"

// HistoryStore persists chat turns per session.
type HistoryStore interface {
	AppendChatTurn(ctx context.Context, turn domain.ChatTurn) (domain.ChatTurn, error)
	RecentChatTurns(ctx context.Context, sessionID string, limit int) ([]domain.ChatTurn, error)
	ChatHistory(ctx context.Context, sessionID string) ([]domain.ChatTurn, error)
	DeleteChatHistory(ctx context.Context, sessionID string) (bool, error)
}

type Options struct {
	Metrics domain.Metrics
	Logger  *zap.Logger
}

// Proxy answers chat messages with a bounded window of the session's history.
type Proxy struct {
	config  domain.ChatConfig
	model   model.ToolCallingChatModel
	history HistoryStore
	metrics domain.Metrics
	logger  *zap.Logger
}

// NewProxy builds a proxy. A nil model leaves History usable while Generate
// fails with domain.ErrChatUnavailable.
func NewProxy(cfg domain.ChatConfig, chatModel model.ToolCallingChatModel, history HistoryStore, opts Options) *Proxy {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NoopMetrics{}
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = domain.DefaultChatHistoryWindow
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = domain.DefaultChatSystemPrompt
	}
	return &Proxy{
		config:  cfg,
		model:   chatModel,
		history: history,
		metrics: metrics,
		logger:  logger.Named("chat"),
	}
}

// Generate sends message in the context of sessionID and stores the turn.
// An empty or placeholder session id starts a new session.
func (p *Proxy) Generate(ctx context.Context, sessionID string, message string) (domain.ChatReply, error) {
	if p.model == nil {
		return domain.ChatReply{}, domain.ErrChatUnavailable
	}
	if strings.TrimSpace(message) == "" {
		return domain.ChatReply{}, fmt.Errorf("%w: message is required", domain.ErrInvalidRequest)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || sessionID == placeholderSession {
		sessionID = NewSessionID()
	}

	turns, err := p.history.RecentChatTurns(ctx, sessionID, p.config.HistoryWindow)
	if err != nil {
		return domain.ChatReply{}, fmt.Errorf("load chat history: %w", err)
	}

	started := time.Now()
	response, err := p.model.Generate(ctx, p.buildMessages(turns, message))
	elapsed := time.Since(started)
	p.metrics.ObserveChatLatency(p.config.Provider, p.config.Model, elapsed)
	if err != nil {
		p.logger.Warn("chat generation failed",
			telemetry.SessionIDField(sessionID),
			telemetry.DurationField(elapsed),
			zap.Error(err),
		)
		return domain.ChatReply{}, fmt.Errorf("LLM generate: %w", err)
	}
	p.observeTokenUsage(response)

	content := ""
	if response != nil {
		content = response.Content
	}
	if _, err := p.history.AppendChatTurn(ctx, domain.ChatTurn{
		SessionID:   sessionID,
		UserMessage: message,
		AIResponse:  content,
	}); err != nil {
		return domain.ChatReply{}, fmt.Errorf("save chat turn: %w", err)
	}

	p.logger.Debug("chat reply generated",
		telemetry.SessionIDField(sessionID),
		telemetry.DurationField(elapsed),
		zap.Int("historyTurns", len(turns)),
	)
	return domain.ChatReply{SessionID: sessionID, Content: content}, nil
}

func (p *Proxy) History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	return p.history.ChatHistory(ctx, sessionID)
}

func (p *Proxy) DeleteHistory(ctx context.Context, sessionID string) (bool, error) {
	return p.history.DeleteChatHistory(ctx, sessionID)
}

func (p *Proxy) buildMessages(turns []domain.ChatTurn, message string) []*schema.Message {
	messages := make([]*schema.Message, 0, 2*len(turns)+2)
	messages = append(messages, schema.SystemMessage(p.config.SystemPrompt))
	for _, turn := range turns {
		messages = append(messages,
			schema.UserMessage(turn.UserMessage),
			schema.AssistantMessage(turn.AIResponse, nil),
		)
	}
	return append(messages, schema.UserMessage(message))
}

func (p *Proxy) observeTokenUsage(response *schema.Message) {
	if response == nil || response.ResponseMeta == nil || response.ResponseMeta.Usage == nil {
		return
	}
	tokens := response.ResponseMeta.Usage.TotalTokens
	if tokens <= 0 {
		return
	}
	p.metrics.ObserveChatTokens(p.config.Provider, p.config.Model, tokens)
}

// NewSessionID returns a random session id without dashes.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
