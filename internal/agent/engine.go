package agent

import (
	"context"
	"fmt"
	"strings"

	"toolchat/internal/config"
	"toolchat/internal/extract"
	"toolchat/internal/logging"
	"toolchat/internal/memory"
	"toolchat/internal/ports"
	"toolchat/internal/tools"
	"toolchat/internal/utils/id"
)

// Engine drives the tool-calling loop for one provider over stored sessions.
type Engine struct {
	provider  ports.ChatProvider
	executor  *tools.Executor
	registry  *tools.Registry
	extractor *extract.Extractor
	store     ports.SessionStore
	memories  *memory.Store
	cfg       *config.Config
	logger    logging.Logger
}

func New(provider ports.ChatProvider, executor *tools.Executor, registry *tools.Registry,
	store ports.SessionStore, memories *memory.Store, cfg *config.Config, logger logging.Logger) *Engine {
	logger = logging.OrNop(logger)
	return &Engine{
		provider:  provider,
		executor:  executor,
		registry:  registry,
		extractor: extract.New(logger),
		store:     store,
		memories:  memories,
		cfg:       cfg,
		logger:    logger,
	}
}

// ChatStream runs a streaming loop for one user turn. Events arrive on the
// returned channel, which closes after EventDone. A suspended confirmation
// ends the run; resume it through the executor and continue with a new turn.
func (e *Engine) ChatStream(ctx context.Context, sessionID, userInput string) (<-chan Event, error) {
	ctx = id.WithSessionID(ctx, sessionID)
	if err := e.appendUserTurn(ctx, sessionID, userInput); err != nil {
		return nil, err
	}
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		e.runStream(ctx, sessionID, events)
	}()
	return events, nil
}

func (e *Engine) runStream(ctx context.Context, sessionID string, events chan<- Event) {
	emit := func(ev Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	maxRounds := e.cfg.MaxRoundsStream
	if maxRounds <= 0 {
		maxRounds = 30
	}

	for round := 1; ; round++ {
		if round > maxRounds {
			e.logger.Warn("agent: session %s hit round limit %d", sessionID, maxRounds)
			emit(Event{Type: EventNotice, Content: fmt.Sprintf("stopped after %d tool rounds without a final answer", maxRounds)})
			break
		}

		roundCtx := id.WithRequestID(ctx, id.NewRequestID())
		req, err := e.buildRequest(roundCtx, sessionID)
		if err != nil {
			emit(Event{Type: EventNotice, Content: err.Error(), Err: err})
			break
		}

		splitter := extract.NewStreamSplitter()
		resp, err := e.provider.StreamChat(roundCtx, req, func(chunk string) {
			thinking, answer := splitter.Feed(chunk)
			if thinking != "" {
				emit(Event{Type: EventThinking, Content: thinking})
			}
			if answer != "" {
				emit(Event{Type: EventAnswer, Content: answer})
			}
		})
		if err != nil {
			e.logger.Error("agent: stream round %d failed: %v", round, err)
			emit(Event{Type: EventNotice, Content: fmt.Sprintf("model request failed: %v", err), Err: err})
			break
		}
		thinking, answer := splitter.Flush()
		if thinking != "" {
			emit(Event{Type: EventThinking, Content: thinking})
		}
		if answer != "" {
			emit(Event{Type: EventAnswer, Content: answer})
		}

		done, pending := e.handleRound(roundCtx, sessionID, resp.Content, emit)
		if pending != nil {
			emit(Event{Type: EventAwaitingConfirmation, Pending: pending})
			break
		}
		if done {
			break
		}
	}
	emit(Event{Type: EventDone})
}

// Chat runs the non-streaming loop and aggregates the outcome.
func (e *Engine) Chat(ctx context.Context, sessionID, userInput string) (*Reply, error) {
	ctx = id.WithSessionID(ctx, sessionID)
	if err := e.appendUserTurn(ctx, sessionID, userInput); err != nil {
		return nil, err
	}

	maxRounds := e.cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 10
	}

	reply := &Reply{}
	var answers []string
	for round := 1; ; round++ {
		if round > maxRounds {
			e.logger.Warn("agent: session %s hit round limit %d", sessionID, maxRounds)
			answers = append(answers, fmt.Sprintf("(stopped after %d tool rounds without a final answer)", maxRounds))
			break
		}
		reply.Rounds = round

		roundCtx := id.WithRequestID(ctx, id.NewRequestID())
		req, err := e.buildRequest(roundCtx, sessionID)
		if err != nil {
			return nil, err
		}
		resp, err := e.provider.Chat(roundCtx, req)
		if err != nil {
			return nil, fmt.Errorf("model request failed: %w", err)
		}
		reply.Usage.PromptTokens += resp.Usage.PromptTokens
		reply.Usage.CompletionTokens += resp.Usage.CompletionTokens
		reply.Usage.TotalTokens += resp.Usage.TotalTokens

		splitter := extract.NewStreamSplitter()
		thinking, answer := splitter.Feed(resp.Content)
		flushedThinking, flushedAnswer := splitter.Flush()
		thinking += flushedThinking
		answer += flushedAnswer
		if thinking != "" {
			reply.Thinking += thinking
		}
		if visible := strings.TrimSpace(extract.Strip(answer)); visible != "" {
			answers = append(answers, visible)
		}

		done, pending := e.handleRound(roundCtx, sessionID, resp.Content, func(ev Event) {
			if ev.Type == EventToolResult && ev.Result != nil {
				reply.ToolResults = append(reply.ToolResults, ev.Result)
			}
		})
		if pending != nil {
			reply.Pending = pending
			break
		}
		if done {
			break
		}
	}
	reply.Content = strings.Join(answers, "\n\n")
	return reply, nil
}

// handleRound persists the assistant turn, recovers at most one tool call,
// and executes it. It reports whether the loop is finished and, when the
// call suspended, the pending confirmation.
func (e *Engine) handleRound(ctx context.Context, sessionID, content string, emit func(Event)) (bool, *ports.ConfirmationRequest) {
	calls, diags := e.extractor.Extract(content)
	for _, diag := range diags {
		emit(Event{Type: EventNotice, Content: diag})
	}

	stored := ports.StoredMessage{Role: "assistant", Content: content, ToolCalls: calls}
	if err := e.store.AppendMessage(ctx, sessionID, stored); err != nil {
		e.logger.Error("agent: persist assistant turn: %v", err)
	}

	if len(calls) == 0 {
		return true, nil
	}

	call := calls[0]
	emit(Event{Type: EventToolStart, Call: &call})
	outcome := e.executor.Execute(ctx, call)
	if outcome.Pending != nil {
		return true, outcome.Pending
	}

	result := outcome.Result
	emit(Event{Type: EventToolResult, Result: result})
	if err := e.store.AppendMessage(ctx, sessionID, ports.StoredMessage{
		Role:    "user",
		Content: renderToolResult(result),
	}); err != nil {
		e.logger.Error("agent: persist tool result: %v", err)
	}
	return false, nil
}

func (e *Engine) appendUserTurn(ctx context.Context, sessionID, userInput string) error {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return fmt.Errorf("empty user input")
	}
	return e.store.AppendMessage(ctx, sessionID, ports.StoredMessage{Role: "user", Content: userInput})
}

func (e *Engine) buildRequest(ctx context.Context, sessionID string) (ports.ChatRequest, error) {
	stored, err := e.store.Messages(ctx, sessionID)
	if err != nil {
		return ports.ChatRequest{}, fmt.Errorf("load session history: %w", err)
	}

	history := buildHistory(stored, e.cfg)
	if hasRecentToolResult(history, 3) {
		e.logger.Debug("agent: recent history carries tool results")
	}

	preferences := ""
	if e.memories != nil {
		preferences = e.memories.PreferenceDigest(ctx)
	}
	messages := make([]ports.Message, 0, len(history)+1)
	messages = append(messages, ports.Message{Role: "system", Content: systemPrompt(preferences)})
	messages = append(messages, history...)

	return ports.ChatRequest{
		Messages: messages,
		Tools:    e.registry.List(),
	}, nil
}

// hasRecentToolResult reports whether any of the last n turns is a
// re-injected tool result.
func hasRecentToolResult(messages []ports.Message, n int) bool {
	start := len(messages) - n
	if start < 0 {
		start = 0
	}
	for _, msg := range messages[start:] {
		if _, ok := toolResultSource(msg.Content); ok {
			return true
		}
	}
	return false
}
