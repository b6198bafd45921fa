// Package confirm implements the confirmation gate: the policy engine that
// decides whether a flagged tool call may proceed, either by blocking on a
// user prompt or by suspending the call for an asynchronous resume.
package confirm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"toolchat/internal/config"
	"toolchat/internal/logging"
	"toolchat/internal/ports"
	"toolchat/internal/utils/id"
)

// Mode selects how the gate collects a decision when policy resolves to ask.
type Mode int

const (
	// ModeBlocking prompts synchronously and returns the decision.
	ModeBlocking Mode = iota
	// ModeSuspend parks the call under a confirmation id for a later Resume.
	ModeSuspend
)

// Decision is a user's answer to a confirmation request.
type Decision string

const (
	DecisionAllow       Decision = "allow"
	DecisionDeny        Decision = "deny"
	DecisionAllowAlways Decision = "allow_always"
	DecisionDenyAlways  Decision = "deny_always"
)

// ParseDecision validates a decision string from an external caller.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionAllow, DecisionDeny, DecisionAllowAlways, DecisionDenyAlways:
		return Decision(s), nil
	}
	return "", fmt.Errorf("invalid decision %q", s)
}

// Choice is the outcome of a blocking prompt. Persist asks for the decision
// to be promoted from session memory to durable policy.
type Choice struct {
	Decision Decision
	Persist  bool
}

// Prompter collects a blocking confirmation decision from the user.
type Prompter interface {
	Prompt(ctx context.Context, req *ports.ConfirmationRequest) (Choice, error)
}

// Verdict is the gate's answer for one call.
type Verdict int

const (
	// VerdictAllow lets the call proceed.
	VerdictAllow Verdict = iota
	// VerdictDeny rejects the call; the executor reports USER_DENIED.
	VerdictDeny
	// VerdictSuspend tells the executor to park the call via Suspend.
	VerdictSuspend
)

// InvokeFunc re-invokes a suspended tool call, bypassing the gate.
type InvokeFunc func(ctx context.Context) *ports.ToolResult

type pendingCall struct {
	request *ports.ConfirmationRequest
	invoke  InvokeFunc
}

// Gate is a process-wide confirmation policy engine shared by all sessions.
// Session memory and pending requests are therefore visible across
// concurrent sessions.
type Gate struct {
	cfg      *config.Config
	mode     Mode
	prompter Prompter
	logger   logging.Logger

	sessionMu sync.RWMutex
	session   map[string]string

	pendingMu sync.Mutex
	pending   map[string]*pendingCall
}

// New builds a gate. The prompter may be nil in suspend mode.
func New(cfg *config.Config, mode Mode, prompter Prompter, logger logging.Logger) *Gate {
	return &Gate{
		cfg:      cfg,
		mode:     mode,
		prompter: prompter,
		logger:   logging.OrNop(logger),
		session:  make(map[string]string),
		pending:  make(map[string]*pendingCall),
	}
}

// Mode returns the gate's configured suspension mode.
func (g *Gate) Mode() Mode {
	return g.mode
}

func sessionKey(tool, category string) string {
	return tool + "_" + category
}

func normalizeCategory(category string) string {
	if category == "" {
		return "general"
	}
	return category
}

// Check resolves whether the call may proceed. Policy order is per-tool,
// then per-category, then the global default; a remembered session choice
// short-circuits ask. In blocking mode an ask verdict is resolved here by
// prompting; in suspend mode it is returned as VerdictSuspend for the
// executor to park.
func (g *Gate) Check(ctx context.Context, meta ports.ToolMetadata, description string, params map[string]any) (Verdict, error) {
	if !meta.RequiresConfirmation {
		return VerdictAllow, nil
	}
	category := normalizeCategory(meta.ConfirmationCategory)

	switch g.cfg.ConfirmationPolicy(meta.Name, category) {
	case "allow":
		return VerdictAllow, nil
	case "deny":
		return VerdictDeny, nil
	}

	if g.cfg.Confirmation.RememberChoices {
		g.sessionMu.RLock()
		remembered := g.session[sessionKey(meta.Name, category)]
		g.sessionMu.RUnlock()
		switch remembered {
		case string(DecisionAllowAlways):
			return VerdictAllow, nil
		case string(DecisionDenyAlways):
			return VerdictDeny, nil
		}
	}

	if g.mode == ModeSuspend {
		return VerdictSuspend, nil
	}
	return g.promptBlocking(ctx, meta, description, params)
}

func (g *Gate) promptBlocking(ctx context.Context, meta ports.ToolMetadata, description string, params map[string]any) (Verdict, error) {
	if g.prompter == nil {
		g.logger.Warn("no prompter configured for blocking confirmation of %s, denying", meta.Name)
		return VerdictDeny, nil
	}
	req := &ports.ConfirmationRequest{
		ID:          id.NewConfirmationID(),
		ToolName:    meta.Name,
		Tool:        meta,
		Description: description,
		Parameters:  params,
		CreatedAt:   time.Now(),
	}
	choice, err := g.prompter.Prompt(ctx, req)
	if err != nil {
		g.logger.Warn("confirmation prompt for %s failed: %v, denying", meta.Name, err)
		return VerdictDeny, nil
	}
	g.applyDecision(meta, choice.Decision, choice.Persist)
	switch choice.Decision {
	case DecisionAllow, DecisionAllowAlways:
		return VerdictAllow, nil
	default:
		return VerdictDeny, nil
	}
}

// applyDecision records an always-decision in session memory and optionally
// promotes it to durable configuration.
func (g *Gate) applyDecision(meta ports.ToolMetadata, decision Decision, persist bool) {
	if decision != DecisionAllowAlways && decision != DecisionDenyAlways {
		return
	}
	if !g.cfg.Confirmation.RememberChoices {
		return
	}
	category := normalizeCategory(meta.ConfirmationCategory)
	g.sessionMu.Lock()
	g.session[sessionKey(meta.Name, category)] = string(decision)
	g.sessionMu.Unlock()

	if persist {
		policy := "allow"
		if decision == DecisionDenyAlways {
			policy = "deny"
		}
		g.cfg.SetToolPolicy(meta.Name, policy)
		if err := g.cfg.Save(); err != nil {
			g.logger.Warn("failed to persist confirmation policy for %s: %v", meta.Name, err)
		}
	}
}

// ClearSessionMemory forgets all remembered session choices.
func (g *Gate) ClearSessionMemory() {
	g.sessionMu.Lock()
	g.session = make(map[string]string)
	g.sessionMu.Unlock()
}

// Suspend parks a call awaiting confirmation and returns the request the
// caller must surface. The invoke closure re-runs the tool directly,
// bypassing the gate, when the request is approved.
func (g *Gate) Suspend(meta ports.ToolMetadata, description string, params map[string]any, invoke InvokeFunc) *ports.ConfirmationRequest {
	req := &ports.ConfirmationRequest{
		ID:          id.NewConfirmationID(),
		ToolName:    meta.Name,
		Tool:        meta,
		Description: description,
		Parameters:  params,
		CreatedAt:   time.Now(),
	}
	g.pendingMu.Lock()
	g.pending[req.ID] = &pendingCall{request: req, invoke: invoke}
	g.pendingMu.Unlock()
	g.logger.Info("tool %s suspended awaiting confirmation (%s)", meta.Name, req.ID)
	return req
}

// Resume applies a decision to a pending request. The pending entry is
// consumed either way; resuming an unknown or already-consumed id fails.
func (g *Gate) Resume(ctx context.Context, confirmationID string, decision Decision) (*ports.ToolResult, error) {
	g.pendingMu.Lock()
	entry, ok := g.pending[confirmationID]
	if ok {
		delete(g.pending, confirmationID)
	}
	g.pendingMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown or already-consumed confirmation id %q", confirmationID)
	}

	g.applyDecision(entry.request.Tool, decision, false)
	switch decision {
	case DecisionAllow, DecisionAllowAlways:
		return entry.invoke(ctx), nil
	default:
		return ports.FailedResult(
			entry.request.ToolName,
			entry.request.Parameters,
			ports.ErrCodeUserDenied,
			"user denied this operation",
			time.Since(entry.request.CreatedAt),
		), nil
	}
}

// PendingRequest returns a pending request by id without consuming it.
func (g *Gate) PendingRequest(confirmationID string) (*ports.ConfirmationRequest, bool) {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	entry, ok := g.pending[confirmationID]
	if !ok {
		return nil, false
	}
	return entry.request, true
}

// PendingRequests lists all currently suspended requests.
func (g *Gate) PendingRequests() []*ports.ConfirmationRequest {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	out := make([]*ports.ConfirmationRequest, 0, len(g.pending))
	for _, entry := range g.pending {
		out = append(out, entry.request)
	}
	return out
}
