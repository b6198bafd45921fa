package main

import (
	"fmt"
	"time"

	"toolchat/internal/agent"
	"toolchat/internal/config"
	"toolchat/internal/confirm"
	"toolchat/internal/llm"
	"toolchat/internal/logging"
	"toolchat/internal/memory"
	"toolchat/internal/ports"
	"toolchat/internal/session/filestore"
	"toolchat/internal/tools"
	"toolchat/internal/tools/builtin"
)

// app bundles the wired components behind the CLI commands.
type app struct {
	cfg      *config.Config
	engine   *agent.Engine
	registry *tools.Registry
	executor *tools.Executor
	gate     *confirm.Gate
	store    ports.SessionStore
	logger   logging.Logger
}

// buildApp wires the full stack. Blocking mode prompts on the terminal;
// suspend mode parks gated calls for the HTTP confirmation endpoints.
func buildApp(mode confirm.Mode) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	logger := logging.NewComponentLogger("toolchat")

	store, err := filestore.New(cfg.SessionDir, logging.NewComponentLogger("sessions"))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	memories := memory.NewStore(cfg.MemoryPath, logging.NewComponentLogger("memory"))

	var prompter confirm.Prompter
	if mode == confirm.ModeBlocking {
		prompter = confirm.NewTerminalPrompter(2*time.Minute, false, true)
	}
	gate := confirm.New(cfg, mode, prompter, logging.NewComponentLogger("confirm"))

	registry := tools.NewRegistry(logging.NewComponentLogger("registry"))
	builtin.RegisterAll(registry, memories)
	executor := tools.NewExecutor(registry, gate, logging.NewComponentLogger("executor"))

	provider, err := llm.NewProvider(cfg, flagProvider)
	if err != nil {
		return nil, err
	}

	engine := agent.New(provider, executor, registry, store, memories, cfg, logging.NewComponentLogger("agent"))

	return &app{
		cfg:      cfg,
		engine:   engine,
		registry: registry,
		executor: executor,
		gate:     gate,
		store:    store,
		logger:   logger,
	}, nil
}
