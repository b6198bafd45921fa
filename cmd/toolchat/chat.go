package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"toolchat/internal/agent"
	"toolchat/internal/confirm"
)

var (
	gray   = color.New(color.FgHiBlack).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func newChatCmd() *cobra.Command {
	var sessionID string
	var showThinking bool

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat interactively, or send a single message",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(confirm.ModeBlocking)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if sessionID == "" {
				session, err := app.store.Create(ctx, "")
				if err != nil {
					return err
				}
				sessionID = session.ID
			} else if _, err := app.store.Get(ctx, sessionID); err != nil {
				return err
			}

			if len(args) > 0 {
				return runTurn(ctx, app, sessionID, strings.Join(args, " "), showThinking)
			}
			return runREPL(ctx, app, sessionID, showThinking)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "continue an existing session")
	cmd.Flags().BoolVar(&showThinking, "thinking", false, "show the model's thinking channel")
	return cmd
}

func runREPL(ctx context.Context, app *app, sessionID string, showThinking bool) error {
	fmt.Printf("session %s (provider %s). Type 'exit' to quit.\n", cyan(sessionID), app.cfg.DefaultProvider)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(green("you> "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := runTurn(ctx, app, sessionID, input, showThinking); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Println(red("error: " + err.Error()))
		}
	}
}

func runTurn(ctx context.Context, app *app, sessionID, input string, showThinking bool) error {
	events, err := app.engine.ChatStream(ctx, sessionID, input)
	if err != nil {
		return err
	}

	for ev := range events {
		switch ev.Type {
		case agent.EventThinking:
			if showThinking {
				fmt.Print(gray(ev.Content))
			}
		case agent.EventAnswer:
			fmt.Print(ev.Content)
		case agent.EventToolStart:
			fmt.Printf("\n%s %s\n", yellow("⏺"), formatCall(ev))
		case agent.EventToolResult:
			if ev.Result != nil {
				line := ev.Result.String()
				if runes := []rune(line); len(runes) > 200 {
					line = string(runes[:200]) + "..."
				}
				fmt.Println(gray("  ⎿ " + line))
			}
		case agent.EventNotice:
			fmt.Println(yellow("\n[" + ev.Content + "]"))
		case agent.EventAwaitingConfirmation:
			if ev.Pending != nil {
				fmt.Println(yellow("\nawaiting confirmation: " + ev.Pending.ID))
			}
		}
	}
	fmt.Println()
	return nil
}

func formatCall(ev agent.Event) string {
	if ev.Call == nil {
		return ""
	}
	var args []string
	for key, value := range ev.Call.Arguments {
		args = append(args, fmt.Sprintf("%s=%v", key, value))
	}
	rendered := strings.Join(args, ", ")
	if runes := []rune(rendered); len(runes) > 100 {
		rendered = string(runes[:97]) + "..."
	}
	return fmt.Sprintf("%s(%s)", ev.Call.Name, rendered)
}
