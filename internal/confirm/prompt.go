package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"toolchat/internal/ports"
)

// TerminalPrompter implements blocking confirmation via terminal prompts.
type TerminalPrompter struct {
	timeout      time.Duration
	autoApprove  bool
	colorEnabled bool
	in           io.Reader
	out          io.Writer
}

// NewTerminalPrompter creates a prompter reading from stdin. A zero timeout
// waits indefinitely.
func NewTerminalPrompter(timeout time.Duration, autoApprove, colorEnabled bool) *TerminalPrompter {
	return &TerminalPrompter{
		timeout:      timeout,
		autoApprove:  autoApprove,
		colorEnabled: colorEnabled,
		in:           os.Stdin,
		out:          os.Stdout,
	}
}

// Prompt displays the request and collects a decision with a timeout.
func (p *TerminalPrompter) Prompt(ctx context.Context, req *ports.ConfirmationRequest) (Choice, error) {
	if p.autoApprove {
		return Choice{Decision: DecisionAllow}, nil
	}

	p.display(req)

	choiceChan := make(chan Choice, 1)
	errChan := make(chan error, 1)
	go func() {
		choice, err := p.readChoice()
		if err != nil {
			errChan <- err
			return
		}
		choiceChan <- choice
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	select {
	case choice := <-choiceChan:
		return choice, nil
	case err := <-errChan:
		return Choice{}, err
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, p.colorize("No answer - operation denied", color.FgRed))
		return Choice{Decision: DecisionDeny}, nil
	}
}

func (p *TerminalPrompter) display(req *ports.ConfirmationRequest) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.colorize(separator, color.FgCyan))
	fmt.Fprintln(p.out, p.colorize("Confirmation required", color.FgYellow, color.Bold))
	fmt.Fprintln(p.out, p.colorize(separator, color.FgCyan))
	fmt.Fprintf(p.out, "Tool:     %s\n", req.ToolName)
	if req.Description != "" {
		fmt.Fprintf(p.out, "Purpose:  %s\n", req.Description)
	}
	fmt.Fprintf(p.out, "Category: %s\n", req.Tool.ConfirmationCategory)
	if req.Tool.RiskLevel != "" {
		fmt.Fprintf(p.out, "Risk:     %s\n", req.Tool.RiskLevel)
	}

	if len(req.Parameters) > 0 {
		fmt.Fprintln(p.out, "Parameters:")
		for key, value := range req.Parameters {
			fmt.Fprintf(p.out, "  - %s: %s\n", key, maskParamValue(key, value))
		}
	}
	fmt.Fprintln(p.out, p.colorize(separator, color.FgCyan))
}

func (p *TerminalPrompter) readChoice() (Choice, error) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "  [y] allow once")
	fmt.Fprintln(p.out, "  [n] deny once")
	fmt.Fprintln(p.out, "  [a] always allow this tool")
	fmt.Fprintln(p.out, "  [d] always deny this tool")
	fmt.Fprint(p.out, p.colorize("Choice: ", color.FgCyan))

	reader := bufio.NewReader(p.in)
	for {
		input, err := reader.ReadString('\n')
		if err != nil {
			return Choice{}, fmt.Errorf("failed to read input: %w", err)
		}
		switch strings.TrimSpace(strings.ToLower(input)) {
		case "y", "yes":
			return Choice{Decision: DecisionAllow}, nil
		case "n", "no", "":
			return Choice{Decision: DecisionDeny}, nil
		case "a", "always":
			return Choice{Decision: DecisionAllowAlways, Persist: p.askPersist(reader)}, nil
		case "d", "never":
			return Choice{Decision: DecisionDenyAlways, Persist: p.askPersist(reader)}, nil
		default:
			fmt.Fprint(p.out, p.colorize("Invalid choice, enter y/n/a/d: ", color.FgRed))
		}
	}
}

func (p *TerminalPrompter) askPersist(reader *bufio.Reader) bool {
	fmt.Fprint(p.out, "Save this choice to the config file? (y/n): ")
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.TrimSpace(strings.ToLower(input))
	return answer == "y" || answer == "yes"
}

// maskParamValue hides credential-like values and truncates long ones.
func maskParamValue(key string, value any) string {
	lower := strings.ToLower(key)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") ||
		strings.Contains(lower, "secret") || strings.Contains(lower, "api_key") {
		return "***"
	}
	text := fmt.Sprintf("%v", value)
	if len(text) > 100 {
		return text[:100] + "..."
	}
	return text
}

func (p *TerminalPrompter) colorize(text string, attributes ...color.Attribute) string {
	if !p.colorEnabled {
		return text
	}
	return color.New(attributes...).Sprint(text)
}
