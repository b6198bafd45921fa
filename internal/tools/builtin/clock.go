// Package builtin provides the stock tool set wired into the registry at
// startup.
package builtin

import (
	"context"
	"fmt"
	"time"

	"toolchat/internal/ports"
	"toolchat/internal/tools"
)

// NewClock creates the get_current_time tool.
func NewClock() ports.Tool {
	def := ports.ToolDefinition{
		Name:        "get_current_time",
		Description: "Returns the current date and time, optionally in a given IANA timezone.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"timezone": {
					Type:        "string",
					Description: "IANA timezone name, e.g. Europe/Berlin. Defaults to the local zone.",
				},
				"format": {
					Type:        "string",
					Description: "Output format.",
					Enum:        []any{"rfc3339", "human"},
					Default:     "human",
				},
			},
		},
	}
	meta := ports.ToolMetadata{Name: def.Name, Module: "core"}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		now := time.Now()
		if tz := tools.StringArg(args, "timezone"); tz != "" {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return "", fmt.Errorf("unknown timezone %q", tz)
			}
			now = now.In(loc)
		}
		if tools.StringArg(args, "format") == "rfc3339" {
			return now.Format(time.RFC3339), nil
		}
		return now.Format("Monday, 2 January 2006 15:04:05 MST"), nil
	})
}
