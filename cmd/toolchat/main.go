package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"toolchat/internal/logging"
)

var (
	flagConfig   string
	flagProvider string
	flagDebug    bool
)

func main() {
	root := &cobra.Command{
		Use:   "toolchat",
		Short: "LLM chat with local tool calling",
		Long: `toolchat runs a multi-round chat loop against a configured model
provider, recovering tool calls from the reply, executing them through a
confirmation gate, and feeding results back until the model answers.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				logging.SetLevel(logging.LevelDebug)
			}
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "config file path")
	root.PersistentFlags().StringVar(&flagProvider, "provider", "", "model provider override")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	root.AddCommand(newChatCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newSessionsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "toolchat.yaml"
	}
	return filepath.Join(home, ".toolchat", "config.yaml")
}
