package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"toolchat/internal/confirm"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(confirm.ModeSuspend)
			if err != nil {
				return err
			}
			for _, def := range app.registry.List() {
				fmt.Printf("%s\n    %s\n", cyan(def.Name), def.Description)
			}
			return nil
		},
	}
}

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(confirm.ModeSuspend)
			if err != nil {
				return err
			}
			sessions, err := app.store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("no sessions")
				return nil
			}
			for _, session := range sessions {
				title := session.Title
				if title == "" {
					title = gray("(untitled)")
				}
				fmt.Printf("%s  %s  %d messages  %s\n",
					cyan(session.ID), title, len(session.Messages),
					session.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(confirm.ModeSuspend)
			if err != nil {
				return err
			}
			if err := app.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		},
	})
	return cmd
}
