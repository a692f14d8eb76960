package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"box-metadata-workers/internal/common/box"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Check the configured Box credentials",
	RunE:  runWhoami,
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := box.NewClientFromConfig(cmd.Context(), cfg.Box)
	if err != nil {
		return fmt.Errorf("box client: %w", err)
	}

	user, err := client.GetCurrentUser(cmd.Context())
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Authenticated as: %s\n", user.Name)
	if user.Login != "" {
		fmt.Fprintf(out, "Login:            %s\n", user.Login)
	}
	fmt.Fprintf(out, "User ID:          %s\n", user.ID)
	return nil
}
