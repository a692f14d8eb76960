package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"box-metadata-workers/internal/common/logger"
	am "box-metadata-workers/internal/workers/metadata/apply-metadata"
	"box-metadata-workers/pkg/registry"
)

var activitiesFlags struct {
	out string
}

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Print or write the activity registry for process modelers",
	RunE:  runActivities,
}

func init() {
	f := activitiesCmd.Flags()
	f.StringVar(&activitiesFlags.out, "out", "", "Write the registry to this path instead of stdout")
}

func runActivities(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	handler, err := am.NewHandler(am.HandlerOptions{AppConfig: cfg, Logger: logger.NewNoOpLogger()})
	if err != nil {
		return err
	}

	reg := registry.New(cfg.App.Version)
	if err := reg.Add(handler.Activity()); err != nil {
		return err
	}
	snapshot := reg.Snapshot()
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}

	if activitiesFlags.out != "" {
		if err := snapshot.Save(activitiesFlags.out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d activities to %s\n", len(snapshot.Activities), activitiesFlags.out)
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}
