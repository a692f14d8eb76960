package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"box-metadata-workers/internal/common/box"
	"box-metadata-workers/internal/common/logger"
	"box-metadata-workers/internal/metadata"
	"box-metadata-workers/internal/notify"
	"box-metadata-workers/internal/orchestrator"
	"box-metadata-workers/internal/session"
)

const (
	minFileTimeout = 10 * time.Second
	maxFileTimeout = 300 * time.Second
)

var runFlags struct {
	sessionID          string
	source             string
	timeout            time.Duration
	normalizeKeys      bool
	filterPlaceholders bool
	debug              bool
	notify             bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply the extraction results of a session to Box",
	Long: "Load a session from Redis or Postgres and write the metadata of every\n" +
		"selected file to Box. Exits non-zero when any file fails.",
	RunE: runApply,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.sessionID, "session", "", "Session ID to load (required)")
	f.StringVar(&runFlags.source, "source", "", "Session source: redis or postgres (default: whichever is configured)")
	f.DurationVar(&runFlags.timeout, "timeout", 0, "Per-file timeout, between 10s and 5m (default: config metadata.timeout)")
	f.BoolVar(&runFlags.normalizeKeys, "normalize-keys", false, "Normalize keys to lowercase identifiers")
	f.BoolVar(&runFlags.filterPlaceholders, "filter-placeholders", false, "Drop placeholder values such as [insert ...]")
	f.BoolVar(&runFlags.debug, "debug", false, "Print session keys and the first result before applying")
	f.BoolVar(&runFlags.notify, "notify", false, "Send the run summary through the configured notification channels")
	_ = runCmd.MarkFlagRequired("session")
}

func runApply(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if runFlags.debug {
		level = "debug"
	}
	zapLog := logger.NewWithOptions(logger.Options{Level: level, Format: cfg.Logging.Format, Output: "stderr"})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	opts := orchestrator.Options{
		Timeout:            cfg.Metadata.TimeoutDuration(),
		NormalizeKeys:      cfg.Metadata.NormalizeKeys,
		FilterPlaceholders: cfg.Metadata.FilterPlaceholders,
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		opts.Timeout = runFlags.timeout
	}
	if flags.Changed("normalize-keys") {
		opts.NormalizeKeys = runFlags.normalizeKeys
	}
	if flags.Changed("filter-placeholders") {
		opts.FilterPlaceholders = runFlags.filterPlaceholders
	}
	if err := validateTimeout(opts.Timeout); err != nil {
		return err
	}

	source, closeSource, err := session.Open(ctx, runFlags.source, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open session source: %w", err)
	}
	defer closeSource()

	sess, err := source.Load(ctx, runFlags.sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", runFlags.sessionID, err)
	}
	if runFlags.debug {
		dumpSession(out, sess)
	}

	client, err := box.NewClientFromConfig(ctx, cfg.Box)
	if err != nil {
		return fmt.Errorf("box client: %w", err)
	}

	opts.Progress = progressPrinter(out)
	report, err := orchestrator.New(client, log, nil).Run(ctx, sess, opts)
	if err != nil {
		return err
	}
	printReport(out, report)

	if runFlags.notify {
		notifier, err := notify.NewFromConfig(ctx, cfg.Notifications, log)
		if err != nil {
			return fmt.Errorf("notifier: %w", err)
		}
		if err := notifier.Notify(ctx, sess.ID, report); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: notification failed: %v\n", err)
		}
	}

	if report.FailedCount() > 0 {
		return fmt.Errorf("%d of %d files failed", report.FailedCount(), report.Total)
	}
	return nil
}

func validateTimeout(d time.Duration) error {
	if d < minFileTimeout || d > maxFileTimeout {
		return fmt.Errorf("timeout must be between %s and %s, got %s", minFileTimeout, maxFileTimeout, d)
	}
	return nil
}

func progressPrinter(out io.Writer) orchestrator.ProgressFunc {
	return func(done, total int, result metadata.ApplicationResult) {
		status := "ok"
		if !result.Success {
			status = "FAILED"
		}
		name := result.FileName
		if name == "" {
			name = result.FileID
		}
		fmt.Fprintf(out, "[%d/%d] %-40s %s\n", done, total, name, status)
	}
}

func dumpSession(out io.Writer, sess *session.Session) {
	fmt.Fprintf(out, "Session:         %s\n", sess.ID)
	fmt.Fprintf(out, "Result keys:     %s\n", strings.Join(sess.Results.IDs(), ", "))
	fmt.Fprintf(out, "Selected files:  %d\n", len(sess.SelectedFiles))
	fmt.Fprintf(out, "File configs:    %d\n", len(sess.FileConfigs))
	if sess.MetadataConfig != nil {
		fmt.Fprintf(out, "Template:        use=%t id=%q\n", sess.MetadataConfig.UseTemplate, sess.MetadataConfig.TemplateID)
	}

	ids := sess.Results.IDs()
	if len(ids) == 0 {
		fmt.Fprintln(out, "First result:    (none)")
		return
	}
	first, _ := sess.Results.Get(ids[0])
	data, err := json.MarshalIndent(first, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "First result:    %v\n", first)
		return
	}
	fmt.Fprintf(out, "First result (%s):\n%s\n", ids[0], data)
	fmt.Fprintln(out)
}

func printReport(out io.Writer, report *orchestrator.Report) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Run:       %s\n", report.RunID)
	if report.Authenticated != "" {
		fmt.Fprintf(out, "Box user:  %s\n", report.Authenticated)
	}
	fmt.Fprintf(out, "Duration:  %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Fprintln(out, report.Summary())

	if report.FailedCount() == 0 {
		return
	}
	fmt.Fprintf(out, "\nFailed files (%d):\n", report.FailedCount())
	for _, f := range report.Failed {
		fmt.Fprintf(out, "  %s (%s)\n", f.Result.FileName, f.Result.FileID)
		for _, line := range f.Verification.Diagnostics {
			fmt.Fprintf(out, "    %s\n", line)
		}
	}
}
