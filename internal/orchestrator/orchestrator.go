// Package orchestrator runs one metadata application pass over a session:
// it resolves the working set of files, picks template or free-form
// application per file and collects the outcomes.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"box-metadata-workers/internal/common/box"
	"box-metadata-workers/internal/common/errors"
	"box-metadata-workers/internal/common/logger"
	"box-metadata-workers/internal/common/metrics"
	"box-metadata-workers/internal/common/observability"
	"box-metadata-workers/internal/metadata"
	"box-metadata-workers/internal/session"
)

// Client is the Box API surface a run needs.
type Client interface {
	metadata.Client
	GetCurrentUser(ctx context.Context) (*box.User, error)
}

// Options mirror the switches the user sets for a run.
type Options struct {
	Timeout            time.Duration
	NormalizeKeys      bool
	FilterPlaceholders bool
	// Progress, when set, is called after every file.
	Progress ProgressFunc
}

// ProgressFunc receives the number of files done, the total and the result
// of the file just processed.
type ProgressFunc func(done, total int, result metadata.ApplicationResult)

// Failure is a failed file together with its diagnostics.
type Failure struct {
	Result       metadata.ApplicationResult  `json:"result"`
	Verification metadata.VerificationReport `json:"verification"`
}

// Report summarises a run.
type Report struct {
	RunID         uuid.UUID                    `json:"runId"`
	Authenticated string                       `json:"authenticatedAs,omitempty"`
	Total         int                          `json:"total"`
	Succeeded     []metadata.ApplicationResult `json:"succeeded"`
	Failed        []Failure                    `json:"failed"`
	StartedAt     time.Time                    `json:"startedAt"`
	FinishedAt    time.Time                    `json:"finishedAt"`
}

func (r *Report) SucceededCount() int { return len(r.Succeeded) }
func (r *Report) FailedCount() int    { return len(r.Failed) }

// Summary is the one-line result shown to the user.
func (r *Report) Summary() string {
	return fmt.Sprintf("Successfully applied metadata to %d of %d files.", len(r.Succeeded), r.Total)
}

type Orchestrator struct {
	client    Client
	logger    logger.Logger
	obs       *observability.Observability
	cancelled atomic.Bool
}

// New returns an Orchestrator. client may be nil, in which case Run reports
// the missing client without touching the network.
func New(client Client, log logger.Logger, obs *observability.Observability) *Orchestrator {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Orchestrator{client: client, logger: log, obs: obs}
}

// Cancel stops the next Run from starting. A Run already in progress
// finishes its file list.
func (o *Orchestrator) Cancel() {
	o.cancelled.Store(true)
}

// Run applies the extracted metadata of sess to Box. Precondition failures
// are returned as *errors.StandardError before any network call; per-file
// failures are collected in the report.
func (o *Orchestrator) Run(ctx context.Context, sess *session.Session, opts Options) (*Report, error) {
	if o.cancelled.CompareAndSwap(true, false) {
		metrics.OrchestratorRuns.WithLabelValues("cancelled").Inc()
		return nil, errors.NewRunCancelledError()
	}
	if isNilClient(o.client) {
		metrics.OrchestratorRuns.WithLabelValues("precondition").Inc()
		return nil, errors.NewNoClientError()
	}
	if sess == nil || sess.Results.Len() == 0 {
		metrics.OrchestratorRuns.WithLabelValues("precondition").Inc()
		return nil, errors.NewNoResultsError()
	}

	fileIDs := WorkingSet(sess)
	if len(fileIDs) == 0 {
		metrics.OrchestratorRuns.WithLabelValues("precondition").Inc()
		return nil, errors.NewNoFilesError()
	}

	user, err := o.client.GetCurrentUser(ctx)
	if err != nil {
		o.logger.Error("Error verifying client", map[string]interface{}{"error": err.Error()})
		metrics.OrchestratorRuns.WithLabelValues("precondition").Inc()
		return nil, errors.NewAuthenticationError(err.Error())
	}

	report := &Report{
		RunID:         uuid.New(),
		Authenticated: user.Name,
		Total:         len(fileIDs),
		Succeeded:     []metadata.ApplicationResult{},
		Failed:        []Failure{},
		StartedAt:     time.Now().UTC(),
	}

	ctx, span := o.obs.StartSpan(ctx, "metadata.run",
		attribute.String("run.id", report.RunID.String()),
		attribute.String("session.id", sess.ID),
		attribute.Int("files.total", report.Total),
	)
	defer span.End()

	runLog := o.logger.WithFields(map[string]interface{}{
		"runId":     report.RunID.String(),
		"sessionId": sess.ID,
	})
	runLog.Info("Starting metadata run", map[string]interface{}{
		"files":           report.Total,
		"authenticatedAs": user.Name,
	})

	applier := metadata.NewApplier(o.client, metadata.ApplierOptions{
		Logger:        runLog,
		Observability: o.obs,
		Timeout:       opts.Timeout,
	})

	for i, fileID := range fileIDs {
		result := o.processFile(ctx, applier, sess, fileID, opts)
		verification := metadata.Verify(result)

		runLog.Debug("Verification result", map[string]interface{}{
			"fileId":      fileID,
			"success":     verification.Success,
			"diagnostics": verification.Diagnostics,
		})

		if result.Success {
			report.Succeeded = append(report.Succeeded, result)
		} else {
			report.Failed = append(report.Failed, Failure{Result: result, Verification: verification})
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(fileIDs), result)
		}
	}

	report.FinishedAt = time.Now().UTC()
	span.SetAttributes(
		attribute.Int("files.succeeded", report.SucceededCount()),
		attribute.Int("files.failed", report.FailedCount()),
	)
	metrics.OrchestratorRuns.WithLabelValues("completed").Inc()

	runLog.Info(report.Summary(), map[string]interface{}{
		"succeeded": report.SucceededCount(),
		"failed":    report.FailedCount(),
		"duration":  report.FinishedAt.Sub(report.StartedAt).String(),
	})

	return report, nil
}

func (o *Orchestrator) processFile(ctx context.Context, applier *metadata.Applier, sess *session.Session, fileID string, opts Options) metadata.ApplicationResult {
	raw := metadata.Payload{}
	if envelope, ok := sess.Results.Get(fileID); ok {
		extracted := session.ExtractMetadata(envelope)
		payload, isMapping := metadata.AsPayload(extracted)
		if !isMapping {
			return metadata.ApplicationResult{
				FileID:   fileID,
				FileName: fmt.Sprintf("File %s", fileID),
				Error:    fmt.Sprintf("Unexpected error: extracted metadata for file %s is not a key/value mapping", fileID),
			}
		}
		raw = payload
	}

	flat := metadata.Flatten(raw)
	if opts.FilterPlaceholders {
		flat = metadata.FilterPlaceholders(flat)
	}
	if opts.NormalizeKeys {
		flat = metadata.NormalizeKeys(flat)
	}

	return applier.Apply(ctx, fileID, flat, ResolveTemplate(sess, fileID))
}

// WorkingSet lists selected file ids first, then result ids, without
// duplicates and in first-seen order.
func WorkingSet(sess *session.Session) []string {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for _, f := range sess.SelectedFiles {
		add(f.ID)
	}
	for _, id := range sess.Results.IDs() {
		add(id)
	}
	return ids
}

// ResolveTemplate returns the template to apply to fileID, or nil for
// free-form properties. Only structured files in a session with a metadata
// configuration use a template: the file's own template id first, then the
// session default when use_template is set.
func ResolveTemplate(sess *session.Session, fileID string) *metadata.TemplateInfo {
	cfg := sess.FileConfig(fileID)
	if cfg.ExtractionMethod != session.ExtractionStructured || sess.MetadataConfig == nil {
		return nil
	}

	templateID := cfg.TemplateID
	if templateID == "" && sess.MetadataConfig.UseTemplate {
		templateID = sess.MetadataConfig.TemplateID
	}
	return metadata.ParseTemplateID(templateID)
}

func isNilClient(c Client) bool {
	if c == nil {
		return true
	}
	if bc, ok := c.(*box.Client); ok && bc == nil {
		return true
	}
	return false
}
