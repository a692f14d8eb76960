package applymetadata

import (
	"context"

	"box-metadata-workers/internal/common/logger"
	"box-metadata-workers/internal/common/observability"
	"box-metadata-workers/internal/orchestrator"
	"box-metadata-workers/internal/session"
)

// Input carries either a sessionId to load from the configured source or
// the session data inline. Inline fields override the loaded ones.
type Input struct {
	SessionID      string                        `json:"sessionId,omitempty"`
	Results        *session.ResultSet            `json:"results,omitempty"`
	SelectedFiles  []session.SelectedFile        `json:"selectedFiles,omitempty"`
	FileConfigs    map[string]session.FileConfig `json:"fileConfigs,omitempty"`
	MetadataConfig *session.MetadataConfig       `json:"metadataConfig,omitempty"`
	Options        *RunOptions                   `json:"options,omitempty"`
}

// RunOptions override the worker defaults for one job.
type RunOptions struct {
	TimeoutSeconds     *float64 `json:"timeoutSeconds,omitempty"`
	NormalizeKeys      *bool    `json:"normalizeKeys,omitempty"`
	FilterPlaceholders *bool    `json:"filterPlaceholders,omitempty"`
}

type Output struct {
	MetadataApplied bool            `json:"metadataApplied"`
	Message         string          `json:"message"`
	TotalFiles      int             `json:"totalFiles"`
	SucceededCount  int             `json:"succeededCount"`
	FailedCount     int             `json:"failedCount"`
	RunID           string          `json:"runId"`
	Failures        []FailureOutput `json:"failures"`
}

type FailureOutput struct {
	FileID      string   `json:"fileId"`
	FileName    string   `json:"fileName"`
	Error       string   `json:"error"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Notifier publishes the run summary once a job has finished.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, report *orchestrator.Report) error
}

type ServiceDependencies struct {
	Logger        logger.Logger
	BoxClient     orchestrator.Client
	Source        session.Source
	Notifier      Notifier
	Observability *observability.Observability
}
