package applymetadata

import (
	"context"
	"fmt"
	"time"

	"box-metadata-workers/internal/common/errors"
	"box-metadata-workers/internal/common/logger"
	"box-metadata-workers/internal/metadata"
	"box-metadata-workers/internal/orchestrator"
	"box-metadata-workers/internal/session"
)

type Service struct {
	config       *Config
	logger       logger.Logger
	boxClient    orchestrator.Client
	source       session.Source
	notifier     Notifier
	orchestrator *orchestrator.Orchestrator
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		config:       config,
		logger:       log,
		boxClient:    deps.BoxClient,
		source:       deps.Source,
		notifier:     deps.Notifier,
		orchestrator: orchestrator.New(deps.BoxClient, log, deps.Observability),
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	sess, err := s.resolveSession(ctx, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Executing metadata apply", map[string]interface{}{
		"sessionId":     sess.ID,
		"results":       sess.Results.Len(),
		"selectedFiles": len(sess.SelectedFiles),
	})

	report, err := s.orchestrator.Run(ctx, sess, s.runOptions(input.Options))
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, sess.ID, report); err != nil {
			s.logger.Warn("Run summary notification failed", map[string]interface{}{
				"runId": report.RunID.String(),
				"error": err.Error(),
			})
		}
	}

	return buildOutput(report), nil
}

// resolveSession loads the session named by input.SessionID, if any, and
// overlays the inline fields of input on top of it.
func (s *Service) resolveSession(ctx context.Context, input *Input) (*session.Session, error) {
	sess := &session.Session{ID: input.SessionID}

	if input.SessionID != "" && input.Results == nil {
		if s.source == nil {
			return nil, errors.NewValidationError(
				fmt.Sprintf("sessionId %s given but no session source is configured", input.SessionID))
		}
		loaded, err := s.source.Load(ctx, input.SessionID)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("Session loaded", map[string]interface{}{
			"sessionId": input.SessionID,
			"source":    s.source.Name(),
		})
		sess = loaded
	}

	if input.Results != nil {
		sess.Results = *input.Results
	}
	if input.SelectedFiles != nil {
		sess.SelectedFiles = input.SelectedFiles
	}
	if input.FileConfigs != nil {
		sess.FileConfigs = input.FileConfigs
	}
	if input.MetadataConfig != nil {
		sess.MetadataConfig = input.MetadataConfig
	}
	return sess, nil
}

func (s *Service) runOptions(overrides *RunOptions) orchestrator.Options {
	opts := orchestrator.Options{
		Timeout:            s.config.FileTimeout,
		NormalizeKeys:      s.config.NormalizeKeys,
		FilterPlaceholders: s.config.FilterPlaceholders,
		Progress: func(done, total int, result metadata.ApplicationResult) {
			s.logger.Debug("File processed", map[string]interface{}{
				"done":    done,
				"total":   total,
				"fileId":  result.FileID,
				"success": result.Success,
			})
		},
	}
	if overrides == nil {
		return opts
	}
	if overrides.TimeoutSeconds != nil {
		opts.Timeout = time.Duration(*overrides.TimeoutSeconds * float64(time.Second))
	}
	if overrides.NormalizeKeys != nil {
		opts.NormalizeKeys = *overrides.NormalizeKeys
	}
	if overrides.FilterPlaceholders != nil {
		opts.FilterPlaceholders = *overrides.FilterPlaceholders
	}
	return opts
}

func buildOutput(report *orchestrator.Report) *Output {
	out := &Output{
		MetadataApplied: report.FailedCount() == 0,
		Message:         report.Summary(),
		TotalFiles:      report.Total,
		SucceededCount:  report.SucceededCount(),
		FailedCount:     report.FailedCount(),
		RunID:           report.RunID.String(),
		Failures:        make([]FailureOutput, 0, report.FailedCount()),
	}
	for _, f := range report.Failed {
		out.Failures = append(out.Failures, FailureOutput{
			FileID:      f.Result.FileID,
			FileName:    f.Result.FileName,
			Error:       f.Result.Error,
			Diagnostics: f.Verification.Diagnostics,
		})
	}
	return out
}

// TestConnection verifies the Box credentials.
func (s *Service) TestConnection(ctx context.Context) error {
	if s.boxClient == nil {
		return fmt.Errorf("box client not configured")
	}
	user, err := s.boxClient.GetCurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("box authentication failed: %w", err)
	}
	s.logger.Info("Box connection verified", map[string]interface{}{
		"user": user.Name,
	})
	return nil
}
