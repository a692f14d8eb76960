package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"box-metadata-workers/internal/common/database"
	"box-metadata-workers/internal/common/errors"
	"box-metadata-workers/internal/common/logger"
)

const (
	queryResults = `SELECT file_id, payload FROM extraction_results
		WHERE session_id = $1 ORDER BY position`
	querySelectedFiles = `SELECT file_id, name FROM selected_files
		WHERE session_id = $1 ORDER BY position`
	queryFileConfigs = `SELECT file_id, extraction_method, template_id, custom_prompt
		FROM file_metadata_config WHERE session_id = $1`
	queryMetadataConfig = `SELECT use_template, template_id FROM metadata_config
		WHERE session_id = $1`
)

// PostgresSource reads sessions persisted by the extraction stage.
type PostgresSource struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewPostgresSource(db *database.PostgresClient, log logger.Logger) *PostgresSource {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &PostgresSource{db: db, logger: log}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) Load(ctx context.Context, sessionID string) (*Session, error) {
	sess := &Session{ID: sessionID, Results: *NewResultSet()}

	if err := s.loadResults(ctx, sess); err != nil {
		return nil, errors.NewSessionLoadFailedError(sessionID, err)
	}
	if err := s.loadSelectedFiles(ctx, sess); err != nil {
		return nil, errors.NewSessionLoadFailedError(sessionID, err)
	}
	if err := s.loadFileConfigs(ctx, sess); err != nil {
		return nil, errors.NewSessionLoadFailedError(sessionID, err)
	}
	if err := s.loadMetadataConfig(ctx, sess); err != nil {
		return nil, errors.NewSessionLoadFailedError(sessionID, err)
	}

	s.logger.Debug("Loaded session from postgres", map[string]interface{}{
		"sessionId":     sessionID,
		"results":       sess.Results.Len(),
		"selectedFiles": len(sess.SelectedFiles),
		"fileConfigs":   len(sess.FileConfigs),
	})

	return sess, nil
}

func (s *PostgresSource) loadResults(ctx context.Context, sess *Session) error {
	rows, err := s.db.Query(ctx, queryResults, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to query extraction results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fileID string
		var payload []byte
		if err := rows.Scan(&fileID, &payload); err != nil {
			return fmt.Errorf("failed to scan extraction result: %w", err)
		}
		var envelope interface{}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			// Not JSON; keep the raw text like the other sources do.
			envelope = string(payload)
		}
		sess.Results.Set(fileID, envelope)
	}
	return rows.Err()
}

func (s *PostgresSource) loadSelectedFiles(ctx context.Context, sess *Session) error {
	rows, err := s.db.Query(ctx, querySelectedFiles, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to query selected files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f SelectedFile
		var name sql.NullString
		if err := rows.Scan(&f.ID, &name); err != nil {
			return fmt.Errorf("failed to scan selected file: %w", err)
		}
		f.Name = name.String
		sess.SelectedFiles = append(sess.SelectedFiles, f)
	}
	return rows.Err()
}

func (s *PostgresSource) loadFileConfigs(ctx context.Context, sess *Session) error {
	rows, err := s.db.Query(ctx, queryFileConfigs, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to query file metadata config: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fileID string
		var method, templateID, prompt sql.NullString
		if err := rows.Scan(&fileID, &method, &templateID, &prompt); err != nil {
			return fmt.Errorf("failed to scan file metadata config: %w", err)
		}
		if sess.FileConfigs == nil {
			sess.FileConfigs = map[string]FileConfig{}
		}
		sess.FileConfigs[fileID] = FileConfig{
			ExtractionMethod: method.String,
			TemplateID:       templateID.String,
			CustomPrompt:     prompt.String,
		}
	}
	return rows.Err()
}

func (s *PostgresSource) loadMetadataConfig(ctx context.Context, sess *Session) error {
	var cfg MetadataConfig
	var templateID sql.NullString
	err := s.db.QueryRow(ctx, queryMetadataConfig, sess.ID).Scan(&cfg.UseTemplate, &templateID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query metadata config: %w", err)
	}
	cfg.TemplateID = templateID.String
	sess.MetadataConfig = &cfg
	return nil
}
