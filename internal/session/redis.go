package session

import (
	"context"
	"encoding/json"
	"fmt"

	"box-metadata-workers/internal/common/database"
	"box-metadata-workers/internal/common/errors"
	"box-metadata-workers/internal/common/logger"
)

const DefaultKeyPrefix = "session"

// RedisSource reads sessions stored as four JSON string keys:
// <prefix>:<id>:results, :selected_files, :file_config and :metadata_config.
type RedisSource struct {
	client *database.RedisClient
	prefix string
	logger logger.Logger
}

func NewRedisSource(client *database.RedisClient, prefix string, log logger.Logger) *RedisSource {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &RedisSource{client: client, prefix: prefix, logger: log}
}

func (s *RedisSource) Name() string { return "redis" }

func (s *RedisSource) key(sessionID, part string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, sessionID, part)
}

func (s *RedisSource) Load(ctx context.Context, sessionID string) (*Session, error) {
	keys := []string{
		s.key(sessionID, "results"),
		s.key(sessionID, "selected_files"),
		s.key(sessionID, "file_config"),
		s.key(sessionID, "metadata_config"),
	}

	values, err := s.client.MGet(ctx, keys...)
	if err != nil {
		return nil, errors.NewSessionLoadFailedError(sessionID, err)
	}

	found := false
	for _, v := range values {
		if v != nil {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.NewResourceNotFoundError("redis", fmt.Sprintf("session %s not found", sessionID))
	}

	sess := &Session{ID: sessionID}
	targets := []interface{}{&sess.Results, &sess.SelectedFiles, &sess.FileConfigs, &sess.MetadataConfig}

	for i, v := range values {
		if v == nil {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			return nil, errors.NewSessionLoadFailedError(sessionID, fmt.Errorf("key %s holds %T, expected string", keys[i], v))
		}
		if err := json.Unmarshal([]byte(raw), targets[i]); err != nil {
			return nil, errors.NewSessionLoadFailedError(sessionID, fmt.Errorf("key %s: %w", keys[i], err))
		}
	}

	s.logger.Debug("Loaded session from redis", map[string]interface{}{
		"sessionId":     sessionID,
		"results":       sess.Results.Len(),
		"selectedFiles": len(sess.SelectedFiles),
		"fileConfigs":   len(sess.FileConfigs),
	})

	return sess, nil
}
