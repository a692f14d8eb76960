package session

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"box-metadata-workers/internal/common/database"
	commonerrors "box-metadata-workers/internal/common/errors"
	"box-metadata-workers/internal/common/logger"
)

func newMiniredisSource(t *testing.T) (*RedisSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSource(database.NewRedisFromClient(rdb), "", logger.NewTestLogger(t)), mr
}

func TestRedisSource_Load(t *testing.T) {
	src, mr := newMiniredisSource(t)

	require.NoError(t, mr.Set("session:s-1:results", `{"F2":{"answer":{"a":"1"}},"F1":{"b":2}}`))
	require.NoError(t, mr.Set("session:s-1:selected_files", `[{"id":"F1","name":"one.pdf"}]`))
	require.NoError(t, mr.Set("session:s-1:file_config", `{"F1":{"extraction_method":"structured","template_id":"enterprise_9_inv"}}`))

	sess, err := src.Load(context.Background(), "s-1")
	require.NoError(t, err)

	assert.Equal(t, "s-1", sess.ID)
	assert.Equal(t, []string{"F2", "F1"}, sess.Results.IDs())
	assert.Equal(t, "one.pdf", sess.SelectedFiles[0].Name)
	assert.Equal(t, "enterprise_9_inv", sess.FileConfig("F1").TemplateID)
	assert.Nil(t, sess.MetadataConfig)
	assert.Equal(t, "redis", src.Name())
}

func TestRedisSource_Load_NotFound(t *testing.T) {
	src, _ := newMiniredisSource(t)

	_, err := src.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, &commonerrors.StandardError{Code: commonerrors.ErrCodeResourceNotFound})
}

func TestRedisSource_Load_BadJSON(t *testing.T) {
	src, mr := newMiniredisSource(t)
	require.NoError(t, mr.Set("session:s-2:results", `{not json`))

	_, err := src.Load(context.Background(), "s-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, &commonerrors.StandardError{Code: commonerrors.ErrCodeSessionLoadFailed})
}

func TestRedisSource_Load_RedisError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectMGet(
		"custom:s-3:results",
		"custom:s-3:selected_files",
		"custom:s-3:file_config",
		"custom:s-3:metadata_config",
	).SetErr(errors.New("connection refused"))

	src := NewRedisSource(database.NewRedisFromClient(rdb), "custom", nil)

	_, err := src.Load(context.Background(), "s-3")
	require.Error(t, err)

	stdErr := commonerrors.AsStandardError(err)
	assert.Equal(t, commonerrors.ErrCodeSessionLoadFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Contains(t, stdErr.Details, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}
