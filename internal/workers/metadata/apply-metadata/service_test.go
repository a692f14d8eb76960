package applymetadata

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"box-metadata-workers/internal/common/box"
	"box-metadata-workers/internal/common/database"
	"box-metadata-workers/internal/common/errors"
	commonhttp "box-metadata-workers/internal/common/http"
	"box-metadata-workers/internal/common/logger"
	"box-metadata-workers/internal/orchestrator"
	"box-metadata-workers/internal/session"
)

// ==========================
// Fake Box API
// ==========================

// fakeBox accepts metadata for every file except F3, and reports a conflict
// for F2 so the update path is taken.
type fakeBox struct {
	mu      sync.Mutex
	creates []string
	updates map[string][]box.PatchOperation
}

func (f *fakeBox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.URL.Path == "/users/me":
		_, _ = w.Write([]byte(`{"id":"1","type":"user","name":"Service Account"}`))

	case len(parts) == 2 && parts[0] == "files":
		_, _ = w.Write([]byte(`{"id":"` + parts[1] + `","type":"file","name":"` + parts[1] + `.pdf"}`))

	case len(parts) == 5 && parts[2] == "metadata" && r.Method == http.MethodPost:
		fileID := parts[1]
		f.creates = append(f.creates, fileID)
		switch fileID {
		case "F2":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"type":"error","status":409,"code":"tuple_already_exists","message":"Already exists"}`))
		case "F3":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"type":"error","status":400,"code":"bad_request","message":"invalid value for field"}`))
		default:
			body := map[string]interface{}{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(body)
		}

	case len(parts) == 5 && parts[2] == "metadata" && r.Method == http.MethodPut:
		var ops []box.PatchOperation
		_ = json.NewDecoder(r.Body).Decode(&ops)
		f.updates[parts[1]] = ops
		instance := map[string]interface{}{}
		for _, op := range ops {
			instance[strings.TrimPrefix(op.Path, "/")] = op.Value
		}
		_ = json.NewEncoder(w).Encode(instance)

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type":"error","status":404,"code":"not_found","message":"Not Found"}`))
	}
}

func newFakeBoxClient(t *testing.T) (*box.Client, *fakeBox) {
	t.Helper()
	fake := &fakeBox{updates: map[string][]box.PatchOperation{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return box.NewClient(server.URL, commonhttp.Wrap(server.Client(), 5*time.Second)), fake
}

// ==========================
// Mock Notifier
// ==========================

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, sessionID string, report *orchestrator.Report) error {
	args := m.Called(ctx, sessionID, report)
	return args.Error(0)
}

func newRedisSource(t *testing.T) (*session.RedisSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return session.NewRedisSource(database.NewRedisFromClient(rdb), "", logger.NewTestLogger(t)), mr
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.FileTimeout = 10 * time.Second
	return cfg
}

// ==========================
// Tests
// ==========================

func TestService_Execute_FromSessionSource(t *testing.T) {
	boxClient, fake := newFakeBoxClient(t)
	source, mr := newRedisSource(t)

	require.NoError(t, mr.Set("session:s-1:results",
		`{"F1":{"answer":"{\"Vendor\":\"Acme\",\"value\":\"100\"}"},"F2":{"results":{"vendor":"Globex"}},"F3":{"results":{"amount":"x"}}}`))
	require.NoError(t, mr.Set("session:s-1:file_config",
		`{"F1":{"extraction_method":"freeform"},"F2":{"extraction_method":"freeform"},"F3":{"extraction_method":"freeform"}}`))

	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, "s-1", mock.MatchedBy(func(r *orchestrator.Report) bool {
		return r.Total == 3 && r.SucceededCount() == 2
	})).Return(nil)

	svc := NewService(ServiceDependencies{
		Logger:    logger.NewTestLogger(t),
		BoxClient: boxClient,
		Source:    source,
		Notifier:  notifier,
	}, testConfig())

	out, err := svc.Execute(context.Background(), &Input{SessionID: "s-1"})
	require.NoError(t, err)

	assert.False(t, out.MetadataApplied)
	assert.Equal(t, 3, out.TotalFiles)
	assert.Equal(t, 2, out.SucceededCount)
	assert.Equal(t, 1, out.FailedCount)
	assert.Equal(t, "Successfully applied metadata to 2 of 3 files.", out.Message)
	assert.NotEmpty(t, out.RunID)

	require.Len(t, out.Failures, 1)
	assert.Equal(t, "F3", out.Failures[0].FileID)
	assert.Equal(t, "F3.pdf", out.Failures[0].FileName)
	assert.True(t, strings.HasPrefix(out.Failures[0].Error, "Error creating metadata: "))
	assert.Contains(t, out.Failures[0].Diagnostics, "Metadata application failed")

	assert.Equal(t, []string{"F1", "F2", "F3"}, fake.creates)
	assert.Equal(t, []box.PatchOperation{{Op: "replace", Path: "/vendor", Value: "Globex"}}, fake.updates["F2"])
	notifier.AssertExpectations(t)
}

func TestService_Execute_InlineSessionWithOptions(t *testing.T) {
	boxClient, fake := newFakeBoxClient(t)

	results := session.NewResultSet()
	results.Set("F1", map[string]interface{}{
		"results": map[string]interface{}{
			"Invoice Number": "INV-7",
			"Notes":          "[insert notes here]",
		},
	})

	normalize := true
	filter := true
	svc := NewService(ServiceDependencies{
		Logger:    logger.NewTestLogger(t),
		BoxClient: boxClient,
	}, testConfig())

	out, err := svc.Execute(context.Background(), &Input{
		Results:        results,
		FileConfigs:    map[string]session.FileConfig{"F1": {ExtractionMethod: session.ExtractionFreeform}},
		MetadataConfig: &session.MetadataConfig{},
		Options:        &RunOptions{NormalizeKeys: &normalize, FilterPlaceholders: &filter},
	})
	require.NoError(t, err)

	assert.True(t, out.MetadataApplied)
	assert.Equal(t, 1, out.SucceededCount)
	assert.Empty(t, out.Failures)
	assert.Equal(t, []string{"F1"}, fake.creates)
}

func TestService_Execute_Errors(t *testing.T) {
	boxClient, _ := newFakeBoxClient(t)

	tests := []struct {
		name     string
		deps     ServiceDependencies
		input    *Input
		wantCode errors.ErrorCode
	}{
		{
			name:     "session id without source",
			deps:     ServiceDependencies{BoxClient: boxClient},
			input:    &Input{SessionID: "s-1"},
			wantCode: errors.ErrCodeValidationFailed,
		},
		{
			name:     "no results",
			deps:     ServiceDependencies{BoxClient: boxClient},
			input:    &Input{},
			wantCode: errors.ErrCodeNoResults,
		},
		{
			name: "no client",
			deps: ServiceDependencies{},
			input: func() *Input {
				results := session.NewResultSet()
				results.Set("F1", map[string]interface{}{"a": "b"})
				return &Input{Results: results}
			}(),
			wantCode: errors.ErrCodeNoClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.deps.Logger = logger.NewTestLogger(t)
			svc := NewService(tt.deps, testConfig())

			out, err := svc.Execute(context.Background(), tt.input)

			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, string(tt.wantCode), errors.CodeOf(err))
		})
	}
}

func TestService_Execute_SessionNotFound(t *testing.T) {
	boxClient, _ := newFakeBoxClient(t)
	source, _ := newRedisSource(t)

	svc := NewService(ServiceDependencies{
		Logger:    logger.NewTestLogger(t),
		BoxClient: boxClient,
		Source:    source,
	}, testConfig())

	_, err := svc.Execute(context.Background(), &Input{SessionID: "missing"})

	require.Error(t, err)
	assert.Equal(t, string(errors.ErrCodeResourceNotFound), errors.CodeOf(err))
}

func TestService_NotificationFailureDoesNotFailJob(t *testing.T) {
	boxClient, _ := newFakeBoxClient(t)

	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, "", mock.Anything).Return(stderrors.New("sns down"))

	results := session.NewResultSet()
	results.Set("F1", map[string]interface{}{"vendor": "Acme"})

	svc := NewService(ServiceDependencies{
		Logger:    logger.NewTestLogger(t),
		BoxClient: boxClient,
		Notifier:  notifier,
	}, testConfig())

	out, err := svc.Execute(context.Background(), &Input{Results: results})

	require.NoError(t, err)
	assert.True(t, out.MetadataApplied)
	notifier.AssertExpectations(t)
}

func TestService_RunOptions(t *testing.T) {
	cfg := testConfig()
	cfg.NormalizeKeys = true
	svc := NewService(ServiceDependencies{}, cfg)

	defaults := svc.runOptions(nil)
	assert.Equal(t, 10*time.Second, defaults.Timeout)
	assert.True(t, defaults.NormalizeKeys)
	assert.False(t, defaults.FilterPlaceholders)
	assert.NotNil(t, defaults.Progress)

	timeout := 90.0
	off := false
	on := true
	overridden := svc.runOptions(&RunOptions{TimeoutSeconds: &timeout, NormalizeKeys: &off, FilterPlaceholders: &on})
	assert.Equal(t, 90*time.Second, overridden.Timeout)
	assert.False(t, overridden.NormalizeKeys)
	assert.True(t, overridden.FilterPlaceholders)
}

func TestService_TestConnection(t *testing.T) {
	boxClient, _ := newFakeBoxClient(t)

	assert.NoError(t, NewService(ServiceDependencies{BoxClient: boxClient}, testConfig()).TestConnection(context.Background()))
	assert.Error(t, NewService(ServiceDependencies{}, testConfig()).TestConnection(context.Background()))
}
