package applymetadata

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"box-metadata-workers/internal/common/config"
	"box-metadata-workers/internal/common/errors"
	"box-metadata-workers/internal/common/logger"
	"box-metadata-workers/internal/common/validation"
)

// ==========================
// Mock Service Implementation
// ==========================

type MockService struct {
	mock.Mock
}

func (m *MockService) Execute(ctx context.Context, input *Input) (*Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Output), args.Error(1)
}

func (m *MockService) TestConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ==========================
// Mock Job Helper
// ==========================

func createMockJob(key int64, variables string) entities.Job {
	activatedJob := &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "test-process",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_ApplyMetadata",
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Deadline:                 0,
		Variables:                variables,
	}

	return entities.Job{ActivatedJob: activatedJob}
}

func createJobFromMap(t *testing.T, key int64, variables map[string]interface{}) entities.Job {
	t.Helper()
	raw, err := json.Marshal(variables)
	require.NoError(t, err)
	return createMockJob(key, string(raw))
}

func createValidConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       5 * time.Minute,
		FileTimeout:   60 * time.Second,
	}
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid configuration",
			opts: HandlerOptions{
				CustomConfig: createValidConfig(),
				Logger:       logger.NewTestLogger(t),
			},
		},
		{
			name: "invalid timeout",
			opts: HandlerOptions{
				CustomConfig: &Config{Enabled: true, MaxJobsActive: 5, Timeout: -1, FileTimeout: time.Minute},
			},
			wantErr: true,
			errMsg:  "timeout must be positive",
		},
		{
			name: "invalid max jobs active",
			opts: HandlerOptions{
				CustomConfig: &Config{Enabled: true, Timeout: time.Minute, FileTimeout: time.Minute},
			},
			wantErr: true,
			errMsg:  "max_jobs_active must be positive",
		},
		{
			name: "file timeout out of range",
			opts: HandlerOptions{
				CustomConfig: &Config{Enabled: true, MaxJobsActive: 1, Timeout: time.Minute, FileTimeout: 5 * time.Second},
			},
			wantErr: true,
			errMsg:  "file_timeout must be between 10s and 5m0s",
		},
		{
			name: "default logger created when not provided",
			opts: HandlerOptions{
				CustomConfig: createValidConfig(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := NewHandler(tt.opts)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, handler)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, handler.config)
			assert.NotNil(t, handler.logger)
			assert.NotNil(t, handler.service)
			assert.NotNil(t, handler.errorHandler)
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	appConfig := &config.Config{
		Workers: map[string]config.WorkerConfig{
			"apply-metadata": {Enabled: false, MaxJobsActive: 2, Timeout: 120000},
		},
		Metadata: config.MetadataConfig{Timeout: 90, NormalizeKeys: true, FilterPlaceholders: true},
	}

	cfg := createConfigFromAppConfig(appConfig, nil)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2, cfg.MaxJobsActive)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, 90*time.Second, cfg.FileTimeout)
	assert.True(t, cfg.NormalizeKeys)
	assert.True(t, cfg.FilterPlaceholders)

	assert.Equal(t, DefaultConfig(), createConfigFromAppConfig(nil, nil))

	custom := createValidConfig()
	assert.Same(t, custom, createConfigFromAppConfig(appConfig, custom))
}

// ==========================
// Input Parsing Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	handler := &Handler{
		config: createValidConfig(),
		logger: logger.NewTestLogger(t),
	}

	tests := []struct {
		name      string
		variables string
		wantErr   bool
		errCode   errors.ErrorCode
		validate  func(*testing.T, *Input)
	}{
		{
			name:      "session id only",
			variables: `{"sessionId":"s-1"}`,
			validate: func(t *testing.T, input *Input) {
				assert.Equal(t, "s-1", input.SessionID)
				assert.Nil(t, input.Results)
				assert.Nil(t, input.Options)
			},
		},
		{
			name: "inline session keeps result order",
			variables: `{
				"results": {"F9": {"answer": "{}"}, "F1": {"results": {"a": "b"}}, "F5": {}},
				"selectedFiles": [{"id": 123, "name": "numeric.pdf"}, {"id": "F1"}],
				"fileConfigs": {"F1": {"extraction_method": "freeform"}},
				"metadataConfig": {"use_template": true, "template_id": "enterprise_1_invoice"},
				"options": {"timeoutSeconds": 30, "normalizeKeys": true}
			}`,
			validate: func(t *testing.T, input *Input) {
				require.NotNil(t, input.Results)
				assert.Equal(t, []string{"F9", "F1", "F5"}, input.Results.IDs())
				require.Len(t, input.SelectedFiles, 2)
				assert.Equal(t, "123", input.SelectedFiles[0].ID)
				assert.Equal(t, "freeform", input.FileConfigs["F1"].ExtractionMethod)
				assert.True(t, input.MetadataConfig.UseTemplate)
				require.NotNil(t, input.Options)
				assert.Equal(t, 30.0, *input.Options.TimeoutSeconds)
				assert.True(t, *input.Options.NormalizeKeys)
				assert.Nil(t, input.Options.FilterPlaceholders)
			},
		},
		{
			name:      "not json",
			variables: `not json`,
			wantErr:   true,
			errCode:   errors.ErrCodeInputParsingFailed,
		},
		{
			name:      "empty session id",
			variables: `{"sessionId":""}`,
			wantErr:   true,
			errCode:   errors.ErrCodeValidationFailed,
		},
		{
			name:      "results not an object",
			variables: `{"results":["F1"]}`,
			wantErr:   true,
			errCode:   errors.ErrCodeValidationFailed,
		},
		{
			name:      "selected file without id",
			variables: `{"selectedFiles":[{"name":"a.pdf"}]}`,
			wantErr:   true,
			errCode:   errors.ErrCodeValidationFailed,
		},
		{
			name:      "unknown extraction method",
			variables: `{"fileConfigs":{"F1":{"extraction_method":"magic"}}}`,
			wantErr:   true,
			errCode:   errors.ErrCodeValidationFailed,
		},
		{
			name:      "timeout below minimum",
			variables: `{"sessionId":"s-1","options":{"timeoutSeconds":5}}`,
			wantErr:   true,
			errCode:   errors.ErrCodeValidationFailed,
		},
		{
			name:      "unexpected variable",
			variables: `{"sessionId":"s-1","other":1}`,
			wantErr:   true,
			errCode:   errors.ErrCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := handler.parseInput(createMockJob(12345, tt.variables))

			if tt.wantErr {
				require.Error(t, err)
				stdErr, ok := err.(*errors.StandardError)
				require.True(t, ok, "error should be StandardError")
				assert.Equal(t, tt.errCode, stdErr.Code)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, input)
			if tt.validate != nil {
				tt.validate(t, input)
			}
		})
	}
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute_DelegatesToService(t *testing.T) {
	svc := new(MockService)
	handler := &Handler{
		config:  createValidConfig(),
		logger:  logger.NewTestLogger(t),
		service: svc,
	}

	job := createJobFromMap(t, 1, map[string]interface{}{"sessionId": "s-1"})
	input, err := handler.parseInput(job)
	require.NoError(t, err)

	want := &Output{MetadataApplied: true, TotalFiles: 1, SucceededCount: 1, RunID: "r-1", Failures: []FailureOutput{}}
	svc.On("Execute", mock.Anything, input).Return(want, nil)

	got, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, want, got)
	svc.AssertExpectations(t)
}

func TestHandler_HealthCheck_RequiresCamunda(t *testing.T) {
	svc := new(MockService)
	handler := &Handler{
		config:  createValidConfig(),
		logger:  logger.NewTestLogger(t),
		service: svc,
	}

	err := handler.HealthCheck(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "camunda health check failed")
	svc.AssertNotCalled(t, "TestConnection", mock.Anything)
}

func TestHandler_Register_Disabled(t *testing.T) {
	cfg := createValidConfig()
	cfg.Enabled = false
	handler, err := NewHandler(HandlerOptions{CustomConfig: cfg, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	assert.NoError(t, handler.Register())
	assert.False(t, handler.IsEnabled())
	assert.Equal(t, TaskType, handler.GetTaskType())
	assert.Same(t, cfg, handler.GetConfig())
	handler.Close()
}

func TestHandler_Register_WithoutCamunda(t *testing.T) {
	handler, err := NewHandler(HandlerOptions{CustomConfig: createValidConfig(), Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	assert.Error(t, handler.Register())
}

// ==========================
// Schema Tests
// ==========================

func TestOutputSchema_AcceptsServiceOutput(t *testing.T) {
	out := &Output{
		MetadataApplied: false,
		Message:         "Successfully applied metadata to 1 of 2 files.",
		TotalFiles:      2,
		SucceededCount:  1,
		FailedCount:     1,
		RunID:           "6a1f0c1e-7d3b-4c52-9d1e-2f4a8b9c0d11",
		Failures:        []FailureOutput{{FileID: "F2", FileName: "b.pdf", Error: "Error creating metadata: boom"}},
	}
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &vars))

	result := validation.ValidateInput(vars, GetOutputSchema())

	assert.True(t, result.Valid, result.GetErrorMessages())
}

func TestInputVariables_MatchSchema(t *testing.T) {
	schema := GetInputSchema()
	assert.Len(t, InputVariables, len(schema.Properties))
	for _, name := range InputVariables {
		assert.Contains(t, schema.Properties, name)
	}
}

func TestHandler_Activity(t *testing.T) {
	handler, err := NewHandler(HandlerOptions{CustomConfig: createValidConfig(), Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	activity := handler.Activity()

	assert.Equal(t, TaskType, activity.TaskType)
	assert.True(t, activity.Enabled)
	assert.Equal(t, "5m0s", activity.Timeout)
	assert.Equal(t, "object", activity.InputSchema["type"])
	assert.Contains(t, activity.ErrorCodes, "NO_RESULTS")
}
