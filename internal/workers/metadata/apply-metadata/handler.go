package applymetadata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"box-metadata-workers/internal/common/camunda"
	"box-metadata-workers/internal/common/config"
	"box-metadata-workers/internal/common/errors"
	"box-metadata-workers/internal/common/logger"
	"box-metadata-workers/internal/common/metrics"
	"box-metadata-workers/internal/common/observability"
	"box-metadata-workers/internal/common/validation"
	"box-metadata-workers/internal/orchestrator"
	"box-metadata-workers/internal/session"
	"box-metadata-workers/pkg/registry"
)

const (
	TaskType   = "metadata.apply"
	workerName = "apply-metadata"
)

type executor interface {
	Execute(ctx context.Context, input *Input) (*Output, error)
	TestConnection(ctx context.Context) error
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	camunda      *camunda.Client
	service      executor
	errorHandler *errors.ErrorHandler
	jobWorker    worker.JobWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Logger       logger.Logger

	BoxClient     orchestrator.Client
	Source        session.Source
	Notifier      Notifier
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", workerName, err)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	handler := &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		camunda:      opts.Camunda,
		errorHandler: errors.NewErrorHandler(loggerInstance),
	}

	handler.service = NewService(ServiceDependencies{
		Logger:        loggerInstance,
		BoxClient:     opts.BoxClient,
		Source:        opts.Source,
		Notifier:      opts.Notifier,
		Observability: opts.Observability,
	}, handler.config)

	return handler, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing metadata apply request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	if !h.config.Enabled {
		h.logger.Info("Worker disabled by configuration", map[string]interface{}{
			"worker": TaskType,
		})
		h.completeJob(ctx, client, job, &Output{
			MetadataApplied: false,
			Message:         "Metadata application disabled",
			Failures:        []FailureOutput{},
		})
		return
	}

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// parseInput validates the variables as a map, then decodes the raw JSON so
// the order of the results object is kept.
func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingError(err)
	}

	validationResult := validation.ValidateInput(variables, GetInputSchema())
	if !validationResult.Valid {
		return nil, errors.NewValidationError(
			fmt.Sprintf("Validation errors: %v", validationResult.GetErrorMessages()))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInputParsingError(err)
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	_, err = h.camunda.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return request.Send(ctx)
	}, "complete-job")
	if err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	h.logger.Info("Successfully completed metadata apply", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"runId":     output.RunID,
		"succeeded": output.SucceededCount,
		"failed":    output.FailedCount,
		"worker":    TaskType,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errors.CodeOf(err)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", map[string]interface{}{
			"worker": TaskType,
		})
		return nil
	}

	jobWorker, err := h.camunda.OpenWorker(camunda.WorkerOptions{
		TaskType:       TaskType,
		MaxJobsActive:  h.config.MaxJobsActive,
		Timeout:        h.config.Timeout,
		FetchVariables: InputVariables,
	}, h.Handle, h.logger)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", TaskType, err)
	}
	h.jobWorker = jobWorker

	return nil
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.logger.Info("Shutting down worker gracefully", map[string]interface{}{
			"worker": TaskType,
		})
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *Handler) HealthCheck(ctx context.Context) error {
	if err := h.camunda.HealthCheck(ctx); err != nil {
		return fmt.Errorf("camunda health check failed: %w", err)
	}

	if err := h.service.TestConnection(ctx); err != nil {
		return fmt.Errorf("box health check failed: %w", err)
	}

	h.logger.Info("Health check passed", map[string]interface{}{
		"worker": TaskType,
	})

	return nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

// Execute runs one metadata pass for input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()

	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[workerName]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = time.Duration(workerCfg.Timeout) * time.Millisecond
			}
		}

		if appConfig.Metadata.Timeout > 0 {
			cfg.FileTimeout = appConfig.Metadata.TimeoutDuration()
		}
		cfg.NormalizeKeys = appConfig.Metadata.NormalizeKeys
		cfg.FilterPlaceholders = appConfig.Metadata.FilterPlaceholders
	}

	return cfg
}

// Activity describes the worker for the activity registry.
func (h *Handler) Activity() registry.Activity {
	input, _ := registry.SchemaMap(GetInputSchema())
	output, _ := registry.SchemaMap(GetOutputSchema())
	return registry.Activity{
		ID:                   workerName,
		DisplayName:          "Apply Box Metadata",
		Description:          "Applies extracted metadata to Box files as template or properties instances",
		Category:             "metadata",
		Version:              "1.0.0",
		TaskType:             TaskType,
		ImplementationStatus: "completed",
		Enabled:              h.config.Enabled,
		InputSchema:          input,
		OutputSchema:         output,
		ErrorCodes: []string{
			string(errors.ErrCodeNoClient),
			string(errors.ErrCodeNoResults),
			string(errors.ErrCodeNoFiles),
			string(errors.ErrCodeAuthentication),
			string(errors.ErrCodeSessionLoadFailed),
			string(errors.ErrCodeResourceNotFound),
			string(errors.ErrCodeInputParsingFailed),
			string(errors.ErrCodeValidationFailed),
		},
		Timeout: h.config.Timeout.String(),
		Retries: errors.GetRetryCount(errors.ErrCodeSessionLoadFailed),
		Tags:    []string{"box", "metadata"},
	}
}
