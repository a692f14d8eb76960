package camunda

import (
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"box-metadata-workers/internal/common/logger"
)

// WorkerOptions describes one job worker subscription.
type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	// FetchVariables limits the variables activated with each job. Empty
	// fetches the whole process scope.
	FetchVariables []string
}

// OpenWorker subscribes handler to opts.TaskType.
func (c *Client) OpenWorker(opts WorkerOptions, handler worker.JobHandler, log logger.Logger) (worker.JobWorker, error) {
	if c == nil {
		return nil, fmt.Errorf("zeebe client not configured")
	}
	if opts.TaskType == "" {
		return nil, fmt.Errorf("task type is required")
	}

	step := c.client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(handler).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Name(fmt.Sprintf("%s-worker", opts.TaskType))
	if len(opts.FetchVariables) > 0 {
		step = step.FetchVariables(opts.FetchVariables...)
	}
	jobWorker := step.Open()

	if log != nil {
		log.Info("Job worker opened", map[string]interface{}{
			"taskType":       opts.TaskType,
			"maxJobsActive":  opts.MaxJobsActive,
			"timeout":        opts.Timeout.String(),
			"fetchVariables": opts.FetchVariables,
		})
	}
	return jobWorker, nil
}
