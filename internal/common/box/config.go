package box

import (
	"context"
	"time"

	"box-metadata-workers/internal/common/auth"
	"box-metadata-workers/internal/common/config"
	commonhttp "box-metadata-workers/internal/common/http"
)

// NewClientFromConfig authenticates with the box section of the app config.
func NewClientFromConfig(ctx context.Context, cfg config.BoxConfig) (*Client, error) {
	httpClient, err := auth.NewBoxHTTPClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Millisecond
	}
	return NewClient(cfg.BaseURL, commonhttp.Wrap(httpClient, timeout)), nil
}
