package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
box:
  developer_token: dev-token
database:
  redis:
    address: localhost:6379
workers:
  apply-metadata:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.box.com/2.0", cfg.Box.BaseURL)
	assert.Equal(t, 30000, cfg.Box.Timeout)
	assert.Equal(t, DefaultMetadataTimeout, cfg.Metadata.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Metadata.TimeoutDuration())
	assert.Equal(t, "session", cfg.Database.Redis.KeyPrefix)
	assert.False(t, cfg.Database.Postgres.Enabled())
	assert.Equal(t, ":9090", cfg.Metrics.Address)
	assert.Equal(t, "info", cfg.Logging.Level)

	worker := cfg.Workers["apply-metadata"]
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 300000, worker.Timeout)
	assert.Equal(t, 3, worker.MaxRetries)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDRESS", "redis:6379")
	t.Setenv("BOX_CLIENT_SECRET", "from-env")

	path := writeConfig(t, `
box:
  client_id: cid
  subject_id: "42"
database:
  redis:
    address: ${TEST_REDIS_ADDRESS}
  postgres:
    host: ${TEST_UNSET_DB_HOST}
    database: extraction
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "redis:6379", cfg.Database.Redis.Address)
	assert.Equal(t, "from-env", cfg.Box.ClientSecret)
	assert.Empty(t, cfg.Database.Postgres.Host)
	assert.False(t, cfg.Database.Postgres.Enabled())
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "no box credentials",
			body: `
database:
  redis:
    address: localhost:6379
`,
			wantErr: "box.developer_token or box.client_id/box.client_secret is required",
		},
		{
			name: "client credentials without subject",
			body: `
box:
  client_id: cid
  client_secret: secret
database:
  redis:
    address: localhost:6379
`,
			wantErr: "box.subject_id is required",
		},
		{
			name: "metadata timeout out of range",
			body: `
box:
  developer_token: t
database:
  redis:
    address: localhost:6379
metadata:
  timeout: 5
`,
			wantErr: "metadata.timeout must be between 10 and 300 seconds",
		},
		{
			name: "no session store",
			body: `
box:
  developer_token: t
`,
			wantErr: "database.redis.address or database.postgres is required",
		},
		{
			name: "sns without topic",
			body: `
box:
  developer_token: t
database:
  redis:
    address: localhost:6379
notifications:
  sns:
    enabled: true
`,
			wantErr: "notifications.sns.topic_arn is required",
		},
		{
			name: "ses without recipients",
			body: `
box:
  developer_token: t
database:
  redis:
    address: localhost:6379
notifications:
  ses:
    enabled: true
    from_email: ops@example.com
`,
			wantErr: "notifications.ses.from_email and notifications.ses.to are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"BOX_CLIENT_ID", "BOX_CLIENT_SECRET", "BOX_SUBJECT_ID", "BOX_DEVELOPER_TOKEN", "SUMMARY_SNS_TOPIC_ARN"} {
				t.Setenv(key, "")
			}

			_, err := LoadFromFile(writeConfig(t, tt.body))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"apply-metadata": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "apply-metadata").MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "apply-metadata"))

	fallback := GetWorkerConfig(cfg, "unknown")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, 300000, fallback.Timeout)
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
}
