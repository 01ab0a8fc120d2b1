package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func Test_Load_WhenMinimalFile_ShouldApplyDefaults(t *testing.T) {
	file := writeConfig(t, "db:\n  connection_string: test.db\n")

	cfg, err := Load(file)

	require.NoError(t, err)
	assert.Equal(t, DriverSqlite, cfg.DB.Driver)
	assert.Equal(t, 72*time.Hour, cfg.Lifecycle.ExpiryHorizon)
	assert.Equal(t, 1, cfg.Lifecycle.SubmitMaxAttempts)
	assert.Equal(t, 20, cfg.Dispatch.MaxBatchSize)
	assert.True(t, cfg.Mail.DryRun())
	assert.False(t, cfg.Redis.Enabled())
}

func Test_Load_WhenAutoThresholdBelowMinScore_ShouldFail(t *testing.T) {
	file := writeConfig(t, "matching:\n  min_score: 0.6\n  auto_apply_threshold: 0.4\n")

	_, err := Load(file)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "auto_apply_threshold")
}

func Test_Load_WhenProviderKeyMissing_ShouldFail(t *testing.T) {
	t.Setenv("GEMINI_KEY", "")
	file := writeConfig(t, "ai:\n  providers: [gemini]\n")

	_, err := Load(file)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini_key")
}

func Test_Load_WhenSecretInEnvironment_ShouldOverrideFile(t *testing.T) {
	t.Setenv("CLAUDE_KEY", "env-key")
	file := writeConfig(t, "ai:\n  providers: [claude]\n  claude_key: file-key\n")

	cfg, err := Load(file)

	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.AI.ClaudeKey)
}

func Test_Load_WhenUnknownDriver_ShouldFail(t *testing.T) {
	file := writeConfig(t, "db:\n  driver: mysql\n")

	_, err := Load(file)

	assert.Error(t, err)
}

func Test_Path_WhenEnvSet_ShouldUseIt(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/autoapply.yaml")
	assert.Equal(t, "/etc/autoapply.yaml", Path())
}
