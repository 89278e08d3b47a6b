package secrets

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyVaultSecrets_Disabled(t *testing.T) {
	result, err := ApplyVaultSecrets(context.Background(), nil, VaultConfig{Enabled: false})

	require.NoError(t, err)
	assert.False(t, result.Enabled)
	assert.Empty(t, result.Loaded)
}

func TestApplyVaultSecrets_Incomplete(t *testing.T) {
	_, err := ApplyVaultSecrets(context.Background(), nil, VaultConfig{Enabled: true, Addr: "http://vault:8200"})

	assert.Error(t, err)
}

func TestApplyVaultSecrets_ExportsManagedKeys(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "http://vault:8200/v1/secret/data/dontkillit/backend",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "s.token", req.Header.Get("X-Vault-Token"))
			return httpmock.NewStringResponse(200, `{"data":{"data":{
				"PERENUAL_API_KEY":"sk-live",
				"DB_PASSWORD":"from-vault",
				"UNRELATED":"ignored"
			}}}`), nil
		})

	t.Setenv("PERENUAL_API_KEY", "")
	t.Setenv("DB_PASSWORD", "already-set")
	t.Setenv("UNRELATED", "")

	cfg := VaultConfig{
		Enabled:   true,
		Addr:      "http://vault:8200/",
		Token:     "s.token",
		Mount:     "secret",
		Path:      "/dontkillit/backend",
		KVVersion: 2,
	}
	result, err := ApplyVaultSecrets(context.Background(), client, cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"PERENUAL_API_KEY"}, result.Loaded)
	assert.Equal(t, []string{"DB_PASSWORD"}, result.Skipped)
	assert.Equal(t, "sk-live", os.Getenv("PERENUAL_API_KEY"))
	assert.Equal(t, "already-set", os.Getenv("DB_PASSWORD"))
	assert.Equal(t, "", os.Getenv("UNRELATED"))
}

func TestApplyVaultSecrets_UpstreamError(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "http://vault:8200/v1/kv/app",
		httpmock.NewStringResponder(403, `{"errors":["permission denied"]}`))

	cfg := VaultConfig{Enabled: true, Addr: "http://vault:8200", Token: "t", Mount: "kv", Path: "app", KVVersion: 1}
	_, err := ApplyVaultSecrets(context.Background(), client, cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestLoadVaultConfigFromEnv(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "TRUE")
	t.Setenv("VAULT_KV_VERSION", "1")
	t.Setenv("VAULT_TIMEOUT_MS", "250")
	t.Setenv("VAULT_PATH", "from-env")

	cfg := LoadVaultConfigFromEnv("override")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1, cfg.KVVersion)
	assert.Equal(t, "override", cfg.Path)
	assert.Equal(t, "secret", cfg.Mount)
	assert.Equal(t, int64(250), cfg.Timeout.Milliseconds())
}
