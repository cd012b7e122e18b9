package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_LoadsFromFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_http":                  "www.example:9000",
		"database_dsn":                        "auth.db",
		"redis_addr":                          "redis:6379",
		"keys_file":                           "/var/lib/basketlog/keys.json",
		"access_token_validity_duration":      "15m",
		"refresh_token_validity_duration":     "168h",
		"verification_code_validity_duration": "10m",
		"smtp_host":                           "mail.example.com",
		"smtp_port":                           465,
		"smtp_sender":                         "noreply@example.com",
		"smtp_password":                       "secret",
		"service_base_url":                    "https://auth.example.com",
	})

	os.Args = []string{"testbin", "-config", path}

	cfg := &Config{}
	parseJson(cfg)

	assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
	assert.Equal(t, "auth.db", cfg.DatabaseDSN)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "/var/lib/basketlog/keys.json", cfg.KeysFile)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, 10*time.Minute, cfg.VerificationCodeValidityDuration)
	assert.Equal(t, "mail.example.com", cfg.SMTPHost)
	assert.Equal(t, 465, cfg.SMTPPort)
	assert.Equal(t, "noreply@example.com", cfg.SMTPSender)
	assert.Equal(t, "secret", cfg.SMTPPassword)
	assert.Equal(t, "https://auth.example.com", cfg.ServiceBaseURL)
}

func Test_parseJson_NoFlagDoesNothing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
}

func Test_parseJson_InvalidJSONPanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	os.Args = []string{"testbin", "-config", path}

	require.Panics(t, func() { parseJson(&Config{}) })
}
