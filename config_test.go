package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dooropener/credential"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dooropener.cfg")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(apiKeyEnv, "")
	path := writeConfig(t, `
client_id: frontdoor
authority:
  url: https://auth.example/api/door
  timeout_sec: 3
reader:
  type: pipe
  path: /tmp/tags
door:
  type: lx16a
  device: /dev/ttyUSB0
  servo_id: 1
  pressed_position: 800
  released_position: 200
auth:
  settle_ms: 4000
remote:
  url: wss://control.example/door
  api_key: k3y
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "frontdoor", cfg.ClientID)
	assert.Equal(t, "https://auth.example/api/door", cfg.Authority.URL)
	assert.Equal(t, 3, cfg.Authority.TimeoutSec)
	assert.Equal(t, "pipe", cfg.Reader.Type)
	assert.Equal(t, "lx16a", cfg.Door.Type)
	assert.EqualValues(t, 800, cfg.Door.Pressed)
	assert.Equal(t, 4000, cfg.Auth.SettleMS)
	assert.Equal(t, "k3y", cfg.Remote.APIKey)

	assert.Equal(t, 120, cfg.PingSecs)
	assert.Equal(t, credential.DefaultLayout, cfg.Credential)
	assert.Equal(t, credential.DefaultLayout, cfg.Auth.Layout)
}

func TestLoadConfigAPIKeyFromEnv(t *testing.T) {
	t.Setenv(apiKeyEnv, "from-env")
	cfg, err := loadConfig(writeConfig(t, "client_id: d\nremote:\n  url: wss://x\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Remote.APIKey)
}

func TestLoadConfigCustomLayout(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "client_id: d\ncredential:\n  records: 2\n  id: 0\n  secret: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, credential.Layout{Records: 2, ID: 0, Secret: 1}, cfg.Auth.Layout)
}

func TestLoadConfigLayoutOnlyFromCredential(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `client_id: d
auth:
  layout:
    records: 5
    id: 4
    secret: 3
`))
	require.NoError(t, err)
	assert.Equal(t, credential.DefaultLayout, cfg.Auth.Layout)
	assert.Equal(t, cfg.Credential, cfg.Auth.Layout)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv(apiKeyEnv, "")
	cases := map[string]string{
		"missing client id":   "reader:\n  type: none\n",
		"bad layout":          "client_id: d\ncredential:\n  records: 2\n  id: 1\n  secret: 2\n",
		"remote without key":  "client_id: d\nremote:\n  url: wss://x\n",
		"secret without tool": "client_id: d\nopen_secret: c2VjcmV0\n",
		"not yaml":            "client_id: [\n",
	}
	for name, body := range cases {
		_, err := loadConfig(writeConfig(t, body))
		assert.Error(t, err, name)
	}

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.cfg"))
	assert.Error(t, err)
}
