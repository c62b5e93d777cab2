package mqtt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledClient(t *testing.T) {
	connected := false
	c, err := New(Config{}, "door1", Handlers{OnConnect: func() { connected = true }})
	require.NoError(t, err)
	assert.False(t, c.IsEnabled())

	require.NoError(t, c.Connect())
	assert.True(t, connected)

	// No-ops without a broker.
	c.Publish("x", "y")
	assert.NoError(t, c.PublishJSON("x", map[string]string{"a": "b"}))
	assert.NoError(t, c.Subscribe("x"))
	c.Disconnect()
}

func TestTopic(t *testing.T) {
	c, err := New(Config{}, "door1", Handlers{})
	require.NoError(t, err)
	assert.Equal(t, "dooropener/door1/status/auth", c.Topic("status", "auth"))

	c, err = New(Config{TopicPrefix: "ph"}, "door1", Handlers{})
	require.NoError(t, err)
	assert.Equal(t, "ph/door1/ping", c.Topic("ping"))
}

func TestPublishJSONEncodeError(t *testing.T) {
	c, err := New(Config{}, "door1", Handlers{})
	require.NoError(t, err)
	assert.Error(t, c.PublishJSON("x", make(chan int)))
}

func TestBuildTLSConfigErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := buildTLSConfig(Config{CACert: filepath.Join(dir, "missing.pem")})
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))
	_, err = buildTLSConfig(Config{CACert: bad})
	assert.Error(t, err)

	_, err = New(Config{Host: "broker", CACert: bad}, "door1", Handlers{})
	assert.Error(t, err)
}
