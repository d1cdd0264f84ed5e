package meta

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigJSON(t *testing.T) {
	cfg, err := ParseConfigBytes([]byte(`{"ServerIP": "127.0.0.1", "ServerPort": 5353}`))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5353", cfg.ServerAddr())
	assert.Equal(t, "", cfg.ClientAddr())
	assert.Equal(t, DefaultExpectedQueries, cfg.Session.ExpectedQueries)
	assert.Equal(t, DefaultClientTimeout, cfg.Client.ReadTimeout)
	assert.Nil(t, cfg.Metrics)
}

func TestParseConfigYAML(t *testing.T) {
	data := []byte(`
ServerIP: 10.0.0.1
ServerPort: 9000
ClientPort: 9001
Records: /etc/lookupd/records.json
Session:
  ExpectedQueries: 6
  ReadTimeout: 30s
Application:
  SentryDSN: https://key@sentry.example.com/1
Metrics:
  Statsd:
    Address: 127.0.0.1:8125
    SampleRate: 0.5
`)

	cfg, err := ParseConfigBytes(data)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9001", cfg.ClientAddr())
	assert.Equal(t, "/etc/lookupd/records.json", cfg.Records)
	assert.Equal(t, 6, cfg.Session.ExpectedQueries)
	assert.Equal(t, 30*time.Second, cfg.Session.ReadTimeout)
	assert.Equal(t, "https://key@sentry.example.com/1", cfg.Application.SentryDSN)
	assert.Equal(t, float32(0.5), cfg.Metrics.Statsd.SampleRate)
}

func TestParseConfigInvalid(t *testing.T) {
	cases := map[string]string{
		"missing server ip":  `{"ServerPort": 53}`,
		"ipv6 server":        `{"ServerIP": "::1", "ServerPort": 53}`,
		"zero port":          `{"ServerIP": "127.0.0.1", "ServerPort": 0}`,
		"negative port":      `{"ServerIP": "127.0.0.1", "ServerPort": -1}`,
		"port too large":     `{"ServerIP": "127.0.0.1", "ServerPort": 70000}`,
		"string port":        `{"ServerIP": "127.0.0.1", "ServerPort": "abc"}`,
		"bad client ip":      `{"ServerIP": "127.0.0.1", "ServerPort": 53, "ClientIP": "nope"}`,
		"client port range":  `{"ServerIP": "127.0.0.1", "ServerPort": 53, "ClientPort": 65536}`,
		"negative queries":   `{"ServerIP": "127.0.0.1", "ServerPort": 53, "Session": {"ExpectedQueries": -2}}`,
		"statsd sample rate": `{"ServerIP": "127.0.0.1", "ServerPort": 53, "Metrics": {"Statsd": {"Address": "x:1", "SampleRate": 2}}}`,
		"statsd address":     `{"ServerIP": "127.0.0.1", "ServerPort": 53, "Metrics": {"Statsd": {"SampleRate": 1}}}`,
		"empty document":     ``,
	}

	for name, doc := range cases {
		_, err := ParseConfigBytes([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestParseConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ServerIP": "127.0.0.1", "ServerPort": 5353}`), 0o600))

	cfg, err := ParseConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5353, cfg.ServerPort)

	_, err = ParseConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
