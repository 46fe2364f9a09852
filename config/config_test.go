package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleYAML = `
server:
  http_addr: ":9090"
  log_level: "debug"
  depth_levels: 10
instruments:
  - PETR4
  - VALE3
feed:
  brokers:
    - kafka-1:9092
    - kafka-2:9092
  topic: "order-events-prod"
  group_id: "qbook-prod"
snapshot:
  enabled: true
  addr: "redis:6379"
  interval: 10s
`

func TestConfigFromYAML(t *testing.T) {
	config := defaults()
	require.NoError(t, yaml.Unmarshal([]byte(sampleYAML), config))

	assert.Equal(t, ":9090", config.Server.HTTPAddr)
	assert.Equal(t, "debug", config.Server.LogLevel)
	assert.Equal(t, 10, config.Server.DepthLevels)
	assert.Equal(t, []string{"PETR4", "VALE3"}, config.Instruments)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.Feed.Brokers)
	assert.Equal(t, "order-events-prod", config.Feed.Topic)
	assert.True(t, config.Snapshot.Enabled)
	assert.Equal(t, 10*time.Second, config.Snapshot.Interval)

	// Untouched fields keep their defaults.
	assert.Equal(t, "qbook-updates", config.Notify.Topic)

	require.NoError(t, config.validate())
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("QBOOK_FEED_TOPIC", "override-topic")
	t.Setenv("QBOOK_SERVER_HTTP_ADDR", ":7070")
	t.Setenv("QBOOK_INSTRUMENTS", "WINQ24,WDOQ24")

	config := defaults()
	applyEnv(config)

	assert.Equal(t, "override-topic", config.Feed.Topic)
	assert.Equal(t, ":7070", config.Server.HTTPAddr)
	assert.Equal(t, []string{"WINQ24", "WDOQ24"}, config.Instruments)
}

func TestConfigValidate(t *testing.T) {
	config := defaults()
	require.NoError(t, config.validate())

	config.Instruments = nil
	assert.Error(t, config.validate())

	config = defaults()
	config.Server.DepthLevels = 0
	assert.Error(t, config.validate())

	config = defaults()
	config.Snapshot.Enabled = true
	config.Snapshot.Interval = 0
	assert.Error(t, config.validate())
}
