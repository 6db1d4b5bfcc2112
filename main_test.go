package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/okieraised/sensor-watchdog/internal/config"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/local_cache"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/metrics"
	"github.com/okieraised/sensor-watchdog/internal/notifier"
	"github.com/okieraised/sensor-watchdog/internal/signaling"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "sensor-watchdog")
}

func TestBuildNotifierSelectsEnabledSinks(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	require.NoError(t, local_cache.NewLocalCache())

	viper.Set(config.AgentEnableMQTT, true)
	viper.Set(config.NotifierEnableTelegram, true)
	viper.Set(config.NotifierEnableSpeaker, true)
	viper.Set(config.NotifierEnableBroadcast, true)

	settings := config.MonitorSettings{DedupWindow: time.Minute}
	hub := signaling.NewWebsocketHub("agent-1", nil)

	// no chat id, so telegram is skipped
	n := buildNotifier(settings, hub, metrics.NewRegistry().Metrics)
	multi, ok := n.(*notifier.Multi)
	require.True(t, ok)
	assert.Equal(t, 2, multi.Len())

	settings.TelegramChatID = 42
	multi = buildNotifier(settings, hub, nil).(*notifier.Multi)
	assert.Equal(t, 3, multi.Len())

	viper.Set(config.AgentEnableMQTT, false)
	multi = buildNotifier(settings, hub, nil).(*notifier.Multi)
	assert.Equal(t, 1, multi.Len())
}
