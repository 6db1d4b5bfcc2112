package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/utilities"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var ErrInvalidSettings = errors.New("invalid monitor settings")

// MonitorSettings is the validated, read-only view of what to watch and how to alert.
type MonitorSettings struct {
	Sensors        []string
	DefaultTimeout time.Duration
	Timeouts       map[string]time.Duration
	// ArmedValue is the raw configured value; callers normalize it to their value domain.
	ArmedValue     any
	Names          map[string]string
	PayloadFormat  string
	QueueSize      int
	// TelegramChatID is 0 when no chat is configured.
	TelegramChatID int64
	DedupWindow    time.Duration
}

// TimeoutFor returns the per-sensor override or the default timeout.
func (s MonitorSettings) TimeoutFor(sensor string) time.Duration {
	if d, ok := s.Timeouts[sensor]; ok {
		return d
	}
	return s.DefaultTimeout
}

// DisplayName returns the human name of sensor, or the sensor id itself.
func (s MonitorSettings) DisplayName(sensor string) string {
	if name, ok := s.Names[sensor]; ok && name != "" {
		return name
	}
	return sensor
}

// LoadMonitorSettings builds MonitorSettings from the global viper instance.
func LoadMonitorSettings() (MonitorSettings, error) {
	return MonitorSettingsFrom(viper.GetViper())
}

// MonitorSettingsFrom builds and validates MonitorSettings from v.
// Map keys read through viper are lower-cased.
func MonitorSettingsFrom(v *viper.Viper) (MonitorSettings, error) {
	settings := MonitorSettings{
		Sensors:       splitList(v.Get(MonitorSensors)),
		Timeouts:      make(map[string]time.Duration),
		ArmedValue:    v.Get(MonitorArmedValue),
		Names:         make(map[string]string, len(constants.DefaultSensorNames)),
		PayloadFormat: strings.ToLower(strings.TrimSpace(v.GetString(MonitorPayloadFormat))),
		QueueSize:     v.GetInt(MonitorQueueSize),
	}

	var err error
	if raw := strings.TrimSpace(v.GetString(NotifierTelegramChatID)); raw != "" {
		settings.TelegramChatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || settings.TelegramChatID == 0 {
			return MonitorSettings{}, errors.Wrapf(ErrInvalidSettings, "%s: %q is not a chat id", NotifierTelegramChatID, raw)
		}
	}

	settings.DefaultTimeout, err = utilities.ParseOrDefault(v.GetString(MonitorDefaultTimeout), constants.MonitorDefaultTimeout)
	if err != nil {
		return MonitorSettings{}, errors.Wrapf(ErrInvalidSettings, "%s: %v", MonitorDefaultTimeout, err)
	}
	if settings.DefaultTimeout <= 0 {
		return MonitorSettings{}, errors.Wrapf(ErrInvalidSettings, "%s must be positive", MonitorDefaultTimeout)
	}

	for sensor, raw := range v.GetStringMapString(MonitorTimeouts) {
		d, err := utilities.Parse(raw)
		if err != nil {
			return MonitorSettings{}, errors.Wrapf(ErrInvalidSettings, "%s.%s: %v", MonitorTimeouts, sensor, err)
		}
		if d <= 0 {
			return MonitorSettings{}, errors.Wrapf(ErrInvalidSettings, "%s.%s must be positive", MonitorTimeouts, sensor)
		}
		settings.Timeouts[sensor] = d
	}

	settings.DedupWindow, err = utilities.ParseOrDefault(v.GetString(NotifierDedupWindow), 0)
	if err != nil || settings.DedupWindow < 0 {
		return MonitorSettings{}, errors.Wrapf(ErrInvalidSettings, "%s: %q", NotifierDedupWindow, v.GetString(NotifierDedupWindow))
	}

	for k, name := range constants.DefaultSensorNames {
		settings.Names[k] = name
	}
	for k, name := range v.GetStringMapString(MonitorNames) {
		settings.Names[k] = name
	}

	if len(settings.Sensors) == 0 {
		return MonitorSettings{}, errors.Wrapf(ErrInvalidSettings, "%s is empty", MonitorSensors)
	}
	if settings.ArmedValue == nil {
		return MonitorSettings{}, errors.Wrapf(ErrInvalidSettings, "%s is not set", MonitorArmedValue)
	}
	switch settings.PayloadFormat {
	case "json", "cbor":
	default:
		return MonitorSettings{}, errors.Wrapf(ErrInvalidSettings, "%s: unsupported format %q", MonitorPayloadFormat, settings.PayloadFormat)
	}
	if settings.QueueSize <= 0 {
		settings.QueueSize = constants.MonitorDefaultQueueSize
	}

	return settings, nil
}

// MQTTEndpoint returns mqtt.endpoint, or a tcp:// URL assembled from the broker host and port.
func MQTTEndpoint() string {
	if ep := strings.TrimSpace(viper.GetString(MqttEndpoint)); ep != "" {
		return ep
	}
	host := strings.TrimSpace(viper.GetString(MqttBrokerHost))
	if host == "" {
		return ""
	}
	port := viper.GetInt(MqttBrokerPort)
	if port <= 0 {
		port = constants.MqttDefaultBrokerPort
	}
	return fmt.Sprintf("tcp://%s:%d", host, port)
}

// splitList accepts a comma or whitespace separated string, or a list, and returns
// trimmed, unique, sorted entries.
func splitList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.FieldsFunc(val, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
	case []string:
		parts = val
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	default:
		parts = []string{fmt.Sprint(val)}
	}

	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
