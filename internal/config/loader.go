package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ErrNoConfigSources is returned by Load when neither .env nor conf/config.toml exist.
// Defaults and process environment still apply.
var ErrNoConfigSources = errors.New("no configuration sources found: missing both .env and conf/config.toml")

// legacyEnv maps keys to the bare environment names older deployments export.
var legacyEnv = map[string]string{
	MqttBrokerHost:         "MQTT_BROKER",
	MqttBrokerPort:         "MQTT_PORT",
	MonitorDefaultTimeout:  "ALERT_TIMEOUT",
	MonitorSensors:         "MONITORED_SENSORS",
	NotifierTelegramChatID: "TELEGRAM_CHAT_ID",
}

func mirrorEnvCase() {
	for _, kv := range os.Environ() {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		k, v := kv[:i], kv[i+1:]
		_ = os.Setenv(strings.ToUpper(k), v)
		_ = os.Setenv(strings.ToLower(k), v)
	}
}

func loadDotenvIfExists(filename string, overload bool) (bool, error) {
	if _, err := os.Stat(filename); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if overload {
		return true, godotenv.Overload(filename)
	}
	return true, godotenv.Load(filename)
}

func readConfigIfExists(path string, merge bool) (bool, error) {
	viper.SetConfigFile(path)
	var err error
	if merge {
		err = viper.MergeInConfig()
	} else {
		err = viper.ReadInConfig()
	}
	if err == nil {
		return true, nil
	}
	var nf viper.ConfigFileNotFoundError
	if errors.As(err, &nf) || os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// DetectProfile reads APP_ENV in any case and falls back to "dev".
func DetectProfile() string {
	for _, k := range []string{"APP_ENV", "app_env"} {
		if v, ok := os.LookupEnv(k); ok && v != "" {
			return strings.ToLower(v)
		}
	}
	return "dev"
}

// Load reads .env, .<profile>.env, conf/config.toml and conf/<profile>.config.toml,
// later sources overriding earlier ones, then enables environment lookups with
// "." replaced by "__". An empty profile is detected from APP_ENV.
func Load(profile string) error {
	SetDefaults()

	envFound, err := loadDotenvIfExists(".env", false)
	if err != nil {
		return errors.Wrap(err, "failed to load .env")
	}
	if envFound {
		mirrorEnvCase()
	}
	if profile == "" {
		profile = DetectProfile()
	}

	pfFound, err := loadDotenvIfExists("."+profile+".env", true)
	if err != nil {
		return errors.Wrapf(err, "failed to load .%s.env", profile)
	}
	if pfFound {
		mirrorEnvCase()
	}

	cfgFound, err := readConfigIfExists("conf/config.toml", false)
	if err != nil {
		return errors.Wrap(err, "failed to read conf/config.toml")
	}

	if _, err := readConfigIfExists("conf/"+profile+".config.toml", true); err != nil {
		return errors.Wrapf(err, "failed to read conf/%s.config.toml", profile)
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()
	if err := bindLegacyEnv(); err != nil {
		return err
	}

	if !envFound && !cfgFound {
		return ErrNoConfigSources
	}
	return nil
}

func bindLegacyEnv() error {
	for key, legacy := range legacyEnv {
		primary := strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
		if err := viper.BindEnv(key, primary, legacy); err != nil {
			return errors.Wrapf(err, "failed to bind %s", legacy)
		}
	}
	return nil
}
