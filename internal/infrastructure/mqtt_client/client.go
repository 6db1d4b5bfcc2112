package mqtt_client

import (
	"crypto/tls"
	"net/url"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okieraised/sensor-watchdog/internal/config"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/utilities"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

func getBool(key string, def bool) bool {
	if !viper.IsSet(key) {
		return def
	}
	return viper.GetBool(key)
}

// readDuration accepts "10s"/"500ms", an int (seconds), or a native duration.
func readDuration(key string, def time.Duration) time.Duration {
	if !viper.IsSet(key) {
		return def
	}
	if s := viper.GetString(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	if n := viper.GetInt(key); n > 0 {
		return time.Duration(n) * time.Second
	}
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return def
}

func isSecureScheme(u string) bool {
	s := strings.ToLower(u)
	return strings.HasPrefix(s, "mqtts://") || strings.HasPrefix(s, "ssl://") ||
		strings.HasPrefix(s, "tls://") || strings.HasPrefix(s, "wss://")
}

var defaultPublishHandler mqtt.MessageHandler = func(_ mqtt.Client, _ mqtt.Message) {}

var defaultConnLostHandler mqtt.ConnectionLostHandler = func(_ mqtt.Client, _ error) {}

var defaultConnAttemptHandler mqtt.ConnectionAttemptHandler = func(_ *url.URL, _ *tls.Config) *tls.Config { return nil }

var defaultReconnectHandler mqtt.ReconnectHandler = func(_ mqtt.Client, _ *mqtt.ClientOptions) {}

type Options struct {
	PublishHandler        mqtt.MessageHandler
	ConnectionLostHandler mqtt.ConnectionLostHandler
	ConnectionAttempt     mqtt.ConnectionAttemptHandler
	ReconnectHandler      mqtt.ReconnectHandler
	CleanSession          *bool
	AutoReconnect         *bool
	ConnectRetry          *bool
	ResumeSubs            *bool
	TLSInsecureSkip       *bool
	WriteTimeout          *time.Duration
	KeepAlive             *time.Duration
	PingTimeout           *time.Duration
	MaxReconnectInterval  *time.Duration
	ConnectTimeout        *time.Duration
	ConnectRetryInterval  *time.Duration

	TLSConfig *tls.Config
}

type Option func(*Options)

func WithPublishHandler(h mqtt.MessageHandler) Option {
	return func(o *Options) { o.PublishHandler = h }
}
func WithConnectionLostHandler(h mqtt.ConnectionLostHandler) Option {
	return func(o *Options) { o.ConnectionLostHandler = h }
}
func WithConnectionAttemptHandler(h mqtt.ConnectionAttemptHandler) Option {
	return func(o *Options) { o.ConnectionAttempt = h }
}
func WithReconnectHandler(h mqtt.ReconnectHandler) Option {
	return func(o *Options) { o.ReconnectHandler = h }
}

func WithCleanSession(v bool) Option {
	return func(o *Options) {
		o.CleanSession = &v
	}
}

func WithAutoReconnect(v bool) Option {
	return func(o *Options) {
		o.AutoReconnect = &v
	}
}

func WithConnectRetry(v bool) Option {
	return func(o *Options) {
		o.ConnectRetry = &v
	}
}

func WithResumeSubs(v bool) Option {
	return func(o *Options) {
		o.ResumeSubs = &v
	}
}

func WithTLSInsecureSkipVerify(v bool) Option {
	return func(o *Options) {
		o.TLSInsecureSkip = &v
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.WriteTimeout = &d
	}
}

func WithKeepAlive(d time.Duration) Option {
	return func(o *Options) {
		o.KeepAlive = &d
	}
}

func WithPingTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.PingTimeout = &d
	}
}

func WithMaxReconnectInterval(d time.Duration) Option {
	return func(o *Options) {
		o.MaxReconnectInterval = &d
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = &d
	}
}

func WithConnectRetryInterval(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectRetryInterval = &d
	}
}

func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *Options) {
		o.TLSConfig = cfg
	}
}

func defaultOptionsFromViper() Options {
	return Options{
		PublishHandler:        defaultPublishHandler,
		ConnectionLostHandler: defaultConnLostHandler,
		ConnectionAttempt:     defaultConnAttemptHandler,
		ReconnectHandler:      defaultReconnectHandler,
		CleanSession:          utilities.Ptr(getBool(config.MqttCleanSession, true)),
		AutoReconnect:         utilities.Ptr(getBool(config.MqttAutoReconnect, true)),
		ConnectRetry:          utilities.Ptr(getBool(config.MqttConnectRetry, true)),
		ResumeSubs:            utilities.Ptr(getBool(config.MqttResumeSubs, true)),
		TLSInsecureSkip:       utilities.Ptr(getBool(config.MqttTLSInsecureSkipVerify, false)),
		WriteTimeout:          utilities.Ptr(readDuration(config.MqttWriteTimeout, constants.MqttDefaultWriteTimeout)),
		KeepAlive:             utilities.Ptr(readDuration(config.MqttKeepAliveDuration, constants.MqttDefaultKeepAlive)),
		PingTimeout:           utilities.Ptr(readDuration(config.MqttPingTimeout, constants.MqttDefaultPingTimeout)),
		MaxReconnectInterval:  utilities.Ptr(readDuration(config.MqttMaxConnectInterval, constants.MqttDefaultMaxReconnectInterval)),
		ConnectTimeout:        utilities.Ptr(readDuration(config.MqttConnectTimeout, constants.MqttDefaultConnectTimeout)),
		ConnectRetryInterval:  utilities.Ptr(readDuration(config.MqttConnectRetryInterval, constants.MqttDefaultConnectRetryInterval)),
	}
}

var (
	once      sync.Once
	client    mqtt.Client
	initErr   error
	writeWait = constants.MqttDefaultWriteTimeout

	subsMu    sync.Mutex
	subs      = make(map[string]subscription)
	listeners []func(connected bool)
)

var ErrNotConnected = errors.New("mqtt client not connected")

type subscription struct {
	qos     byte
	handler mqtt.MessageHandler
}

// NewMQTTClient creates the mqtt client and connects it. Only the first call has any effect.
func NewMQTTClient(endpoint, clientID string, optFns ...Option) error {
	once.Do(func() {
		if strings.TrimSpace(endpoint) == "" {
			initErr = errors.New("mqtt endpoint is empty")
			return
		}

		conf := defaultOptionsFromViper()
		for _, fn := range optFns {
			if fn != nil {
				fn(&conf)
			}
		}
		writeWait = *conf.WriteTimeout

		lost := conf.ConnectionLostHandler
		opts := mqtt.NewClientOptions().
			AddBroker(endpoint).
			SetClientID(clientID).
			SetDefaultPublishHandler(conf.PublishHandler).
			SetOnConnectHandler(func(c mqtt.Client) {
				resubscribe(c)
				notifyListeners(true)
			}).
			SetConnectionLostHandler(func(c mqtt.Client, err error) {
				notifyListeners(false)
				lost(c, err)
			}).
			SetReconnectingHandler(conf.ReconnectHandler).
			SetConnectionAttemptHandler(conf.ConnectionAttempt).
			SetCleanSession(*conf.CleanSession).
			SetAutoReconnect(*conf.AutoReconnect).
			SetConnectRetry(*conf.ConnectRetry).
			SetConnectRetryInterval(*conf.ConnectRetryInterval).
			SetMaxReconnectInterval(*conf.MaxReconnectInterval).
			SetWriteTimeout(*conf.WriteTimeout).
			SetKeepAlive(*conf.KeepAlive).
			SetPingTimeout(*conf.PingTimeout).
			SetResumeSubs(*conf.ResumeSubs).
			SetConnectTimeout(*conf.ConnectTimeout)
		if conf.TLSConfig != nil {
			opts.SetTLSConfig(conf.TLSConfig)
		} else if isSecureScheme(endpoint) {
			if conf.TLSInsecureSkip != nil && *conf.TLSInsecureSkip {
				opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true}) // #nosec G402
			} else {
				opts.SetTLSConfig(&tls.Config{})
			}
		}

		c := mqtt.NewClient(opts)
		client = c
		tok := c.Connect()
		if !tok.WaitTimeout(*conf.ConnectTimeout) {
			// with ConnectRetry the client keeps trying in the background
			if *conf.ConnectRetry {
				return
			}
			initErr = errors.Errorf("mqtt connect timeout after %s", conf.ConnectTimeout.String())
			return
		}
		if err := tok.Error(); err != nil {
			initErr = errors.Wrap(err, "mqtt connect error")
		}
	})
	return initErr
}

func Client() mqtt.Client {
	if client == nil {
		panic("mqtt client not initialized")
	}
	return client
}

// IsConnected reports whether the client exists and currently holds a broker connection.
func IsConnected() bool {
	return client != nil && client.IsConnectionOpen()
}

// AddConnectionListener registers fn to be told about every connect and connection loss.
func AddConnectionListener(fn func(connected bool)) {
	subsMu.Lock()
	defer subsMu.Unlock()
	listeners = append(listeners, fn)
}

func notifyListeners(connected bool) {
	subsMu.Lock()
	ls := append([]func(bool){}, listeners...)
	subsMu.Unlock()
	for _, fn := range ls {
		fn(connected)
	}
}

// Subscribe subscribes handler to topic and remembers the subscription so it is
// restored after every reconnect.
func Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	subsMu.Lock()
	subs[topic] = subscription{qos: qos, handler: handler}
	subsMu.Unlock()

	if !IsConnected() {
		// picked up by the on-connect handler
		return nil
	}
	return waitToken(client.Subscribe(topic, qos, handler), "subscribe to "+topic)
}

// Unsubscribe drops a subscription made with Subscribe.
func Unsubscribe(topic string) error {
	subsMu.Lock()
	delete(subs, topic)
	subsMu.Unlock()

	if !IsConnected() {
		return nil
	}
	return waitToken(client.Unsubscribe(topic), "unsubscribe from "+topic)
}

// Publish sends payload to topic and waits for the broker to acknowledge it.
func Publish(topic string, qos byte, retained bool, payload []byte) error {
	if client == nil {
		return ErrNotConnected
	}
	return waitToken(client.Publish(topic, qos, retained, payload), "publish to "+topic)
}

// Publisher adapts the package-level client to per-topic publishing.
type Publisher struct {
	QoS      byte
	Retained bool
}

func (p Publisher) Publish(topic string, payload []byte) error {
	return Publish(topic, p.QoS, p.Retained, payload)
}

func Disconnect(quiesce time.Duration) {
	if client != nil {
		client.Disconnect(uint(quiesce.Milliseconds()))
	}
}

func resubscribe(c mqtt.Client) {
	subsMu.Lock()
	current := make(map[string]subscription, len(subs))
	for k, v := range subs {
		current[k] = v
	}
	subsMu.Unlock()

	for topic, sub := range current {
		// errors surface through the connection lost handler on the next failure
		c.Subscribe(topic, sub.qos, sub.handler)
	}
}

func waitToken(tok mqtt.Token, what string) error {
	if !tok.WaitTimeout(writeWait) {
		return errors.Errorf("mqtt %s: timed out after %s", what, writeWait)
	}
	if err := tok.Error(); err != nil {
		return errors.Wrapf(err, "mqtt %s", what)
	}
	return nil
}
