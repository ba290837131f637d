package wsconsole

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultHandshakeTimeout bounds the websocket opening handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultWriteTimeout is the deadline applied to every frame write.
	DefaultWriteTimeout = time.Second

	// DefaultSendQueueSize is how many outbound messages may wait for the writer.
	DefaultSendQueueSize = 32
)

// Config holds every tunable of a console session.
type Config struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// PingInterval enables active keep-alive pings when positive.
	PingInterval  time.Duration
	SendQueueSize int
	// LogCapacity caps the event log. Zero keeps every entry.
	LogCapacity int
	// CloseAbandoned closes transports on Disconnect or when replaced by a new Connect, instead of only forgetting
	// them.
	CloseAbandoned bool
	// Header is sent with the opening handshake.
	Header http.Header
}

func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		SendQueueSize:    DefaultSendQueueSize,
		Header:           make(http.Header),
	}
}

// Validate checks the config for values the transport cannot work with.
func (c Config) Validate() error {
	switch {
	case c.HandshakeTimeout <= 0:
		return errors.Wrap(ErrInvalidConfig, "handshake timeout must be positive")
	case c.WriteTimeout <= 0:
		return errors.Wrap(ErrInvalidConfig, "write timeout must be positive")
	case c.PingInterval < 0:
		return errors.Wrap(ErrInvalidConfig, "ping interval cannot be negative")
	case c.SendQueueSize <= 0:
		return errors.Wrap(ErrInvalidConfig, "send queue size must be positive")
	case c.LogCapacity < 0:
		return errors.Wrap(ErrInvalidConfig, "log capacity cannot be negative")
	}
	return nil
}

// AddHeader parses a "Key: Value" pair and adds it to the handshake headers.
func (c *Config) AddHeader(raw string) error {
	key, value, ok := strings.Cut(raw, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return errors.Wrapf(ErrInvalidConfig, "malformed header %q, expected 'Key: Value'", raw)
	}
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	c.Header.Add(key, strings.TrimSpace(value))
	return nil
}

// LoadFromEnv overlays WSCONSOLE_* environment variables onto c. Only non-empty, well formed values override
// the existing ones. Call it before flag parsing so flags take precedence.
func (c *Config) LoadFromEnv() {
	c.loadFromEnv(os.Getenv)
}

func (c *Config) loadFromEnv(getenv func(string) string) {
	if v, ok := envDuration(getenv, "WSCONSOLE_HANDSHAKE_TIMEOUT"); ok {
		c.HandshakeTimeout = v
	}
	if v, ok := envDuration(getenv, "WSCONSOLE_WRITE_TIMEOUT"); ok {
		c.WriteTimeout = v
	}
	if v, ok := envDuration(getenv, "WSCONSOLE_PING_INTERVAL"); ok {
		c.PingInterval = v
	}
	if v, ok := envInt(getenv, "WSCONSOLE_SEND_QUEUE_SIZE"); ok {
		c.SendQueueSize = v
	}
	if v, ok := envInt(getenv, "WSCONSOLE_LOG_CAPACITY"); ok {
		c.LogCapacity = v
	}
	if v, ok := envBool(getenv, "WSCONSOLE_CLOSE_ABANDONED"); ok {
		c.CloseAbandoned = v
	}
}

func envDuration(getenv func(string) string, key string) (time.Duration, bool) {
	v := getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envInt(getenv func(string) string, key string) (int, bool) {
	v := getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(getenv func(string) string, key string) (bool, bool) {
	switch strings.ToLower(getenv(key)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}
