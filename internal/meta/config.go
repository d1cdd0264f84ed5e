package meta

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultExpectedQueries is the number of exchanges after which a session is ended, when
	// not otherwise configured.
	DefaultExpectedQueries = 4
	// DefaultClientTimeout bounds each client round trip when not otherwise configured.
	DefaultClientTimeout = 5 * time.Second
)

// ApplicationConfig is a top-level block for application-level meta configuration.
type ApplicationConfig struct {
	SentryDSN string `yaml:"SentryDSN"`
}

// MetricsConfig is a top-level block for metrics configuration.
type MetricsConfig struct {
	Statsd *struct {
		Address    string  `yaml:"Address"`
		SampleRate float32 `yaml:"SampleRate"`
	} `yaml:"Statsd"`
}

// SessionConfig is a top-level block for server-side session policy.
type SessionConfig struct {
	// ExpectedQueries is the number of exchanges a client completes before the server ends its
	// session.
	ExpectedQueries int `yaml:"ExpectedQueries"`
	// ReadTimeout bounds the wait for the next datagram. When it elapses while a session is
	// active, the session is discarded.
	ReadTimeout  time.Duration `yaml:"ReadTimeout"`
	WriteTimeout time.Duration `yaml:"WriteTimeout"`
}

// ClientConfig is a top-level block for the client driver.
type ClientConfig struct {
	ReadTimeout  time.Duration `yaml:"ReadTimeout"`
	WriteTimeout time.Duration `yaml:"WriteTimeout"`
}

// Config describes all application configuration options. JSON documents are valid input.
type Config struct {
	ServerIP    string             `yaml:"ServerIP"`
	ServerPort  int                `yaml:"ServerPort"`
	ClientIP    string             `yaml:"ClientIP"`
	ClientPort  int                `yaml:"ClientPort"`
	Records     string             `yaml:"Records"`
	Session     *SessionConfig     `yaml:"Session"`
	Client      *ClientConfig      `yaml:"Client"`
	Application *ApplicationConfig `yaml:"Application"`
	Metrics     *MetricsConfig     `yaml:"Metrics"`
}

// ParseConfig parses a Config struct instance from a file specified as a path on disk.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: error reading config: err=%v", err)
	}

	return ParseConfigBytes(data)
}

// ParseConfigBytes parses and validates a Config from its serialized representation. Defaults are
// applied to omitted optional blocks.
func ParseConfigBytes(data []byte) (*Config, error) {
	var cfg *Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: error parsing config: err=%v", err)
	}

	if cfg == nil {
		return nil, fmt.Errorf("config: empty config")
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ServerAddr is the UDP address the server binds and the client sends to.
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.ServerIP, strconv.Itoa(c.ServerPort))
}

// ClientAddr is the local UDP address the client binds. It is empty when neither ClientIP nor
// ClientPort is set, which leaves the choice of an ephemeral, all-interfaces endpoint to the OS.
func (c *Config) ClientAddr() string {
	if c.ClientIP == "" && c.ClientPort == 0 {
		return ""
	}

	ip := c.ClientIP
	if ip == "" {
		ip = "0.0.0.0"
	}

	return net.JoinHostPort(ip, strconv.Itoa(c.ClientPort))
}

// applyDefaults fills in omitted optional blocks and zero values that have a non-zero default.
func (c *Config) applyDefaults() {
	if c.Session == nil {
		c.Session = &SessionConfig{}
	}

	if c.Session.ExpectedQueries == 0 {
		c.Session.ExpectedQueries = DefaultExpectedQueries
	}

	if c.Client == nil {
		c.Client = &ClientConfig{}
	}

	if c.Client.ReadTimeout == 0 {
		c.Client.ReadTimeout = DefaultClientTimeout
	}

	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = DefaultClientTimeout
	}
}

// validate the contents of the configuration. Returns an error if validation failed; nil otherwise.
func (c *Config) validate() error {
	/* Endpoints */

	if c.ServerIP == "" {
		return fmt.Errorf("config: missing server IP")
	}

	if !isIPv4(c.ServerIP) {
		return fmt.Errorf("config: server IP must be an IPv4 address: ip=%s", c.ServerIP)
	}

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("config: server port must be a positive integer below 65536: port=%d", c.ServerPort)
	}

	if c.ClientIP != "" && !isIPv4(c.ClientIP) {
		return fmt.Errorf("config: client IP must be an IPv4 address: ip=%s", c.ClientIP)
	}

	if c.ClientPort < 0 || c.ClientPort > 65535 {
		return fmt.Errorf("config: client port out of range: port=%d", c.ClientPort)
	}

	/* Session */

	if c.Session.ExpectedQueries < 0 {
		return fmt.Errorf(
			"config: expected queries must be positive: expected_queries=%d",
			c.Session.ExpectedQueries,
		)
	}

	if c.Session.ReadTimeout < 0 || c.Session.WriteTimeout < 0 {
		return fmt.Errorf("config: session timeouts must not be negative")
	}

	if c.Client.ReadTimeout < 0 || c.Client.WriteTimeout < 0 {
		return fmt.Errorf("config: client timeouts must not be negative")
	}

	/* Metrics */

	// Users can omit the metrics block entirely to disable metrics reporting.
	if c.Metrics != nil && c.Metrics.Statsd != nil {
		if c.Metrics.Statsd.Address == "" {
			return fmt.Errorf("config: missing metrics statsd address")
		}

		if c.Metrics.Statsd.SampleRate < 0 || c.Metrics.Statsd.SampleRate > 1 {
			return fmt.Errorf("config: statsd sample rate must be in range [0.0, 1.0]")
		}
	}

	return nil
}

// isIPv4 reports whether the literal is a dotted-quad IPv4 address.
func isIPv4(literal string) bool {
	ip := net.ParseIP(literal)

	return ip != nil && ip.To4() != nil
}
