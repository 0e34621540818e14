package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AVR      AVRConfig      `yaml:"avr"`
	HTTP     HTTPConfig     `yaml:"http"`
	MCP      MCPConfig      `yaml:"mcp"`
	Pushover PushoverConfig `yaml:"pushover"`
	Log      LogConfig      `yaml:"log"`
}

type AVRConfig struct {
	Host          string       `yaml:"host"`
	Port          int          `yaml:"port"`
	Link          string       `yaml:"link"`
	SerialDevice  string       `yaml:"serial_device"`
	BaudRate      int          `yaml:"baud_rate"`
	VolumeCeiling int          `yaml:"volume_ceiling"`
	VolumeStep    int          `yaml:"volume_step"`
	PowerOffAck   string       `yaml:"power_off_ack"`
	Timing        TimingConfig `yaml:"timing"`
}

// Addr is the host:port of the receiver's telnet interface.
func (c AVRConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type TimingConfig struct {
	DialTimeout    string `yaml:"dial_timeout"`
	ResponseWindow string `yaml:"response_window"`
	ReplyTimeout   string `yaml:"reply_timeout"`
	ReconnectDelay string `yaml:"reconnect_delay"`
	SilenceTimeout string `yaml:"silence_timeout"`
	PowerOnSettle  string `yaml:"power_on_settle"`
	VolumeSettle   string `yaml:"volume_settle"`
}

type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
	JWTSecret string `yaml:"jwt_secret"`
	RateLimit int    `yaml:"rate_limit"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.AVR.Port == 0 {
		c.AVR.Port = 5555
	}
	if c.AVR.Link == "" {
		c.AVR.Link = "tcp"
	}
	if c.AVR.BaudRate == 0 {
		c.AVR.BaudRate = 9600
	}
	if c.AVR.VolumeCeiling == 0 {
		c.AVR.VolumeCeiling = 101
	}
	if c.AVR.VolumeStep == 0 {
		c.AVR.VolumeStep = 1
	}
	if c.AVR.PowerOffAck == "" {
		c.AVR.PowerOffAck = "PWR2"
	}
	t := &c.AVR.Timing
	if t.DialTimeout == "" {
		t.DialTimeout = "5s"
	}
	if t.ResponseWindow == "" {
		t.ResponseWindow = "500ms"
	}
	if t.ReplyTimeout == "" {
		t.ReplyTimeout = "1500ms"
	}
	if t.ReconnectDelay == "" {
		t.ReconnectDelay = "10s"
	}
	if t.SilenceTimeout == "" {
		t.SilenceTimeout = "0s"
	}
	if t.PowerOnSettle == "" {
		t.PowerOnSettle = "1s"
	}
	if t.VolumeSettle == "" {
		t.VolumeSettle = "2s"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.AVR.Link {
	case "tcp":
		if c.AVR.Host == "" {
			return fmt.Errorf("avr.host is required for tcp link")
		}
	case "serial":
		if c.AVR.SerialDevice == "" {
			return fmt.Errorf("avr.serial_device is required for serial link")
		}
	default:
		return fmt.Errorf("unknown avr.link %q (want tcp or serial)", c.AVR.Link)
	}
	if c.AVR.VolumeCeiling < 10 || c.AVR.VolumeCeiling > 185 {
		return fmt.Errorf("avr.volume_ceiling %d out of range 10-185", c.AVR.VolumeCeiling)
	}
	if c.AVR.VolumeStep < 0 {
		return fmt.Errorf("avr.volume_step must be positive")
	}
	return nil
}

// Duration parses value, falling back to def when it is empty or invalid.
// The boolean reports whether value was used.
func Duration(value string, def time.Duration) (time.Duration, bool) {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return def, false
	}
	return d, true
}
