// Package config loads the daemon configuration from YAML. Every field is
// optional; missing fields keep the firmware defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/motorctl/internal/control"
	"github.com/sweeney/motorctl/internal/gpio"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	DefaultBroker            = "tcp://localhost:1883"
	DefaultClientID          = "motorctl"
	DefaultTopicPrefix       = "motor/speed"
	DefaultTelemetryInterval = 500 * time.Millisecond
	DefaultHeartbeat         = 15 * time.Minute
	DefaultHTTPAddr          = ":8080"
	DefaultPWMPeriod         = 50 * time.Microsecond // 20 kHz, above audible
)

type Config struct {
	Control ControlConfig `yaml:"control"`
	Pins    PinsConfig    `yaml:"pins"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
}

type ControlConfig struct {
	Kp                 float64       `yaml:"kp"`
	Ki                 float64       `yaml:"ki"`
	Kd                 float64       `yaml:"kd"`
	StepsPerRevolution float64       `yaml:"steps_per_revolution"`
	UnitsPerRevolution float64       `yaml:"units_per_revolution"`
	MinEventGap        time.Duration `yaml:"min_event_gap"`
	StallWindow        time.Duration `yaml:"stall_window"`
	SetpointHigh       float64       `yaml:"setpoint_high"`
	SetpointLow        float64       `yaml:"setpoint_low"`
	HoldPeriod         time.Duration `yaml:"hold_period"`
	IntegralClamp      float64       `yaml:"integral_clamp"`
	Deadband           float64       `yaml:"deadband"`
	TickInterval       time.Duration `yaml:"tick_interval"`
	ReportInterval     time.Duration `yaml:"report_interval"`
}

type PinsConfig struct {
	Chip       string        `yaml:"chip"`
	EncoderA   int           `yaml:"encoder_a"`
	EncoderB   int           `yaml:"encoder_b"`
	Dir1       int           `yaml:"dir1"`
	Dir2       int           `yaml:"dir2"`
	PWMChip    int           `yaml:"pwm_chip"`
	PWMChannel int           `yaml:"pwm_channel"`
	PWMPeriod  time.Duration `yaml:"pwm_period"`
}

type MQTTConfig struct {
	Broker            string        `yaml:"broker"`
	ClientID          string        `yaml:"client_id"`
	TopicPrefix       string        `yaml:"topic_prefix"`
	TelemetryInterval time.Duration `yaml:"telemetry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	// Credentials come from the environment, never from the file.
	Username string `yaml:"-"`
	Password string `yaml:"-"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the firmware constants and the default wiring.
func Default() *Config {
	c := control.DefaultConfig()
	return &Config{
		Control: ControlConfig{
			Kp:                 c.Kp,
			Ki:                 c.Ki,
			Kd:                 c.Kd,
			StepsPerRevolution: c.StepsPerRevolution,
			UnitsPerRevolution: c.UnitsPerRevolution,
			MinEventGap:        c.MinEventGap,
			StallWindow:        c.StallWindow,
			SetpointHigh:       c.SetpointHigh,
			SetpointLow:        c.SetpointLow,
			HoldPeriod:         c.HoldPeriod,
			IntegralClamp:      c.IntegralClamp,
			Deadband:           c.Deadband,
			TickInterval:       c.TickInterval,
			ReportInterval:     c.ReportInterval,
		},
		Pins: PinsConfig{
			Chip:       gpio.DefaultChip,
			EncoderA:   gpio.DefaultPinEncA,
			EncoderB:   gpio.DefaultPinEncB,
			Dir1:       gpio.DefaultPinDir1,
			Dir2:       gpio.DefaultPinDir2,
			PWMChip:    gpio.DefaultPWMChip,
			PWMChannel: gpio.DefaultPWMChannel,
			PWMPeriod:  DefaultPWMPeriod,
		},
		MQTT: MQTTConfig{
			Broker:            DefaultBroker,
			ClientID:          DefaultClientID,
			TopicPrefix:       DefaultTopicPrefix,
			TelemetryInterval: DefaultTelemetryInterval,
			Heartbeat:         DefaultHeartbeat,
		},
		HTTP: HTTPConfig{Addr: DefaultHTTPAddr},
	}
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate rejects values the control loop cannot run with.
func (c *Config) Validate() error {
	cc := c.Control
	var problems []string
	check := func(bad bool, msg string, args ...any) {
		if bad {
			problems = append(problems, fmt.Sprintf(msg, args...))
		}
	}

	check(cc.Kp < 0 || cc.Ki < 0 || cc.Kd < 0, "gains must be non-negative (kp=%v ki=%v kd=%v)", cc.Kp, cc.Ki, cc.Kd)
	check(cc.StepsPerRevolution <= 0, "steps_per_revolution must be positive, got %v", cc.StepsPerRevolution)
	check(cc.UnitsPerRevolution <= 0, "units_per_revolution must be positive, got %v", cc.UnitsPerRevolution)
	check(cc.MinEventGap < 0, "min_event_gap must not be negative, got %v", cc.MinEventGap)
	check(cc.StallWindow <= 0, "stall_window must be positive, got %v", cc.StallWindow)
	check(cc.HoldPeriod < 0, "hold_period must not be negative, got %v", cc.HoldPeriod)
	check(cc.IntegralClamp < 0, "integral_clamp must not be negative, got %v", cc.IntegralClamp)
	check(cc.Deadband < 0 || cc.Deadband >= 1, "deadband must be in [0, 1), got %v", cc.Deadband)
	check(cc.TickInterval <= 0, "tick_interval must be positive, got %v", cc.TickInterval)
	check(cc.ReportInterval <= 0, "report_interval must be positive, got %v", cc.ReportInterval)
	check(c.Pins.PWMPeriod <= 0, "pwm_period must be positive, got %v", c.Pins.PWMPeriod)
	check(c.MQTT.TelemetryInterval < 0, "telemetry_interval must not be negative, got %v", c.MQTT.TelemetryInterval)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, problems)
	}
	return nil
}

// ControlConfig converts to the regulator's parameter set.
func (c *Config) ControlConfig() control.Config {
	cc := c.Control
	return control.Config{
		Kp:                 cc.Kp,
		Ki:                 cc.Ki,
		Kd:                 cc.Kd,
		StepsPerRevolution: cc.StepsPerRevolution,
		UnitsPerRevolution: cc.UnitsPerRevolution,
		MinEventGap:        cc.MinEventGap,
		StallWindow:        cc.StallWindow,
		SetpointHigh:       cc.SetpointHigh,
		SetpointLow:        cc.SetpointLow,
		HoldPeriod:         cc.HoldPeriod,
		IntegralClamp:      cc.IntegralClamp,
		Deadband:           cc.Deadband,
		TickInterval:       cc.TickInterval,
		ReportInterval:     cc.ReportInterval,
	}
}

// GPIOPins converts to the hardware wiring.
func (c *Config) GPIOPins() gpio.Pins {
	p := c.Pins
	return gpio.Pins{
		Chip:        p.Chip,
		EncoderA:    p.EncoderA,
		EncoderB:    p.EncoderB,
		Dir1:        p.Dir1,
		Dir2:        p.Dir2,
		PWMChip:     p.PWMChip,
		PWMChannel:  p.PWMChannel,
		PWMPeriodNs: p.PWMPeriod.Nanoseconds(),
	}
}

// Environment variable names for MQTT credentials.
const (
	EnvMQTTUsername = "MQTT_USERNAME"
	EnvMQTTPassword = "MQTT_PASSWORD"
)

// ApplyEnv fills credentials from the environment.
func (c *Config) ApplyEnv() {
	c.MQTT.Username = os.Getenv(EnvMQTTUsername)
	c.MQTT.Password = os.Getenv(EnvMQTTPassword)
}
