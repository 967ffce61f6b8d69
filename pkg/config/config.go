// Package config loads fanview's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr         = "127.0.0.1:7766"
	DefaultStripLabel   = "main"
	DefaultFocusDelay   = 150 * time.Millisecond
	DefaultWindowWidth  = 1440
	DefaultWindowHeight = 900
	DefaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
)

// Target is one content panel.
type Target struct {
	Label     string     `yaml:"label"`
	URL       string     `yaml:"url"`
	Adapter   string     `yaml:"adapter"`
	Keepalive *Keepalive `yaml:"keepalive,omitempty"`
}

// Keepalive re-injects Script into a target every Interval.
type Keepalive struct {
	Interval time.Duration `yaml:"interval"`
	Script   string        `yaml:"script"`
}

type ControlStrip struct {
	Label string `yaml:"label"`
	// URL defaults to the control page served by fanview itself.
	URL string `yaml:"url"`
}

type Window struct {
	Width  uint32  `yaml:"width"`
	Height uint32  `yaml:"height"`
	Scale  float64 `yaml:"scale"`
	Left   int     `yaml:"left"`
	Top    int     `yaml:"top"`
}

type Browser struct {
	Bin         string `yaml:"bin"`
	Headless    bool   `yaml:"headless"`
	UserDataDir string `yaml:"user_data_dir"`
	UserAgent   string `yaml:"user_agent"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Process struct {
	Heuristics    bool     `yaml:"heuristics"`
	AppPatterns   []string `yaml:"app_patterns"`
	DataDir       string   `yaml:"data_dir"`
	RendererNames []string `yaml:"renderer_names"`
}

type Dispatch struct {
	FocusDelay time.Duration `yaml:"focus_delay"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the whole configuration file.
type Config struct {
	Targets      []Target     `yaml:"targets"`
	ControlStrip ControlStrip `yaml:"control_strip"`
	Window       Window       `yaml:"window"`
	Browser      Browser      `yaml:"browser"`
	Server       Server       `yaml:"server"`
	Process      Process      `yaml:"process"`
	Dispatch     Dispatch     `yaml:"dispatch"`
	Log          Log          `yaml:"log"`
}

// Default returns the built-in configuration: three chat panels above one control strip.
func Default() Config {
	return Config{
		Targets: []Target{
			{Label: "claude", URL: "https://claude.ai/new", Adapter: "claude"},
			{Label: "chatgpt", URL: "https://chat.openai.com/", Adapter: "chatgpt"},
			{Label: "gemini", URL: "https://gemini.google.com/app", Adapter: "gemini", Keepalive: &Keepalive{
				Interval: 3 * time.Minute,
				Script:   "document.dispatchEvent(new Event('visibilitychange'));",
			}},
		},
		ControlStrip: ControlStrip{Label: DefaultStripLabel},
		Window:       Window{Width: DefaultWindowWidth, Height: DefaultWindowHeight, Scale: 1},
		Browser:      Browser{UserAgent: DefaultUserAgent},
		Server:       Server{Addr: DefaultAddr},
		Process:      Process{Heuristics: true, AppPatterns: []string{"fanview"}},
		Dispatch:     Dispatch{FocusDelay: DefaultFocusDelay},
		Log:          Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes YAML from r over the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.ControlStrip.Label == "" {
		c.ControlStrip.Label = DefaultStripLabel
	}
	if c.Window.Scale == 0 {
		c.Window.Scale = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Dispatch.FocusDelay == 0 {
		c.Dispatch.FocusDelay = DefaultFocusDelay
	}
	for i := range c.Targets {
		if c.Targets[i].Adapter == "" {
			c.Targets[i].Adapter = c.Targets[i].Label
		}
	}
}

// Validate reports the first problem found.
func (c Config) Validate() error {
	if len(c.Targets) == 0 {
		return errors.New("config: at least one target is required")
	}
	seen := map[string]bool{c.ControlStrip.Label: true}
	for i, t := range c.Targets {
		if t.Label == "" {
			return fmt.Errorf("config: targets[%d]: label is required", i)
		}
		if seen[t.Label] {
			return fmt.Errorf("config: targets[%d]: duplicate label %q", i, t.Label)
		}
		seen[t.Label] = true
		if t.Keepalive != nil && t.Keepalive.Interval <= 0 {
			return fmt.Errorf("config: targets[%d]: keepalive interval must be positive", i)
		}
	}
	if c.Window.Scale < 0 {
		return errors.New("config: window.scale must be positive")
	}
	if c.Dispatch.FocusDelay < 0 {
		return errors.New("config: dispatch.focus_delay must not be negative")
	}
	return nil
}

// Labels returns the target labels in panel order.
func (c Config) Labels() []string {
	out := make([]string, len(c.Targets))
	for i, t := range c.Targets {
		out[i] = t.Label
	}
	return out
}

// Adapters returns the label -> adapter map for the script provider.
func (c Config) Adapters() map[string]string {
	out := make(map[string]string, len(c.Targets))
	for _, t := range c.Targets {
		out[t.Label] = t.Adapter
	}
	return out
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
