// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/wayshm/internal/frame"
	"github.com/bnema/wayshm/internal/logger"
	"github.com/bnema/wayshm/internal/session"
	"github.com/bnema/wayshm/internal/shm"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Window  WindowConfig  `mapstructure:"window"`
	Shm     ShmConfig     `mapstructure:"shm"`
	Paint   PaintConfig   `mapstructure:"paint"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// WindowConfig contains the initial window geometry and decoration policy
type WindowConfig struct {
	Width       int32  `mapstructure:"width"`
	Height      int32  `mapstructure:"height"`
	Decorations string `mapstructure:"decorations"` // default, server or client
}

// ShmConfig selects how frame memory is allocated
type ShmConfig struct {
	Backend string `mapstructure:"backend"` // shm_open or memfd
	Dir     string `mapstructure:"dir"`     // only used by shm_open
}

// PaintConfig selects what is drawn into each frame
type PaintConfig struct {
	Mode    string   `mapstructure:"mode"`    // stripes, solid or image
	Palette []string `mapstructure:"palette"` // stripe colours, left to right
	Color   string   `mapstructure:"color"`   // solid fill colour
	Image   string   `mapstructure:"image"`   // picture for image mode
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

const (
	PaintStripes = "stripes"
	PaintSolid   = "solid"
	PaintImage   = "image"
)

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Window: WindowConfig{
			Width:       session.DefaultWidth,
			Height:      session.DefaultHeight,
			Decorations: string(session.DecorationsDefault),
		},
		Shm: ShmConfig{
			Backend: string(shm.BackendShmOpen),
			Dir:     shm.DefaultDir,
		},
		Paint: PaintConfig{
			Mode: PaintStripes,
			Palette: []string{
				"#ffffff", "#ffff00", "#00ffff", "#00ff00",
				"#ff00ff", "#ff0000", "#0000ff", "#000000",
			},
			Color: "#202020",
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wayshm")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, "wayshm"))
		}
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	viper.SetDefault("window.width", DefaultConfig.Window.Width)
	viper.SetDefault("window.height", DefaultConfig.Window.Height)
	viper.SetDefault("window.decorations", DefaultConfig.Window.Decorations)

	viper.SetDefault("shm.backend", DefaultConfig.Shm.Backend)
	viper.SetDefault("shm.dir", DefaultConfig.Shm.Dir)

	viper.SetDefault("paint.mode", DefaultConfig.Paint.Mode)
	viper.SetDefault("paint.palette", DefaultConfig.Paint.Palette)
	viper.SetDefault("paint.color", DefaultConfig.Paint.Color)
	viper.SetDefault("paint.image", DefaultConfig.Paint.Image)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", viper.ConfigFileUsed(), err)
	}
	cfg = c

	if c.Logging.LogLevel != "" {
		if err := logger.SetLevel(c.Logging.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Validate checks every value that has a fixed set of choices.
func (c *Config) Validate() error {
	if c.Window.Width < 0 || c.Window.Height < 0 {
		return fmt.Errorf("window size %dx%d must not be negative", c.Window.Width, c.Window.Height)
	}
	if _, err := session.ParseDecorationPolicy(c.Window.Decorations); err != nil {
		return err
	}
	if _, err := shm.ParseBackend(c.Shm.Backend); err != nil {
		return err
	}
	switch c.Paint.Mode {
	case "", PaintStripes:
		if _, err := frame.ParsePalette(c.Paint.Palette); err != nil {
			return err
		}
	case PaintSolid:
		if _, err := frame.ParseColor(c.Paint.Color); err != nil {
			return err
		}
	case PaintImage:
		if c.Paint.Image == "" {
			return fmt.Errorf("paint mode %q needs paint.image", PaintImage)
		}
	default:
		return fmt.Errorf("unknown paint mode %q (want stripes, solid or image)", c.Paint.Mode)
	}
	if c.Logging.LogLevel != "" {
		if _, err := logger.ParseLevel(c.Logging.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// SessionOptions turns the configuration into session options.
func (c *Config) SessionOptions() (session.Options, error) {
	policy, err := session.ParseDecorationPolicy(c.Window.Decorations)
	if err != nil {
		return session.Options{}, err
	}
	backend, err := shm.ParseBackend(c.Shm.Backend)
	if err != nil {
		return session.Options{}, err
	}
	painter, err := c.Painter()
	if err != nil {
		return session.Options{}, err
	}

	dir := c.Shm.Dir
	if dir == "" {
		dir = shm.DefaultDir
	}
	alloc := shm.NewAllocator(shm.WithBackend(backend), shm.WithDir(dir))

	return session.Options{
		Width:       c.Window.Width,
		Height:      c.Window.Height,
		Decorations: policy,
		Alloc:       frame.FromAllocator(alloc),
		Painter:     painter,
	}, nil
}

// Painter builds the painter selected by paint.mode.
func (c *Config) Painter() (frame.Painter, error) {
	switch c.Paint.Mode {
	case "", PaintStripes:
		if len(c.Paint.Palette) == 0 {
			return frame.DefaultStripes(), nil
		}
		colors, err := frame.ParsePalette(c.Paint.Palette)
		if err != nil {
			return nil, err
		}
		return &frame.Stripes{Colors: colors}, nil
	case PaintSolid:
		color, err := frame.ParseColor(c.Paint.Color)
		if err != nil {
			return nil, err
		}
		return frame.Solid{Color: color}, nil
	case PaintImage:
		img, err := frame.LoadImage(c.Paint.Image)
		if err != nil {
			return nil, err
		}
		return img, nil
	}
	return nil, fmt.Errorf("unknown paint mode %q", c.Paint.Mode)
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "wayshm.toml"
	}
	return filepath.Join(dir, "wayshm", "wayshm.toml")
}
