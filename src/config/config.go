// Package config loads dfm settings from ~/.config/dfm/config.yaml and
// DFM_* environment variables.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dfm/src/sorting"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "DFM"

type Config struct {
	Panels PanelsConfig `mapstructure:"panels" yaml:"panels"`
	Editor EditorConfig `mapstructure:"editor" yaml:"editor"`
	UI     UIConfig     `mapstructure:"ui" yaml:"ui"`
}

// PanelsConfig holds the starting state of both panels. Empty directories
// mean the working directory.
type PanelsConfig struct {
	Left       string `mapstructure:"left" yaml:"left"`
	Right      string `mapstructure:"right" yaml:"right"`
	SortKey    string `mapstructure:"sort_key" yaml:"sort_key"`
	SortOrder  string `mapstructure:"sort_order" yaml:"sort_order"`
	ShowHidden bool   `mapstructure:"show_hidden" yaml:"show_hidden"`
}

type EditorConfig struct {
	PageSize    int   `mapstructure:"page_size" yaml:"page_size"`
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size"`
}

type UIConfig struct {
	Preview       bool          `mapstructure:"preview" yaml:"preview"`
	PreviewStyle  string        `mapstructure:"preview_style" yaml:"preview_style"`
	Watch         bool          `mapstructure:"watch" yaml:"watch"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce" yaml:"watch_debounce"`
	ConfirmDelete bool          `mapstructure:"confirm_delete" yaml:"confirm_delete"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Panels: PanelsConfig{
			SortKey:    sorting.ByName.String(),
			SortOrder:  sorting.Ascending.String(),
			ShowHidden: true,
		},
		Editor: EditorConfig{
			PageSize:    20,
			MaxFileSize: 10 * 1024 * 1024,
		},
		UI: UIConfig{
			Preview:       true,
			PreviewStyle:  "monokai",
			Watch:         true,
			WatchDebounce: 200 * time.Millisecond,
			ConfirmDelete: true,
		},
	}
}

// DefaultPath returns ~/.config/dfm/config.yaml, or the location named by
// DFM_CONFIG.
func DefaultPath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "dfm", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("panels.left", d.Panels.Left)
	v.SetDefault("panels.right", d.Panels.Right)
	v.SetDefault("panels.sort_key", d.Panels.SortKey)
	v.SetDefault("panels.sort_order", d.Panels.SortOrder)
	v.SetDefault("panels.show_hidden", d.Panels.ShowHidden)
	v.SetDefault("editor.page_size", d.Editor.PageSize)
	v.SetDefault("editor.max_file_size", d.Editor.MaxFileSize)
	v.SetDefault("ui.preview", d.UI.Preview)
	v.SetDefault("ui.preview_style", d.UI.PreviewStyle)
	v.SetDefault("ui.watch", d.UI.Watch)
	v.SetDefault("ui.watch_debounce", d.UI.WatchDebounce)
	v.SetDefault("ui.confirm_delete", d.UI.ConfirmDelete)
}

// Load reads path (DefaultPath when empty) on top of the defaults and
// applies DFM_* overrides, e.g. DFM_PANELS_SORT_KEY=size. A missing file is
// not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !missing(err) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func missing(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return stderrors.As(err, &nf) || stderrors.Is(err, fs.ErrNotExist)
}

// Validate checks values that cannot be caught by decoding.
func (c Config) Validate() error {
	if _, err := c.SortPolicy(); err != nil {
		return err
	}
	if c.Editor.PageSize < 1 {
		return fmt.Errorf("editor.page_size must be positive, got %d", c.Editor.PageSize)
	}
	if c.Editor.MaxFileSize < 1 {
		return fmt.Errorf("editor.max_file_size must be positive, got %d", c.Editor.MaxFileSize)
	}
	if c.UI.WatchDebounce < 0 {
		return fmt.Errorf("ui.watch_debounce must not be negative")
	}
	return nil
}

// SortPolicy is the initial sort policy of both panels.
func (c Config) SortPolicy() (sorting.Policy, error) {
	k, err := sorting.ParseKey(c.Panels.SortKey)
	if err != nil {
		return sorting.Policy{}, fmt.Errorf("panels.sort_key: %w", err)
	}
	o, err := sorting.ParseOrder(c.Panels.SortOrder)
	if err != nil {
		return sorting.Policy{}, fmt.Errorf("panels.sort_order: %w", err)
	}
	return sorting.Policy{Key: k, Order: o}, nil
}

// WriteDefault writes the default settings to path as YAML. An existing
// file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
