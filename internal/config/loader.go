package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "DTI"

// Sentinel errors returned (wrapped) by Load.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigParseError   = errors.New("config file could not be parsed")
	ErrConfigValidation   = errors.New("config validation failed")
)

type loadOptions struct {
	configPath  string
	searchPaths []string
	overrides   map[string]interface{}
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithConfigPath reads exactly the given file.
func WithConfigPath(path string) LoadOption {
	return func(o *loadOptions) { o.configPath = path }
}

// WithSearchPaths looks for config.yaml in each directory, in order.
func WithSearchPaths(dirs ...string) LoadOption {
	return func(o *loadOptions) { o.searchPaths = append(o.searchPaths, dirs...) }
}

// WithOverrides sets keys after file and environment have been merged.
func WithOverrides(values map[string]interface{}) LoadOption {
	return func(o *loadOptions) { o.overrides = values }
}

// newViper builds a Viper instance with YAML file type, the DTI_ env prefix,
// automatic env binding and a "." → "_" key replacer so that "redis.addr"
// resolves to DTI_REDIS_ADDR.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// Load reads the configuration file selected by opts, merges DTI_*
// environment overrides, applies defaults and validates the result. With no
// path and no search paths it behaves like LoadFromEnv.
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	v := newViper()
	switch {
	case o.configPath != "":
		v.SetConfigFile(o.configPath)
	case len(o.searchPaths) > 0:
		v.SetConfigName("config")
		for _, p := range o.searchPaths {
			v.AddConfigPath(p)
		}
	default:
		return finalize(v, o)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: %w: %v", ErrConfigFileNotFound, err)
		}
		return nil, fmt.Errorf("config: %w: %v", ErrConfigParseError, err)
	}
	return finalize(v, o)
}

// LoadFromEnv builds a Config entirely from DTI_* environment variables.
//
//	DTI_<SECTION>_<FIELD>   e.g.  DTI_REDIS_ADDR, DTI_RENDER_WIDTH
func LoadFromEnv() (*Config, error) {
	return Load()
}

func finalize(v *viper.Viper, o *loadOptions) (*Config, error) {
	for k, val := range o.overrides {
		v.Set(k, val)
	}
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w: %v", ErrConfigParseError, err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file changes. Invalid revisions are reported to onError (when
// non-nil) and never reach onChange. Only hot-reloadable settings such as the
// log level should be applied by the callback.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: watch %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics on any error. Intended for main().
func MustLoad(opts ...LoadOption) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
