package config

import (
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/vigiamx/satavisos/pkg/errors"
)

const envPrefix = "SATAVISOS"

// Loader reads and watches one configuration source.
type Loader struct {
	v  *viper.Viper
	mu sync.RWMutex

	current  *Config
	onChange []func(*Config)
}

// NewLoader prepares a loader.  path may be empty; the loader then runs on
// defaults and environment variables alone.
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("satavisos")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/satavisos")
	}

	return &Loader{v: v}
}

// Load reads the configuration.  A missing config file is tolerated; a
// malformed one is not.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "read config file")
		}
	}

	cfg := new(Config)
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "validate config")
	}

	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Current returns the last successfully loaded configuration.
func (l *Loader) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked after every successful hot reload.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	l.onChange = append(l.onChange, fn)
	l.mu.Unlock()
}

// Watch starts hot reloading.  A reload that fails validation keeps the
// previous configuration; callbacks only ever see valid trees.
func (l *Loader) Watch() {
	l.v.OnConfigChange(func(_ fsnotify.Event) {
		cfg := new(Config)
		if err := l.v.Unmarshal(cfg); err != nil {
			return
		}
		if err := cfg.Validate(); err != nil {
			return
		}

		l.mu.Lock()
		l.current = cfg
		callbacks := make([]func(*Config), len(l.onChange))
		copy(callbacks, l.onChange)
		l.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	l.v.WatchConfig()
}
