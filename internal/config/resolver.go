package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	// MatchToken routes on the first host label, gated by TokenLength.
	MatchToken = "token"
	// MatchDomain routes on the full host matching a tenant domain.
	MatchDomain = "domain"
)

// ResolverConfig controls how an inbound host is mapped to a tenant.
type ResolverConfig struct {
	Match       string `mapstructure:"match"`
	TokenLength int    `mapstructure:"tokenLength"`
}

func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Match:       MatchToken,
		TokenLength: 2,
	}
}

// ResolverConfigHolder exposes the current resolver rule and hot-reloads it
// when resolver.yml changes on disk.
type ResolverConfigHolder struct {
	current atomic.Value // holds ResolverConfig
}

func NewResolverConfigHolder() (*ResolverConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("resolver")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/umagate/config")
	v.AddConfigPath("/etc/umagate")
	v.AddConfigPath(".")

	v.SetEnvPrefix("UMAGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultResolverConfig()
	v.SetDefault("resolver.match", defaults.Match)
	v.SetDefault("resolver.tokenLength", defaults.TokenLength)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg ResolverConfig
	if err := v.UnmarshalKey("resolver", &cfg); err != nil {
		return nil, err
	}
	if err := validateResolverConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ResolverConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ResolverConfig
		if err := v.UnmarshalKey("resolver", &updated); err != nil {
			log.Printf("[resolver-config] reload failed: %v", err)
			return
		}
		if err := validateResolverConfig(updated); err != nil {
			log.Printf("[resolver-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[resolver-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticResolverConfigHolder wraps a fixed rule, for tests.
func NewStaticResolverConfigHolder(cfg ResolverConfig) *ResolverConfigHolder {
	holder := &ResolverConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ResolverConfigHolder) Get() ResolverConfig {
	return h.current.Load().(ResolverConfig)
}

func validateResolverConfig(cfg ResolverConfig) error {
	switch cfg.Match {
	case MatchToken:
		if cfg.TokenLength < 1 {
			return errors.New("resolver.tokenLength must be positive")
		}
	case MatchDomain:
	default:
		return errors.New("resolver.match must be token or domain")
	}
	return nil
}
