package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CollectionsConfig tunes the daily collections pass.
type CollectionsConfig struct {
	RunInterval         time.Duration `mapstructure:"runInterval"`
	BatchSize           int           `mapstructure:"batchSize"`
	MaxInvoicesPerRun   int           `mapstructure:"maxInvoicesPerRun"`
	PassTimeout         time.Duration `mapstructure:"passTimeout"`
	RunLockTTL          time.Duration `mapstructure:"runLockTTL"`
	FallbackDebtorName  string        `mapstructure:"fallbackDebtorName"`
	PaymentLinkTemplate string        `mapstructure:"paymentLinkTemplate"`
}

func DefaultCollectionsConfig() CollectionsConfig {
	return CollectionsConfig{
		RunInterval:         24 * time.Hour,
		BatchSize:           500,
		MaxInvoicesPerRun:   10000,
		PassTimeout:         5 * time.Minute,
		RunLockTTL:          10 * time.Minute,
		FallbackDebtorName:  "Valued Customer",
		PaymentLinkTemplate: "https://pay.collectra.io/i/{{invoice_id}}",
	}
}

type CollectionsConfigHolder struct {
	current atomic.Value // holds CollectionsConfig
}

func NewCollectionsConfigHolder() (*CollectionsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("collections")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/collectra/config")
	v.AddConfigPath("/etc/collectra")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COLLECTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCollectionsConfig()
	v.SetDefault("collections.runInterval", defaults.RunInterval)
	v.SetDefault("collections.batchSize", defaults.BatchSize)
	v.SetDefault("collections.maxInvoicesPerRun", defaults.MaxInvoicesPerRun)
	v.SetDefault("collections.passTimeout", defaults.PassTimeout)
	v.SetDefault("collections.runLockTTL", defaults.RunLockTTL)
	v.SetDefault("collections.fallbackDebtorName", defaults.FallbackDebtorName)
	v.SetDefault("collections.paymentLinkTemplate", defaults.PaymentLinkTemplate)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg CollectionsConfig
	if err := v.UnmarshalKey("collections", &cfg); err != nil {
		return nil, err
	}
	if err := validateCollectionsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &CollectionsConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CollectionsConfig
		if err := v.UnmarshalKey("collections", &updated); err != nil {
			log.Printf("[collections-config] reload failed: %v", err)
			return
		}
		if err := validateCollectionsConfig(updated); err != nil {
			log.Printf("[collections-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[collections-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticCollectionsConfigHolder wraps a fixed config, bypassing the file
// watcher. Intended for tests and one-shot tooling.
func NewStaticCollectionsConfigHolder(cfg CollectionsConfig) *CollectionsConfigHolder {
	holder := &CollectionsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *CollectionsConfigHolder) Get() CollectionsConfig {
	return h.current.Load().(CollectionsConfig)
}

func validateCollectionsConfig(cfg CollectionsConfig) error {
	if cfg.BatchSize <= 0 {
		return errors.New("collections.batchSize must be positive")
	}
	if cfg.MaxInvoicesPerRun < cfg.BatchSize {
		return errors.New("collections.maxInvoicesPerRun must be >= batchSize")
	}
	if cfg.RunInterval <= 0 {
		return errors.New("collections.runInterval must be positive")
	}
	return nil
}
