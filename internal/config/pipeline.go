package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PipelineConfig holds tunable transform policy. Everything here has a safe
// default so the pipeline runs without any config file present.
type PipelineConfig struct {
	// DegenerateBinRank is the tertile rank assigned to every customer for a
	// metric whose population has fewer than three distinct values.
	DegenerateBinRank int `mapstructure:"degenerateBinRank"`
	// SnapshotDate overrides the data-derived snapshot date (YYYY-MM-DD).
	// Empty means derive it from the latest transaction.
	SnapshotDate string `mapstructure:"snapshotDate"`
	// LoadBatchSize caps rows per warehouse insert batch.
	LoadBatchSize int `mapstructure:"loadBatchSize"`
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DegenerateBinRank: 2,
		SnapshotDate:      "",
		LoadBatchSize:     1000,
	}
}

type PipelineConfigHolder struct {
	current atomic.Value // holds PipelineConfig
}

func NewPipelineConfigHolder() (*PipelineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pipeline")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/loyara")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LOYARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPipelineConfig()
	v.SetDefault("pipeline.degenerateBinRank", defaults.DegenerateBinRank)
	v.SetDefault("pipeline.snapshotDate", defaults.SnapshotDate)
	v.SetDefault("pipeline.loadBatchSize", defaults.LoadBatchSize)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, the defaults above apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PipelineConfig
	if err := v.UnmarshalKey("pipeline", &cfg); err != nil {
		return nil, err
	}
	if err := validatePipelineConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PipelineConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PipelineConfig
		if err := v.UnmarshalKey("pipeline", &updated); err != nil {
			log.Printf("[pipeline-config] reload failed: %v", err)
			return
		}
		if err := validatePipelineConfig(updated); err != nil {
			log.Printf("[pipeline-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pipeline-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PipelineConfigHolder) Get() PipelineConfig {
	return h.current.Load().(PipelineConfig)
}

// NewStaticPipelineConfigHolder wraps a fixed config, for tests.
func NewStaticPipelineConfigHolder(cfg PipelineConfig) *PipelineConfigHolder {
	holder := &PipelineConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validatePipelineConfig(cfg PipelineConfig) error {
	if cfg.DegenerateBinRank < 1 || cfg.DegenerateBinRank > 3 {
		return errors.New("pipeline.degenerateBinRank must be between 1 and 3")
	}
	if cfg.LoadBatchSize <= 0 {
		return errors.New("pipeline.loadBatchSize must be positive")
	}
	return nil
}
