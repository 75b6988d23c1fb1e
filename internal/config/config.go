package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the YAML config at path, merges optional include files, applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err := mergeConfigFile(v, abs); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", abs, err)
	}
	for _, inc := range includeList(v) {
		incPath := inc
		if !filepath.IsAbs(inc) {
			incPath = filepath.Join(filepath.Dir(abs), inc)
		}
		if err := mergeConfigFile(v, incPath); err != nil {
			return nil, fmt.Errorf("reading include failed (%s): %w", incPath, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

func includeList(v *viper.Viper) []string {
	raw := v.GetStringSlice("include")
	out := make([]string, 0, len(raw))
	for _, inc := range raw {
		inc = strings.TrimSpace(inc)
		if inc != "" {
			out = append(out, inc)
		}
	}
	return out
}
