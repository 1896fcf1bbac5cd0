// Package config loads the slotdb YAML configuration.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the recognized configuration surface.
type Config struct {
	Storage struct {
		// TableFileDir holds the <name>.table files; created if absent.
		TableFileDir string `mapstructure:"table_file_dir"`
		// MaxMemoryPoolPageNum is the buffer pool capacity in pages.
		MaxMemoryPoolPageNum int `mapstructure:"max_memory_pool_page_num"`
	} `mapstructure:"storage"`
	Server struct {
		Port  int  `mapstructure:"port"`
		Debug bool `mapstructure:"debug"`
	} `mapstructure:"server"`
}

// Load reads the YAML config at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
