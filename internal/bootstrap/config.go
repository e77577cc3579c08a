package bootstrap

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	KatagoBin       string  `mapstructure:"KATAGO_BIN"`
	EngineConfig    string  `mapstructure:"ENGINE_CONFIG"`
	ModelsDir       string  `mapstructure:"MODELS_DIR"`
	OutputDir       string  `mapstructure:"OUTPUT_DIR"`
	Rules           string  `mapstructure:"RULES"`
	Komi            float64 `mapstructure:"KOMI"`
	MaxVisits       int     `mapstructure:"MAX_VISITS"`
	QueryTimeoutSec int     `mapstructure:"QUERY_TIMEOUT_SEC"`

	WinrateTolerance float64 `mapstructure:"WINRATE_TOLERANCE"`
	ScoreTolerance   float64 `mapstructure:"SCORE_TOLERANCE"`
	MinVisits        int     `mapstructure:"MIN_VISITS"`
	MaxDepth         int     `mapstructure:"MAX_DEPTH"`
	Parallelism      int     `mapstructure:"PARALLELISM"`

	RegionColMin string `mapstructure:"REGION_COL_MIN"`
	RegionColMax string `mapstructure:"REGION_COL_MAX"`
	RegionRowMin int    `mapstructure:"REGION_ROW_MIN"`
	RegionRowMax int    `mapstructure:"REGION_ROW_MAX"`

	RedisUrl    string `mapstructure:"REDIS_URL"`
	CacheTTLSec int    `mapstructure:"CACHE_TTL_SEC"`
	MongoUri    string `mapstructure:"MONGO_URI"`
	MonitorAddr string `mapstructure:"MONITOR_ADDR"`
}

func Setup(cfgPath string) (*Config, error) {
	viper.SetConfigFile(cfgPath)

	viper.SetDefault("KATAGO_BIN", "./assets/katago/katago")
	viper.SetDefault("ENGINE_CONFIG", "configs/referee_config.cfg")
	viper.SetDefault("MODELS_DIR", "./assets/models")
	viper.SetDefault("OUTPUT_DIR", "output/joseki")
	viper.SetDefault("RULES", "chinese")
	viper.SetDefault("KOMI", 7.5)
	viper.SetDefault("MAX_VISITS", 500)
	viper.SetDefault("QUERY_TIMEOUT_SEC", 120)
	viper.SetDefault("WINRATE_TOLERANCE", 0.05)
	viper.SetDefault("SCORE_TOLERANCE", 2.0)
	viper.SetDefault("MIN_VISITS", 50)
	viper.SetDefault("MAX_DEPTH", 30)
	viper.SetDefault("PARALLELISM", 1)
	viper.SetDefault("REGION_COL_MIN", "J")
	viper.SetDefault("REGION_COL_MAX", "T")
	viper.SetDefault("REGION_ROW_MIN", 11)
	viper.SetDefault("REGION_ROW_MAX", 19)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.WinrateTolerance < 0 || c.WinrateTolerance > 1 {
		return fmt.Errorf("winrate tolerance %v out of [0,1]", c.WinrateTolerance)
	}
	if c.ScoreTolerance < 0 {
		return fmt.Errorf("score tolerance %v is negative", c.ScoreTolerance)
	}
	if c.MinVisits < 0 {
		return fmt.Errorf("min visits %d is negative", c.MinVisits)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max depth %d must be positive", c.MaxDepth)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism %d must be at least 1", c.Parallelism)
	}
	return nil
}
