package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Server     struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	OpenAI struct {
		APIKey                      string `mapstructure:"API_KEY"`
		FreeTierModel               string `mapstructure:"FREE_TIER_MODEL"`
		PaidTierModel               string `mapstructure:"PAID_TIER_MODEL"`
		MaxTokensPublicCustomization int   `mapstructure:"MAX_TOKENS_PUBLIC_CUSTOMIZATION"`
		MaxTokensCustomGeneration    int   `mapstructure:"MAX_TOKENS_CUSTOM_GENERATION"`
	} `mapstructure:"OPENAI"`
	Quota struct {
		FreeTierMonthlyLimit int `mapstructure:"FREE_TIER_MONTHLY_LIMIT"`
		PaidTierCustomLimit  int `mapstructure:"PAID_TIER_CUSTOM_LIMIT"`
	} `mapstructure:"QUOTA"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() *Config {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	setDefaults()

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zap.L().Error("failed to read config file", zap.Error(err))
			os.Exit(1)
		}
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	return &cfg
}

func setDefaults() {
	config.SetDefault("APP_ENV", "development")
	config.SetDefault("APP_NAME", "teamfit-platform")
	config.SetDefault("HTTP_SERVER.ADDR", ":8080")
	config.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	config.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	config.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	config.SetDefault("OPENAI.FREE_TIER_MODEL", "gpt-4o-mini")
	config.SetDefault("OPENAI.PAID_TIER_MODEL", "gpt-4o")
	config.SetDefault("OPENAI.MAX_TOKENS_PUBLIC_CUSTOMIZATION", 2000)
	config.SetDefault("OPENAI.MAX_TOKENS_CUSTOM_GENERATION", 3000)
	config.SetDefault("QUOTA.FREE_TIER_MONTHLY_LIMIT", 5)
	config.SetDefault("QUOTA.PAID_TIER_CUSTOM_LIMIT", 10)
}
