package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress     string        `mapstructure:"SERVER_ADDRESS"`
	PostgresConn      string        `mapstructure:"POSTGRES_CONN"`
	MigrationURL      string        `mapstructure:"MIGRATION_URL"`
	NotaryURL         string        `mapstructure:"NOTARY_URL"`
	NotaryTimeout     time.Duration `mapstructure:"NOTARY_TIMEOUT"`
	UploadDir         string        `mapstructure:"UPLOAD_DIR"`
	FanoutQueueSize   int           `mapstructure:"FANOUT_QUEUE_SIZE"`
	SchedulerInterval time.Duration `mapstructure:"SCHEDULER_INTERVAL"`
}

// LoadConfig загружает конфигурацию из файла
func LoadConfig(path string) (cfg Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.SetDefault("NOTARY_TIMEOUT", 10*time.Second)
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("FANOUT_QUEUE_SIZE", 256)
	viper.SetDefault("SCHEDULER_INTERVAL", time.Minute)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}
	err = viper.Unmarshal(&cfg)
	return
}
