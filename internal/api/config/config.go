package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	// .env 仅用于本地开发注入密钥，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.SetEnvPrefix("BEACON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("mongo.database", "beacon")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("jwt.issuer", "Beacon")
	v.SetDefault("kafka_post_event.topic", "post-events")
	v.SetDefault("kafka_post_event.group_id", "beacon-analytics")

	v.SetDefault("platforms.facebook.base_url", "https://graph.facebook.com")
	v.SetDefault("platforms.facebook.version", "v18.0")
	v.SetDefault("platforms.facebook.timeout", 15*time.Second)
	v.SetDefault("platforms.facebook.rate_limit", 5.0)
	v.SetDefault("platforms.facebook.burst", 5)
	v.SetDefault("platforms.facebook.retries", 2)

	v.SetDefault("platforms.twitter.base_url", "https://api.twitter.com")
	v.SetDefault("platforms.twitter.timeout", 15*time.Second)
	v.SetDefault("platforms.twitter.rate_limit", 1.0)
	v.SetDefault("platforms.twitter.burst", 1)
	v.SetDefault("platforms.twitter.retries", 2)

	v.SetDefault("analytics.bulk_delay", 2*time.Second)
	v.SetDefault("analytics.refresh_cron", "0 0 */6 * * *")
	v.SetDefault("analytics.summary_cache_ttl", 5*time.Minute)
	v.SetDefault("analytics.refresh_lock_ttl", 10*time.Minute)
}
