package config

import "time"

// Config 配置主体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"database"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logstash  LogstashConfig  `mapstructure:"logstash"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	PostEvent KafkaPostEvent  `mapstructure:"kafka_post_event"`
	Platforms PlatformsConfig `mapstructure:"platforms"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置（用户与已连接账号）
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

// MongoConfig 文档库配置（帖子与指标）
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type KafkaConfig struct {
	Enable   bool           `mapstructure:"enable"`
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type KafkaPostEvent struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// PlatformsConfig 第三方平台接口配置
type PlatformsConfig struct {
	Facebook GraphConfig   `mapstructure:"facebook"`
	Twitter  TwitterConfig `mapstructure:"twitter"`
}

// GraphConfig Facebook Graph (Instagram 同样经由 Graph 访问)
type GraphConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Version   string        `mapstructure:"version"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	Retries   int           `mapstructure:"retries"`
}

type TwitterConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	BearerToken string        `mapstructure:"bearer_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	Burst       int           `mapstructure:"burst"`
	Retries     int           `mapstructure:"retries"`
}

// AnalyticsConfig 指标刷新与聚合配置
type AnalyticsConfig struct {
	BulkDelay       time.Duration `mapstructure:"bulk_delay"`
	RefreshCron     string        `mapstructure:"refresh_cron"`
	SummaryCacheTTL time.Duration `mapstructure:"summary_cache_ttl"`
	RefreshLockTTL  time.Duration `mapstructure:"refresh_lock_ttl"`
}
