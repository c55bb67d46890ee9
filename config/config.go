package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig  `yaml:"database"`
	Kafka    KafkaConfig     `yaml:"kafka"`
	Redis    RedisConfig     `yaml:"redis"`
	PostiBox PostiBoxConfig  `yaml:"postibox"`
	Accounts []AccountConfig `yaml:"accounts"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                      string `yaml:"host"`
	Port                      int    `yaml:"port"`
	ShipmentsUpdatedTopicName string `yaml:"shipments_updated_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type PostiBoxConfig struct {
	HTTPAddr                  string `yaml:"http_addr"`
	WorkerHTTPAddr            string `yaml:"worker_http_addr"`
	KafkaConsumerGroup        string `yaml:"kafka_consumer_group"`
	CurrentSnapshotTTLSeconds int    `yaml:"current_snapshot_ttl_seconds"`

	// Worker scheduling. If not set, defaults are the carrier-friendly
	// 10-minute poll with 5/15/30/60 minute failure backoff.
	WorkerPollIntervalSeconds int `yaml:"worker_poll_interval_seconds"`
	WorkerRateLimitPerMinute  int `yaml:"worker_rate_limit_per_minute"`
	WorkerBackoff1Seconds     int `yaml:"worker_backoff_1_seconds"`
	WorkerBackoff2Seconds     int `yaml:"worker_backoff_2_seconds"`
	WorkerBackoff3Seconds     int `yaml:"worker_backoff_3_seconds"`
	WorkerBackoff4Seconds     int `yaml:"worker_backoff_4_seconds"`

	// Applied to every HTTP call the Posti session makes. Default 20.
	SessionTimeoutSeconds int `yaml:"session_timeout_seconds"`
}

type AccountConfig struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	Language                   string `yaml:"language"`
	PrioritizeUndelivered      bool   `yaml:"prioritize_undelivered"`
	MaxShipments               int    `yaml:"max_shipments"`
	StaleShipmentDayLimit      int    `yaml:"stale_shipment_day_limit"`
	CompletedShipmentDaysShown int    `yaml:"completed_shipment_days_shown"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
