package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Client captures the settings needed to talk to the verification service.
type Client struct {
	PartnerID    string
	APIKey       string
	Server       string
	APIVersion   string
	CallbackURL  string
	HTTPTimeout  time.Duration
	PollAttempts int
	PollDelay    time.Duration
	LogLevel     string
	SchemaTTL    time.Duration

	Redis RedisConfig
	Kafka KafkaConfig
	Fake  FakeServer
}

// RedisConfig configures the optional shared schema cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional job event publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FakeServer configures the local development stand-in for the service.
type FakeServer struct {
	Addr          string
	CompleteAfter int
}

// Enabled reports whether events should be published to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Default poll policy.
const (
	DefaultPollAttempts = 20
	DefaultPollDelay    = 2 * time.Second
)

// FromEnv builds a Client config from SMILEID_* environment variables so main stays lean.
func FromEnv() Client {
	return Client{
		PartnerID:    os.Getenv("SMILEID_PARTNER_ID"),
		APIKey:       os.Getenv("SMILEID_API_KEY"),
		Server:       envOr("SMILEID_SERVER", "test"),
		APIVersion:   os.Getenv("SMILEID_API_VERSION"),
		CallbackURL:  os.Getenv("SMILEID_CALLBACK_URL"),
		HTTPTimeout:  envDuration("SMILEID_HTTP_TIMEOUT", 30*time.Second),
		PollAttempts: envInt("SMILEID_POLL_ATTEMPTS", DefaultPollAttempts),
		PollDelay:    envDuration("SMILEID_POLL_DELAY", DefaultPollDelay),
		LogLevel:     envOr("SMILEID_LOG_LEVEL", "info"),
		SchemaTTL:    envDuration("SMILEID_SCHEMA_CACHE_TTL", 10*time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("SMILEID_REDIS_URL"),
			PoolSize:     envInt("SMILEID_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SMILEID_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("SMILEID_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SMILEID_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SMILEID_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("SMILEID_KAFKA_BROKERS"),
			Topic:   envOr("SMILEID_KAFKA_TOPIC", "smileid.job-events"),
		},
		Fake: FakeServer{
			Addr:          envOr("SMILEID_FAKE_ADDR", ":8089"),
			CompleteAfter: envInt("SMILEID_FAKE_COMPLETE_AFTER", 2),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// envDuration accepts Go durations ("1500ms") or whole seconds ("2").
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
