package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/example/lecture-room-booking/internal/availability"
	"github.com/example/lecture-room-booking/internal/interval"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	Location       *time.Location
	Window         availability.Window
	FreeRoomsLimit int

	RedisAddr string
	CacheTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	SweepSchedule string

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	OTelEnabled       bool
	OTelEndpoint      string
	OTelSamplingRatio float64

	LogLevel slog.Level
}

// Load reads an optional .env file and then parses the process environment.
// Variables already present in the environment take precedence over .env.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is ignored.
func LoadFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return parse()
}

func parse() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		SQLiteDSN:         "roombooking.db",
		Location:          time.UTC,
		Window:            availability.DefaultWindow(),
		FreeRoomsLimit:    12,
		CacheTTL:          5 * time.Minute,
		KafkaTopic:        "booking-events",
		SweepSchedule:     "0 3 * * *",
		RateLimitRPS:      20,
		RateLimitBurst:    40,
		CORSOrigins:       []string{"*"},
		OTelEndpoint:      "localhost:4317",
		OTelSamplingRatio: 1,
		LogLevel:          slog.LevelInfo,
	}

	invalid := make([]string, 0, 2)

	if v := env("ROOMBOOKING_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "ROOMBOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if v := env("ROOMBOOKING_SQLITE_DSN"); v != "" {
		cfg.SQLiteDSN = v
	}

	if v := env("ROOMBOOKING_TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			invalid = append(invalid, "ROOMBOOKING_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	start, end := env("ROOMBOOKING_WINDOW_START"), env("ROOMBOOKING_WINDOW_END")
	if start != "" || end != "" {
		def := availability.DefaultWindow()
		if start == "" {
			start = interval.Format(def.Start)
		}
		if end == "" {
			end = interval.Format(def.End)
		}
		w, err := availability.ParseWindow(start, end)
		if err != nil {
			invalid = append(invalid, "ROOMBOOKING_WINDOW_START/ROOMBOOKING_WINDOW_END")
		} else {
			cfg.Window = w
		}
	}

	if v := env("ROOMBOOKING_FREE_ROOMS_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			invalid = append(invalid, "ROOMBOOKING_FREE_ROOMS_LIMIT")
		} else {
			cfg.FreeRoomsLimit = n
		}
	}

	cfg.RedisAddr = env("ROOMBOOKING_REDIS_ADDR")

	if v := env("ROOMBOOKING_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ROOMBOOKING_CACHE_TTL")
		} else {
			cfg.CacheTTL = ttl
		}
	}

	cfg.KafkaBrokers = splitList(env("ROOMBOOKING_KAFKA_BROKERS"))
	if v := env("ROOMBOOKING_KAFKA_TOPIC"); v != "" {
		cfg.KafkaTopic = v
	}

	if v := env("ROOMBOOKING_SWEEP_SCHEDULE"); v != "" {
		if _, err := cron.ParseStandard(v); err != nil {
			invalid = append(invalid, "ROOMBOOKING_SWEEP_SCHEDULE")
		} else {
			cfg.SweepSchedule = v
		}
	}

	if v := env("ROOMBOOKING_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			invalid = append(invalid, "ROOMBOOKING_RATE_LIMIT_RPS")
		} else {
			cfg.RateLimitRPS = rps
		}
	}

	if v := env("ROOMBOOKING_RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "ROOMBOOKING_RATE_LIMIT_BURST")
		} else {
			cfg.RateLimitBurst = burst
		}
	}

	if origins := splitList(env("ROOMBOOKING_CORS_ORIGINS")); len(origins) > 0 {
		cfg.CORSOrigins = origins
	}

	if v := env("OTEL_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, "OTEL_ENABLED")
		} else {
			cfg.OTelEnabled = enabled
		}
	}

	if v := env("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTelEndpoint = v
	}

	if v := env("OTEL_SAMPLING_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil || ratio < 0 || ratio > 1 {
			invalid = append(invalid, "OTEL_SAMPLING_RATIO")
		} else {
			cfg.OTelSamplingRatio = ratio
		}
	}

	if v := env("ROOMBOOKING_LOG_LEVEL"); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			invalid = append(invalid, "ROOMBOOKING_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
