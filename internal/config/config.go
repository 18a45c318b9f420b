package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis      Redis  `yaml:"redis"`
	Room       Room   `yaml:"room"`
	Bot        Bot    `yaml:"bot"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Room struct {
	// WaitingTTL keeps a room alive until enough participants joined.
	WaitingTTL time.Duration `yaml:"waiting-ttl" env-default:"1h"`
	// DefaultTTL is the countdown of a playable room that asked for auto destroy without a lifetime.
	DefaultTTL        time.Duration `yaml:"default-ttl" env-default:"15m"`
	SpectatorCapacity int           `yaml:"spectator-capacity" env-default:"8"`
	CodeAttempts      int           `yaml:"code-attempts" env-default:"10"`
	MatchAttempts     int           `yaml:"match-attempts" env-default:"5"`
}

type Bot struct {
	Delay      time.Duration `yaml:"delay" env-default:"600ms"`
	LockTTL    time.Duration `yaml:"lock-ttl" env-default:"5s"`
	MaxSteps   int           `yaml:"max-steps" env-default:"64"`
	RunTimeout time.Duration `yaml:"run-timeout" env-default:"10s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
