package internal

import (
	"fmt"
	"regexp"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080" validate:"gt=0,lte=65535"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true" validate:"required"`
	// DatabaseURL switches the chat and presence stores to PostgreSQL.
	DatabaseURL   string `env:"DATABASE_URL"`
	LimitMessages *int   `env:"LIMIT_MESSAGES" validate:"omitempty,gt=0"`

	IdentityPattern   string `env:"IDENTITY_PATTERN,default=^[A-Za-z0-9_.@-]+$" validate:"required"`
	MaxIdentityLength int    `env:"MAX_IDENTITY_LENGTH,default=64" validate:"gt=0"`
	MaxContentLength  int    `env:"MAX_CONTENT_LENGTH,default=2000" validate:"gt=0"`

	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"gt=0"`
	EventsPerSecond      float64       `env:"EVENTS_PER_SECOND,default=20" validate:"gt=0"`
	EventsBurst          int           `env:"EVENTS_BURST,default=40" validate:"gt=0"`
	WriteWait            time.Duration `env:"WRITE_WAIT,default=10s" validate:"gt=0"`
	PongWait             time.Duration `env:"PONG_WAIT,default=60s" validate:"gt=0"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=65536" validate:"gt=0"`

	// AuthSecret empty means development mode: identities come from X-User-ID.
	AuthSecret        string        `env:"AUTH_SECRET"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h" validate:"gt=0"`

	OnlineOnRegister    bool `env:"ONLINE_ON_REGISTER,default=true"`
	OfflineOnDisconnect bool `env:"OFFLINE_ON_DISCONNECT,default=true"`

	Moderation      bool   `env:"MODERATION,default=false"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=15s" validate:"gt=0"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
	DebugInspector  bool          `env:"DEBUG_INSPECTOR,default=false"`
}

// LoadConfig reads an optional .env file then the environment.
func LoadConfig() (Config, error) {
	// Missing .env is the normal case outside of development
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := config.IdentityRegexp(); err != nil {
		return Config{}, err
	}
	if _, err := CharacterRune(config.CharReplacement); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) IdentityRegexp() (*regexp.Regexp, error) {
	pattern, err := regexp.Compile(c.IdentityPattern)
	if err != nil {
		return nil, fmt.Errorf("IDENTITY_PATTERN is not a valid expression: %w", err)
	}
	return pattern, nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
