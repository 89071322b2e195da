package main

import (
	"fmt"
	"time"
)

type Config struct {
	HTTPAddr          string        `env:"HTTP_ADDR,default=:8080"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	UploadsDir        string        `env:"UPLOADS_DIR,default=uploads"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	SessionBufferSize int           `env:"SESSION_BUFFER_SIZE,default=256"`
	EventBufferSize   int           `env:"EVENT_BUFFER_SIZE,default=1024"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	MaxMessageBytes   int64         `env:"MAX_MESSAGE_BYTES,default=65536"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
