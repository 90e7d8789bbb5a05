package api

import "time"

type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	AllowOrigins    []string      `envconfig:"ALLOW_ORIGINS" split_words:"true" default:"*"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"180s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"20s"`
	Debug           bool          `envconfig:"DEBUG" default:"false"`
}
