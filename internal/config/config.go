package config

import (
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, built once at startup and passed by
// reference into the services that need it. Business logic never reads the
// environment directly.
type Config struct {
	MongoURI      string `env:"MONGO_URI,required"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"arovia"`
	Port          string `env:"API_PORT" envDefault:"8080"`
	JWTSecret     string `env:"JWT_SECRET,required"`
	ClientURL     string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"uploads"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/api/auth/google/callback"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GoogleEnabled reports whether the OAuth bridge is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
