package config

import (
	"flag"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/config.yaml"

type Config struct {
	Env           string `yaml:"env" env:"ENV" env-default:"local"`
	FrontendURL   string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	HTTPServer    `yaml:"http_server"`
	Tokens        `yaml:"tokens"`
	Cookie        `yaml:"cookie"`
	Signup        `yaml:"signup"`
	PasswordReset `yaml:"password_reset"`
	Invites       `yaml:"invites"`
	Postgres      `yaml:"postgres"`
	Redis         `yaml:"redis"`
	RabbitMQ      `yaml:"rabbitmq"`
	SMTP          `yaml:"smtp"`
	OAuth         `yaml:"oauth"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Port        string        `yaml:"port" env:"PORT"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Tokens struct {
	SessionTTL time.Duration `yaml:"session_ttl" env-default:"168h"`
	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
}

type Cookie struct {
	Name   string `yaml:"name" env-default:"auth_token"`
	Domain string `yaml:"domain"`
	Secure bool   `yaml:"secure" env:"COOKIE_SECURE"`
}

type Signup struct {
	ReservationTTL time.Duration `yaml:"reservation_ttl" env-default:"15m"`
	OTPTTL         time.Duration `yaml:"otp_ttl" env-default:"10m"`
	OTPCooldown    time.Duration `yaml:"otp_cooldown" env-default:"60s"`
	OTPMaxAttempts int           `yaml:"otp_max_attempts" env-default:"5"`
}

type PasswordReset struct {
	TokenTTL       time.Duration `yaml:"token_ttl" env-default:"30m"`
	Cooldown       time.Duration `yaml:"cooldown" env-default:"60s"`
	ResendCooldown time.Duration `yaml:"resend_cooldown" env-default:"120s"`
}

type Invites struct {
	TTL           time.Duration `yaml:"ttl" env-default:"336h"`
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1m"`
}

type Postgres struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"redis:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env-default:"mail"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

type OAuth struct {
	CallbackBaseURL string        `yaml:"callback_base_url" env:"OAUTH_CALLBACK_BASE_URL" env-default:"http://localhost:8080"`
	Google          OAuthProvider `yaml:"google" env-prefix:"GOOGLE_"`
	Facebook        OAuthProvider `yaml:"facebook" env-prefix:"FACEBOOK_"`
	SessionTTL      time.Duration `yaml:"session_ttl" env-default:"15m"`
}

type OAuthProvider struct {
	ClientID     string `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"CLIENT_SECRET"`
}

// Enabled reports whether the provider has credentials configured.
func (p OAuthProvider) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// ListenAddress returns the address the HTTP server binds to. A PORT override
// keeps the configured host.
func (s HTTPServer) ListenAddress() string {
	if s.Port == "" {
		return s.Address
	}

	host, _, err := net.SplitHostPort(s.Address)
	if err != nil {
		host = ""
	}

	return net.JoinHostPort(host, s.Port)
}

// MustLoad reads the config from the path given by --config, CONFIG_PATH or the default location.
func MustLoad() *Config {
	return MustLoadPath(fetchConfigPath())
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = defaultConfigPath
	}

	return res
}
