package config

import (
	"github.com/ilyakaznacheev/cleanenv"
)

// Config defines the app configuration.
type Config struct {
	Server struct {
		Port int    `yaml:"port" env:"PORT" env-default:"4000"`
		Env  string `yaml:"env" env:"ENV" env-default:"development"`
	} `yaml:"server"`
	Database struct {
		DSN          string `yaml:"dsn" env:"DSN"`
		MaxOpenConns int    `yaml:"max_open_conns" env:"MAXOPENCONNS"`
		MaxIdleConns int    `yaml:"max_idle_conns" env:"MAXIDLECONNS"`
		MaxIdleTime  string `yaml:"max_idle_time" env:"MAXIDLETIME"`
	} `yaml:"database"`
	Smtp struct {
		Host     string `yaml:"host" env:"SMTPHOST"`
		Port     int    `yaml:"port" env:"SMTPPORT"`
		Username string `yaml:"username" env:"SMTPUSERNAME"`
		Password string `yaml:"password" env:"SMTPPASSWORD"`
		Sender   string `yaml:"sender" env:"SMTPSENDER"`
	} `yaml:"smtp"`
	S3 struct {
		AccessKeyID     string `yaml:"access_key_id" env:"ACCESSKEYID"`
		SecretAccessKey string `yaml:"secret_access_key" env:"SECRETACCESSKEY"`
		Region          string `yaml:"region" env:"REGION"`
		Bucket          string `yaml:"bucket" env:"BUCKET"`
	} `yaml:"s3"`
	Loans struct {
		PeriodDays    int    `yaml:"period_days" env:"LOANPERIODDAYS" env-default:"4"`
		SweepInterval string `yaml:"sweep_interval" env:"LOANSWEEPINTERVAL" env-default:"1h"`
	} `yaml:"loans"`
	Limiter struct {
		RPS     float64 `yaml:"rps" env:"RPS" env-default:"4"`
		Burst   int     `yaml:"burst" env:"BURST" env-default:"8"`
		Enabled bool    `yaml:"enabled" env:"LENABLED" env-default:"true"`
	} `yaml:"limiter"`
	Cors struct {
		TrustedOrigins []string `yaml:"trusted_origins" env:"TRUSTEDORIGINS"`
	} `yaml:"cors"`
	BasicAuth struct {
		Username string `yaml:"username" env:"USERNAME"`
		Password string `yaml:"password" env:"PASSWORD"`
	} `yaml:"basic_auth"`
}

// Load populates a Config from an optional yaml file plus the environment.
// When no file path is given only the environment is read.
func Load(path string, cfg *Config) error {
	if path == "" {
		return cleanenv.ReadEnv(cfg)
	}
	return cleanenv.ReadConfig(path, cfg)
}
