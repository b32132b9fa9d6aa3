package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// SysConfig holds process-level settings.
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// WebConfig holds the REST listener settings.
type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	Secret    string `yaml:"secret" json:"secret"`
	JwtExpire int    `yaml:"jwt_expire" json:"jwt_expire"` // access token lifetime, minutes
}

// DBConfig holds database connection settings.
type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Mode       string `yaml:"mode" json:"mode"` // production or development
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// NotifyConfig holds low-stock notification settings. Empty values disable
// the corresponding channel.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
	SmtpHost   string `yaml:"smtp_host" json:"smtp_host"`
	SmtpPort   int    `yaml:"smtp_port" json:"smtp_port"`
	SmtpUser   string `yaml:"smtp_user" json:"smtp_user"`
	SmtpPasswd string `yaml:"smtp_passwd" json:"smtp_passwd"`
	MailTo     string `yaml:"mail_to" json:"mail_to"`
}

type AppConfig struct {
	System   SysConfig    `yaml:"system" json:"system"`
	Web      WebConfig    `yaml:"web" json:"web"`
	Database DBConfig     `yaml:"database" json:"database"`
	Logger   LoggerConfig `yaml:"logger" json:"logger"`
	Notify   NotifyConfig `yaml:"notify" json:"notify"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "stockpile",
		Location: "UTC",
		Workdir:  "/var/stockpile",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1816,
		Secret:    "9b6de5cc-0001-1203-xxtt-0f568ac9da37",
		JwtExpire: 60,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "stockpile",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LoggerConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/stockpile/stockpile.log",
	},
}

func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(c.System.Workdir, 0o755)
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "data"), 0o755)
}

// LoadConfig reads configuration from cfile, falling back to defaults, with
// STOCKPILE_* environment variables taking precedence over both.
func LoadConfig(cfile string) *AppConfig {
	defaults := *DefaultAppConfig
	cfg := &defaults
	if cfile != "" {
		if _, err := os.Stat(cfile); err == nil {
			data, err := os.ReadFile(cfile)
			if err != nil {
				panic(err)
			}
			cfg = new(AppConfig)
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(fmt.Sprintf("parse config %s: %v", cfile, err))
			}
		}
	}

	setEnvStr := func(name string, val *string) {
		if v := os.Getenv(name); v != "" {
			*val = v
		}
	}
	setEnvInt := func(name string, val *int) {
		if v := os.Getenv(name); v != "" {
			*val = cast.ToInt(v)
		}
	}
	setEnvBool := func(name string, val *bool) {
		if v := os.Getenv(name); v != "" {
			*val = cast.ToBool(v)
		}
	}

	setEnvStr("STOCKPILE_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvBool("STOCKPILE_SYSTEM_DEBUG", &cfg.System.Debug)
	setEnvStr("STOCKPILE_WEB_HOST", &cfg.Web.Host)
	setEnvInt("STOCKPILE_WEB_PORT", &cfg.Web.Port)
	setEnvStr("STOCKPILE_WEB_SECRET", &cfg.Web.Secret)
	setEnvInt("STOCKPILE_WEB_JWT_EXPIRE", &cfg.Web.JwtExpire)
	setEnvStr("STOCKPILE_DB_TYPE", &cfg.Database.Type)
	setEnvStr("STOCKPILE_DB_HOST", &cfg.Database.Host)
	setEnvInt("STOCKPILE_DB_PORT", &cfg.Database.Port)
	setEnvStr("STOCKPILE_DB_NAME", &cfg.Database.Name)
	setEnvStr("STOCKPILE_DB_USER", &cfg.Database.User)
	setEnvStr("STOCKPILE_DB_PWD", &cfg.Database.Passwd)
	setEnvStr("STOCKPILE_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvStr("STOCKPILE_NOTIFY_WEBHOOK_URL", &cfg.Notify.WebhookURL)

	return cfg
}
