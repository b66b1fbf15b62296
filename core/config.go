package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// session stores
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type (
	Config struct {
		AppName              string
		Env                  string // DEV (local; default), TEST, QA, PROD
		Build                string
		Debug                bool
		TestMode             bool
		WorkDir              string
		SecretKey            string
		FrontendBaseURL      string
		DefaultFromEmail     mail.Address
		SendgridAPIKey       string
		RollbarToken         string
		PasswordResetTimeout time.Duration
		SessionStore         string // memory | redis

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}

	ServerConfig struct {
		Address             string
		DebugHost           string
		Host                string
		ShutdownTimeout     time.Duration
		DisableReqLogs      bool
		SessionCookieName   string
		SessionTTL          time.Duration
		StudentsRequireAuth bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite | sqlite3
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite file (or ":memory:")
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c DatabaseConfig) IsSQLite() bool {
	return c.Engine == "sqlite" || c.Engine == "sqlite3"
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed with the upper-cased env name, eg: DEV_DATABASE_ENGINE.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("appName", "Shule")
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("workDir", "")
	conf.SetDefault("secretKey", "k7v%9t!2zq$u8@wm#c4r&x6e*h0p^b3n-s5d(f1g)j_y")
	conf.SetDefault("frontendBaseURL", "http://localhost:5173")
	conf.SetDefault("defaultFromEmail", "Shule <noreply@localhost>")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("passwordResetTimeout", 3*24*time.Hour)
	conf.SetDefault("sessionStore", SessionStoreMemory)

	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.disableReqLogs", false)
	conf.SetDefault("server.sessionCookieName", "shule_session")
	conf.SetDefault("server.sessionTTL", 7*24*time.Hour)
	conf.SetDefault("server.studentsRequireAuth", true)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", 5432)
	conf.SetDefault("database.name", "shule")
	conf.SetDefault("database.user", "shule")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)
	conf.SetDefault("database.path", "shule.db")

	conf.SetDefault("redis.address", "localhost:6379")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	case "QA", "PROD":
		conf.SetDefault("debug", false)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := os.Getenv(env + "_WORKDIR")
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("config.os.Getwd(): %v", err)
		}
		workDir = wd
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(conf.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		AppName:              conf.GetString("appName"),
		Env:                  env,
		Build:                conf.GetString("build"),
		Debug:                conf.GetBool("debug"),
		TestMode:             conf.GetBool("testMode"),
		WorkDir:              workDir,
		SecretKey:            conf.GetString("secretKey"),
		FrontendBaseURL:      strings.TrimRight(conf.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail:     *fromEmail,
		SendgridAPIKey:       conf.GetString("sendgridApiKey"),
		RollbarToken:         conf.GetString("rollbarToken"),
		PasswordResetTimeout: conf.GetDuration("passwordResetTimeout"),
		SessionStore:         conf.GetString("sessionStore"),
		Server: ServerConfig{
			Address:             conf.GetString("server.address"),
			DebugHost:           conf.GetString("server.debugHost"),
			Host:                conf.GetString("server.host"),
			ShutdownTimeout:     conf.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:      conf.GetBool("server.disableReqLogs"),
			SessionCookieName:   conf.GetString("server.sessionCookieName"),
			SessionTTL:          conf.GetDuration("server.sessionTTL"),
			StudentsRequireAuth: conf.GetBool("server.studentsRequireAuth"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetInt("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
			Path:          conf.GetString("database.path"),
		},
		Redis: RedisConfig{
			Address:  conf.GetString("redis.address"),
			Password: conf.GetString("redis.password"),
			DB:       conf.GetInt("redis.db"),
		},
	}
}
