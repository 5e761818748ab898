package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	CollegeConfig struct {
		Name string
		City string
	}

	// TwilioConfig is read from the environment but nothing sends SMS yet.
	TwilioConfig struct {
		AccountSID  string
		AuthToken   string
		PhoneNumber string
	}

	Config struct {
		Env                  string // DEV (local; default), TEST, QA, PROD
		Debug                bool
		TestMode             bool
		AppName              string
		Build                string
		SecretKey            string
		RollbarToken         string
		AttendanceWindowDays int
		Server               ServerConfig
		Database             DatabaseConfig
		College              CollegeConfig
		Twilio               TwilioConfig
	}
)

// Address returns the "host:port" of the database server.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the configuration for the current ENV from the environment,
// optionally seeded by a `config/.env.<env>` file.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "AttendTrack")
	conf.SetDefault("build", "develop")
	conf.SetDefault("secretKey", "4f0e-9a&c)j1b$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("attendanceWindowDays", 30)

	conf.SetDefault("serverHost", "0.0.0.0:8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverReadTimeout", 5*time.Second)
	conf.SetDefault("serverWriteTimeout", 5*time.Second)
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("disableReqLogs", false)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "attendtrack")
	conf.SetDefault("dbUser", "attendtrack")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", true)

	conf.SetDefault("collegeName", "Your College Name")
	conf.SetDefault("collegeCity", "Your City")

	conf.SetDefault("twilioAccountSid", "")
	conf.SetDefault("twilioAuthToken", "")
	conf.SetDefault("twilioPhoneNumber", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	windowDays := conf.GetInt("attendanceWindowDays")
	if windowDays <= 0 {
		windowDays = 30
	}

	return &Config{
		Env:                  env,
		Debug:                conf.GetBool("debug"),
		TestMode:             conf.GetBool("testMode"),
		AppName:              conf.GetString("appName"),
		Build:                conf.GetString("build"),
		SecretKey:            conf.GetString("secretKey"),
		RollbarToken:         conf.GetString("rollbarToken"),
		AttendanceWindowDays: windowDays,
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ReadTimeout:               conf.GetDuration("serverReadTimeout"),
			WriteTimeout:              conf.GetDuration("serverWriteTimeout"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
			DisableReqLogs:            conf.GetBool("disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		College: CollegeConfig{
			Name: conf.GetString("collegeName"),
			City: conf.GetString("collegeCity"),
		},
		Twilio: TwilioConfig{
			AccountSID:  conf.GetString("twilioAccountSid"),
			AuthToken:   conf.GetString("twilioAuthToken"),
			PhoneNumber: conf.GetString("twilioPhoneNumber"),
		},
	}
}

// NewTestConfig returns a Config for tests. Request logs are disabled.
func NewTestConfig() *Config {
	return &Config{
		Env:                  "TEST",
		Debug:                false,
		TestMode:             true,
		AppName:              "AttendTrack",
		Build:                "test",
		SecretKey:            "test-secret-key",
		AttendanceWindowDays: 30,
		Server: ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			DisableReqLogs:            true,
		},
		College: CollegeConfig{Name: "Test College", City: "Test City"},
	}
}
