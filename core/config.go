package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		RollbarToken string

		Server struct {
			Address string
			Host    string
		}

		Storage struct {
			Engine string // memory | file | redis | sql
			Dir    string
			Quota  int // bytes; 0 = unlimited (memory engine only)
		}

		Redis struct {
			Addr     string
			Password string
			DB       int
			Prefix   string
		}

		Database struct {
			URL string
		}

		Drive struct {
			Engine       string // google | memory | off
			Endpoint     string
			FolderName   string
			DataFileName string
		}

		Backups struct {
			Max int
		}

		Autosave struct {
			Delay time.Duration
		}
	}
)

func init() {
	Conf = NewConfig()
}

// NewConfig reads the configuration from defaults, the environment and the optional `config/.env.<env>` file.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "IEP Tracker")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("storage.engine", "file")
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.quota", 0)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "ieptracker:")
	v.SetDefault("database.url", "")
	v.SetDefault("drive.engine", "google")
	v.SetDefault("drive.endpoint", "")
	v.SetDefault("drive.folderName", ".iep-tracker-data")
	v.SetDefault("drive.dataFileName", "students-data.json")
	v.SetDefault("backups.max", 7)
	v.SetDefault("autosave.delay", time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("storage.engine", "memory")
		v.SetDefault("drive.engine", "memory")
	case "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.Server.Address = v.GetString("server.address")
	conf.Server.Host = v.GetString("server.host")
	conf.Storage.Engine = strings.ToLower(v.GetString("storage.engine"))
	conf.Storage.Dir = v.GetString("storage.dir")
	conf.Storage.Quota = v.GetInt("storage.quota")
	conf.Redis.Addr = v.GetString("redis.addr")
	conf.Redis.Password = v.GetString("redis.password")
	conf.Redis.DB = v.GetInt("redis.db")
	conf.Redis.Prefix = v.GetString("redis.prefix")
	conf.Database.URL = v.GetString("database.url")
	conf.Drive.Engine = strings.ToLower(v.GetString("drive.engine"))
	conf.Drive.Endpoint = v.GetString("drive.endpoint")
	conf.Drive.FolderName = v.GetString("drive.folderName")
	conf.Drive.DataFileName = v.GetString("drive.dataFileName")
	conf.Backups.Max = v.GetInt("backups.max")
	conf.Autosave.Delay = v.GetDuration("autosave.delay")
	return conf
}

// configDir returns the directory holding the `.env.*` files.
// CONFIG_DIR overrides the default "config" directory relative to the working directory.
func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "config"
}
