package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env  string
		Name string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Log struct {
		Level string
		Dev   bool
		Dir   string
	} `mapstructure:"log"`

	Database struct {
		URL            string
		MaxConns       int `mapstructure:"max_conns"`
		Timeout        time.Duration
		TimeZone       string `mapstructure:"time_zone"`
		ClientEncoding string `mapstructure:"client_encoding"`
		Migrate        bool
	} `mapstructure:"database"`

	Store struct {
		RemoteTimeout time.Duration `mapstructure:"remote_timeout"`
		LocalPath     string        `mapstructure:"local_path"`
	} `mapstructure:"store"`

	Snowflake struct {
		Node int64
	} `mapstructure:"snowflake"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
		Issuer    string
		TTL       time.Duration `mapstructure:"ttl"`
	} `mapstructure:"auth"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	Rabbit struct {
		URL      string
		Exchange string
	} `mapstructure:"rabbit"`

	Otel struct {
		Endpoint string
	} `mapstructure:"otel"`

	Loyalty struct {
		Tiers []TierConfig
	} `mapstructure:"loyalty"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

// TierConfig overrides one row of the loyalty tier table.
type TierConfig struct {
	Name  string
	MinXP int `mapstructure:"min_xp"`
	Perks []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.name", "service-rental-go")
	v.SetDefault("http.addr", "0.0.0.0:8431")
	v.SetDefault("log.level", "")
	v.SetDefault("log.dev", false)
	v.SetDefault("log.dir", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.timeout", 5*time.Second)
	v.SetDefault("database.time_zone", "")
	v.SetDefault("database.client_encoding", "")
	v.SetDefault("database.migrate", false)
	v.SetDefault("store.remote_timeout", 2500*time.Millisecond)
	v.SetDefault("store.local_path", "data/rental-cache.db")
	v.SetDefault("snowflake.node", 1)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "service-rental-go")
	v.SetDefault("auth.ttl", 15*time.Minute)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("rabbit.url", "")
	v.SetDefault("rabbit.exchange", "rental.events")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("metrics.enabled", true)
}

// Load reads configuration from an optional file and RENTAL_* environment
// variables. An empty path means environment and defaults only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("RENTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	if c.Log.Level == "" {
		if c.Log.Dev {
			c.Log.Level = "debug"
		} else {
			c.Log.Level = "info"
		}
	}
	return c, nil
}
