package config

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type AppConfig struct {
	AppID   int    `toml:"app_id" mapstructure:"app_id"`
	AppHash string `toml:"app_hash" mapstructure:"app_hash"`
	Phone   string `toml:"phone" mapstructure:"phone"`
	// sqlite file holding the authorized user session
	Session string `toml:"session" mapstructure:"session"`

	Api    ApiConfig    `toml:"api" mapstructure:"api"`
	Output OutputConfig `toml:"output" mapstructure:"output"`
	Search SearchConfig `toml:"search" mapstructure:"search"`
}

type ApiConfig struct {
	Addr string `toml:"addr" mapstructure:"addr"`
	// empty means no auth
	Key string `toml:"key" mapstructure:"key"`
}

type OutputConfig struct {
	Dir    string `toml:"dir" mapstructure:"dir"`
	Prefix string `toml:"prefix" mapstructure:"prefix"`
}

type SearchConfig struct {
	DefaultLimit int `toml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int `toml:"max_limit" mapstructure:"max_limit"`
	BatchSize    int `toml:"batch_size" mapstructure:"batch_size"`
}

var C AppConfig

// envKeys keeps the variable names the deployment already uses.
var envKeys = map[string]string{
	"app_id":   "API_ID",
	"app_hash": "API_HASH",
	"phone":    "PHONE_NUMBER",
	"api.key":  "API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session", "data/session_user.db")
	v.SetDefault("api.addr", "0.0.0.0:8000")
	v.SetDefault("api.key", "")
	v.SetDefault("output.dir", "downloads")
	v.SetDefault("output.prefix", "telegram_search_")
	v.SetDefault("search.default_limit", 1000)
	v.SetDefault("search.max_limit", 10000)
	v.SetDefault("search.batch_size", 100)
}

// Load reads the optional config file, a .env file and the environment into a new AppConfig.
// path may be empty, in which case config.toml is looked up in the working directory.
func Load(path string) (*AppConfig, error) {
	// real environment wins over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "bind env %s", env)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init loads the configuration into C.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	C = *cfg
	return nil
}

func (c *AppConfig) Validate() error {
	var err error
	if c.AppID == 0 {
		err = multierr.Append(err, errors.New("app_id (API_ID) is required"))
	}
	if c.AppHash == "" {
		err = multierr.Append(err, errors.New("app_hash (API_HASH) is required"))
	}
	if c.Phone == "" {
		err = multierr.Append(err, errors.New("phone (PHONE_NUMBER) is required"))
	}
	if c.Output.Dir == "" {
		err = multierr.Append(err, errors.New("output.dir must not be empty"))
	}
	if c.Search.DefaultLimit < 1 {
		err = multierr.Append(err, fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit))
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		err = multierr.Append(err, fmt.Errorf("search.max_limit (%d) is below search.default_limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit))
	}
	if c.Search.BatchSize < 1 || c.Search.BatchSize > 100 {
		err = multierr.Append(err, fmt.Errorf("search.batch_size must be within 1..100, got %d", c.Search.BatchSize))
	}
	if err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
