// Package env loads the bot configuration from a config file, an optional
// .env file and OBSBOT_ prefixed environment variables.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"reflect"
	"strings"
	"time"

	validatorengine "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/golangid/obsbot/backend"
	"github.com/golangid/obsbot/candihelper"
	"github.com/golangid/obsbot/validator"
)

const (
	// DefaultConfigFile read when no config file is given
	DefaultConfigFile = "botconfig.yaml"
	// EnvPrefix of environment overrides, e.g. OBSBOT_PASSWORD
	EnvPrefix = "OBSBOT"
)

// DefaultSubscription urls a room is subscribed to at startup, one url per line
type DefaultSubscription struct {
	Room string `mapstructure:"room" validate:"required"`
	URLs string `mapstructure:"urls" validate:"required"`
}

// Env model
type Env struct {
	User          string `mapstructure:"user" validate:"required"`
	Password      string `mapstructure:"password" validate:"required"`
	HomeserverURL string `mapstructure:"homeserver_url" validate:"required,url"`

	Backends []string `mapstructure:"backends" validate:"required,min=1,unique,dive,backend"`
	// Prefix of every chat command, may be empty
	Prefix               string                `mapstructure:"prefix"`
	DefaultSubscriptions []DefaultSubscription `mapstructure:"default_subscriptions" validate:"dive"`
	// BrokerURLs override the broker url of a backend
	BrokerURLs map[string]string `mapstructure:"broker_urls" validate:"dive,keys,backend,endkeys,url"`

	// HTTPPort of the health server, 0 disables it
	HTTPPort      uint16        `mapstructure:"http_port"`
	MaxGoroutines int           `mapstructure:"max_goroutines" validate:"min=1"`
	DebugMode     bool          `mapstructure:"debug_mode"`
	JaegerHost    string        `mapstructure:"jaeger_host"`
	SyncTimeout   time.Duration `mapstructure:"sync_timeout"`
	OpenQALazy    bool          `mapstructure:"openqa_lazy"`
}

// BrokerURL of backend, override or the default amqps url
func (e *Env) BrokerURL(details backend.Details) string {
	if u, ok := e.BrokerURLs[details.Domain]; ok && u != "" {
		return u
	}
	return details.BrokerURL()
}

var envValidator = validator.NewStructValidator(validator.SetCoreStructValidatorOption(
	func(v *validatorengine.Validate) {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	},
	func(v *validatorengine.Validate) {
		_ = v.RegisterValidation("backend", func(fl validatorengine.FieldLevel) bool {
			_, ok := backend.Lookup(fl.Field().String())
			return ok
		})
	},
))

func setDefaults(v *viper.Viper) {
	v.SetDefault("user", "")
	v.SetDefault("password", "")
	v.SetDefault("homeserver_url", "")
	v.SetDefault("backends", []string{})
	v.SetDefault("prefix", "")
	v.SetDefault("http_port", 8000)
	v.SetDefault("max_goroutines", 10)
	v.SetDefault("debug_mode", false)
	v.SetDefault("jaeger_host", "")
	v.SetDefault("sync_timeout", 30*time.Second)
	v.SetDefault("openqa_lazy", true)
}

// Load environment. envFile defaults to $WORKDIR/.env, configFile to
// DefaultConfigFile; a missing default file is not an error.
func Load(configFile, envFile string) (*Env, error) {
	if envFile == "" {
		envFile = os.Getenv(candihelper.WORKDIR) + ".env"
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: load env, %v", err)
		}
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigFile
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var e Env
	if err := v.Unmarshal(&e); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	for i, b := range e.Backends {
		e.Backends[i] = strings.TrimSpace(b)
	}

	if err := envValidator.ValidateStruct(e); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &e, nil
}
