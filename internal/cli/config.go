package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	tinder "github.com/JohnPlummer/jp-go-tinder"
)

const envPrefix = "TINDERCTL"

// Config is the tinderctl configuration: the client configuration plus the CLI's own keys.
//
// Example ~/.tinderctl.yaml:
//
//	token: 1a2b3c
//	retry:
//	  max_tries: 3
//	  interval: 2s
//	breaker:
//	  circuit_duration: 30m
type Config struct {
	Token string `mapstructure:"token"`
	Debug bool   `mapstructure:"debug"`

	tinder.Config `mapstructure:",squash"`
}

// ClientOptions translates the configuration into client options.
func (c Config) ClientOptions() []tinder.Option {
	opts := []tinder.Option{tinder.WithConfig(c.Config)}
	if c.Token != "" {
		opts = append(opts, tinder.WithToken(c.Token))
	}
	return opts
}

// newViper returns a viper instance that knows every key, so environment variables such as
// TINDERCTL_RETRY_MAX_TRIES resolve even when no config file sets them. Headers are left to
// the client defaults; viper would lowercase their names.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := tinder.DefaultConfig()
	v.SetDefault("token", "")
	v.SetDefault("debug", false)

	v.SetDefault("request.base_url", d.Request.BaseURL)
	v.SetDefault("request.user_agent", d.Request.UserAgent)

	v.SetDefault("retry.max_tries", d.Retry.MaxTries)
	v.SetDefault("retry.interval", d.Retry.Interval)
	v.SetDefault("retry.timeout", d.Retry.Timeout)
	v.SetDefault("retry.throw_original", d.Retry.ThrowOriginal)

	v.SetDefault("breaker.timeout", d.Breaker.Timeout)
	v.SetDefault("breaker.threshold", d.Breaker.Threshold)
	v.SetDefault("breaker.circuit_duration", d.Breaker.CircuitDuration)
	v.SetDefault("breaker.window", d.Breaker.Window)
	v.SetDefault("breaker.min_requests", d.Breaker.MinRequests)
	v.SetDefault("breaker.half_open_probes", d.Breaker.HalfOpenProbes)

	return v
}

func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
