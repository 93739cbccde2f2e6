package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"

	envPrefix = "GOPHAUTH_"
)

// Config holds runtime settings for the gophauth CLI.
type Config struct {
	Server    string `koanf:"server"`
	Transport string `koanf:"transport"`
	Token     string `koanf:"token"`
}

// RegisterFlags adds the CLI flags to fs with their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("server", "", "server address (default http://localhost:8080, or localhost:50051 for grpc)")
	fs.String("transport", TransportHTTP, "transport: http or grpc")
	fs.String("token", "", "session token for protected commands")
}

// Load layers the environment under the already parsed flags in fs.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		switch key {
		case "server", "transport", "token":
			return key, value
		}
		// server-side settings share the prefix
		return "", nil
	}), nil)
	if err != nil {
		return nil, err
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	switch cfg.Transport {
	case TransportHTTP:
		if cfg.Server == "" {
			cfg.Server = "http://localhost:8080"
		}
	case TransportGRPC:
		if cfg.Server == "" {
			cfg.Server = "localhost:50051"
		}
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	return cfg, nil
}
