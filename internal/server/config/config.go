// Package config handles configuration for the server component. Values are
// layered: flag defaults, then an optional YAML file, then GOPHAUTH_*
// environment variables, then flags given on the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

const EnvPrefix = "GOPHAUTH_"

// Config holds runtime settings for the gophauth server.
//
// SecretKey signs every session token; it has no default and the server
// refuses to start without it.
type Config struct {
	ConfigFile        string `koanf:"config"`
	HTTPAddr          string `koanf:"http_addr"`
	GRPCAddr          string `koanf:"grpc_addr"`
	Store             string `koanf:"store"`
	DatabaseDSN       string `koanf:"database_dsn"`
	SecretKey         string `koanf:"secret_key"`
	BcryptCost        int    `koanf:"bcrypt_cost"`
	PasswordHasher    string `koanf:"password_hasher"`
	HideUserExistence bool   `koanf:"hide_user_existence"`
	LogLevel          string `koanf:"log_level"`
	LogFormat         string `koanf:"log_format"`
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.StringP("config", "c", "", "path to a YAML config file")
	fs.StringP("http-addr", "a", ":8080", "HTTP listen address")
	fs.StringP("grpc-addr", "g", ":50051", "gRPC listen address, empty disables gRPC")
	fs.String("store", repomanager.StoreMemory, "credential store: memory, sqlite or postgres")
	fs.StringP("database-dsn", "d", "", "database DSN for the sqlite and postgres stores")
	fs.StringP("secret-key", "s", "", "HMAC secret used to sign tokens (required)")
	fs.Int("bcrypt-cost", cryptox.DefaultBcryptCost, "bcrypt work factor")
	fs.String("hasher", cryptox.HasherBcrypt, "password hasher: bcrypt or argon2id")
	fs.Bool("hide-user-existence", false, "answer unknown emails like wrong passwords on login")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "json", "log format: json or text")

	return fs
}

// flagKeys maps flag names onto config keys where they differ beyond
// the dash/underscore swap.
var flagKeys = map[string]string{
	"hasher": "password_hasher",
}

func flagKey(name string) string {
	if k, ok := flagKeys[name]; ok {
		return k
	}
	return strings.ReplaceAll(name, "-", "_")
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// Load builds a Config from args (without the program name), the process
// environment and the config file named by -c, if any. The result is not
// validated.
func Load(args []string) (*Config, error) {
	fs := newFlagSet("gophauth")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	// unchanged flags only fill keys no earlier layer has set
	err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		return flagKey(f.Name), posflag.FlagVal(fs, f)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// LoadConfig reads the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

var ErrMissingSecret = errors.New("secret_key is required")

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, ErrMissingSecret)
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}

	switch c.Store {
	case repomanager.StoreMemory:
	case repomanager.StoreSQLite, repomanager.StorePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, fmt.Errorf("database_dsn is required for the %s store", c.Store))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}

	switch c.PasswordHasher {
	case cryptox.HasherBcrypt, cryptox.HasherArgon2id:
	default:
		errs = append(errs, fmt.Errorf("unknown password hasher %q", c.PasswordHasher))
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt_cost %d out of range [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}
