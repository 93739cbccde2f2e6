package cli

import (
	"bufio"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/spf13/cobra"
)

// dial opens the transport selected in cfg. Replaced in tests.
var dial = func(cfg *config.Config) (client.Client, error) {
	switch cfg.Transport {
	case config.TransportGRPC:
		return client.NewGRPCClient(cfg.Server)
	default:
		return client.NewHTTPClient(cfg.Server), nil
	}
}

// NewRootCmd creates the root command for the gophauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gophauth-cli",
		Short:         "Client for the gophauth credential service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newWhoAmICmd())
	cmd.AddCommand(newUsersCmd())

	return cmd
}

// connect loads the config from the command's flags and opens a client.
func connect(cmd *cobra.Command) (client.Client, *config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	c, err := dial(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", cfg.Server, err)
	}

	if cfg.Token != "" {
		c.SetToken(cfg.Token)
	}
	return c, cfg, nil
}

func input(cmd *cobra.Command) *bufio.Reader {
	return bufio.NewReader(cmd.InOrStdin())
}
