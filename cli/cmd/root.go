package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JoaoG250/micro-do/cli/internal/client"
	"github.com/JoaoG250/micro-do/cli/pkg/output"
	"github.com/JoaoG250/micro-do/common/config"
)

var cfg *config.CLIConfig

var rootCmd = &cobra.Command{
	Use:   "microctl",
	Short: "micro-do operator CLI",
	Long: `microctl is the command-line interface for micro-do.

Log in through the API gateway, browse tasks and notifications, mint and
inspect tokens, and seed a running stack with fake data.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		output.New(os.Stdout, os.Stderr, output.FormatTable).Error("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, yaml")
}

func initConfig() {
	if cfg != nil {
		return
	}
	var err error
	cfg, err = config.LoadCLI()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultCLI()
	}
}

// printer builds an output.Printer from the --output flag.
func printer(cmd *cobra.Command) (*output.Printer, error) {
	raw, _ := cmd.Flags().GetString("output")
	format, err := output.ParseFormat(raw)
	if err != nil {
		return nil, err
	}
	return output.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), format), nil
}

func profileName(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("profile")
	if name == "" {
		name = cfg.CurrentProfile
	}
	if name == "" {
		name = "default"
	}
	return name
}

// gatewayClient returns a client authenticated as the selected profile.
func gatewayClient(cmd *cobra.Command) (*client.GatewayClient, error) {
	name := profileName(cmd)
	p, err := cfg.GetProfile(name)
	if err != nil || p.AccessToken == "" {
		return nil, fmt.Errorf("not logged in to profile '%s', run 'microctl login'", name)
	}
	return client.NewGatewayClient(cfg.GetGatewayURL(name), p.AccessToken), nil
}
