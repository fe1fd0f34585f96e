package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JoaoG250/micro-do/cli/internal/client"
	"github.com/JoaoG250/micro-do/cli/pkg/output"
	"github.com/JoaoG250/micro-do/common/config"
	"github.com/JoaoG250/micro-do/common/contracts"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in through the API gateway",
	Long:  "Authenticate with email and password and store the access token in a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if err := (contracts.ValidateUserRequest{Email: email, Password: password}).Validate(); err != nil {
			return err
		}

		name := profileName(cmd)
		gatewayURL, _ := cmd.Flags().GetString("gateway-url")
		if gatewayURL == "" {
			gatewayURL = cfg.GetGatewayURL(name)
		}

		gw := client.NewGatewayClient(gatewayURL, "")
		token, err := gw.Login(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		me, err := gw.WithToken(token).Profile(cmd.Context())
		if err != nil {
			return fmt.Errorf("login succeeded but the profile could not be read: %w", err)
		}

		profile := &config.CLIProfile{
			GatewayURL:  gatewayURL,
			AccessToken: token,
			UserID:      me.ID,
			Email:       me.Email,
		}
		if err := cfg.SaveProfile(name, profile); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		out, err := printer(cmd)
		if err != nil {
			return err
		}
		out.Success("Logged in as %s (%s)", me.Username, me.Email)
		out.Info("Profile '%s' saved to %s", name, cfg.Path())
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account through the API gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := contracts.CreateUserRequest{}
		req.Username, _ = cmd.Flags().GetString("username")
		req.Email, _ = cmd.Flags().GetString("email")
		req.Password, _ = cmd.Flags().GetString("password")
		if err := req.Validate(); err != nil {
			return err
		}

		user, err := client.NewGatewayClient(cfg.GetGatewayURL(profileName(cmd)), "").Register(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		out, err := printer(cmd)
		if err != nil {
			return err
		}
		if out.Format() != output.FormatTable {
			return out.Value(user, nil)
		}
		out.Success("Registered %s (%s)", user.Username, user.ID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Long:  "Remove the profile's stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		name := profileName(cmd)
		if err := cfg.RemoveProfile(name); err != nil {
			return err
		}

		out, err := printer(cmd)
		if err != nil {
			return err
		}
		out.Success("Logged out from profile '%s'", name)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Display the authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gatewayClient(cmd)
		if err != nil {
			return err
		}
		me, err := gw.Profile(cmd.Context())
		if err != nil {
			return fmt.Errorf("token invalid or expired, run 'microctl login': %w", err)
		}

		out, err := printer(cmd)
		if err != nil {
			return err
		}
		return out.Value(me, func(t *output.Table) {
			t.Header("PROFILE", "ID", "USERNAME", "EMAIL", "GATEWAY")
			t.AddRow(profileName(cmd), me.ID, me.Username, me.Email, cfg.GetGatewayURL(profileName(cmd)))
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().StringP("email", "e", "", "Account email")
	loginCmd.Flags().StringP("password", "p", "", "Account password")
	loginCmd.Flags().String("gateway-url", "", "API gateway URL (default from profile, MICROCTL_GATEWAY_URL or "+config.DefaultGatewayURL+")")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	registerCmd.Flags().StringP("username", "u", "", "Username")
	registerCmd.Flags().StringP("email", "e", "", "Account email")
	registerCmd.Flags().StringP("password", "p", "", "Account password")
	_ = registerCmd.MarkFlagRequired("username")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("password")
}
