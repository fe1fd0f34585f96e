package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JoaoG250/micro-do/cli/internal/seeder"
	"github.com/JoaoG250/micro-do/cli/pkg/output"
	"github.com/JoaoG250/micro-do/common/bootstrap"
	"github.com/JoaoG250/micro-do/common/config"
	"github.com/JoaoG250/micro-do/common/logging"
	"github.com/JoaoG250/micro-do/common/rpc"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill a running stack with fake users and tasks",
	Long: `Create fake users and tasks by calling the identity and tasks services
over the configured broker (MICRODO_BROKER_DRIVER, MICRODO_BROKER_URL).

Every seeded account uses the same password so it can log in.

Examples:
  microctl seed --users 10 --tasks 50
  microctl seed --users 3 --tasks 5 --seed 42 -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := seeder.Config{}
		sc.Users, _ = cmd.Flags().GetInt("users")
		sc.Tasks, _ = cmd.Flags().GetInt("tasks")
		sc.Password, _ = cmd.Flags().GetString("password")
		sc.MaxAssignees, _ = cmd.Flags().GetInt("max-assignees")
		sc.Seed, _ = cmd.Flags().GetInt64("seed")

		// Backend configs share the broker settings and need no signing secrets.
		svcCfg, err := config.Load(config.ServiceTasks)
		if err != nil {
			return err
		}
		if svcCfg.Broker.Driver == config.BrokerMemory {
			return fmt.Errorf("seeding needs a shared broker, %q only reaches this process", config.BrokerMemory)
		}

		logger := logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel(svcCfg.Logging.Level), "text")
		broker, err := bootstrap.ConnectBroker(svcCfg.Broker, "microctl", logger)
		if err != nil {
			return fmt.Errorf("failed to connect to broker: %w", err)
		}
		defer broker.Drain()

		caller := rpc.NewClient(broker, rpc.ClientConfig{Service: "microctl", Timeout: svcCfg.RPC.Timeout}, logger)
		if err := caller.Start(); err != nil {
			return err
		}
		defer caller.Close()

		res, err := seeder.New(caller, sc, logger).Run(cmd.Context())
		if err != nil {
			return err
		}

		out, err := printer(cmd)
		if err != nil {
			return err
		}
		if out.Format() != output.FormatTable {
			return out.Value(res, nil)
		}
		out.Success("Seeded %d users and %d tasks", len(res.Users), len(res.Tasks))
		if res.Skipped > 0 {
			out.Warn("%d users already existed and were skipped", res.Skipped)
		}
		if len(res.Users) > 0 {
			out.Info("Log in with: microctl login --email %s --password <seed password>", res.Users[0].Email)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int("users", 5, "Number of users to create")
	seedCmd.Flags().Int("tasks", 20, "Number of tasks to create")
	seedCmd.Flags().String("password", seeder.DefaultPassword, "Password for every seeded user")
	seedCmd.Flags().Int("max-assignees", 3, "Maximum assignees per task")
	seedCmd.Flags().Int64("seed", 0, "Random seed for reproducible data (0 = random)")
}
