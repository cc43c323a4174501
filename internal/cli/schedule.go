package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the run schedule",
	Long:  "Show or change the cron expression that triggers recurring runs. A running server picks up changes automatically.",
}

var scheduleGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		schedule := services.ScheduleService.Schedule(time.Now())
		fmt.Printf("Expression: %s\n", schedule.Expression)
		fmt.Printf("Timezone:   %s\n", schedule.Timezone)
		fmt.Printf("Enabled:    %t\n", schedule.Enabled)
		if schedule.Next != nil {
			fmt.Printf("Next run:   %s\n", schedule.Next.Format(time.RFC3339))
		}
		return nil
	},
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set <expression>",
	Short: "Replace the cron expression",
	Example: `  harvestd schedule set "0 2 * * *"
  harvestd schedule set @hourly`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		if err := services.ScheduleService.Set(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Printf("Schedule set to %q\n", services.ScheduleService.Get())
		return nil
	},
}

var scheduleNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the next fire time in UTC",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		next, err := services.ScheduleService.NextFire(time.Now())
		if err != nil {
			return err
		}
		fmt.Println(next.Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleGetCmd)
	scheduleCmd.AddCommand(scheduleSetCmd)
	scheduleCmd.AddCommand(scheduleNextCmd)
}
