package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/martijn/harvestd/internal/api/util"
	"github.com/martijn/harvestd/internal/core/domain"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/spf13/cobra"
)

var (
	runsLimit int
	runsQuery string
	runsOrder string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, most recent first",
	Example: `  harvestd runs list --limit 5
  harvestd runs list --query "exit_code|ne|0"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := util.ParseQueryString(runsQuery)
		if err != nil {
			return fmt.Errorf("invalid query: %w", err)
		}
		if err := util.ValidateFilterFields(filters, repository.RunFields); err != nil {
			return err
		}
		orders, err := util.ParseOrderString(runsOrder)
		if err != nil {
			return fmt.Errorf("invalid order: %w", err)
		}
		if err := util.ValidateOrderFields(orders, repository.RunFields); err != nil {
			return err
		}

		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		runs, err := services.RunService.ListRuns(cmd.Context(), repository.RunFilter{
			ListFilter: util.ListFilter{Filters: filters, Order: orders, Limit: runsLimit},
		})
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tFINISHED\tEXIT CODE\tSTATUS")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				run.ID,
				run.StartedAt.Format(time.RFC3339),
				formatFinished(run),
				formatExitCode(run),
				run.Status(),
			)
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the captured output of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		output, err := services.RunService.GetLog(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load run %s: %w", args[0], err)
		}
		fmt.Print(output)
		return nil
	},
}

func formatFinished(run *domain.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Format(time.RFC3339)
}

func formatExitCode(run *domain.Run) string {
	if run.ExitCode == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *run.ExitCode)
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().IntVar(&runsLimit, "limit", repository.DefaultRunLimit, "Maximum number of runs to show")
	runsListCmd.Flags().StringVar(&runsQuery, "query", "", "Filter expression, e.g. \"exit_code|ne|0\"")
	runsListCmd.Flags().StringVar(&runsOrder, "order", "", "Ordering, e.g. \"started|asc\"")
}
