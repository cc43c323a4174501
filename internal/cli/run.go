package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const runPollInterval = 200 * time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the collector once in the foreground",
	Long: `Run the collector once without the API server, printing its output as it
arrives. Interrupting the command stops the run the same way the API does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		services, err := initServices(ctx)
		if err != nil {
			return err
		}
		defer services.Close()

		if _, err := services.RunService.RecoverOrphans(ctx); err != nil {
			return err
		}

		// Subscribe first so the observer sees the run from its first line
		observer := services.RunService.Subscribe()
		defer observer.Close()

		runID, err := services.RunService.Start(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Run %s started\n", runID)

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		finished := make(chan error, 1)
		go func() {
			finished <- services.RunService.Wait(context.Background())
		}()

		ticker := time.NewTicker(runPollInterval)
		defer ticker.Stop()

		interrupted := sigCtx.Done()
		for {
			select {
			case <-interrupted:
				interrupted = nil
				fmt.Fprintln(os.Stderr, "Stopping run...")
				services.RunService.Stop(ctx)
			case <-ticker.C:
				printLines(observer.Next())
			case err := <-finished:
				printLines(observer.Next())
				if err != nil {
					return err
				}
				return reportRun(ctx, services, runID)
			}
		}
	},
}

func printLines(lines []string) {
	for _, line := range lines {
		fmt.Println(line)
	}
}

func reportRun(ctx context.Context, services *Services, runID string) error {
	run, err := services.RunService.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Run %s finished: %s (exit code %d, %s)\n",
		run.ID, run.Status(), *run.ExitCode, run.Duration().Round(time.Second))
	if *run.ExitCode != 0 {
		return fmt.Errorf("collector exited with code %d", *run.ExitCode)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
