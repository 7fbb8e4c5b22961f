package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для управления запусками.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Manage scenario executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionStartCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionCancelCmd(clientFn, outputFn),
	)

	return cmd
}

var executionHeaders = []string{"ID", "SCENARIO_ID", "REVISION", "STATUS", "GENERATED", "FAILED", "CREATED"}

func executionRow(e *ExecutionResponse) []string {
	return []string{
		e.ID,
		e.ScenarioID,
		strconv.Itoa(e.Revision),
		e.Status,
		strconv.Itoa(e.EventsGenerated),
		strconv.Itoa(e.EventsFailed),
		e.CreatedAt,
	}
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list SCENARIO_ID",
		Short: "List executions of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execs, err := client.ListExecutions(args[0], limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(execs))
			for i := range execs {
				rows[i] = executionRow(&execs[i])
			}

			out.Print(executionHeaders, rows, execs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecutionStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var continueOnError bool
	var delayMultiplier float64
	var timeoutSec int

	cmd := &cobra.Command{
		Use:   "start SCENARIO_ID",
		Short: "Start a scenario execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.ExecuteScenario(args[0], ExecuteScenarioRequest{
				ContinueOnError: continueOnError,
				DelayMultiplier: delayMultiplier,
				TimeoutSec:      timeoutSec,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution started: %s", exec.ID))
			out.Print(executionHeaders, [][]string{executionRow(exec)}, exec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Continue after individual event failures")
	cmd.Flags().Float64Var(&delayMultiplier, "delay-multiplier", 0, "Delay multiplier (0 = default 1.0)")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "Execution timeout in seconds (0 = default 1h)")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			headers := append(executionHeaders, "ERROR")
			out.Print(headers, [][]string{append(executionRow(exec), exec.Error)}, exec)
			return nil
		},
	}
}

func newExecutionCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel SCENARIO_ID",
		Short: "Cancel the running execution of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.CancelExecution(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Cancellation requested for scenario: %s", args[0]))
			return nil
		},
	}
}
