package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewScenarioCmd создаёт группу команд для управления сценариями.
func NewScenarioCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Manage scenarios",
	}

	cmd.AddCommand(
		newScenarioListCmd(clientFn, outputFn),
		newScenarioCreateCmd(clientFn, outputFn),
		newScenarioShowCmd(clientFn, outputFn),
		newScenarioUpdateCmd(clientFn, outputFn),
		newScenarioDeleteCmd(clientFn, outputFn),
		newScenarioActivateCmd(clientFn, outputFn),
		newScenarioDeactivateCmd(clientFn, outputFn),
	)

	return cmd
}

var scenarioHeaders = []string{"ID", "NAME", "VERSION", "ACTIVE", "EVENTS", "MITRE"}

func scenarioRow(s *ScenarioResponse) []string {
	return []string{
		s.ID,
		s.Name,
		s.Version,
		strconv.FormatBool(s.IsActive),
		strconv.Itoa(len(s.Events)),
		s.MitreTechnique,
	}
}

// readScenarioFile читает JSON-описание сценария и проверяет его синтаксис.
func readScenarioFile(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("scenario file is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func newScenarioListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			scenarios, err := client.ListScenarios()
			if err != nil {
				return err
			}

			rows := make([][]string, len(scenarios))
			for i := range scenarios {
				rows[i] = scenarioRow(&scenarios[i])
			}

			out.Print(scenarioHeaders, rows, scenarios)
			return nil
		},
	}
}

func newScenarioCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new scenario from JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			spec, err := readScenarioFile(file)
			if err != nil {
				return err
			}

			sc, err := client.CreateScenario(spec)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Scenario created: %s (version %s)", sc.ID, sc.Version))
			out.Print(scenarioHeaders, [][]string{scenarioRow(sc)}, sc)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to scenario JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newScenarioShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var revision int

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show scenario details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sc, err := client.GetScenario(args[0], revision)
			if err != nil {
				return err
			}

			out.Print(scenarioHeaders, [][]string{scenarioRow(sc)}, sc)
			return nil
		},
	}

	cmd.Flags().IntVar(&revision, "revision", 0, "Scenario revision (latest if not specified)")

	return cmd
}

func newScenarioUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Publish a new scenario revision from JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			spec, err := readScenarioFile(file)
			if err != nil {
				return err
			}

			sc, err := client.UpdateScenario(args[0], spec)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Scenario updated to version %s", sc.Version))
			out.Print(scenarioHeaders, [][]string{scenarioRow(sc)}, sc)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to scenario JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newScenarioDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteScenario(args[0], force); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Scenario deleted: %s", args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Cancel a running execution before deleting")

	return cmd
}

func newScenarioActivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "activate ID",
		Short: "Activate a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.SetScenarioActive(args[0], true); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Scenario activated: %s", args[0]))
			return nil
		},
	}
}

func newScenarioDeactivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate ID",
		Short: "Deactivate a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.SetScenarioActive(args[0], false); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Scenario deactivated: %s", args[0]))
			return nil
		},
	}
}
