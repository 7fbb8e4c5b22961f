package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewTemplateCmd создаёт группу команд для управления шаблонами.
func NewTemplateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage event templates",
	}

	cmd.AddCommand(
		newTemplateListCmd(clientFn, outputFn),
		newTemplateCreateCmd(clientFn, outputFn),
		newTemplateShowCmd(clientFn, outputFn),
		newTemplateUpdateCmd(clientFn, outputFn),
		newTemplateDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func templateRow(t *TemplateResponse) []string {
	return []string{
		t.ID,
		t.Name,
		t.Channel,
		strconv.Itoa(t.EventID),
		t.Level,
		strconv.Itoa(t.Version),
		t.MitreTechnique,
	}
}

var templateHeaders = []string{"ID", "NAME", "CHANNEL", "EVENT_ID", "LEVEL", "VERSION", "MITRE"}

func newTemplateListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			templates, err := client.ListTemplates()
			if err != nil {
				return err
			}

			rows := make([][]string, len(templates))
			for i := range templates {
				rows[i] = templateRow(&templates[i])
			}

			out.Print(templateHeaders, rows, templates)
			return nil
		},
	}
}

// readTemplateFile читает и парсит JSON-описание шаблона.
func readTemplateFile(path string) (CreateTemplateRequest, error) {
	var req CreateTemplateRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read template file: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("template file is not valid JSON: %w", err)
	}
	return req, nil
}

func newTemplateCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new template from JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req, err := readTemplateFile(file)
			if err != nil {
				return err
			}

			tpl, err := client.CreateTemplate(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Template created: %s", tpl.ID))
			out.Print(templateHeaders, [][]string{templateRow(tpl)}, tpl)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to template JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newTemplateShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show template details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tpl, err := client.GetTemplate(args[0], version)
			if err != nil {
				return err
			}

			out.Print(templateHeaders, [][]string{templateRow(tpl)}, tpl)
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Template version (latest if not specified)")

	return cmd
}

func newTemplateUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Publish a new template version from JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req, err := readTemplateFile(file)
			if err != nil {
				return err
			}

			tpl, err := client.UpdateTemplate(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Template version %d published", tpl.Version))
			out.Print(templateHeaders, [][]string{templateRow(tpl)}, tpl)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to template JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newTemplateDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a template with all versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteTemplate(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Template deleted: %s", args[0]))
			return nil
		},
	}
}
