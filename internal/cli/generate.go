package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewGenerateCmd создаёт команду разовой генерации событий.
func NewGenerateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var bindings []string
	var count int

	cmd := &cobra.Command{
		Use:   "generate TEMPLATE_ID",
		Short: "Generate events from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			bindingMap, err := parseBindings(bindings)
			if err != nil {
				return err
			}

			if count > 1 {
				return generateBatch(client, out, args[0], bindingMap, count)
			}
			return generateOne(client, out, args[0], bindingMap)
		},
	}

	cmd.Flags().StringSliceVar(&bindings, "bind", nil, "Parameter bindings as KEY=VALUE (repeatable)")
	cmd.Flags().IntVar(&count, "count", 1, "Number of events to generate")

	return cmd
}

func generateOne(client *Client, out *Output, templateID string, bindings map[string]string) error {
	result, err := client.Generate(GenerateRequest{
		TemplateID: templateID,
		Bindings:   bindings,
	})
	if err != nil {
		return err
	}

	if !result.Success {
		out.Error(fmt.Sprintf("Generation failed: %s", result.Message))
	} else {
		out.Success(fmt.Sprintf("Event generated: %s", result.InstanceID))
	}

	out.Print(
		[]string{"SUCCESS", "INSTANCE_ID", "ELAPSED", "MESSAGE"},
		[][]string{{
			strconv.FormatBool(result.Success),
			result.InstanceID,
			time.Duration(result.Elapsed).String(),
			result.Message,
		}},
		result,
	)
	return nil
}

func generateBatch(client *Client, out *Output, templateID string, bindings map[string]string, count int) error {
	result, err := client.GenerateBatch(GenerateBatchRequest{
		TemplateID: templateID,
		Bindings:   bindings,
		Count:      count,
	})
	if err != nil {
		return err
	}

	out.Success(fmt.Sprintf("Batch finished: %d/%d succeeded", result.Succeeded, result.Requested))
	out.Print(
		[]string{"REQUESTED", "SUCCEEDED", "FAILED", "CHUNKS", "ELAPSED", "THROUGHPUT"},
		[][]string{{
			strconv.Itoa(result.Requested),
			strconv.Itoa(result.Succeeded),
			strconv.Itoa(result.Failed),
			strconv.Itoa(result.Chunks),
			time.Duration(result.Elapsed).String(),
			fmt.Sprintf("%.1f/s", result.Throughput),
		}},
		result,
	)
	return nil
}

// parseBindings разбирает пары KEY=VALUE в map.
func parseBindings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	bindings := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid binding format %q, expected KEY=VALUE", kv)
		}
		bindings[parts[0]] = parts[1]
	}
	return bindings, nil
}
