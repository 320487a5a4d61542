package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"modelgw/internal/prompt"
	"modelgw/internal/wire"
	"modelgw/pkg/types"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		modelID  string
		file     string
		text     string
		template bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a prompt with a model's prompt format",
		Long: "Render prints the exact prompt a model would receive. Chat messages are read as a JSON\n" +
			"array of {\"role\",\"content\"} objects from --file (\"-\" for stdin); --text renders a\n" +
			"plain text prompt instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}
			id := modelID
			if id == "" {
				id = a.cfg.DefaultModel
			}
			entry, ok := reg.Lookup(id)
			if !ok {
				return fmt.Errorf("model %q not found in %s", id, a.cfg.ModelsDir)
			}

			var p prompt.Prompt
			switch {
			case cmd.Flags().Changed("text"):
				p = prompt.TextPrompt(text, template)
			case file != "":
				msgs, err := readMessages(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				p = prompt.ChatPrompt(msgs)
			default:
				return fmt.Errorf("one of --file or --text is required")
			}
			out, err := entry.Template.Render(p)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&modelID, "model", "m", "", "Model id (defaults to the configured default model)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with chat messages, or - for stdin")
	cmd.Flags().StringVar(&text, "text", "", "Plain text prompt")
	cmd.Flags().BoolVar(&template, "template", false, "Apply the prompt format to --text")
	return cmd
}

func readMessages(stdin io.Reader, file string) ([]prompt.Message, error) {
	var (
		b   []byte
		err error
	)
	if file == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, err
	}
	var raw []types.ChatMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}
	return wire.Messages(raw)
}
