package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/content-pipeline/internal/observability"
	"github.com/jonathan/content-pipeline/internal/pipeline"
)

var (
	genClientID    string
	genContentType string
	genPrompt      string
	genContext     []string
	genModel       string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate content for a client from the command line",
	Long: `Run one content pipeline for a stored client and print the result.

The run is recorded in the database exactly as if it had been requested over the API.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genClientID, "client-id", "", "Client UUID (required)")
	generateCmd.Flags().StringVar(&genContentType, "content-type", "", "Content type label, e.g. linkedin_post (required)")
	generateCmd.Flags().StringVarP(&genPrompt, "prompt", "p", "", "What to write (required)")
	generateCmd.Flags().StringArrayVar(&genContext, "context", nil, "Additional context as key=value (repeatable)")
	generateCmd.Flags().StringVar(&genModel, "model", "", "Model override")
	_ = generateCmd.MarkFlagRequired("client-id")
	_ = generateCmd.MarkFlagRequired("content-type")
	_ = generateCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	clientID, err := uuid.Parse(strings.TrimSpace(genClientID))
	if err != nil {
		return fmt.Errorf("invalid --client-id: %w", err)
	}
	if strings.TrimSpace(genContentType) == "" || strings.TrimSpace(genPrompt) == "" {
		return fmt.Errorf("--content-type and --prompt cannot be empty")
	}
	extra, err := parseContext(genContext)
	if err != nil {
		return err
	}

	settings, log, err := loadSettings()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), settings, log)
	if err != nil {
		return err
	}
	defer a.Close()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	client, err := a.store.GetClient(cmd.Context(), clientID)
	if err != nil {
		return err
	}
	printer.PrintClient(client)

	progress := cmd.ErrOrStderr()
	resp, err := a.pipeline.RunPipeline(cmd.Context(), pipeline.Request{
		ClientID:    clientID,
		ContentType: genContentType,
		Prompt:      genPrompt,
		Context:     extra,
		Model:       genModel,
		OnProgress: func(e pipeline.ProgressEvent) {
			fmt.Fprintf(progress, "[%s] %s\n", e.Step, e.Message)
		},
	})
	if err != nil {
		return err
	}
	printer.PrintPipelineResult(resp)
	return nil
}

// parseContext turns key=value flags into a context map.
func parseContext(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --context %q: expected key=value", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}
