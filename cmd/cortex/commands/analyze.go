package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cortexbuild/cortex/internal/api"
	"github.com/cortexbuild/cortex/internal/cognitive/service"
	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/models"
)

var (
	eventPath   string
	historyPath string
	tenantID    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyse a single event and print the result",
	Long: `Run one agent event through the analysis pipeline and print the detected
pattern, hypothesis and action plan as JSON. History is read from --history
when given, otherwise from the configured store.`,
	Example: `  cortex analyze --event incident.json --history last-30-days.json
  cat incident.json | cortex analyze --event -`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&eventPath, "event", "-", "Path to the event JSON file, or - for stdin")
	analyzeCmd.Flags().StringVar(&historyPath, "history", "", "Path to a history JSON file ({\"events\": [...]})")
	analyzeCmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant the event belongs to")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	// stdout carries the result
	logging.SetOutput(cmd.ErrOrStderr(), cmd.ErrOrStderr())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req := service.Request{TenantID: tenantID}
	if err := readJSON(eventPath, cmd.InOrStdin(), &req.Event); err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}
	if historyPath != "" {
		var history models.HistoricalContext
		if err := readJSON(historyPath, cmd.InOrStdin(), &history); err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}
		req.History = &history
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	outcome, err := rt.service.Process(ctx, req)
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), api.NewProcessEventResponse(outcome))
}

func readJSON(path string, stdin io.Reader, into interface{}) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return json.NewDecoder(r).Decode(into)
}

// writeResult indents the JSON when writing to a terminal
func writeResult(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
