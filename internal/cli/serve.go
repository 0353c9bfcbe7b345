package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/newsguard/internal/stub"
	"github.com/spf13/cobra"
)

var (
	stubAddr   string
	stubDBPath string
)

var serveStubCmd = &cobra.Command{
	Use:   "serve-stub",
	Short: "Run a local stand-in for the prediction service",
	Long: `Serve the prediction API locally for development and demos.

Verdicts come from a deterministic hash, not a trained model. Scans are kept
in a SQLite file. With stub.llm.provider set (openai or groq) and an API key in
the environment, predictions carry an LLM-written summary.

Example:
  newsguard serve-stub --addr 127.0.0.1:8000
  GROQ_API_KEY=... NEWSGUARD_STUB_LLM_PROVIDER=groq newsguard serve-stub`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			a.cfg.Stub.Addr = stubAddr
		}
		if cmd.Flags().Changed("db") {
			a.cfg.Stub.DBPath = stubDBPath
		}
		return a.serveStub(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveStubCmd)

	serveStubCmd.Flags().StringVar(&stubAddr, "addr", "", "listen address (default from config)")
	serveStubCmd.Flags().StringVar(&stubDBPath, "db", "", "SQLite database path (default from config)")
}

func (a *app) serveStub(ctx context.Context) error {
	sc := a.cfg.Stub

	summarizer, err := stub.NewSummarizer(sc.LLM)
	if err != nil {
		return fmt.Errorf("configure summaries: %w", err)
	}

	store, err := stub.OpenStore(sc.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	opts := []stub.Option{
		stub.WithLogger(a.logger),
		stub.WithStatsTTL(sc.StatsTTL),
	}
	if summarizer != nil {
		opts = append(opts, stub.WithSummarizer(summarizer))
		a.logger.Info().Str("provider", sc.LLM.Provider).Str("model", sc.LLM.Model).Msg("summaries enabled")
	}

	a.logger.Info().Str("db", sc.DBPath).Msg("scan log opened")
	return stub.NewServer(store, opts...).ListenAndServe(ctx, sc.Addr)
}
