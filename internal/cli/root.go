package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ppiankov/newsguard/internal/api"
	"github.com/ppiankov/newsguard/internal/logging"
	"github.com/ppiankov/newsguard/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is the release version, overridden at build time
var Version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	jsonOut   bool
	apiURL    string
	userID    string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "newsguard",
	Short: "NewsGuard - misinformation detection client",
	Long: `NewsGuard submits news content to a misinformation-detection service and
shows its verdicts.

Content can be a screenshot with its accompanying text, or the URL of an
article. Every analysis is recorded under your user id; the history and the
model statistics can be listed at any time.

A verdict is a model prediction, not a fact check.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Canceling ctx aborts in-flight requests.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of NewsGuard.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "newsguard %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.newsguard/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	pf.BoolVar(&jsonOut, "json", false, "print results as JSON")
	pf.StringVar(&apiURL, "api-url", "", "prediction service base URL (env NEWSGUARD_API_URL)")
	pf.StringVar(&userID, "user", "", "user id analyses and history belong to (env NEWSGUARD_USER_ID)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "log format: console or json")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("api.base_url", pf.Lookup("api-url"))
	_ = viper.BindPFlag("user.id", pf.Lookup("user"))
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and NEWSGUARD_* variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".newsguard"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setDefaults(viper.GetViper(), model.DefaultConfig())
	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so env variables and Unmarshal see it
func setDefaults(v *viper.Viper, d *model.Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.http_proxy", d.API.HTTPProxy)
	v.SetDefault("api.https_proxy", d.API.HTTPSProxy)
	v.SetDefault("user.id", d.User.ID)
	v.SetDefault("batch.workers", d.Batch.Workers)
	v.SetDefault("batch.requests_per_second", d.Batch.RequestsPerSecond)
	v.SetDefault("batch.burst", d.Batch.Burst)
	v.SetDefault("batch.retries", d.Batch.Retries)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("stub.addr", d.Stub.Addr)
	v.SetDefault("stub.db_path", d.Stub.DBPath)
	v.SetDefault("stub.stats_ttl", d.Stub.StatsTTL)
	v.SetDefault("stub.llm.provider", d.Stub.LLM.Provider)
	v.SetDefault("stub.llm.model", d.Stub.LLM.Model)
	v.SetDefault("stub.llm.api_key", d.Stub.LLM.APIKey)
	v.SetDefault("stub.llm.base_url", d.Stub.LLM.BaseURL)
}

// bindEnv maps NEWSGUARD_SECTION_KEY variables plus the short aliases
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("NEWSGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("api.base_url", "NEWSGUARD_API_URL", "NEWSGUARD_API_BASE_URL")
	_ = v.BindEnv("user.id", "NEWSGUARD_USER_ID")
	_ = v.BindEnv("stub.llm.api_key", "NEWSGUARD_STUB_LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY")
}

// loadConfig resolves the effective configuration
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if v.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// app carries what every command needs
type app struct {
	cfg    *model.Config
	logger zerolog.Logger
	out    io.Writer
	errOut io.Writer
	json   bool
	loc    *time.Location
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		logger: logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		json:   jsonOut,
		loc:    time.Local,
	}, nil
}

func (a *app) client() *api.Client {
	return api.New(a.cfg.API.BaseURL,
		api.WithUserAgent(a.cfg.API.UserAgent),
		api.WithProxy(a.cfg.API.HTTPProxy, a.cfg.API.HTTPSProxy),
		api.WithLogger(a.logger),
	)
}

// requireUser returns the configured user id or explains how to set one
func (a *app) requireUser() (string, error) {
	if err := api.ValidateUserID(a.cfg.User.ID); err != nil {
		return "", fmt.Errorf("%w: pass --user or set NEWSGUARD_USER_ID", err)
	}
	return a.cfg.User.ID, nil
}
