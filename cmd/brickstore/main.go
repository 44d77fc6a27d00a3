package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"brickstore/internal/api"
	"brickstore/internal/config"
	"brickstore/internal/gate"
	"brickstore/internal/logging"
	"brickstore/internal/session"
)

var (
	// Global flags
	verbose bool
	baseURL string

	// Shared state, built in PersistentPreRunE
	cfg       config.Config
	apiClient *api.Client
	store     *session.Store

	// Logger for non-interactive commands
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "brickstore",
	Short: "Brickstore - retail analytics terminal",
	Long: `Brickstore is a terminal client for the Brickstore retail analytics
platform. It manages your sign-in session and gives you a conversational
data assistant over your company's sales data.

Run without arguments to open the assistant chat. Sign in first with
'brickstore login'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}

		dir, err := config.ConfigDir()
		if err != nil {
			return fmt.Errorf("resolving config dir: %w", err)
		}
		if err := logging.Initialize(dir); err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}

		apiClient = api.NewClient(cfg.BaseURL)
		store = session.NewStore(&apiAuthenticator{client: apiClient}, dir)

		// The chat interface has its own UI; skip the console logger there
		if cmd.Use == "brickstore" && cmd.CalledAs() == "brickstore" {
			return nil
		}

		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		store.Initialize()

		switch gate.Decide(store.State()) {
		case gate.OutcomeRedirectLogin:
			fmt.Println("You are not signed in. Run 'brickstore login' first.")
			return nil
		case gate.OutcomeRender:
			return runInteractiveChat()
		default:
			// Loading never survives Initialize; treat it as not signed in
			fmt.Println("You are not signed in. Run 'brickstore login' first.")
			return nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Backend base URL (or set BRICKSTORE_API_BASE_URL)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(dashboardCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
