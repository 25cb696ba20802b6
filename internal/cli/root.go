// Package cli provides the analyst command-line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/analyst"
	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/chat"
	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/config"
	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/translate"
	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/warehouse"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	modelPath   string
	catalogFile string
	japanese    bool

	// Shared state built in the root preamble
	cfg        config.Config
	catalog    *config.Catalog
	db         *warehouse.DB
	executor   *warehouse.Executor
	session    *chat.Session
	logger     *slog.Logger
	logCleanup func() error
)

// rootCmd represents the base command. Called without a subcommand it
// starts the interactive chat.
var rootCmd = &cobra.Command{
	Use:   "analyst",
	Short: "Talk to your warehouse data through Cortex Analyst",
	Long: `Analyst is a conversational front-end for Snowflake Cortex Analyst.

Ask questions about your data in natural language; the analyst answers
with narrative text, follow-up suggestions and generated SQL, which is
executed against your warehouse and rendered as a table. Responses can
be translated to Japanese warehouse-side via SNOWFLAKE.CORTEX.TRANSLATE.`,
	Version:           Version,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
	RunE:              runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modelPath, "model", "m", "", "semantic model path (default: first catalog entry)")
	rootCmd.PersistentFlags().StringVar(&catalogFile, "models-file", "", "semantic model catalog file (default: $ANALYST_MODELS_FILE)")
	rootCmd.PersistentFlags().BoolVar(&japanese, "japanese", true, "answer in Japanese (translated warehouse-side)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(modelsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	// No config or connections needed for these.
	switch cmd.Name() {
	case "version", "help", "completion":
		return nil
	}

	cfg = config.Load()
	if !cmd.Flags().Changed("japanese") {
		japanese = cfg.JapaneseResponses
	}

	logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)

	file := catalogFile
	if file == "" {
		file = cfg.CatalogFile
	}
	var err error
	catalog, err = config.LoadCatalog(file)
	if err != nil {
		return err
	}
	if modelPath == "" {
		modelPath = catalog.Models[0]
	}

	// The models listing needs the catalog only.
	if cmd.Name() == "models" {
		return nil
	}

	if cfg.Account == "" || cfg.User == "" {
		return errors.New("SNOWFLAKE_ACCOUNT and SNOWFLAKE_USER must be set")
	}
	if cfg.Token == "" {
		return errors.New("SNOWFLAKE_TOKEN must be set for the analyst API")
	}
	if cfg.Password == "" {
		pw, err := promptPassword(cfg.User)
		if err != nil {
			return err
		}
		cfg.Password = pw
	}

	ctx := cmd.Context()
	db, err = warehouse.Connect(ctx, warehouse.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Warehouse: cfg.Warehouse,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Role:      cfg.Role,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to snowflake: %w", err)
	}
	executor = warehouse.NewExecutor(db, cfg.QueryCacheSize, logger)

	var translator translate.Translator = translate.Noop{}
	if japanese {
		translator = translate.NewCortex(db, logger)
	}

	client := analyst.NewClient(analyst.Config{
		AccountURL: cfg.AccountURL,
		Token:      cfg.Token,
		Timeout:    cfg.APITimeout,
	}, logger)
	session = chat.NewSession(client, translator, modelPath, japanese, logger)

	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	if db != nil {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close snowflake connection: %v\n", err)
		}
	}
	if logCleanup != nil {
		_ = logCleanup()
	}
}

// promptPassword reads the Snowflake password from the terminal when
// SNOWFLAKE_PASSWORD is unset.
func promptPassword(user string) (string, error) {
	fmt.Fprintf(os.Stderr, "Snowflake password for %s: ", user)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
