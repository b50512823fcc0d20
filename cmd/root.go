package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ingestd/internal/app"
	"ingestd/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "ingestd",
	Short: "ingestd control plane",
	Long: `ingestd is the control plane for an asynchronous document-ingestion
pipeline: it coordinates OCR and embedding jobs across a vector index, an
object store and an analytics store, with live progress streaming,
cooperative cancellation and cross-backend cleanup.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	// PersistentPreRunE runs before any subcommand's RunE
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		appInstance, err := app.NewApp(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		ctx := context.WithValue(cmd.Context(), appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Define a custom type for the context key to avoid collisions.
type contextKey string

const appKey contextKey = "app"

// GetAppFromContext retrieves the app instance installed by PersistentPreRunE.
func GetAppFromContext(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application instance not found in context")
	}
	return appInstance, nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check backend connectivity and other diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}

		fmt.Println("Checking backend connectivity...")
		if err := appInstance.VectorStore.Ping(ctx); err != nil {
			return fmt.Errorf("vector store ping failed: %w", err)
		}
		if err := appInstance.ObjectStore.Ping(ctx); err != nil {
			return fmt.Errorf("object store ping failed: %w", err)
		}
		if err := appInstance.AnalyticsStore.Ping(ctx); err != nil {
			return fmt.Errorf("analytics store ping failed: %w", err)
		}
		fmt.Println("All backends reachable.")
		return nil
	},
}
