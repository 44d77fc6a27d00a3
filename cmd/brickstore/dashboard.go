package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"brickstore/internal/api"
	"brickstore/internal/dashboard"
)

var dashboardName string

// dashboardCmd resolves the embedded dashboard and prints its signed URL
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the embedded sales dashboard",
	Long: `Resolves the company sales dashboard: fetches the embedding
configuration from the backend, mints a viewer-scoped token for your
account, and prints the signed embed URL to open in a browser.`,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardName, "name", "sales_overview", "Dashboard to embed")
}

// urlWidget stands in for the browser embedding widget. Initialize renders
// the one thing a terminal can: the signed URL.
type urlWidget struct{}

func (urlWidget) Initialize(cfg dashboard.EmbedConfig) error {
	fmt.Println("Dashboard ready. Open this URL in a browser:")
	fmt.Println()
	fmt.Println("  " + dashboard.EmbedURL(cfg))
	return nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	store.Initialize()

	cred := store.Credential()
	if cred == nil {
		fmt.Println("You are not signed in. Run 'brickstore login' first.")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	embedCfg, err := apiClient.DashboardConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetching dashboard config: %w", err)
	}
	logger.Info("resolved dashboard",
		zap.String("dashboard_id", embedCfg.DashboardID),
		zap.String("workspace_id", embedCfg.WorkspaceID))

	// Tokens are scoped to the viewer's company so the dashboard only
	// shows that company's rows.
	provider := func(ctx context.Context) (string, error) {
		return apiClient.DashboardToken(ctx, api.TokenRequest{
			ExternalData:     cred.Company,
			ExternalViewerID: cred.Email,
			DashboardName:    dashboardName,
		})
	}

	embedder := dashboard.NewEmbedder(urlWidget{}, provider)
	if err := embedder.Mount(ctx, *embedCfg); err != nil {
		return fmt.Errorf("mounting dashboard: %w", err)
	}
	return nil
}
