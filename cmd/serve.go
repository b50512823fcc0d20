package cmd

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ingestd/internal/apihandlers"
)

var (
	serveAddr string // Listen address
	servePort string // Listen port
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run ingestd as an HTTP API server",
	Long: `Starts the HTTP server exposing job submission, progress streaming,
cancellation, cleanup and configuration endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		router := gin.Default() // Includes logger and recovery middleware

		apiHandler := apihandlers.NewAPIHandler(appInstance)

		v1 := router.Group("/api/v1")
		{
			v1.POST("/ingest", apiHandler.IngestHandler)

			jobGroup := v1.Group("/jobs")
			{
				jobGroup.GET("/:id/events", apiHandler.StreamEventsHandler)
				jobGroup.POST("/:id/cancel", apiHandler.CancelJobHandler)
				jobGroup.POST("/:id/cleanup", apiHandler.CleanupJobHandler)
				jobGroup.GET("/:id/data", apiHandler.JobDataSummaryHandler)
			}

			settingsGroup := v1.Group("/settings")
			{
				settingsGroup.GET("/schema", apiHandler.SettingsSchemaHandler)
				settingsGroup.GET("", apiHandler.SettingsValuesHandler)
				settingsGroup.POST("", apiHandler.UpdateSettingHandler)
				settingsGroup.POST("/reset", apiHandler.ResetSettingsHandler)
			}
		}

		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		listenAddr := fmt.Sprintf("%s:%s", serveAddr, servePort)
		log.Printf("Starting ingestd API server on http://%s", listenAddr)

		if err := router.Run(listenAddr); err != nil {
			log.Errorf("Failed to run API server: %v", err)
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost", "Address to listen on (e.g., '0.0.0.0' for all interfaces)")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")
}
