/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/aigroupchat/voicechat-be/handler"
)

// startServerCmd represents the startServer command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the retrieval server",
	Long:  `Starts the server backing voice agents with document retrieval`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadAppConfig()

		app, err := newApplication(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize application: %v", err)
		}
		defer app.close()

		if err := app.agents.SeedDefaults(context.Background()); err != nil {
			log.Fatalf("Failed to seed default agents: %v", err)
		}
		if app.reranker != nil {
			go app.reranker.Warmup(context.Background())
		}

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		documentHandler := handler.NewDocumentHandler(app.documents)
		searchHandler := handler.NewSearchHandler(app.retrieval, app.context)
		agentHandler := handler.NewAgentHandler(app.agents)
		progressHandler := handler.NewProgressHandler(app.hub)

		// Setup Gin router
		router := gin.Default()

		// Apply global middleware
		router.Use(corsHandler.CorsMiddleware)

		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "voicechat-be"})
		})

		api := router.Group("/api")
		{
			api.POST("/documents", documentHandler.HandleUpload)
			api.GET("/documents", documentHandler.HandleList)
			api.GET("/documents/:id", documentHandler.HandleGet)
			api.DELETE("/documents/:id", documentHandler.HandleDelete)
			api.POST("/documents/search", searchHandler.HandleSearch)
			api.POST("/documents/context", searchHandler.HandleContext)
			api.GET("/documents/progress/ws", progressHandler.HandleProgress)

			api.GET("/contextual/stats", documentHandler.HandleStats)

			api.POST("/agents", agentHandler.HandleCreate)
			api.GET("/agents", agentHandler.HandleList)
			api.GET("/agents/:id", agentHandler.HandleGet)
			api.DELETE("/agents/:id", agentHandler.HandleDelete)
			api.POST("/agents/:id/documents", agentHandler.HandleLinkDocuments)
			api.GET("/agents/:id/documents", agentHandler.HandleListDocuments)
			api.DELETE("/agents/:id/documents/:docId", agentHandler.HandleUnlinkDocument)
			api.GET("/agent-templates", agentHandler.HandleTemplates)
			api.GET("/agent-templates/:type", agentHandler.HandleTemplateByType)
		}

		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
