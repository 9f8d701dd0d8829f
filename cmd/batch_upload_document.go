/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// batchUploadDocumentCmd represents the batchUploadDocument command
var batchUploadDocumentCmd = &cobra.Command{
	Use:   "batch-upload-document",
	Short: "Ingest every file in a directory",
	Long: `Runs the ingest pipeline for each regular file in a directory.
Files that fail are logged and skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		directory, _ := cmd.Flags().GetString("directory")
		ownerID, _ := cmd.Flags().GetString("owner")
		reinit, _ := cmd.Flags().GetBool("reinit")

		if directory == "" || ownerID == "" {
			log.Fatal("--directory and --owner are required")
		}

		cfg := loadAppConfig()
		app, err := newApplication(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize application: %v", err)
		}
		defer app.close()

		if reinit {
			if err := app.store.ReInit(); err != nil {
				log.Fatalf("Failed to reinitialize vector store: %v", err)
			}
		}

		files, err := os.ReadDir(directory)
		if err != nil {
			log.Fatalf("Failed to read directory: %v", err)
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			filePath := filepath.Join(directory, file.Name())
			resp, err := uploadFile(context.Background(), app, ownerID, "", filePath)
			if err != nil {
				log.Printf("Failed to upload document %s: %v", filePath, err)
				continue
			}
			fmt.Printf("Uploaded %s as %s (%d chunks)\n", filePath, resp.DocumentID, resp.ChunkCount)
		}
	},
}

func init() {
	rootCmd.AddCommand(batchUploadDocumentCmd)

	batchUploadDocumentCmd.Flags().String("directory", "", "Path to the dir to upload")
	batchUploadDocumentCmd.Flags().StringP("owner", "o", "", "Owner id the documents belong to")
	batchUploadDocumentCmd.Flags().BoolP("reinit", "r", false, "Reinitialize the vector store first")
}
