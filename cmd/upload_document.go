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
	"strings"

	"github.com/spf13/cobra"

	"github.com/aigroupchat/voicechat-be/types"
	"github.com/aigroupchat/voicechat-be/utils"
)

// uploadDocumentCmd represents the uploadDocument command
var uploadDocumentCmd = &cobra.Command{
	Use:   "upload-document",
	Short: "Ingest one file from disk",
	Long: `Runs the full ingest pipeline for a single file without going
through the HTTP server. Useful for seeding a fresh deployment.`,
	Run: func(cmd *cobra.Command, args []string) {
		filePath, _ := cmd.Flags().GetString("file")
		ownerID, _ := cmd.Flags().GetString("owner")
		title, _ := cmd.Flags().GetString("title")
		reinit, _ := cmd.Flags().GetBool("reinit")

		if filePath == "" || ownerID == "" {
			log.Fatal("--file and --owner are required")
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

		resp, err := uploadFile(context.Background(), app, ownerID, title, filePath)
		if err != nil {
			log.Fatalf("Failed to upload document: %v", err)
		}
		fmt.Printf("Uploaded %s as %s (%d chunks)\n", filePath, resp.DocumentID, resp.ChunkCount)
	},
}

func init() {
	rootCmd.AddCommand(uploadDocumentCmd)

	uploadDocumentCmd.Flags().StringP("file", "f", "", "Path to the file to upload")
	uploadDocumentCmd.Flags().StringP("owner", "o", "", "Owner id the document belongs to")
	uploadDocumentCmd.Flags().String("title", "", "Document title (defaults to the file name without its extension)")
	uploadDocumentCmd.Flags().BoolP("reinit", "r", false, "Reinitialize the vector store first")
}

func uploadFile(ctx context.Context, app *application, ownerID, title, filePath string) (*types.UploadResponse, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	docType := types.DocumentTypeText
	if strings.EqualFold(filepath.Ext(filePath), ".pdf") {
		docType = types.DocumentTypePDF
	}
	resp, err := app.documents.Upload(ctx, ownerID, title, docType, data)
	if err != nil {
		return nil, err
	}
	if dest, copyErr := utils.CopyFileWithTimestamp(filePath, app.cfg.UploadDir); copyErr != nil {
		log.Printf("Warning: failed to archive %s: %v", filePath, copyErr)
	} else {
		log.Printf("Archived source file to %s", dest)
	}
	return resp, nil
}
