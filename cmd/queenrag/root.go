package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "queenrag",
	Short: "Queen-RAG knowledge base backend",
	Long: "Queen-RAG serves a document knowledge base over HTTP: uploads are " +
		"chunked and embedded into ChromaDB, and chat requests are answered " +
		"with retrieved context.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Secrets come from the environment; .env is a development nicety.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reindexCmd)
}
