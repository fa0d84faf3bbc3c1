package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from the documents directory",
	Long: "Drops every document's chunks from the Chroma collection and " +
		"ingests the files again. Run this after changing chunking parameters " +
		"or the embedding model.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := buildStack(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		count, err := st.store.Reindex(ctx)
		if err != nil {
			return err
		}

		total, err := st.index.Count(ctx)
		if err != nil {
			st.log.Warn().Err(err).Msg("could not count indexed chunks")
		} else {
			st.log.Info().Int("chunks", total).Msg("index size after rebuild")
		}

		fmt.Printf("Re-indexed %d documents\n", count)
		return nil
	},
}
