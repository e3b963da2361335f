package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-notes/internal/chunking"
	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Split a document into chunks annotated with node IDs",
	Long: `Split a document into chunks. Stream mode cuts the whole text with
overlap; node mode keeps every chunk inside one node.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

var (
	chunkMode    string
	chunkSize    int
	chunkOverlap int
)

func init() {
	chunkCmd.Flags().StringVar(&chunkMode, "mode", string(domain.ChunkModeStream), "Chunking mode (stream or node)")
	chunkCmd.Flags().IntVar(&chunkSize, "size", chunking.DefaultTargetSize, "Target chunk size in bytes")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", chunking.DefaultOverlap, "Overlap between stream chunks in bytes")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	root, err := parseFile(cmd, args[0])
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	pipeline, err := chunking.New(
		chunking.WithTargetSize(chunkSize),
		chunking.WithOverlap(chunkOverlap),
		chunking.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	result, err := pipeline.Chunk(root, domain.ChunkMode(chunkMode))
	if err != nil {
		return err
	}
	return writeJSON(cmd, result.Preview())
}
