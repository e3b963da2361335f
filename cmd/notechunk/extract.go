package main

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-notes/internal/chunking"
	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Flatten a document into a text stream with node boundaries",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

type extractOutput struct {
	Stream     domain.FlatTextStream `json:"stream"`
	Boundaries []domain.NodeBoundary `json:"boundaries"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	root, err := parseFile(cmd, args[0])
	if err != nil {
		return err
	}

	stream, boundaries, err := chunking.Extract(root)
	if err != nil {
		return err
	}
	if boundaries == nil {
		boundaries = []domain.NodeBoundary{}
	}
	return writeJSON(cmd, extractOutput{Stream: stream, Boundaries: boundaries})
}
