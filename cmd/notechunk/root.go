package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/parsers"
)

var version = "dev"

// mimeType is a persistent flag overriding extension-based detection.
var mimeType string

var rootCmd = &cobra.Command{
	Use:   "notechunk",
	Short: "Chunk notes and match vectors offline",
	Long: `notechunk flattens editor output into a text stream, splits it into
chunks that remember their source nodes, and runs the tag matcher against
vectors stored in JSON files.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("notechunk version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mimeType, "mime", "", "Content type (default: detected from the file extension)")
	rootCmd.AddCommand(versionCmd)
}

// detectMIMEType maps a file extension to a parser content type.
func detectMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parsers.EditorMIMEType
	case ".html", ".htm":
		return "text/html"
	case ".md", ".markdown":
		return "text/markdown"
	default:
		return "text/plain"
	}
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// parseFile reads and parses a file into a node tree.
func parseFile(cmd *cobra.Command, path string) (*domain.Container, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	mt := mimeType
	if mt == "" {
		mt = detectMIMEType(path)
	}
	root, err := parsers.DefaultRegistry().Parse(string(data), mt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return root, nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
