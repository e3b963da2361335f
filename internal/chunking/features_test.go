package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

type chunkingFeature struct {
	root   *domain.Container
	result *Result
}

func (f *chunkingFeature) aDocumentWithParagraphs(table *godog.Table) error {
	f.root = domain.NewRoot()
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		if len(row.Cells) != 2 {
			return fmt.Errorf("expected 2 cells, got %d", len(row.Cells))
		}
		f.root.Append(domain.Paragraph(row.Cells[0].Value, row.Cells[1].Value))
	}
	return nil
}

func (f *chunkingFeature) chunkedIn(mode string, size, overlap int) error {
	p, err := New(WithTargetSize(size), WithOverlap(overlap))
	if err != nil {
		return err
	}
	f.result, err = p.Chunk(f.root, domain.ChunkMode(mode))
	return err
}

func (f *chunkingFeature) theStreamIs(expected string) error {
	if f.result.Stream.Text != expected {
		return fmt.Errorf("expected stream %q, got %q", expected, f.result.Stream.Text)
	}
	return nil
}

func (f *chunkingFeature) atLeastChunks(n int) error {
	if len(f.result.Chunks) < n {
		return fmt.Errorf("expected at least %d chunks, got %d", n, len(f.result.Chunks))
	}
	return nil
}

func (f *chunkingFeature) chunkAtOffsetIncludes(offset int, id string) error {
	for _, c := range f.result.Chunks {
		if c.StartIndex <= offset && offset < c.EndIndex {
			if !containsID(c.NodeIDs, id) {
				return fmt.Errorf("chunk %q lacks node %s: %v", c.Text, id, c.NodeIDs)
			}
			return nil
		}
	}
	return fmt.Errorf("no chunk contains offset %d", offset)
}

func (f *chunkingFeature) chunksReconstructStream() error {
	var sb strings.Builder
	covered := 0
	for _, c := range f.result.Chunks {
		if c.StartIndex > covered {
			return fmt.Errorf("gap at %d", covered)
		}
		if c.EndIndex > covered {
			sb.WriteString(c.Text[covered-c.StartIndex:])
			covered = c.EndIndex
		}
	}
	if sb.String() != f.result.Stream.Text {
		return fmt.Errorf("reconstructed %q", sb.String())
	}
	return nil
}

func (f *chunkingFeature) everyChunkHasNodes(n int) error {
	for i, c := range f.result.Chunks {
		if len(c.NodeIDs) != n {
			return fmt.Errorf("chunk %d has %d nodes", i, len(c.NodeIDs))
		}
	}
	return nil
}

func initializeChunkingScenario(sc *godog.ScenarioContext) {
	f := &chunkingFeature{}

	sc.Step(`^a document with paragraphs:$`, f.aDocumentWithParagraphs)
	sc.Step(`^the document is chunked in "([^"]*)" mode with target size (\d+) and overlap (\d+)$`, f.chunkedIn)
	sc.Step(`^the stream is "([^"]*)"$`, f.theStreamIs)
	sc.Step(`^there are at least (\d+) chunks$`, f.atLeastChunks)
	sc.Step(`^the chunk containing offset (\d+) includes node "([^"]*)"$`, f.chunkAtOffsetIncludes)
	sc.Step(`^the chunks reconstruct the stream$`, f.chunksReconstructStream)
	sc.Step(`^every chunk has exactly (\d+) nodes?$`, f.everyChunkHasNodes)
}

func TestChunkingFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "chunking",
		ScenarioInitializer: initializeChunkingScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
