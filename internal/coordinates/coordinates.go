// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coordinates turns reconstructed article tables into studies:
// named analyses of numeric coordinate triples with an inferred spatial
// reference frame.
package coordinates

import (
	"context"
	"maps"
	"runtime"
	"strings"
	"sync"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/tables"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/text"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/xmltree"
	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

const defaultAnalysisName = "Coordinate Table"

// Options configures batch extraction.
type Options struct {
	Workers    int
	Classifier Classifier
}

// ExtractStudy extracts every coordinate table of one article into a study.
// Articles without coordinate tables yield a study with zero analyses.
func ExtractStudy(article *types.ArticleDocument, classifier Classifier) types.Study {
	study := types.Study{DOI: article.DOI}
	if len(article.Metadata) > 0 {
		study.Metadata = maps.Clone(article.Metadata)
	}
	if classifier == nil {
		classifier = KeywordClassifier{}
	}

	// Rendered lazily: most articles resolve the space from the table's
	// own wording.
	articleText := ""
	rendered := false

	for _, table := range tables.Extract(article.Payload) {
		grid, ok := normalizeGrid(table.Grid)
		if !ok {
			continue
		}
		points := grid.triples()
		if len(points) == 0 {
			continue
		}

		space := inferSpace(grid.headerText(), metadataText(table.Metadata))
		if space == "" {
			if !rendered {
				articleText = text.Render(article)
				rendered = true
			}
			space = classifier.ClassifySpace(articleText)
		}
		if space == "" {
			space = types.SpaceUnknown
		}

		analysis := types.Analysis{
			Name:     analysisName(table.Metadata),
			Metadata: analysisMetadata(table.Metadata),
		}
		for _, triple := range points {
			analysis.Points = append(analysis.Points, types.Point{
				Coordinates: triple,
				Space:       space,
			})
		}
		study.Analyses = append(study.Analyses, analysis)
	}
	return study
}

// ExtractStudies extracts a batch of articles on a fixed worker pool.
// Results come back in input order regardless of completion order. A zero or
// negative Workers sizes the pool to the CPU count.
func ExtractStudies(ctx context.Context, articles []*types.ArticleDocument, opts Options) types.StudySet {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(articles) {
		workers = len(articles)
	}

	studies := make([]types.Study, len(articles))
	for i, article := range articles {
		studies[i] = types.Study{DOI: article.DOI}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				studies[i] = ExtractStudy(articles[i], opts.Classifier)
			}
		}()
	}

dispatch:
	for i := range articles {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	return types.NewStudySet(studies)
}

// metadataText concatenates the table's prose context for space inference.
func metadataText(meta types.TableMetadata) string {
	parts := []string{meta.Caption, meta.Label, meta.Legend, meta.Foot}
	parts = append(parts, meta.ReferenceSentences...)
	if extra := rawContextText(meta.RawXML); extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, " ")
}

// rawContextText gathers the text of the raw table region outside the grid
// itself. Publishers sometimes park the space statement in prose the
// structured harvest misses.
func rawContextText(rawXML string) string {
	if rawXML == "" {
		return ""
	}
	root, err := xmltree.Parse([]byte(rawXML))
	if err != nil {
		return rawXML
	}
	var sb strings.Builder
	var collect func(n *xmltree.Node)
	collect = func(n *xmltree.Node) {
		if n.Local() == "tgroup" {
			return
		}
		for i, run := range n.Text {
			sb.WriteString(run)
			sb.WriteByte(' ')
			if i < len(n.Children) {
				collect(n.Children[i])
			}
		}
	}
	collect(root)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// analysisName picks the most descriptive available name for a table.
func analysisName(meta types.TableMetadata) string {
	for _, candidate := range []string{meta.Caption, meta.Label, meta.Legend} {
		if candidate != "" {
			return candidate
		}
	}
	// A last look inside the raw region markup: harvesting can miss a
	// caption nested in an unexpected spot.
	if root, err := xmltree.Parse([]byte(meta.RawXML)); err == nil {
		for _, local := range []string{"caption", "label"} {
			if n := root.First(local); n != nil {
				if text := n.FlatText(); text != "" {
					return text
				}
			}
		}
	}
	return defaultAnalysisName
}

func analysisMetadata(meta types.TableMetadata) map[string]any {
	out := map[string]any{
		"table_label":   meta.Label,
		"table_id":      meta.Identifier,
		"raw_table_xml": meta.RawXML,
	}
	if len(meta.ReferenceSentences) > 0 {
		out["reference_sentences"] = meta.ReferenceSentences
	}
	return out
}
