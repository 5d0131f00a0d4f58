// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a full run: download the requested articles,
// write per-article artifacts, extract coordinate studies and record the
// outcome in the run store.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/cache"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/coordinates"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/download"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/outputs"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/runstore"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/tables"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/text"
	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

const studySetFileName = "studyset.json"

// Stats summarizes one run.
type Stats struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Total returns the number of records processed.
func (s Stats) Total() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// HasFailures reports whether any record failed.
func (s Stats) HasFailures() bool {
	return s.Failed > 0
}

// Deps carries the collaborators of a run. Getter and Writer are required;
// the rest are optional.
type Deps struct {
	Getter     download.Getter
	Cache      cache.Cache
	Writer     *outputs.Writer
	Store      *runstore.Store
	Classifier coordinates.Classifier
	Progress   io.Writer
	Settings   types.Settings
}

// Run executes a batch over the given records. Individual record failures
// are logged and counted, not fatal, unless fail-fast is configured.
func Run(ctx context.Context, records []download.Record, deps Deps) (Stats, error) {
	progress := deps.Progress
	if progress == nil {
		progress = io.Discard
	}

	var stats Stats
	var runID int64
	if deps.Store != nil {
		var err error
		runID, err = deps.Store.BeginRun(ctx)
		if err != nil {
			return stats, err
		}
	}

	// The observer goroutine is the only writer of these slices, and
	// Articles drains it before returning.
	var failed []download.Outcome
	var missing []download.Outcome
	observer := download.ObserverFunc(func(o download.Outcome) {
		switch {
		case o.Err != nil:
			fmt.Fprintf(progress, "failed: %s (%v)\n", o.Record, o.Err)
			failed = append(failed, o)
		case o.Article == nil:
			fmt.Fprintf(progress, "not found: %s\n", o.Record)
			missing = append(missing, o)
		default:
			fmt.Fprintf(progress, "downloaded: %s\n", o.Record)
		}
	})

	articles, downloadErr := download.Articles(ctx, deps.Getter, records, download.Options{
		Cache:          deps.Cache,
		CacheNamespace: deps.Settings.Fetch.CacheNamespace,
		Observer:       observer,
		FailFast:       deps.Settings.Fetch.FailFast,
	})

	for _, o := range failed {
		stats.Failed++
		if deps.Writer != nil {
			deps.Writer.AppendError(outputs.ErrorEntry{
				DOI:        o.Record.DOI,
				PMID:       o.Record.PMID,
				Error:      o.Err.Error(),
				FinishedAt: time.Now().UTC(),
			})
		}
		recordOutcome(ctx, deps.Store, runID, o.Record, runstore.ArticleResult{
			Status: runstore.StatusFailed,
			Error:  o.Err.Error(),
		})
	}
	for _, o := range missing {
		stats.Skipped++
		recordOutcome(ctx, deps.Store, runID, o.Record, runstore.ArticleResult{
			Status: runstore.StatusNoDocument,
		})
	}

	var set types.StudySet
	if !deps.Settings.Output.SkipCoordinates {
		set = coordinates.ExtractStudies(ctx, articles, coordinates.Options{
			Workers:    deps.Settings.Extraction.Workers,
			Classifier: deps.Classifier,
		})
	}

	for i, article := range articles {
		var study types.Study
		if !deps.Settings.Output.SkipCoordinates {
			study = set.StudySet.Studies[i]
		}
		if err := writeArticle(deps, article, study); err != nil {
			stats.Failed++
			fmt.Fprintf(progress, "failed: %s (%v)\n", article.DOI, err)
			if deps.Writer != nil {
				deps.Writer.AppendError(outputs.ErrorEntry{
					DOI:        article.DOI,
					Error:      err.Error(),
					FinishedAt: time.Now().UTC(),
				})
			}
			recordArticle(ctx, deps.Store, runID, article, runstore.ArticleResult{
				Status: runstore.StatusFailed,
				Error:  err.Error(),
			})
			continue
		}
		stats.Succeeded++
		analyses, points := countStudy(study)
		fmt.Fprintf(progress, "wrote: %s (%d analyses, %d points)\n",
			articleSlug(article), analyses, points)
		recordArticle(ctx, deps.Store, runID, article, runstore.ArticleResult{
			Status:   runstore.StatusSuccess,
			Analyses: analyses,
			Points:   points,
		})
	}

	if !deps.Settings.Output.SkipCoordinates && deps.Writer != nil && len(articles) > 0 {
		path := filepath.Join(deps.Writer.Root(), studySetFileName)
		if err := outputs.WriteStudySet(path, set); err != nil {
			fmt.Fprintf(progress, "warning: studyset write failed: %v\n", err)
		}
	}

	if deps.Store != nil {
		if err := deps.Store.FinishRun(ctx, runID, stats.Succeeded, stats.Failed, stats.Skipped); err != nil {
			fmt.Fprintf(progress, "warning: run record update failed: %v\n", err)
		}
	}

	fmt.Fprintf(progress, "\nRun summary: %d succeeded, %d failed, %d skipped (total: %d)\n",
		stats.Succeeded, stats.Failed, stats.Skipped, stats.Total())
	return stats, downloadErr
}

// writeArticle lays one article's artifacts out on disk, honoring the skip
// flags.
func writeArticle(deps Deps, article *types.ArticleDocument, study types.Study) error {
	if deps.Writer == nil {
		return nil
	}
	out := deps.Settings.Output

	dir, err := deps.Writer.ArticleDir(articleSlug(article))
	if err != nil {
		return err
	}
	if err := deps.Writer.WriteMetadata(dir, article); err != nil {
		return err
	}
	if !out.SkipXML {
		if err := deps.Writer.WriteXML(dir, article); err != nil {
			return err
		}
	}
	if !out.SkipText {
		if err := deps.Writer.WriteText(dir, text.Render(article)); err != nil {
			return err
		}
	}
	if !out.SkipTables {
		if err := deps.Writer.WriteTables(dir, tables.Extract(article.Payload)); err != nil {
			return err
		}
	}
	if !out.SkipCoordinates {
		if err := deps.Writer.WriteCoordinates(dir, study); err != nil {
			return err
		}
	}

	analyses, points := countStudy(study)
	return deps.Writer.AppendManifest(outputs.ManifestEntry{
		Slug:       articleSlug(article),
		DOI:        article.DOI,
		PMID:       articlePMID(article),
		Transport:  metaString(article, types.MetaTransport),
		Analyses:   analyses,
		Points:     points,
		FinishedAt: time.Now().UTC(),
	})
}

func articleSlug(article *types.ArticleDocument) string {
	return outputs.Slug(article.DOI, articlePMID(article))
}

// articlePMID returns the PubMed ID the article was retrieved under, if any.
func articlePMID(article *types.ArticleDocument) string {
	if metaString(article, types.MetaIdentifierType) == "pmid" {
		return metaString(article, types.MetaIdentifier)
	}
	return ""
}

func metaString(article *types.ArticleDocument, key string) string {
	if v, ok := article.Metadata[key].(string); ok {
		return v
	}
	return ""
}

func countStudy(study types.Study) (analyses, points int) {
	analyses = len(study.Analyses)
	for _, a := range study.Analyses {
		points += len(a.Points)
	}
	return analyses, points
}

func recordOutcome(ctx context.Context, store *runstore.Store, runID int64, record download.Record, result runstore.ArticleResult) {
	if store == nil {
		return
	}
	result.Identifier = record.DOI
	result.IdentifierType = "doi"
	if result.Identifier == "" {
		result.Identifier = record.PMID
		result.IdentifierType = "pmid"
	}
	store.RecordArticle(ctx, runID, result)
}

func recordArticle(ctx context.Context, store *runstore.Store, runID int64, article *types.ArticleDocument, result runstore.ArticleResult) {
	if store == nil {
		return
	}
	result.Identifier = metaString(article, types.MetaIdentifier)
	result.IdentifierType = metaString(article, types.MetaIdentifierType)
	if result.Identifier == "" {
		result.Identifier = article.DOI
		result.IdentifierType = "doi"
	}
	store.RecordArticle(ctx, runID, result)
}
