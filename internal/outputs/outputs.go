// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outputs lays retrieved articles and extraction results out on
// disk: one directory per article plus run-level manifest and error logs.
package outputs

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/tables"
	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

const (
	articleFileName     = "article.xml"
	metadataFileName    = "metadata.yaml"
	textFileName        = "text.txt"
	tablesDirName       = "tables"
	coordinatesFileName = "coordinates.json"
	manifestFileName    = "manifest.jsonl"
	errorsFileName      = "errors.jsonl"
)

var unsafeChars = regexp.MustCompile(`[^\w\-.]`)

// Slug derives the article's directory name from its identifiers: the DOI
// with the registrant prefix marker stripped, else the PubMed ID.
func Slug(doi, pmid string) string {
	id := doi
	if id == "" {
		id = pmid
	}
	id = strings.TrimPrefix(id, "10.")
	return unsafeChars.ReplaceAllString(id, "_")
}

// Writer writes all artifacts of one run under a root directory.
type Writer struct {
	root string
}

func NewWriter(root string) (*Writer, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{root: root}, nil
}

func (w *Writer) Root() string { return w.root }

// ArticleDir creates and returns the directory for one article.
func (w *Writer) ArticleDir(slug string) (string, error) {
	dir := filepath.Join(w.root, slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating article directory: %w", err)
	}
	return dir, nil
}

// WriteXML stores the raw payload as article.xml.
func (w *Writer) WriteXML(dir string, article *types.ArticleDocument) error {
	return writeAtomic(filepath.Join(dir, articleFileName), article.Payload)
}

// articleMetadata is the metadata.yaml layout.
type articleMetadata struct {
	DOI         string         `yaml:"doi,omitempty"`
	ContentType string         `yaml:"content_type,omitempty"`
	Format      string         `yaml:"format,omitempty"`
	RetrievedAt time.Time      `yaml:"retrieved_at"`
	Size        int            `yaml:"size"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
}

// WriteMetadata stores the article's retrieval metadata as metadata.yaml.
func (w *Writer) WriteMetadata(dir string, article *types.ArticleDocument) error {
	meta := articleMetadata{
		DOI:         article.DOI,
		ContentType: article.ContentType,
		Format:      article.Format,
		RetrievedAt: article.RetrievedAt,
		Size:        article.Size(),
		Metadata:    article.Metadata,
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return writeAtomic(filepath.Join(dir, metadataFileName), data)
}

// WriteText stores the plain-text rendering as text.txt.
func (w *Writer) WriteText(dir, text string) error {
	return writeAtomic(filepath.Join(dir, textFileName), []byte(text))
}

// WriteTables stores each reconstructed grid as tables/NN_label.csv.
func (w *Writer) WriteTables(dir string, tbls []tables.Table) error {
	if len(tbls) == 0 {
		return nil
	}
	tablesDir := filepath.Join(dir, tablesDirName)
	if err := os.MkdirAll(tablesDir, 0o755); err != nil {
		return fmt.Errorf("creating tables directory: %w", err)
	}
	for i, table := range tbls {
		label := table.Metadata.Label
		if label == "" {
			label = "table"
		}
		name := fmt.Sprintf("%02d_%s.csv", i+1, unsafeChars.ReplaceAllString(label, "_"))
		if err := writeCSV(filepath.Join(tablesDir, name), table.Grid); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, grid tables.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating table file: %w", err)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(grid.Columns); err != nil {
		f.Close()
		return fmt.Errorf("writing table file: %w", err)
	}
	for _, row := range grid.Rows {
		if err := cw.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("writing table file: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing table file: %w", err)
	}
	return f.Close()
}

// WriteCoordinates stores the extracted study as coordinates.json.
func (w *Writer) WriteCoordinates(dir string, study types.Study) error {
	data, err := json.MarshalIndent(study, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling coordinates: %w", err)
	}
	return writeAtomic(filepath.Join(dir, coordinatesFileName), data)
}

// WriteStudySet stores a whole batch's studies under the studyset envelope.
func WriteStudySet(path string, set types.StudySet) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling studyset: %w", err)
	}
	return writeAtomic(path, data)
}

// ManifestEntry is one line of manifest.jsonl.
type ManifestEntry struct {
	Slug       string    `json:"slug"`
	DOI        string    `json:"doi,omitempty"`
	PMID       string    `json:"pmid,omitempty"`
	Transport  string    `json:"transport,omitempty"`
	Analyses   int       `json:"analyses"`
	Points     int       `json:"points"`
	FinishedAt time.Time `json:"finished_at"`
}

// ErrorEntry is one line of errors.jsonl.
type ErrorEntry struct {
	DOI        string    `json:"doi,omitempty"`
	PMID       string    `json:"pmid,omitempty"`
	Error      string    `json:"error"`
	FinishedAt time.Time `json:"finished_at"`
}

// AppendManifest appends one entry to the run's manifest log.
func (w *Writer) AppendManifest(entry ManifestEntry) error {
	return appendJSONL(filepath.Join(w.root, manifestFileName), entry)
}

// AppendError appends one entry to the run's error log.
func (w *Writer) AppendError(entry ErrorEntry) error {
	return appendJSONL(filepath.Join(w.root, errorsFileName), entry)
}

func appendJSONL(path string, entry any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling log entry: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("appending log entry: %w", err)
	}
	return f.Close()
}

// writeAtomic writes to a temp file in the target directory and renames it
// into place so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
