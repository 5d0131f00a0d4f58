// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outputs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/tables"
	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		doi, pmid string
		want      string
	}{
		{"10.1016/j.test.2020.01.001", "", "1016_j.test.2020.01.001"},
		{"10.1000/weird(chars)#here", "", "1000_weird_chars__here"},
		{"", "12345", "12345"},
	}
	for _, tt := range tests {
		if got := Slug(tt.doi, tt.pmid); got != tt.want {
			t.Errorf("Slug(%q, %q) = %q, want %q", tt.doi, tt.pmid, got, tt.want)
		}
	}
}

func TestWriterArticleArtifacts(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	dir, err := w.ArticleDir("1016_a")
	if err != nil {
		t.Fatal(err)
	}

	article := &types.ArticleDocument{
		DOI:         "10.1016/a",
		Payload:     []byte("<doc/>"),
		ContentType: "text/xml",
		Format:      "xml",
		RetrievedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		Metadata:    map[string]any{types.MetaTransport: "http"},
	}
	if err := w.WriteXML(dir, article); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteMetadata(dir, article); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteText(dir, "# Title\n"); err != nil {
		t.Fatal(err)
	}

	xml, err := os.ReadFile(filepath.Join(dir, "article.xml"))
	if err != nil || string(xml) != "<doc/>" {
		t.Errorf("article.xml = %q, %v", xml, err)
	}
	meta, err := os.ReadFile(filepath.Join(dir, "metadata.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"doi: 10.1016/a", "transport: http", "size: 6"} {
		if !strings.Contains(string(meta), want) {
			t.Errorf("metadata.yaml missing %q:\n%s", want, meta)
		}
	}
	if text, err := os.ReadFile(filepath.Join(dir, "text.txt")); err != nil || string(text) != "# Title\n" {
		t.Errorf("text.txt = %q, %v", text, err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestWriteTables(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	dir, err := w.ArticleDir("a")
	if err != nil {
		t.Fatal(err)
	}

	tbls := []tables.Table{
		{
			Metadata: types.TableMetadata{Label: "Table 1"},
			Grid: tables.Grid{
				Columns: []string{"x", "y", "z"},
				Rows:    [][]string{{"1", "2", "3"}},
			},
		},
		{
			Grid: tables.Grid{
				Columns: []string{"a", "b"},
				Rows:    [][]string{{"c", "d"}},
			},
		},
	}
	if err := w.WriteTables(dir, tbls); err != nil {
		t.Fatal(err)
	}

	first, err := os.ReadFile(filepath.Join(dir, "tables", "01_Table_1.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "x,y,z\n1,2,3\n"; string(first) != want {
		t.Errorf("csv = %q, want %q", first, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "tables", "02_table.csv")); err != nil {
		t.Errorf("unlabeled table file: %v", err)
	}
}

func TestWriteCoordinatesAndStudySet(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	dir, err := w.ArticleDir("a")
	if err != nil {
		t.Fatal(err)
	}

	study := types.Study{
		DOI: "10.1016/a",
		Analyses: []types.Analysis{{
			Name:   "Table 1",
			Points: []types.Point{{Coordinates: []float64{1, 2, 3}, Space: "MNI"}},
		}},
	}
	if err := w.WriteCoordinates(dir, study); err != nil {
		t.Fatal(err)
	}

	setPath := filepath.Join(w.Root(), "studyset.json")
	if err := WriteStudySet(setPath, types.NewStudySet([]types.Study{study})); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(setPath)
	if err != nil {
		t.Fatal(err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatal(err)
	}
	if _, ok := envelope["studyset"]; !ok {
		t.Errorf("studyset envelope missing: %s", data)
	}
}

func TestAppendLogs(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := w.AppendManifest(ManifestEntry{Slug: "a", Analyses: i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.AppendError(ErrorEntry{DOI: "10.1016/a", Error: "boom"}); err != nil {
		t.Fatal(err)
	}

	manifest, err := os.ReadFile(filepath.Join(w.Root(), "manifest.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(manifest)), "\n")
	if len(lines) != 2 {
		t.Errorf("manifest lines = %d, want 2", len(lines))
	}
	errLog, err := os.ReadFile(filepath.Join(w.Root(), "errors.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(errLog), `"error":"boom"`) {
		t.Errorf("errors.jsonl = %s", errLog)
	}
}
