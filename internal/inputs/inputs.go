// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inputs assembles identifier records from command-line lists and
// files. Supported forms: inline comma-separated values, line-oriented
// identifier files, JSON-lines record files and YAML record files.
package inputs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/download"
)

// Source names everything the caller may supply. All fields are optional but
// the collected result must contain at least one record.
type Source struct {
	DOIs       string // inline comma-separated DOIs
	PMIDs      string // inline comma-separated PubMed IDs
	DOIFile    string // one DOI per line, # comments allowed
	PMIDFile   string // one PubMed ID per line, # comments allowed
	RecordFile string // .jsonl, .yaml or .yml record file
}

// recordFileDoc is the YAML record file layout.
type recordFileDoc struct {
	Records []recordEntry `yaml:"records"`
}

type recordEntry struct {
	DOI  string `yaml:"doi" json:"doi"`
	PMID string `yaml:"pmid" json:"pmid"`
}

// Collect gathers records from every populated source, in source order:
// inline DOIs, inline PMIDs, DOI file, PMID file, record file. Every record
// must carry at least one identifier.
func Collect(src Source) ([]download.Record, error) {
	var records []download.Record

	for _, doi := range SplitList(src.DOIs) {
		records = append(records, download.Record{DOI: doi})
	}
	for _, pmid := range SplitList(src.PMIDs) {
		records = append(records, download.Record{PMID: pmid})
	}

	if src.DOIFile != "" {
		lines, err := readLines(src.DOIFile)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			records = append(records, download.Record{DOI: line})
		}
	}
	if src.PMIDFile != "" {
		lines, err := readLines(src.PMIDFile)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			records = append(records, download.Record{PMID: line})
		}
	}
	if src.RecordFile != "" {
		fromFile, err := readRecordFile(src.RecordFile)
		if err != nil {
			return nil, err
		}
		records = append(records, fromFile...)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no identifiers given")
	}
	for i := range records {
		records[i] = records[i].Normalize()
		if records[i].Empty() {
			return nil, fmt.Errorf("record %d carries no identifier", i+1)
		}
	}
	return records, nil
}

// SplitList splits an inline comma-separated list, trimming and dropping
// empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// readLines reads a line-oriented identifier file, skipping blank lines and
// # comments.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading identifier file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading identifier file: %w", err)
	}
	return lines, nil
}

// readRecordFile loads records from a JSON-lines or YAML file, chosen by
// extension.
func readRecordFile(path string) ([]download.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return readJSONL(path)
	case ".yaml", ".yml":
		return readYAML(path)
	default:
		return nil, fmt.Errorf("unsupported record file %q: want .jsonl, .yaml or .yml", path)
	}
}

// readJSONL parses one JSON object per line, skipping blank lines.
func readJSONL(path string) ([]download.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading record file: %w", err)
	}
	defer f.Close()

	var records []download.Record
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry recordEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("parsing record file line %d: %w", lineNo, err)
		}
		records = append(records, download.Record{DOI: entry.DOI, PMID: entry.PMID})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading record file: %w", err)
	}
	return records, nil
}

// readYAML loads a record file of the form:
//
//	records:
//	  - doi: 10.1016/...
//	  - pmid: "12345"
func readYAML(path string) ([]download.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record file: %w", err)
	}
	var doc recordFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing record file: %w", err)
	}
	records := make([]download.Record, 0, len(doc.Records))
	for _, entry := range doc.Records {
		records = append(records, download.Record{DOI: entry.DOI, PMID: entry.PMID})
	}
	return records, nil
}
