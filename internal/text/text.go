// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package text renders a retrieved article payload into plain text for
// human inspection and for keyword-based space classification.
package text

import (
	"strings"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/xmltree"
	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

// Render produces a plain-text view of the article: title, identifier lines,
// keywords, abstract and body prose. Malformed markup renders to an empty
// string rather than an error.
func Render(article *types.ArticleDocument) string {
	if article == nil {
		return ""
	}
	root, err := xmltree.Parse(article.Payload)
	if err != nil {
		return ""
	}

	var sections []string

	if title := firstText(root, "title"); title != "" {
		sections = append(sections, "# "+title)
	}

	var idLines []string
	if doi := identifier(article, root, types.MetaDOI, "doi"); doi != "" {
		idLines = append(idLines, "DOI: "+stripDOIPrefix(doi))
	}
	if pii := identifier(article, root, types.MetaPII, "pii"); pii != "" {
		idLines = append(idLines, "PII: "+pii)
	}
	if len(idLines) > 0 {
		sections = append(sections, strings.Join(idLines, "\n"))
	}

	if keywords := keywordList(root); len(keywords) > 0 {
		sections = append(sections, "## Keywords\n\n"+strings.Join(keywords, "\n"))
	}

	if abstract := abstractText(root); abstract != "" {
		sections = append(sections, "## Abstract\n\n"+abstract)
	}

	if body := bodyText(root); body != "" {
		sections = append(sections, "## Body\n\n"+body)
	}

	if len(sections) == 0 {
		return ""
	}
	return strings.Join(sections, "\n\n") + "\n"
}

// identifier prefers the value already recorded on the article, falling back
// to the payload itself.
func identifier(article *types.ArticleDocument, root *xmltree.Node, metaKey, local string) string {
	if v, ok := article.Metadata[metaKey].(string); ok && v != "" {
		return v
	}
	return firstText(root, local)
}

func stripDOIPrefix(doi string) string {
	if strings.HasPrefix(strings.ToLower(doi), "doi:") {
		return doi[len("doi:"):]
	}
	return doi
}

func firstText(root *xmltree.Node, local string) string {
	if n := root.First(local); n != nil {
		return n.FlatText()
	}
	return ""
}

// keywordList collects author keywords in document order, deduplicated
// case-insensitively.
func keywordList(root *xmltree.Node) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, n := range root.Descendants("keyword") {
		text := n.FlatText()
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, text)
	}
	return keywords
}

func abstractText(root *xmltree.Node) string {
	for _, local := range []string{"description", "abstract"} {
		if text := firstText(root, local); text != "" {
			return text
		}
	}
	return ""
}

// bodyText renders section titles and paragraphs of the article body, one
// block per line, collapsing blank runs.
func bodyText(root *xmltree.Node) string {
	body := root.First("body")
	if body == nil {
		return ""
	}
	var lines []string
	collectBlocks(body, &lines)
	return strings.Join(lines, "\n\n")
}

// collectBlocks walks the body in document order and emits one line per
// section title or paragraph. Paragraphs are leaves here: their nested
// markup flattens into the paragraph text.
func collectBlocks(n *xmltree.Node, lines *[]string) {
	for _, child := range n.Children {
		switch child.Local() {
		case "section-title":
			if text := child.FlatText(); text != "" {
				*lines = append(*lines, "## "+text)
			}
		case "para", "simple-para":
			if text := child.FlatText(); text != "" {
				*lines = append(*lines, text)
			}
		default:
			collectBlocks(child, lines)
		}
	}
}
