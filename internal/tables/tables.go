// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tables locates table regions in article markup and reconstructs
// rectangular grids from spanning-cell layouts.
package tables

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/xmltree"
	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

// Grid is a reconstructed rectangular table: every row has exactly
// len(Columns) cells.
type Grid struct {
	Columns []string
	Rows    [][]string
}

// Table pairs a reconstructed grid with its descriptive context.
type Table struct {
	Metadata types.TableMetadata
	Grid     Grid
}

// Extract returns every table region of the payload that reconstructs into
// a usable grid. Malformed markup or regions with at most one row yield no
// tables; extraction never fails the document.
func Extract(payload []byte) []Table {
	root, err := xmltree.Parse(payload)
	if err != nil {
		return nil
	}

	var out []Table
	for _, tableNode := range root.Descendants("table") {
		grid := reconstruct(tableNode)
		if grid == nil {
			continue
		}
		out = append(out, Table{
			Metadata: buildMetadata(root, tableNode),
			Grid:     *grid,
		})
	}
	return out
}

// reconstruct builds a grid from the span-capable CALS form when the table
// declares column specs, falling back to the simple row/cell form.
func reconstruct(tableNode *xmltree.Node) *Grid {
	for _, tgroup := range tableNode.ChildrenLocal("tgroup") {
		if grid := calsGrid(tgroup); grid != nil {
			return grid
		}
	}
	return simpleGrid(tableNode)
}

// pendingSpan carries an open row-span's text into following rows.
type pendingSpan struct {
	text      string
	remaining int
}

// calsGrid reconstructs a CALS tgroup into a rectangular grid. Column order
// is the declared colspec sequence. Cells resolve their start column from an
// explicit colname, a namest/nameend pair, or the next unfilled column left
// to right; horizontal spans blank out the trailing covered columns and
// vertical spans (morerows) propagate the cell text into later rows.
func calsGrid(tgroup *xmltree.Node) *Grid {
	colspecs := tgroup.ChildrenLocal("colspec")
	if len(colspecs) == 0 {
		return nil
	}
	columns := make([]string, len(colspecs))
	colIndex := make(map[string]int, len(colspecs))
	for i, spec := range colspecs {
		name := spec.Attr("colname")
		if name == "" {
			name = fmt.Sprintf("col%d", i+1)
		}
		columns[i] = name
		colIndex[name] = i
	}
	nCols := len(columns)

	var rowNodes []*xmltree.Node
	for _, head := range tgroup.ChildrenLocal("thead") {
		rowNodes = append(rowNodes, head.ChildrenLocal("row")...)
	}
	for _, body := range tgroup.ChildrenLocal("tbody") {
		rowNodes = append(rowNodes, body.ChildrenLocal("row")...)
	}
	if len(rowNodes) == 0 {
		rowNodes = tgroup.Descendants("row")
	}
	if len(rowNodes) == 0 {
		return nil
	}

	pending := make([]*pendingSpan, nCols)
	var grid [][]string

	for _, row := range rowNodes {
		values := make([]string, nCols)
		filled := make([]bool, nCols)

		for idx, span := range pending {
			if span == nil {
				continue
			}
			values[idx] = span.text
			filled[idx] = true
			span.remaining--
			if span.remaining <= 0 {
				pending[idx] = nil
			}
		}

		pointer := 0
		for _, cell := range row.ChildrenLocal("entry") {
			text := cell.FlatText()
			rowSpan := 1
			if morerows := cell.Attr("morerows"); morerows != "" {
				if n, err := strconv.Atoi(morerows); err == nil {
					rowSpan = n + 1
				}
			}

			var start int
			switch {
			case cell.Attr("colname") != "":
				start = indexOr(colIndex, cell.Attr("colname"), pointer)
			case cell.Attr("namest") != "":
				start = indexOr(colIndex, cell.Attr("namest"), pointer)
			default:
				for pointer < nCols && filled[pointer] {
					pointer++
				}
				start = pointer
			}

			span := 1
			if nameend := cell.Attr("nameend"); nameend != "" {
				end := indexOr(colIndex, nameend, start)
				if end-start+1 > 1 {
					span = end - start + 1
				}
			} else if colspan := cell.Attr("colspan"); colspan != "" {
				if n, err := strconv.Atoi(colspan); err == nil && n > 1 {
					span = n
				}
			}

			if start >= nCols {
				continue
			}
			for offset := 0; offset < span; offset++ {
				idx := start + offset
				if idx >= nCols {
					break
				}
				if offset == 0 {
					values[idx] = text
				} else {
					values[idx] = ""
				}
				filled[idx] = true
			}
			if start+span > pointer {
				pointer = start + span
			}

			if rowSpan > 1 {
				for offset := 0; offset < span; offset++ {
					idx := start + offset
					if idx >= nCols {
						continue
					}
					pending[idx] = &pendingSpan{text: text, remaining: rowSpan - 1}
				}
			}
		}

		// Rows with no data cells still occupy a grid row.
		grid = append(grid, values)
	}

	if len(grid) <= 1 {
		return nil
	}
	return &Grid{Columns: columns, Rows: grid}
}

// indexOr resolves a declared column name, falling back when the name was
// never declared.
func indexOr(colIndex map[string]int, name string, fallback int) int {
	if idx, ok := colIndex[name]; ok {
		return idx
	}
	return fallback
}

// simpleGrid reconstructs a plain row/cell table. The first row becomes the
// header and every row is right-padded to the widest observed row.
func simpleGrid(tableNode *xmltree.Node) *Grid {
	rowNodes := tableNode.Descendants("tr")
	cellNames := []string{"th", "td"}
	if len(rowNodes) == 0 {
		rowNodes = tableNode.Descendants("row")
		cellNames = []string{"entry"}
	}

	var rows [][]string
	for _, row := range rowNodes {
		var cells []string
		for _, child := range row.Children {
			for _, name := range cellNames {
				if child.Local() == name {
					cells = append(cells, child.FlatText())
					break
				}
			}
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	if len(rows) <= 1 {
		return nil
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}
	return &Grid{Columns: rows[0], Rows: rows[1:]}
}

// buildMetadata harvests the descriptive context of a table region: its
// label, caption, legend and footnotes, the raw markup of the enclosing
// region, and prose sentences elsewhere in the document that reference it.
func buildMetadata(root, tableNode *xmltree.Node) types.TableMetadata {
	context := tableNode.Parent
	if context == nil {
		context = tableNode
	}
	identifier := tableNode.Attr("id")
	return types.TableMetadata{
		Label:              firstText(context, "label"),
		Identifier:         identifier,
		Caption:            firstText(context, "caption"),
		Legend:             firstText(context, "legend"),
		Foot:               footText(context),
		RawXML:             context.XML(),
		ReferenceSentences: referenceSentences(root, identifier),
	}
}

func firstText(n *xmltree.Node, local string) string {
	found := n.First(local)
	if found == nil {
		if n.Local() == local {
			found = n
		} else {
			return ""
		}
	}
	return found.FlatText()
}

func footText(n *xmltree.Node) string {
	for _, local := range []string{"table-foot", "table-wrap-foot"} {
		if text := firstText(n, local); text != "" {
			return text
		}
	}
	return ""
}

// referenceSentences finds the paragraphs containing cross-references to the
// table, one sentence per paragraph, deduplicated.
func referenceSentences(root *xmltree.Node, tableID string) []string {
	if tableID == "" {
		return nil
	}
	var refs []*xmltree.Node
	refs = append(refs, root.Descendants("cross-ref")...)
	refs = append(refs, root.Descendants("cross-refs")...)

	seen := make(map[*xmltree.Node]bool)
	var sentences []string
	for _, ref := range refs {
		if !refersTo(ref.Attr("refid"), tableID) {
			continue
		}
		para := ref.Ancestor("para", "simple-para")
		if para == nil || seen[para] {
			continue
		}
		seen[para] = true
		if text := para.FlatText(); text != "" {
			sentences = append(sentences, text)
		}
	}
	return sentences
}

// refersTo reports whether the whitespace-separated refid list contains id.
func refersTo(refid, id string) bool {
	for _, candidate := range strings.Fields(refid) {
		if candidate == id {
			return true
		}
	}
	return false
}
