// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package coordinates

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

func TestInferSpace(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		metadata string
		want     string
	}{
		{"mni keyword", "x y z", "Peaks in MNI space", "MNI"},
		{"montreal keyword", "x y z", "Montreal Neurological Institute space", "MNI"},
		{"talairach", "x y z", "Talairach coordinates", "TAL"},
		{"talairach misspelled", "x y z", "Talairac space", "TAL"},
		{"spm with coordinate", "x y z coordinate", "analyzed with SPM12", "MNI"},
		{"spm alone", "x y z", "analyzed with SPM12", ""},
		{"no keywords", "x y z", "activation peaks", ""},
		{"header carries keyword", "x y z MNI", "", "MNI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferSpace(tt.header, tt.metadata); got != tt.want {
				t.Errorf("inferSpace(%q, %q) = %q, want %q", tt.header, tt.metadata, got, tt.want)
			}
		})
	}
}

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"mni majority", "MNI space was used. MNI coordinates reported. One Talairach mention.", "MNI"},
		{"talairach majority", "Talairach atlas. Talairach space.", "TAL"},
		{"no keywords", "resting state activity in adults", types.SpaceUnknown},
		{"tie", "MNI versus Talairach", types.SpaceUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (KeywordClassifier{}).ClassifySpace(tt.text); got != tt.want {
				t.Errorf("ClassifySpace(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func coordinateArticle(doi, caption, bodyPara string) *types.ArticleDocument {
	payload := fmt.Sprintf(`<full-text-retrieval-response
  xmlns:ce="http://www.elsevier.com/xml/common/dtd"
  xmlns:dc="http://purl.org/dc/elements/1.1/">
  <coredata><dc:title>Study</dc:title></coredata>
  <body>
    <ce:sections>
      <ce:para>%s</ce:para>
    </ce:sections>
  </body>
  <ce:table-wrap>
    <ce:label>Table 1</ce:label>
    <ce:caption>%s</ce:caption>
    <ce:table id="tbl1">
      <tgroup cols="3">
        <colspec colname="c1"/><colspec colname="c2"/><colspec colname="c3"/>
        <thead><row><entry>x</entry><entry>y</entry><entry>z</entry></row></thead>
        <tbody>
          <row><entry>2</entry><entry>44</entry><entry>10</entry></row>
          <row><entry>-4</entry><entry>-52</entry><entry>26</entry></row>
        </tbody>
      </tgroup>
    </ce:table>
  </ce:table-wrap>
</full-text-retrieval-response>`, bodyPara, caption)
	return &types.ArticleDocument{DOI: doi, Payload: []byte(payload)}
}

func TestExtractStudy(t *testing.T) {
	article := coordinateArticle("10.1016/j.test.2020.01.001",
		"Talairach coordinates of activation peaks", "Methods were standard.")
	article.Metadata = map[string]any{types.MetaPII: "S0123456789"}

	study := ExtractStudy(article, nil)
	if study.DOI != article.DOI {
		t.Errorf("DOI = %q, want %q", study.DOI, article.DOI)
	}
	if study.Metadata[types.MetaPII] != "S0123456789" {
		t.Errorf("study metadata not copied from article: %v", study.Metadata)
	}
	if len(study.Analyses) != 1 {
		t.Fatalf("Analyses = %d, want 1", len(study.Analyses))
	}
	analysis := study.Analyses[0]
	if analysis.Name != "Talairach coordinates of activation peaks" {
		t.Errorf("Name = %q", analysis.Name)
	}
	if analysis.Metadata["table_id"] != "tbl1" || analysis.Metadata["table_label"] != "Table 1" {
		t.Errorf("analysis metadata = %v", analysis.Metadata)
	}
	wantPoints := []types.Point{
		{Coordinates: []float64{2, 44, 10}, Space: "TAL"},
		{Coordinates: []float64{-4, -52, 26}, Space: "TAL"},
	}
	if !reflect.DeepEqual(analysis.Points, wantPoints) {
		t.Errorf("Points = %v, want %v", analysis.Points, wantPoints)
	}
}

func TestExtractStudyClassifierFallback(t *testing.T) {
	// The table wording decides nothing; the article body does.
	article := coordinateArticle("10.1016/j.test.2020.01.002",
		"Activation peaks", "Coordinates are reported in MNI convention. MNI throughout.")

	study := ExtractStudy(article, nil)
	if len(study.Analyses) != 1 {
		t.Fatalf("Analyses = %d, want 1", len(study.Analyses))
	}
	if got := study.Analyses[0].Points[0].Space; got != "MNI" {
		t.Errorf("Space = %q, want MNI via text fallback", got)
	}
}

type fixedClassifier struct{ label string }

func (c fixedClassifier) ClassifySpace(string) string { return c.label }

func TestExtractStudyUnknownSpace(t *testing.T) {
	article := coordinateArticle("10.1016/j.test.2020.01.003",
		"Activation peaks", "No frame is named anywhere.")

	study := ExtractStudy(article, fixedClassifier{label: types.SpaceUnknown})
	if len(study.Analyses) != 1 {
		t.Fatalf("Analyses = %d, want 1", len(study.Analyses))
	}
	if got := study.Analyses[0].Points[0].Space; got != types.SpaceUnknown {
		t.Errorf("Space = %q, want %q", got, types.SpaceUnknown)
	}
}

func TestExtractStudySpaceFromTableRegionProse(t *testing.T) {
	// The frame is named only in prose inside the table region, outside the
	// grid and outside the harvested caption, label, legend and footnotes.
	payload := `<full-text-retrieval-response
  xmlns:ce="http://www.elsevier.com/xml/common/dtd">
  <ce:table-wrap>
    <ce:label>Table 2</ce:label>
    <ce:caption>Activation peaks</ce:caption>
    <ce:table id="tbl2">
      <tgroup cols="3">
        <colspec colname="c1"/><colspec colname="c2"/><colspec colname="c3"/>
        <thead><row><entry>x</entry><entry>y</entry><entry>z</entry></row></thead>
        <tbody><row><entry>12</entry><entry>-8</entry><entry>40</entry></row></tbody>
      </tgroup>
    </ce:table>
    <ce:para>All peaks follow the Talairach atlas.</ce:para>
  </ce:table-wrap>
</full-text-retrieval-response>`
	article := &types.ArticleDocument{
		DOI:     "10.1016/j.test.2020.01.005",
		Payload: []byte(payload),
	}

	study := ExtractStudy(article, fixedClassifier{label: types.SpaceUnknown})
	if len(study.Analyses) != 1 {
		t.Fatalf("Analyses = %d, want 1", len(study.Analyses))
	}
	if got := study.Analyses[0].Points[0].Space; got != "TAL" {
		t.Errorf("Space = %q, want TAL from table region prose", got)
	}
}

func TestExtractStudyNoCoordinateTables(t *testing.T) {
	article := &types.ArticleDocument{
		DOI:     "10.1016/j.test.2020.01.004",
		Payload: []byte(`<doc><body><para>No tables here.</para></body></doc>`),
	}
	study := ExtractStudy(article, nil)
	if study.DOI != article.DOI {
		t.Errorf("DOI = %q", study.DOI)
	}
	if len(study.Analyses) != 0 {
		t.Errorf("Analyses = %v, want none", study.Analyses)
	}
}

func TestExtractStudiesPreservesInputOrder(t *testing.T) {
	var articles []*types.ArticleDocument
	for i := 0; i < 8; i++ {
		articles = append(articles, coordinateArticle(
			fmt.Sprintf("10.1016/j.test.2020.01.%03d", i),
			"MNI coordinates", "Methods."))
	}

	set := ExtractStudies(context.Background(), articles, Options{Workers: 3})
	if len(set.StudySet.Studies) != len(articles) {
		t.Fatalf("Studies = %d, want %d", len(set.StudySet.Studies), len(articles))
	}
	for i, study := range set.StudySet.Studies {
		if study.DOI != articles[i].DOI {
			t.Errorf("study %d DOI = %q, want %q", i, study.DOI, articles[i].DOI)
		}
		if len(study.Analyses) != 1 {
			t.Errorf("study %d Analyses = %d, want 1", i, len(study.Analyses))
		}
	}
}

func TestExtractStudiesDefaultWorkers(t *testing.T) {
	// Zero workers sizes the pool to the CPU count.
	articles := []*types.ArticleDocument{
		coordinateArticle("10.1016/j.test.2020.01.010", "MNI coordinates", "Methods."),
		coordinateArticle("10.1016/j.test.2020.01.011", "MNI coordinates", "Methods."),
	}
	set := ExtractStudies(context.Background(), articles, Options{})
	if len(set.StudySet.Studies) != 2 {
		t.Fatalf("Studies = %d, want 2", len(set.StudySet.Studies))
	}
	for i, study := range set.StudySet.Studies {
		if study.DOI != articles[i].DOI {
			t.Errorf("study %d DOI = %q, want %q", i, study.DOI, articles[i].DOI)
		}
		if len(study.Analyses) != 1 {
			t.Errorf("study %d Analyses = %d, want 1", i, len(study.Analyses))
		}
	}
}

func TestExtractStudiesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	articles := []*types.ArticleDocument{
		coordinateArticle("10.1016/a", "MNI coordinates", "Methods."),
		coordinateArticle("10.1016/b", "MNI coordinates", "Methods."),
	}
	set := ExtractStudies(ctx, articles, Options{Workers: 1})
	if len(set.StudySet.Studies) != 2 {
		t.Fatalf("Studies = %d, want placeholder per input", len(set.StudySet.Studies))
	}
	for i, study := range set.StudySet.Studies {
		if study.DOI != articles[i].DOI {
			t.Errorf("study %d DOI = %q, want %q", i, study.DOI, articles[i].DOI)
		}
	}
}
