// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runstore

import (
	"context"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	outcomes := []ArticleResult{
		{Identifier: "10.1016/a", IdentifierType: "doi", Status: StatusSuccess, Analyses: 2, Points: 14},
		{Identifier: "12345", IdentifierType: "pmid", Status: StatusNoDocument},
		{Identifier: "10.1016/b", IdentifierType: "doi", Status: StatusFailed, Error: "HTTP 403"},
	}
	for _, outcome := range outcomes {
		if err := s.RecordArticle(ctx, runID, outcome); err != nil {
			t.Fatalf("RecordArticle: %v", err)
		}
	}
	if err := s.FinishRun(ctx, runID, 1, 1, 1); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := s.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Recent returned %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.ID != runID || run.Succeeded != 1 || run.Failed != 1 || run.Skipped != 1 {
		t.Errorf("run = %+v", run)
	}
	if run.FinishedAt.IsZero() || run.StartedAt.IsZero() {
		t.Errorf("timestamps not recorded: %+v", run)
	}

	articles, err := s.RunArticles(ctx, runID)
	if err != nil {
		t.Fatalf("RunArticles: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("RunArticles returned %d, want 3", len(articles))
	}
	if articles[0].Points != 14 || articles[0].Status != StatusSuccess {
		t.Errorf("first article = %+v", articles[0])
	}
	if articles[2].Error != "HTTP 403" {
		t.Errorf("failed article error = %q", articles[2].Error)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.BeginRun(ctx)
		if err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
		ids = append(ids, id)
	}

	runs, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Recent returned %d runs, want 2", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("runs not newest first: %v then %v", runs[0].ID, runs[1].ID)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := s1.BeginRun(context.Background()); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()
	runs, err := s2.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("runs after reopen = %d, want 1", len(runs))
	}
}
