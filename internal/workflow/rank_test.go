package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/botwatch/internal/analysis"
	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/internal/workflow"
)

func writePost(t *testing.T, root, postID, file string, users []profiles.Profile) string {
	t.Helper()

	dir := filepath.Join(root, workflow.PostDir(postID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	r, err := profiles.NewRoster(postID, users)
	if err != nil {
		t.Fatal(err)
	}
	if err := profiles.WriteRoster(filepath.Join(dir, file), r); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRosterPath(t *testing.T) {
	root := t.TempDir()

	t.Run("raw only", func(t *testing.T) {
		dir := writePost(t, root, "1_1", profiles.RawFile, []profiles.Profile{botUser})
		got, err := workflow.RosterPath(dir)
		if err != nil {
			t.Fatalf("RosterPath() error = %v", err)
		}
		if filepath.Base(got) != profiles.RawFile {
			t.Errorf("RosterPath() = %s, want %s", got, profiles.RawFile)
		}
	})

	t.Run("enriched preferred", func(t *testing.T) {
		dir := writePost(t, root, "2_2", profiles.RawFile, []profiles.Profile{botUser})
		writePost(t, root, "2_2", profiles.EnrichedFile, []profiles.Profile{botUser})

		got, err := workflow.RosterPath(dir)
		if err != nil {
			t.Fatalf("RosterPath() error = %v", err)
		}
		if filepath.Base(got) != profiles.EnrichedFile {
			t.Errorf("RosterPath() = %s, want %s", got, profiles.EnrichedFile)
		}
	})

	t.Run("none", func(t *testing.T) {
		dir := filepath.Join(root, "post-3_3")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if _, err := workflow.RosterPath(dir); !errors.Is(err, workflow.ErrMissingRoster) {
			t.Errorf("RosterPath() error = %v, want ErrMissingRoster", err)
		}
	})
}

func TestAnalyzeDirectoryMalformedRoster(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "post-1_1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, profiles.RawFile), []byte(`{"users": "nope"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	rt := newRuntime(t, nil, nil)
	_, err := workflow.AnalyzeDirectory(context.Background(), rt, dir)
	if !errors.Is(err, workflow.ErrAnalyzeFailed) || !errors.Is(err, analysis.ErrRosterUnreadable) {
		t.Errorf("AnalyzeDirectory() error = %v, want ErrAnalyzeFailed wrapping ErrRosterUnreadable", err)
	}
	if _, err := os.Stat(filepath.Join(dir, analysis.FileName)); !errors.Is(err, os.ErrNotExist) {
		t.Error("analysis document written for malformed roster")
	}
}

func TestRankAll(t *testing.T) {
	rt := newRuntime(t, nil, nil)
	reports := &fakeRecorder{}
	rt.Reports = reports

	writePost(t, rt.OutputDir, "1_1", profiles.RawFile, []profiles.Profile{botUser, verifiedUser})
	writePost(t, rt.OutputDir, "2_2", profiles.EnrichedFile, []profiles.Profile{botUser})

	empty := filepath.Join(rt.OutputDir, "post-3_3")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(rt.OutputDir, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}

	summary, err := workflow.RankAll(context.Background(), rt)
	if err != nil {
		t.Fatalf("RankAll() error = %v", err)
	}

	if summary.Total() != 3 || summary.Done != 2 || summary.Failed != 1 {
		t.Fatalf("summary = total %d, done %d, failed %d", summary.Total(), summary.Done, summary.Failed)
	}

	failed := summary.Results[2]
	if failed.PostID != "3_3" || !errors.Is(failed.Err, workflow.ErrMissingRoster) {
		t.Errorf("failed result = %+v", failed)
	}

	if len(reports.posts) != 2 {
		t.Errorf("recorded posts = %v, want 2", reports.posts)
	}

	a, err := analysis.Read(filepath.Join(rt.OutputDir, "post-2_2", analysis.FileName))
	if err != nil {
		t.Fatalf("analysis.Read() error = %v", err)
	}
	if a.TotalPossibleBots != 1 {
		t.Errorf("TotalPossibleBots = %d, want 1", a.TotalPossibleBots)
	}

	t.Run("reweighted", func(t *testing.T) {
		w := rt.Weights
		w.BotThreshold = 5

		summary, err := workflow.RankAll(context.Background(), rt.WithWeights(w))
		if err != nil {
			t.Fatalf("RankAll() error = %v", err)
		}
		for _, r := range summary.Results {
			if r.Outcome == workflow.OutcomeDone && r.Bots != 0 {
				t.Errorf("%s bots = %d, want 0 above a raised threshold", r.PostID, r.Bots)
			}
		}
		if rt.Weights.BotThreshold == 5 {
			t.Error("WithWeights() modified the original runtime")
		}
	})
}

func TestRankAllMissingOutputRoot(t *testing.T) {
	rt := newRuntime(t, nil, nil)

	if _, err := workflow.RankAll(context.Background(), rt); !errors.Is(err, workflow.ErrOutputRoot) {
		t.Errorf("RankAll() error = %v, want ErrOutputRoot", err)
	}
}
