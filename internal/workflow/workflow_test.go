package workflow_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/botwatch/internal/analysis"
	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/internal/scoring"
	"github.com/JaimeStill/botwatch/internal/workflow"
)

const (
	postA = "3723833150629057129_1448916808"
	postB = "3727561195847795401_210278611"
	urlA  = "https://www.instagram.com/api/v1/media/" + postA + "/likers"
	urlB  = "https://www.instagram.com/api/v1/media/" + postB + "/likers"
)

var (
	botUser      = profiles.Profile{ID: "1", Username: "bot_user_123456", IsPrivate: true}
	verifiedUser = profiles.Profile{
		ID:         "2",
		Username:   "jane.doe",
		FullName:   "Jane Doe",
		IsVerified: true,
		MediaCount: 120,
		HasStories: true,
	}
)

type fakeFetcher struct {
	rosters map[string][]profiles.Profile
	err     error
	calls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, postURL string) ([]profiles.Profile, error) {
	f.calls = append(f.calls, postURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.rosters[postURL], nil
}

// verifyingEnricher marks every user verified, which drops every score below
// the default threshold.
type verifyingEnricher struct {
	err error
}

func (e *verifyingEnricher) Enrich(_ context.Context, src, dst string) error {
	if e.err != nil {
		return e.err
	}

	r, err := profiles.ReadRoster(src)
	if err != nil {
		return err
	}

	users := make([]profiles.Profile, len(r.Users))
	for i, u := range r.Users {
		users[i] = u.Clone()
		users[i].IsVerified = true
	}

	enriched, err := profiles.NewRoster(r.PostID, users)
	if err != nil {
		return err
	}
	enriched.OriginalFile = src
	return profiles.WriteRoster(dst, enriched)
}

type fakeArchive struct {
	keys    []string
	stored  map[string]bool
	deleted []string
	err     error
}

func (a *fakeArchive) Upload(_ context.Context, key string, reader io.Reader, _ string) error {
	if a.err != nil {
		return a.err
	}
	if _, err := io.ReadAll(reader); err != nil {
		return err
	}
	if a.stored == nil {
		a.stored = make(map[string]bool)
	}
	a.keys = append(a.keys, key)
	a.stored[key] = true
	return nil
}

func (a *fakeArchive) Exists(_ context.Context, key string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return a.stored[key], nil
}

func (a *fakeArchive) Delete(_ context.Context, key string) error {
	if a.err != nil {
		return a.err
	}
	delete(a.stored, key)
	a.deleted = append(a.deleted, key)
	return nil
}

type fakeRecorder struct {
	posts    []string
	weights  []scoring.Weights
	err      error
	onRecord func()
}

func (r *fakeRecorder) Record(_ context.Context, a *analysis.Analysis, w scoring.Weights) error {
	if r.onRecord != nil {
		r.onRecord()
	}
	if r.err != nil {
		return r.err
	}
	r.posts = append(r.posts, a.PostID)
	r.weights = append(r.weights, w)
	return nil
}

func newRuntime(t *testing.T, fetcher workflow.Fetcher, logs *bytes.Buffer) *workflow.Runtime {
	t.Helper()

	var out io.Writer = io.Discard
	if logs != nil {
		out = logs
	}

	return &workflow.Runtime{
		OutputDir: filepath.Join(t.TempDir(), "output"),
		Weights:   scoring.DefaultWeights(),
		Workers:   2,
		Fetcher:   fetcher,
		Logger:    slog.New(slog.NewTextHandler(out, nil)),
	}
}

func TestExtractPostID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"api likers url", urlA, postA, false},
		{"public media url", "https://www.instagram.com/media/123_456/", "123_456", false},
		{"no media segment", "https://www.instagram.com/p/123_456/", "", true},
		{"missing owner part", "https://www.instagram.com/api/v1/media/likers", "", true},
		{"single number", "https://www.instagram.com/api/v1/media/123/likers", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := workflow.ExtractPostID(tt.url)
			if tt.wantErr {
				if !errors.Is(err, workflow.ErrInvalidPostURL) {
					t.Errorf("ExtractPostID(%q) error = %v, want ErrInvalidPostURL", tt.url, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractPostID(%q) error = %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ExtractPostID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestRunProcessesPost(t *testing.T) {
	fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{
		urlA: {botUser, verifiedUser},
	}}
	rt := newRuntime(t, fetcher, nil)

	summary, err := workflow.Run(context.Background(), rt, []string{urlA})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Done != 1 || summary.Total() != 1 {
		t.Fatalf("summary = %+v, want one done post", summary)
	}

	r := summary.Results[0]
	if r.PostID != postA || r.Outcome != workflow.OutcomeDone || r.Stage != workflow.StageDone {
		t.Errorf("result = %+v", r)
	}
	if r.Users != 2 || r.Bots != 1 || r.BotPercentage != "50.00" {
		t.Errorf("result counts = %d/%d %s, want 2/1 50.00", r.Users, r.Bots, r.BotPercentage)
	}
	if r.RosterFile != profiles.RawFile {
		t.Errorf("RosterFile = %q, want %q", r.RosterFile, profiles.RawFile)
	}

	dir := filepath.Join(rt.OutputDir, workflow.PostDir(postA))

	if _, err := os.Stat(filepath.Join(rt.OutputDir, profiles.LooseRawName(postA))); !errors.Is(err, os.ErrNotExist) {
		t.Error("loose roster left in output root")
	}

	roster, err := profiles.ReadRoster(filepath.Join(dir, profiles.RawFile))
	if err != nil {
		t.Fatalf("ReadRoster() error = %v", err)
	}
	if roster.PostID != postA || roster.TotalUsers != 2 {
		t.Errorf("roster = %s/%d", roster.PostID, roster.TotalUsers)
	}

	a, err := analysis.Read(filepath.Join(dir, analysis.FileName))
	if err != nil {
		t.Fatalf("analysis.Read() error = %v", err)
	}
	if a.PostID != postA || a.TotalPossibleBots != 1 || a.AverageScore != "-8.500" {
		t.Errorf("analysis = %s %d %s", a.PostID, a.TotalPossibleBots, a.AverageScore)
	}
}

func TestRunRelocationSkipsMissingEnrichedRoster(t *testing.T) {
	var logs bytes.Buffer
	fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{
		urlA: {botUser},
	}}
	rt := newRuntime(t, fetcher, &logs)

	summary, err := workflow.Run(context.Background(), rt, []string{urlA})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := logs.String()
	if got := strings.Count(out, `msg="roster relocated"`); got != 1 {
		t.Errorf("relocation successes = %d, want 1\n%s", got, out)
	}
	if got := strings.Count(out, `msg="roster relocation skipped"`); got != 1 {
		t.Errorf("relocation skips = %d, want 1\n%s", got, out)
	}

	r := summary.Results[0]
	if r.Outcome != workflow.OutcomeDone || r.RosterFile != profiles.RawFile {
		t.Errorf("result = %+v, want done on raw roster", r)
	}
}

func TestRunRelocatesLooseEnrichedRoster(t *testing.T) {
	fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{
		urlA: {botUser},
	}}
	rt := newRuntime(t, fetcher, nil)

	if err := os.MkdirAll(rt.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}

	verified := botUser.Clone()
	verified.IsVerified = true
	r, err := profiles.NewRoster(postA, []profiles.Profile{verified})
	if err != nil {
		t.Fatal(err)
	}
	loose := filepath.Join(rt.OutputDir, profiles.LooseEnrichedName(postA))
	if err := profiles.WriteRoster(loose, r); err != nil {
		t.Fatal(err)
	}

	summary, err := workflow.Run(context.Background(), rt, []string{urlA})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := summary.Results[0]
	if got.RosterFile != profiles.EnrichedFile {
		t.Errorf("RosterFile = %q, want %q", got.RosterFile, profiles.EnrichedFile)
	}
	if got.Bots != 0 {
		t.Errorf("Bots = %d, want 0 from the enriched roster", got.Bots)
	}
	if _, err := os.Stat(loose); !errors.Is(err, os.ErrNotExist) {
		t.Error("loose enriched roster left in output root")
	}
}

func TestRunEmptyAndSkippedPosts(t *testing.T) {
	fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{
		urlA: {},
		urlB: {botUser},
	}}
	rt := newRuntime(t, fetcher, nil)

	urls := []string{"https://www.instagram.com/p/not-a-media-url/", urlA, urlB}
	summary, err := workflow.Run(context.Background(), rt, urls)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Skipped != 1 || summary.Empty != 1 || summary.Done != 1 {
		t.Errorf("summary = skipped %d, empty %d, done %d", summary.Skipped, summary.Empty, summary.Done)
	}

	if len(fetcher.calls) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(fetcher.calls))
	}

	skipped := summary.Results[0]
	if skipped.Outcome != workflow.OutcomeSkipped || !errors.Is(skipped.Err, workflow.ErrInvalidPostURL) {
		t.Errorf("skipped result = %+v", skipped)
	}

	empty := summary.Results[1]
	if empty.Outcome != workflow.OutcomeEmpty || empty.Reached != workflow.StageFetched {
		t.Errorf("empty result = %+v", empty)
	}
	if _, err := os.Stat(filepath.Join(rt.OutputDir, workflow.PostDir(postA), profiles.RawFile)); !errors.Is(err, os.ErrNotExist) {
		t.Error("empty post persisted a roster")
	}
}

func TestRunFetchErrorIsEmpty(t *testing.T) {
	upstream := errors.New("upstream status 401")
	fetcher := &fakeFetcher{err: upstream}
	rt := newRuntime(t, fetcher, nil)

	summary, err := workflow.Run(context.Background(), rt, []string{urlA, urlB})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Empty != 2 || summary.Failed != 0 {
		t.Errorf("summary = empty %d, failed %d, want 2/0", summary.Empty, summary.Failed)
	}
	if !errors.Is(summary.Results[0].Err, upstream) || summary.Results[0].Error == "" {
		t.Errorf("result error = %v / %q", summary.Results[0].Err, summary.Results[0].Error)
	}
}

func TestRunOutputRootFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	fetcher := &fakeFetcher{}
	rt := newRuntime(t, fetcher, nil)
	rt.OutputDir = filepath.Join(blocker, "output")

	summary, err := workflow.Run(context.Background(), rt, []string{urlA})
	if !errors.Is(err, workflow.ErrOutputRoot) {
		t.Fatalf("Run() error = %v, want ErrOutputRoot", err)
	}
	if summary == nil || summary.Total() != 0 {
		t.Errorf("summary = %+v, want empty summary", summary)
	}
	if len(fetcher.calls) != 0 {
		t.Error("posts processed after fatal setup failure")
	}
}

func TestRunNoFetcher(t *testing.T) {
	rt := newRuntime(t, nil, nil)

	if _, err := workflow.Run(context.Background(), rt, []string{urlA}); !errors.Is(err, workflow.ErrNoFetcher) {
		t.Errorf("Run() error = %v, want ErrNoFetcher", err)
	}
}

func TestRunEnrichment(t *testing.T) {
	tests := []struct {
		name       string
		enricher   *verifyingEnricher
		wantRoster string
		wantBots   int
	}{
		{"enriched roster preferred", &verifyingEnricher{}, profiles.EnrichedFile, 0},
		{"failure falls back to raw roster", &verifyingEnricher{err: errors.New("profile service down")}, profiles.RawFile, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{urlA: {botUser}}}
			rt := newRuntime(t, fetcher, nil)
			rt.Enricher = tt.enricher

			summary, err := workflow.Run(context.Background(), rt, []string{urlA})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			r := summary.Results[0]
			if r.Outcome != workflow.OutcomeDone {
				t.Fatalf("Outcome = %s (%v), want done", r.Outcome, r.Err)
			}
			if r.RosterFile != tt.wantRoster || r.Bots != tt.wantBots {
				t.Errorf("result = %s/%d, want %s/%d", r.RosterFile, r.Bots, tt.wantRoster, tt.wantBots)
			}
		})
	}
}

func TestRunRerunClearsStaleEnrichedRoster(t *testing.T) {
	tests := []struct {
		name     string
		enricher workflow.Enricher
	}{
		{"enrichment fails", &verifyingEnricher{err: errors.New("profile service down")}},
		{"enrichment disabled", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{urlA: {botUser}}}
			rt := newRuntime(t, fetcher, nil)
			rt.Enricher = &verifyingEnricher{}

			if _, err := workflow.Run(context.Background(), rt, []string{urlA}); err != nil {
				t.Fatalf("first Run() error = %v", err)
			}

			fetcher.rosters[urlA] = []profiles.Profile{botUser, verifiedUser}
			rt.Enricher = tt.enricher

			summary, err := workflow.Run(context.Background(), rt, []string{urlA})
			if err != nil {
				t.Fatalf("second Run() error = %v", err)
			}

			r := summary.Results[0]
			if r.Outcome != workflow.OutcomeDone {
				t.Fatalf("Outcome = %s (%v), want done", r.Outcome, r.Err)
			}
			if r.RosterFile != profiles.RawFile || r.Users != 2 || r.Bots != 1 {
				t.Errorf("result = %s/%d users/%d bots, want %s/2/1", r.RosterFile, r.Users, r.Bots, profiles.RawFile)
			}
			if r.Reached != workflow.StageDone {
				t.Errorf("Reached = %s, want done", r.Reached)
			}

			stale := filepath.Join(rt.OutputDir, workflow.PostDir(postA), profiles.EnrichedFile)
			if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
				t.Error("enriched roster from the earlier run was not removed")
			}
		})
	}
}

func TestRunArchive(t *testing.T) {
	t.Run("uploads artifacts", func(t *testing.T) {
		fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{urlA: {botUser}}}
		archive := &fakeArchive{}
		rt := newRuntime(t, fetcher, nil)
		rt.Archive = archive

		summary, err := workflow.Run(context.Background(), rt, []string{urlA})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if summary.Done != 1 {
			t.Fatalf("summary = %+v", summary.Results)
		}

		want := []string{
			workflow.ArchiveKey(postA, profiles.RawFile),
			workflow.ArchiveKey(postA, analysis.FileName),
		}
		if strings.Join(archive.keys, ",") != strings.Join(want, ",") {
			t.Errorf("archived keys = %v, want %v", archive.keys, want)
		}
		if want[0] != "posts/"+postA+"/users.json" {
			t.Errorf("ArchiveKey() = %q", want[0])
		}
	})

	t.Run("rerun removes stale archived artifacts", func(t *testing.T) {
		fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{urlA: {botUser}}}
		archive := &fakeArchive{}
		rt := newRuntime(t, fetcher, nil)
		rt.Archive = archive
		rt.Enricher = &verifyingEnricher{}

		if _, err := workflow.Run(context.Background(), rt, []string{urlA}); err != nil {
			t.Fatalf("first Run() error = %v", err)
		}

		enrichedKey := workflow.ArchiveKey(postA, profiles.EnrichedFile)
		if !archive.stored[enrichedKey] {
			t.Fatalf("enriched roster not archived: %v", archive.keys)
		}

		rt.Enricher = &verifyingEnricher{err: errors.New("profile service down")}
		summary, err := workflow.Run(context.Background(), rt, []string{urlA})
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		if summary.Done != 1 {
			t.Fatalf("summary = %+v", summary.Results)
		}

		if archive.stored[enrichedKey] {
			t.Error("archived enriched roster from the earlier run was kept")
		}
		if len(archive.deleted) != 1 || archive.deleted[0] != enrichedKey {
			t.Errorf("deleted = %v, want [%s]", archive.deleted, enrichedKey)
		}
	})

	t.Run("failure fails the post", func(t *testing.T) {
		fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{urlA: {botUser}}}
		rt := newRuntime(t, fetcher, nil)
		rt.Archive = &fakeArchive{err: errors.New("container missing")}

		summary, err := workflow.Run(context.Background(), rt, []string{urlA})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		r := summary.Results[0]
		if r.Outcome != workflow.OutcomeFailed || r.Stage != workflow.StageFailed {
			t.Fatalf("result = %+v, want failed", r)
		}
		if !errors.Is(r.Err, workflow.ErrArchiveFailed) || r.Reached != workflow.StageAnalyzed {
			t.Errorf("failure = %v at %s", r.Err, r.Reached)
		}
	})
}

func TestRunRecord(t *testing.T) {
	t.Run("records analysis with weights", func(t *testing.T) {
		fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{urlA: {botUser}, urlB: {verifiedUser}}}
		reports := &fakeRecorder{}
		rt := newRuntime(t, fetcher, nil)
		rt.Reports = reports

		if _, err := workflow.Run(context.Background(), rt, []string{urlA, urlB}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if strings.Join(reports.posts, ",") != postA+","+postB {
			t.Errorf("recorded posts = %v", reports.posts)
		}
		if reports.weights[0] != scoring.DefaultWeights() {
			t.Errorf("recorded weights = %+v", reports.weights[0])
		}
	})

	t.Run("failure is isolated to the post", func(t *testing.T) {
		fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{urlA: {botUser}, urlB: {botUser}}}
		rt := newRuntime(t, fetcher, nil)
		rt.Reports = &fakeRecorder{err: errors.New("database unavailable")}

		summary, err := workflow.Run(context.Background(), rt, []string{urlA, urlB})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if summary.Failed != 2 || len(fetcher.calls) != 2 {
			t.Errorf("failed = %d, fetch calls = %d, want 2/2", summary.Failed, len(fetcher.calls))
		}
		if !errors.Is(summary.Results[0].Err, workflow.ErrRecordFailed) {
			t.Errorf("error = %v, want ErrRecordFailed", summary.Results[0].Err)
		}
	})
}

func TestRunCanceledBetweenPosts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{urlA: {botUser}, urlB: {botUser}}}
	rt := newRuntime(t, fetcher, nil)
	rt.Reports = &fakeRecorder{onRecord: cancel}

	summary, err := workflow.Run(ctx, rt, []string{urlA, urlB})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	if summary.Done != 1 || summary.Canceled != 1 {
		t.Errorf("summary = done %d, canceled %d, want 1/1", summary.Done, summary.Canceled)
	}
	if summary.Results[1].URL != urlB {
		t.Errorf("canceled url = %q, want %q", summary.Results[1].URL, urlB)
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("fetch calls = %d, want 1", len(fetcher.calls))
	}
}

func TestSummaryPrint(t *testing.T) {
	fetcher := &fakeFetcher{rosters: map[string][]profiles.Profile{urlA: {botUser}, urlB: {botUser}}}
	rt := newRuntime(t, fetcher, nil)
	rt.Archive = &fakeArchive{err: errors.New("container missing")}

	summary, err := workflow.Run(context.Background(), rt, []string{urlA, "bogus"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var buf bytes.Buffer
	summary.Print(&buf)
	out := buf.String()

	for _, want := range []string{postA, "container missing", "bogus", "1 failed", "1 skipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("Print() missing %q:\n%s", want, out)
		}
	}
}

func TestStageBefore(t *testing.T) {
	tests := []struct {
		from, to workflow.Stage
		want     bool
	}{
		{workflow.StageInit, workflow.StageDirectoryReady, true},
		{workflow.StageOrganized, workflow.StageAnalyzed, true},
		{workflow.StageAnalyzed, workflow.StageEnriched, false},
		{workflow.StageDone, workflow.StageDone, false},
		{workflow.StageFailed, workflow.StageDone, false},
		{workflow.StageInit, workflow.StageFailed, false},
	}

	for _, tt := range tests {
		if got := tt.from.Before(tt.to); got != tt.want {
			t.Errorf("%s.Before(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
