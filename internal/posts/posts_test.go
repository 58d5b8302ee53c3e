package posts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/botwatch/internal/analysis"
	"github.com/JaimeStill/botwatch/internal/posts"
	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/internal/scoring"
	"github.com/JaimeStill/botwatch/internal/workflow"
	"github.com/JaimeStill/botwatch/pkg/routes"
	"github.com/JaimeStill/botwatch/pkg/storage"
)

type fakeBlobs map[string]string

func (b fakeBlobs) Download(_ context.Context, key string) (io.ReadCloser, error) {
	v, ok := b[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(v)), nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRuntime(t *testing.T) *workflow.Runtime {
	t.Helper()
	return &workflow.Runtime{
		OutputDir: t.TempDir(),
		Weights:   scoring.DefaultWeights(),
		Workers:   2,
		Logger:    discard(),
	}
}

func writeAnalysis(t *testing.T, root, postID, pct string, users, bots int, analyzed time.Time) {
	t.Helper()
	writeAnalysisAt(t, root, postID, pct, users, bots, analyzed, analyzed)
}

func writeAnalysisAt(t *testing.T, root, postID, pct string, users, bots int, analyzed, modified time.Time) {
	t.Helper()

	dir := filepath.Join(root, workflow.PostDir(postID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, analysis.FileName)
	a := &analysis.Analysis{
		Timestamp:         analyzed,
		PostID:            postID,
		TotalUsers:        users,
		TotalPossibleBots: bots,
		BotPercentage:     pct,
		AverageScore:      "0.000",
		PossibleBots:      []scoring.ScoredUser{},
		AllUsers:          []scoring.ScoredUser{},
	}
	if err := analysis.Write(path, a); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, modified, modified); err != nil {
		t.Fatal(err)
	}
}

func writeRoster(t *testing.T, root, postID string, users []profiles.Profile) {
	t.Helper()

	dir := filepath.Join(root, workflow.PostDir(postID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	r, err := profiles.NewRoster(postID, users)
	if err != nil {
		t.Fatal(err)
	}
	if err := profiles.WriteRoster(filepath.Join(dir, profiles.RawFile), r); err != nil {
		t.Fatal(err)
	}
}

func TestList(t *testing.T) {
	rt := newRuntime(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	writeAnalysis(t, rt.OutputDir, "1_1", "50.00", 4, 2, base)
	writeAnalysis(t, rt.OutputDir, "2_2", "25.00", 4, 1, base.Add(time.Hour))

	broken := filepath.Join(rt.OutputDir, "post-3_3")
	if err := os.MkdirAll(broken, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(broken, analysis.FileName), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := posts.New(rt, nil, discard()).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(list) != 2 {
		t.Fatalf("List() returned %d posts, want 2", len(list))
	}
	if list[0].PostID != "2_2" || list[1].PostID != "1_1" {
		t.Errorf("List() order = %s, %s; want newest first", list[0].PostID, list[1].PostID)
	}
	if list[0].FileName != analysis.FileName {
		t.Errorf("FileName = %s", list[0].FileName)
	}
}

func TestListOrdersByAnalysisTimestamp(t *testing.T) {
	rt := newRuntime(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	writeAnalysisAt(t, rt.OutputDir, "1_1", "50.00", 4, 2, base.Add(2*time.Hour), base)
	writeAnalysisAt(t, rt.OutputDir, "2_2", "25.00", 4, 1, base, base.Add(time.Hour))
	writeAnalysisAt(t, rt.OutputDir, "3_3", "10.00", 10, 1, base, base.Add(3*time.Hour))

	list, err := posts.New(rt, nil, discard()).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var got []string
	for _, p := range list {
		got = append(got, p.PostID)
	}
	if want := "1_1,2_2,3_3"; strings.Join(got, ",") != want {
		t.Errorf("List() order = %v, want %s", got, want)
	}
}

func TestListMissingRoot(t *testing.T) {
	rt := newRuntime(t)
	rt.OutputDir = filepath.Join(rt.OutputDir, "absent")

	list, err := posts.New(rt, nil, discard()).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("List() = %v, want empty", list)
	}
}

func TestStats(t *testing.T) {
	t.Run("no posts", func(t *testing.T) {
		rt := newRuntime(t)
		s, err := posts.New(rt, nil, discard()).Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if s.TotalPosts != 0 || s.AvgBotPercentage != "0.00" {
			t.Errorf("Stats() = %+v", s)
		}
	})

	t.Run("mean of percentages", func(t *testing.T) {
		rt := newRuntime(t)
		now := time.Now()
		writeAnalysis(t, rt.OutputDir, "1_1", "50.00", 4, 2, now)
		writeAnalysis(t, rt.OutputDir, "2_2", "25.00", 8, 2, now)

		s, err := posts.New(rt, nil, discard()).Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}

		want := posts.Stats{TotalPosts: 2, TotalUsers: 12, TotalBots: 4, AvgBotPercentage: "37.50"}
		if *s != want {
			t.Errorf("Stats() = %+v, want %+v", *s, want)
		}
	})

	t.Run("unparseable percentage excluded from mean", func(t *testing.T) {
		rt := newRuntime(t)
		now := time.Now()
		writeAnalysis(t, rt.OutputDir, "1_1", "50.00", 4, 2, now)
		writeAnalysis(t, rt.OutputDir, "2_2", "25.00", 8, 2, now)
		writeAnalysis(t, rt.OutputDir, "3_3", "n/a", 2, 0, now)

		s, err := posts.New(rt, nil, discard()).Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}

		want := posts.Stats{TotalPosts: 3, TotalUsers: 14, TotalBots: 4, AvgBotPercentage: "37.50"}
		if *s != want {
			t.Errorf("Stats() = %+v, want %+v", *s, want)
		}
	})
}

func TestOpen(t *testing.T) {
	rt := newRuntime(t)
	writeAnalysis(t, rt.OutputDir, "1_1", "50.00", 4, 2, time.Now())

	blobs := fakeBlobs{
		workflow.ArchiveKey("1_1", profiles.RawFile): `{"users":[]}`,
	}

	tests := []struct {
		name    string
		blobs   posts.Blobs
		postID  string
		file    string
		want    string
		wantErr error
	}{
		{name: "local analysis", postID: "1_1", file: analysis.FileName, want: `"postId": "1_1"`},
		{name: "archived fallback", blobs: blobs, postID: "1_1", file: profiles.RawFile, want: `{"users":[]}`},
		{name: "missing without archive", postID: "1_1", file: profiles.RawFile, wantErr: posts.ErrNotFound},
		{name: "missing from archive", blobs: blobs, postID: "1_1", file: profiles.EnrichedFile, wantErr: posts.ErrNotFound},
		{name: "unknown file", postID: "1_1", file: "secrets.txt", wantErr: posts.ErrInvalidFile},
		{name: "traversal", postID: "..", file: analysis.FileName, wantErr: posts.ErrInvalidPost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sys posts.System
			if tt.blobs != nil {
				sys = posts.New(rt, tt.blobs, discard())
			} else {
				sys = posts.New(rt, nil, discard())
			}

			rc, err := sys.Open(context.Background(), tt.postID, tt.file)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer rc.Close()

			body, _ := io.ReadAll(rc)
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("Open() body = %s, want it to contain %s", body, tt.want)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	rt := newRuntime(t)
	writeRoster(t, rt.OutputDir, "1_1", []profiles.Profile{
		{ID: "1", Username: "user_84729301", IsPrivate: true},
		{ID: "2", Username: "maria.rossi", FullName: "Maria Rossi", IsVerified: true},
	})
	writeRoster(t, rt.OutputDir, "2_2", []profiles.Profile{
		{ID: "3", Username: "follow4follow_99", IsPrivate: true},
	})

	mux := http.NewServeMux()
	routes.Register(mux, posts.New(rt, nil, discard()).Handler(64).Routes())

	serve := func(method, target string, body io.Reader) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, target, body))
		return rec
	}

	t.Run("weights", func(t *testing.T) {
		rec := serve(http.MethodGet, "/weights", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var w scoring.Weights
		if err := json.NewDecoder(rec.Body).Decode(&w); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if w != scoring.DefaultWeights() {
			t.Errorf("weights = %+v", w)
		}
	})

	t.Run("rank with overrides", func(t *testing.T) {
		rec := serve(http.MethodPost, "/rank", strings.NewReader(`{"botThreshold": 100}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body)
		}

		var summary workflow.Summary
		if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if summary.Done != 2 {
			t.Errorf("done = %d, want 2", summary.Done)
		}
		for _, r := range summary.Results {
			if r.Bots != 0 {
				t.Errorf("%s bots = %d, want 0 above a raised threshold", r.PostID, r.Bots)
			}
		}
	})

	t.Run("rank without body", func(t *testing.T) {
		rec := serve(http.MethodPost, "/rank", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body)
		}
	})

	t.Run("rank rejects malformed body", func(t *testing.T) {
		rec := serve(http.MethodPost, "/rank", strings.NewReader(`{"botThreshold": "high"}`))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rank rejects oversized body", func(t *testing.T) {
		body := bytes.Repeat([]byte(" "), 128)
		body = append(body, []byte(`{"botThreshold": 1}`)...)
		rec := serve(http.MethodPost, "/rank", bytes.NewReader(body))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("list after rank", func(t *testing.T) {
		rec := serve(http.MethodGet, "/posts", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var list []posts.Summary
		if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(list) != 2 {
			t.Errorf("posts = %d, want 2", len(list))
		}
	})

	t.Run("stats", func(t *testing.T) {
		rec := serve(http.MethodGet, "/stats", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var s posts.Stats
		if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if s.TotalPosts != 2 || s.TotalUsers != 3 {
			t.Errorf("stats = %+v", s)
		}
	})

	t.Run("file", func(t *testing.T) {
		rec := serve(http.MethodGet, "/posts/1_1/files/users.json", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "user_84729301") {
			t.Errorf("body = %s", rec.Body)
		}
	})

	t.Run("file rejects unknown name", func(t *testing.T) {
		rec := serve(http.MethodGet, "/posts/1_1/files/config.toml", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("file missing", func(t *testing.T) {
		rec := serve(http.MethodGet, "/posts/1_1/files/users.enriched.json", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}
