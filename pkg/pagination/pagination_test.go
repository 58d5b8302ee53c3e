package pagination_test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/JaimeStill/botwatch/pkg/pagination"
	"github.com/JaimeStill/botwatch/pkg/query"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := pagination.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.DefaultPageSize != 20 || cfg.MaxPageSize != 100 {
			t.Errorf("Finalize() = %+v, want 20/100", cfg)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_PAGE_SIZE", "50")
		t.Setenv("TEST_MAX_PAGE", "200")

		cfg := pagination.Config{}
		env := &pagination.ConfigEnv{DefaultPageSize: "TEST_PAGE_SIZE", MaxPageSize: "TEST_MAX_PAGE"}
		if err := cfg.Finalize(env); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.DefaultPageSize != 50 || cfg.MaxPageSize != 200 {
			t.Errorf("Finalize() = %+v, want 50/200", cfg)
		}
	})

	t.Run("default exceeds max", func(t *testing.T) {
		cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
		err := cfg.Finalize(nil)
		if err == nil || !strings.Contains(err.Error(), "cannot exceed") {
			t.Errorf("Finalize() error = %v, want cannot exceed", err)
		}
	})
}

func TestConfigMerge(t *testing.T) {
	base := defaultConfig()
	base.Merge(&pagination.Config{DefaultPageSize: 50})

	if base.DefaultPageSize != 50 {
		t.Errorf("DefaultPageSize = %d, want 50", base.DefaultPageSize)
	}
	if base.MaxPageSize != 100 {
		t.Errorf("MaxPageSize = %d, want 100 (unchanged)", base.MaxPageSize)
	}
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		req          pagination.PageRequest
		wantPage     int
		wantPageSize int
	}{
		{"zero values get defaults", pagination.PageRequest{}, 1, 20},
		{"negative page corrected", pagination.PageRequest{Page: -1, PageSize: 10}, 1, 10},
		{"page size clamped to max", pagination.PageRequest{Page: 1, PageSize: 500}, 1, 100},
		{"valid values preserved", pagination.PageRequest{Page: 3, PageSize: 25}, 3, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize(defaultConfig())
			if tt.req.Page != tt.wantPage || tt.req.PageSize != tt.wantPageSize {
				t.Errorf("Normalize() = %d/%d, want %d/%d", tt.req.Page, tt.req.PageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	t.Run("all params present", func(t *testing.T) {
		values := url.Values{
			"page":      {"2"},
			"page_size": {"15"},
			"search":    {"1_"},
			"sort":      {"-BotPercentage,PostID"},
		}

		req := pagination.PageRequestFromQuery(values, defaultConfig())

		if req.Page != 2 || req.PageSize != 15 {
			t.Errorf("page = %d/%d, want 2/15", req.Page, req.PageSize)
		}
		if req.Search == nil || *req.Search != "1_" {
			t.Errorf("Search = %v, want 1_", req.Search)
		}
		want := pagination.SortFields{{Field: "BotPercentage", Descending: true}, {Field: "PostID"}}
		if len(req.Sort) != len(want) || req.Sort[0] != want[0] || req.Sort[1] != want[1] {
			t.Errorf("Sort = %v, want %v", req.Sort, want)
		}
	})

	t.Run("empty params get defaults", func(t *testing.T) {
		req := pagination.PageRequestFromQuery(url.Values{}, defaultConfig())
		if req.Page != 1 || req.PageSize != 20 || req.Search != nil {
			t.Errorf("PageRequestFromQuery() = %+v", req)
		}
	})
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		page           int
		wantTotalPages int
		wantHasNext    bool
	}{
		{"exact division", 100, 1, 5, true},
		{"remainder", 101, 6, 6, false},
		{"single page", 5, 1, 1, false},
		{"empty result", 0, 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{"a"}, tt.total, tt.page, 20)
			if result.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantTotalPages)
			}
			if result.HasNext != tt.wantHasNext {
				t.Errorf("HasNext = %v, want %v", result.HasNext, tt.wantHasNext)
			}
			if result.Total != tt.total || result.Page != tt.page || result.PageSize != 20 {
				t.Errorf("NewPageResult() = %+v", result)
			}
		})
	}
}

func TestNewPageResultNilDataBecomesEmpty(t *testing.T) {
	result := pagination.NewPageResult[string](nil, 0, 1, 20)
	if result.Data == nil || len(result.Data) != 0 {
		t.Errorf("Data = %v, want empty slice", result.Data)
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	want := []query.SortField{{Field: "PostID"}, {Field: "AnalyzedAt", Descending: true}}

	tests := []struct {
		name  string
		input string
	}{
		{"string", `"PostID,-AnalyzedAt"`},
		{"array", `[{"Field":"PostID","Descending":false},{"Field":"AnalyzedAt","Descending":true}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sf pagination.SortFields
			if err := json.Unmarshal([]byte(tt.input), &sf); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if len(sf) != len(want) {
				t.Fatalf("length = %d, want %d", len(sf), len(want))
			}
			for i := range want {
				if sf[i] != want[i] {
					t.Errorf("sf[%d] = %v, want %v", i, sf[i], want[i])
				}
			}
		})
	}
}
