package ranks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"slipscan/internal/logging"
	"slipscan/internal/replay"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func profileServer(t *testing.T, handler func(cc string) map[string]any) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var req struct {
			OperationName string `json:"operationName"`
			Variables     struct {
				CC string `json:"cc"`
			} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.OperationName != "UserProfilePageQuery" {
			t.Errorf("unexpected operation %s", req.OperationName)
		}
		payload := map[string]any{"data": map[string]any{"getUser": handler(req.Variables.CC)}}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestClientLookup(t *testing.T) {
	server, _ := profileServer(t, func(cc string) map[string]any {
		return map[string]any{
			"displayName": "Alpha",
			"connectCode": map[string]any{"code": cc},
			"rankedNetplayProfile": map[string]any{
				"ratingOrdinal":        1750.5,
				"dailyGlobalPlacement": nil,
				"wins":                 40,
				"losses":               22,
			},
		}
	})

	client := NewClient(Config{GraphQLURL: server.URL})
	profile, err := client.Lookup(context.Background(), "alph#001")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if profile.DisplayName != "Alpha" || profile.ConnectCode != "ALPH#001" {
		t.Errorf("profile = %+v", profile)
	}
	if !profile.HasRating() || *profile.RatingOrdinal != 1750.5 {
		t.Errorf("rating = %v", profile.RatingOrdinal)
	}
	if profile.Wins != 40 || profile.Losses != 22 {
		t.Errorf("wins=%d losses=%d", profile.Wins, profile.Losses)
	}
}

func TestClientLookupNoProfile(t *testing.T) {
	server, _ := profileServer(t, func(string) map[string]any { return nil })

	client := NewClient(Config{GraphQLURL: server.URL})
	_, err := client.Lookup(context.Background(), "NOPE#999")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := RankUnknown; got != "Unknown" {
		t.Fatalf("sentinel changed: %s", got)
	}
}

func TestClientLookupHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{GraphQLURL: server.URL})
	if _, err := client.Lookup(context.Background(), "ALPH#001"); err == nil {
		t.Fatal("expected error on http 429")
	}
}

func TestTierFor(t *testing.T) {
	regional := intPtr(50)
	cases := []struct {
		name     string
		rating   float64
		regional *int
		global   *int
		want     string
	}{
		{"floor", 0, nil, nil, "Bronze 1"},
		{"bronze boundary", 765.9, nil, nil, "Bronze 1"},
		{"bronze 2", 766, nil, nil, "Bronze 2"},
		{"silver", 1200, nil, nil, "Silver 2"},
		{"gold 3", 1700, nil, nil, "Gold 3"},
		{"platinum", 1950, nil, nil, "Platinum 3"},
		{"diamond 3", 2150, nil, nil, "Diamond 3"},
		{"master 1 without placement", 2200, nil, nil, "Master 1"},
		{"grandmaster regional", 2200, regional, nil, "Grandmaster"},
		{"grandmaster global", 2200, nil, intPtr(300), "Grandmaster"},
		{"placement too low", 2200, intPtr(101), intPtr(301), "Master 1"},
		{"master 2", 2300, nil, nil, "Master 2"},
		{"master 3", 2400, nil, nil, "Master 3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TierFor(tc.rating, tc.regional, tc.global); got != tc.want {
				t.Errorf("TierFor(%v) = %s, want %s", tc.rating, got, tc.want)
			}
		})
	}
}

func TestDisplayRank(t *testing.T) {
	ranked := Profile{DisplayName: "Alpha", RatingOrdinal: floatPtr(1780)}
	if got := DisplayRank(ranked); got != "Platinum 1 (1780.0)" {
		t.Errorf("DisplayRank ranked = %q", got)
	}

	unrankedSeason := Profile{DisplayName: "Alpha"}
	if got := DisplayRank(unrankedSeason); got != "Alpha (Unranked Season)" {
		t.Errorf("DisplayRank season = %q", got)
	}

	if got := DisplayRank(Profile{}); got != "Unranked" {
		t.Errorf("DisplayRank empty = %q", got)
	}
}

func TestResolverCachesResults(t *testing.T) {
	server, requests := profileServer(t, func(cc string) map[string]any {
		return map[string]any{
			"displayName": "Alpha",
			"rankedNetplayProfile": map[string]any{
				"ratingOrdinal": 1200.0,
			},
		}
	})

	resolver := NewResolver(NewClient(Config{GraphQLURL: server.URL}), logging.NewNop())

	first := resolver.Resolve(context.Background(), "ALPH#001")
	second := resolver.Resolve(context.Background(), "alph#001")
	if first != second || first != "Silver 2 (1200.0)" {
		t.Errorf("first=%q second=%q", first, second)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}

func TestResolverCachesFailuresAsUnknown(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	resolver := NewResolver(NewClient(Config{GraphQLURL: server.URL}), logging.NewNop())

	if got := resolver.Resolve(context.Background(), "ALPH#001"); got != RankUnknown {
		t.Errorf("rank = %q, want Unknown", got)
	}
	if got := resolver.Resolve(context.Background(), "ALPH#001"); got != RankUnknown {
		t.Errorf("rank = %q, want Unknown", got)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("failures should cache, got %d requests", got)
	}
}

func TestResolverNoProfileIsUnranked(t *testing.T) {
	server, _ := profileServer(t, func(string) map[string]any { return nil })

	resolver := NewResolver(NewClient(Config{GraphQLURL: server.URL}), logging.NewNop())
	if got := resolver.Resolve(context.Background(), "NOPE#999"); got != "Unranked" {
		t.Errorf("rank = %q, want Unranked", got)
	}
}

func TestResolverDedupesConcurrentLookups(t *testing.T) {
	server, requests := profileServer(t, func(string) map[string]any {
		return map[string]any{
			"displayName":          "Alpha",
			"rankedNetplayProfile": map[string]any{"ratingOrdinal": 900.0},
		}
	})

	resolver := NewResolver(NewClient(Config{GraphQLURL: server.URL}), logging.NewNop())

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = resolver.Resolve(context.Background(), "ALPH#001")
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r != "Bronze 2 (900.0)" {
			t.Errorf("result[%d] = %q", i, r)
		}
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("expected 1 deduped request, got %d", got)
	}
}

func TestLookupAsyncDelivers(t *testing.T) {
	server, _ := profileServer(t, func(string) map[string]any {
		return map[string]any{
			"displayName":          "Alpha",
			"rankedNetplayProfile": map[string]any{"ratingOrdinal": 2100.0},
		}
	})

	resolver := NewResolver(NewClient(Config{GraphQLURL: server.URL}), logging.NewNop())
	result := <-resolver.LookupAsync(context.Background(), "alph#001")
	if result.ConnectCode != "ALPH#001" {
		t.Errorf("code = %q", result.ConnectCode)
	}
	if result.Rank != "Diamond 2 (2100.0)" {
		t.Errorf("rank = %q", result.Rank)
	}
}

func TestAnnotateSetsRanks(t *testing.T) {
	server, _ := profileServer(t, func(cc string) map[string]any {
		return map[string]any{
			"displayName":          cc,
			"rankedNetplayProfile": map[string]any{"ratingOrdinal": 1500.0},
		}
	})

	resolver := NewResolver(NewClient(Config{GraphQLURL: server.URL}), logging.NewNop())
	record := &replay.MatchRecord{
		Players: []replay.PlayerEntry{
			{Port: 0, ConnectCode: "ALPH#001"},
			{Port: 1, ConnectCode: "BETA#002"},
			{Port: 2, IsCPU: true},
		},
	}
	resolver.Annotate(context.Background(), record)

	for _, p := range record.Players[:2] {
		if p.Rank != "Gold 1 (1500.0)" {
			t.Errorf("port %d rank = %q", p.Port, p.Rank)
		}
	}
	if record.Players[2].Rank != "" {
		t.Errorf("cpu should not get a rank, got %q", record.Players[2].Rank)
	}
}
