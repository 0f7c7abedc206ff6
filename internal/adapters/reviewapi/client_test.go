package reviewapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"review_dashboard/internal/adapters/reviewapi"
	"review_dashboard/internal/domain"
)

func newClient(t *testing.T, url string, o reviewapi.Options) *reviewapi.Client {
	t.Helper()
	if o.RPS == 0 {
		o.RPS = 100 // high RPS for tests
	}
	cl, err := reviewapi.New(url, o)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return cl
}

func TestNew_RequiresBase(t *testing.T) {
	if _, err := reviewapi.New("  ", reviewapi.Options{}); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}

func TestClient_GetRecentReviews_QueryAndDecode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reviews/recent" || r.Method != http.MethodGet {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "200" || r.URL.Query().Get("offset") != "0" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 1, "customer_name": "Ana"}})
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL+"/", reviewapi.Options{})
	got, err := cl.GetRecentReviews(context.Background(), 200, 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0]["customer_name"] != "Ana" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestClient_GetStatsAndTrend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_reviews":10,"replied_reviews":4,"pending_reviews":6,"positive_reviews":5,"negative_reviews":3,"neutral_reviews":2}`))
	})
	mux.HandleFunc("/stats/sentiment-trend", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("days") != "7" {
			t.Errorf("days = %q", r.URL.Query().Get("days"))
		}
		_, _ = w.Write([]byte(`{"2024-01-15":{"긍정":5,"부정":2}}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	cl := newClient(t, ts.URL, reviewapi.Options{})
	s, err := cl.GetStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s != (domain.Stats{TotalReviews: 10, RepliedReviews: 4, PendingReviews: 6, PositiveReviews: 5, NegativeReviews: 3, NeutralReviews: 2}) {
		t.Fatalf("unexpected stats: %+v", s)
	}
	tr, err := cl.GetSentimentTrend(context.Background(), 7)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if tr["2024-01-15"]["긍정"] != 5 {
		t.Fatalf("unexpected trend: %+v", tr)
	}
}

func TestClient_Triggers(t *testing.T) {
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		paths = append(paths, r.URL.RequestURI())
		_, _ = w.Write([]byte(`{"status":"started"}`))
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, reviewapi.Options{})
	ctx := context.Background()
	if _, err := cl.TriggerScrape(ctx); err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if _, err := cl.TriggerReplyGeneration(ctx, 10); err != nil {
		t.Fatalf("generate: %v", err)
	}
	out, err := cl.RegenerateReply(ctx, "42")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if out["status"] != "started" {
		t.Fatalf("unexpected body: %+v", out)
	}
	want := []string{"/scrape", "/generate-replies?max_count=10", "/reviews/42/regenerate-reply"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("call %d: got %s want %s", i, paths[i], want[i])
		}
	}
}

func TestClient_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, reviewapi.Options{Retries: 3})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cl.GetPendingReviews(ctx); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestClient_NoRetryByDefault(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, reviewapi.Options{})
	if _, err := cl.GetStats(context.Background()); err == nil {
		t.Fatalf("expected error for 502")
	}
	if hits != 1 {
		t.Fatalf("expected a single call, got %d", hits)
	}
}

func TestClient_PostNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, reviewapi.Options{Retries: 3})
	if _, err := cl.TriggerScrape(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if hits != 1 {
		t.Fatalf("POST must not be retried, got %d calls", hits)
	}
}

func TestClient_ErrorKinds(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/reviews/missing":
			http.NotFound(w, r)
		case "/reviews/locked":
			w.WriteHeader(http.StatusForbidden)
		default:
			_, _ = w.Write([]byte(`{"not":"a list"`))
		}
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, reviewapi.Options{})
	ctx := context.Background()

	if _, err := cl.GetReview(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := cl.GetReview(ctx, "locked"); !errors.Is(err, reviewapi.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := cl.GetPendingReviews(ctx); !errors.Is(err, reviewapi.ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer ts.Close()
	defer close(block)

	cl := newClient(t, ts.URL, reviewapi.Options{Timeout: 50 * time.Millisecond})
	if _, err := cl.GetStats(context.Background()); err == nil {
		t.Fatalf("expected timeout error")
	}
}
