package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordersUpdateCollectors(t *testing.T) {
	m := New()

	m.ObserveFetch("NewsIT", true, 120*time.Millisecond)
	m.ObserveFetch("NewsIT", false, time.Second)
	m.ObserveFetch("In.gr", true, 80*time.Millisecond)
	m.ObserveCategory("breaking", 27)
	m.ObserveLookup(true)
	m.ObserveLookup(false)
	m.ObserveLookup(false)
	m.ObserveRefresh("scheduled", true, 3*time.Second)

	if got := testutil.ToFloat64(m.FetchTotal.WithLabelValues("NewsIT", "ok")); got != 1 {
		t.Fatalf("NewsIT ok fetches = %v", got)
	}
	if got := testutil.ToFloat64(m.FetchTotal.WithLabelValues("NewsIT", "error")); got != 1 {
		t.Fatalf("NewsIT failed fetches = %v", got)
	}
	if got := testutil.ToFloat64(m.CategoryArticles.WithLabelValues("breaking")); got != 27 {
		t.Fatalf("category gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")); got != 2 {
		t.Fatalf("cache misses = %v", got)
	}
	if got := testutil.ToFloat64(m.RefreshTotal.WithLabelValues("scheduled", "ok")); got != 1 {
		t.Fatalf("refreshes = %v", got)
	}
	if testutil.ToFloat64(m.LastRefresh) == 0 {
		t.Fatalf("last refresh timestamp not set")
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveLookup(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `captainnews_cache_lookups_total{result="hit"} 1`) {
		t.Fatalf("metrics output missing lookup counter:\n%s", body)
	}
}
