package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/source"
)

var (
	cStart = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	cEnd   = time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
)

// gauge tracks in-flight fetches across adapters.
type gauge struct {
	cur  atomic.Int32
	peak atomic.Int32
}

func (g *gauge) enter() {
	n := g.cur.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (g *gauge) leave() { g.cur.Add(-1) }

// fakeAdapter records calls and optionally reports to a shared gauge.
type fakeAdapter struct {
	name    string
	delay   time.Duration
	failFor map[models.Symbol]error
	gauge   *gauge
	calls   atomic.Int32
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(ctx context.Context, sym models.Symbol, start, end time.Time) (models.RawSeries, error) {
	f.calls.Add(1)
	if f.gauge != nil {
		f.gauge.enter()
		defer f.gauge.leave()
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.RawSeries{}, ctx.Err()
		}
	}
	if err := f.failFor[sym]; err != nil {
		return models.RawSeries{}, err
	}
	return models.RawSeries{
		Symbol: sym, Source: f.name, Start: start, End: end,
		Points: []models.PricePoint{{Date: start, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}},
	}, nil
}

func TestCollect_NoSources(t *testing.T) {
	c := New(4)
	_, err := c.Collect(context.Background(), []string{"AAPL"}, cStart, cEnd, nil)
	if !errors.Is(err, models.ErrNoSourcesConfigured) {
		t.Fatalf("expected ErrNoSourcesConfigured, got %v", err)
	}
}

func TestCollect_EmptySymbols_NoCalls(t *testing.T) {
	a := &fakeAdapter{name: "yahoo"}
	out, err := New(4).Collect(context.Background(), []string{" ", ""}, cStart, cEnd, []source.Adapter{a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %d", len(out))
	}
	if a.calls.Load() != 0 {
		t.Fatalf("expected no adapter calls, got %d", a.calls.Load())
	}
}

func TestCollect_DedupesAndKeepsSourceOrder(t *testing.T) {
	a := &fakeAdapter{name: "yahoo", delay: 5 * time.Millisecond}
	b := &fakeAdapter{name: "polygon"}
	out, err := New(0).Collect(context.Background(), []string{"aapl", "AAPL", " msft "}, cStart, cEnd, []source.Adapter{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(out))
	}
	if a.calls.Load() != 2 || b.calls.Load() != 2 {
		t.Fatalf("expected one call per pair, got yahoo=%d polygon=%d", a.calls.Load(), b.calls.Load())
	}
	for _, sym := range []models.Symbol{"AAPL", "MSFT"} {
		res := out[sym]
		if len(res) != 2 || res[0].Source != "yahoo" || res[1].Source != "polygon" {
			t.Fatalf("%s: unexpected results %+v", sym, res)
		}
		if !res[0].OK() || res[0].Series.Symbol != sym {
			t.Fatalf("%s: unexpected first result %+v", sym, res[0])
		}
	}
}

func TestCollect_FailureIsolated(t *testing.T) {
	boom := &models.SourceError{Source: "yahoo", Symbol: "BAD", Kind: models.ErrInvalidSymbol}
	a := &fakeAdapter{name: "yahoo", failFor: map[models.Symbol]error{"BAD": boom}}
	out, err := New(2).Collect(context.Background(), []string{"BAD", "GOOD"}, cStart, cEnd, []source.Adapter{a})
	if err != nil {
		t.Fatalf("pair failures must not fail the wave: %v", err)
	}
	if r := out["BAD"]; len(r) != 1 || !errors.Is(r[0].Err, models.ErrInvalidSymbol) {
		t.Fatalf("expected recorded InvalidSymbol, got %+v", r)
	}
	if r := out["GOOD"]; len(r) != 1 || !r[0].OK() {
		t.Fatalf("expected GOOD to succeed, got %+v", r)
	}
}

func TestCollect_RespectsConcurrencyCap(t *testing.T) {
	g := &gauge{}
	a := &fakeAdapter{name: "yahoo", delay: 20 * time.Millisecond, gauge: g}
	b := &fakeAdapter{name: "polygon", delay: 20 * time.Millisecond, gauge: g}
	syms := []string{"A", "B", "C", "D", "E", "F"}
	if _, err := New(2).Collect(context.Background(), syms, cStart, cEnd, []source.Adapter{a, b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := g.peak.Load(); got > 2 || got < 1 {
		t.Fatalf("expected at most 2 in flight, peak was %d", got)
	}
	if a.calls.Load() != 6 || b.calls.Load() != 6 {
		t.Fatalf("expected 6 calls each, got %d/%d", a.calls.Load(), b.calls.Load())
	}
}

func TestCollect_CancelReturnsPartial(t *testing.T) {
	fast := &fakeAdapter{name: "fast"}
	slow := &fakeAdapter{name: "slow", delay: 2 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	began := time.Now()
	out, err := New(0).Collect(ctx, []string{"AAPL"}, cStart, cEnd, []source.Adapter{fast, slow})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(began) > time.Second {
		t.Fatalf("collect did not stop promptly")
	}
	res := out["AAPL"]
	if len(res) != 1 || res[0].Source != "fast" || !res[0].OK() {
		t.Fatalf("expected only the completed fast result, got %+v", res)
	}
}

func TestRegistry_OrderAndSelect(t *testing.T) {
	r := NewRegistry()
	for _, reg := range []struct {
		name string
		prio int
	}{{"alphavantage", 3}, {"yahoo", 1}, {"polygon", 2}} {
		if err := r.Register(&fakeAdapter{name: reg.name}, reg.prio); err != nil {
			t.Fatalf("register %s: %v", reg.name, err)
		}
	}
	if err := r.Register(&fakeAdapter{name: "yahoo"}, 9); err == nil {
		t.Fatalf("expected duplicate registration error")
	}

	got := r.Priorities()
	want := []string{"yahoo", "polygon", "alphavantage"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("priorities: got %v want %v", got, want)
		}
	}
	if r.Len() != 3 || len(r.Infos()) != 3 || r.Infos()[1].Priority != 2 {
		t.Fatalf("unexpected infos %+v", r.Infos())
	}

	sel, err := r.Select([]string{"AlphaVantage", "yahoo"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(sel) != 2 || sel[0].Name() != "yahoo" || sel[1].Name() != "alphavantage" {
		t.Fatalf("unexpected selection order")
	}
	all, _ := r.Select(nil)
	if len(all) != 3 {
		t.Fatalf("expected all adapters, got %d", len(all))
	}
	if _, err := r.Select([]string{"bloomberg"}); !errors.Is(err, models.ErrNoSourcesConfigured) {
		t.Fatalf("expected unknown source error, got %v", err)
	}
}
