package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"github.com/guttosm/finfetch/internal/domain/models"
)

type fakeAdapter struct {
	calls int
	rs    models.RawSeries
	err   error
}

func (f *fakeAdapter) Name() string { return "yahoo" }

func (f *fakeAdapter) Fetch(_ context.Context, _ models.Symbol, _, _ time.Time) (models.RawSeries, error) {
	f.calls++
	return f.rs, f.err
}

var (
	start = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	key   = "rawseries:yahoo:AAPL:2025-01-02:2025-01-31"
)

func sampleSeries() models.RawSeries {
	return models.RawSeries{
		Symbol: "AAPL", Source: "yahoo", Start: start, End: end,
		Points: []models.PricePoint{{Date: start, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}},
	}
}

func TestNewCachingAdapter_Defaults(t *testing.T) {
	c := NewCachingAdapter(nil, 0, &fakeAdapter{})
	if c.ttl != defaultTTL || c.namespace != defaultNamespace {
		t.Fatalf("unexpected defaults ttl=%v ns=%q", c.ttl, c.namespace)
	}
	if c.Name() != "yahoo" {
		t.Fatalf("name must pass through, got %q", c.Name())
	}
}

func TestCachingAdapter_NilRedisBypasses(t *testing.T) {
	inner := &fakeAdapter{rs: sampleSeries()}
	c := NewCachingAdapter(nil, time.Hour, inner)
	rs, err := c.Fetch(context.Background(), "AAPL", start, end)
	if err != nil || len(rs.Points) != 1 || inner.calls != 1 {
		t.Fatalf("unexpected rs=%+v err=%v calls=%d", rs, err, inner.calls)
	}
}

func TestCachingAdapter_Hit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	b, _ := json.Marshal(sampleSeries())
	mock.ExpectGet(key).SetVal(string(b))

	inner := &fakeAdapter{}
	rs, err := NewCachingAdapter(rdb, time.Hour, inner).Fetch(context.Background(), "AAPL", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 0 {
		t.Fatal("inner adapter must not be called on cache hit")
	}
	if len(rs.Points) != 1 || !rs.Points[0].Date.Equal(start) {
		t.Fatalf("unexpected cached series %+v", rs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCachingAdapter_MissStores(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	rs := sampleSeries()
	b, _ := json.Marshal(rs)
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, b, time.Hour).SetVal("OK")

	inner := &fakeAdapter{rs: rs}
	got, err := NewCachingAdapter(rdb, time.Hour, inner).Fetch(context.Background(), "AAPL", start, end)
	if err != nil || len(got.Points) != 1 || inner.calls != 1 {
		t.Fatalf("unexpected got=%+v err=%v calls=%d", got, err, inner.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCachingAdapter_ErrorsAreNotCached(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet(key).RedisNil()

	boom := &models.SourceError{Source: "yahoo", Symbol: "AAPL", Kind: models.ErrSourceUnavailable, StatusCode: 500}
	inner := &fakeAdapter{err: boom}
	_, err := NewCachingAdapter(rdb, time.Hour, inner).Fetch(context.Background(), "AAPL", start, end)
	if !errors.Is(err, models.ErrSourceUnavailable) {
		t.Fatalf("want ErrSourceUnavailable got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected redis calls: %v", err)
	}
}

func TestCachingAdapter_CorruptEntryIsDeleted(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	rs := sampleSeries()
	b, _ := json.Marshal(rs)
	mock.ExpectGet(key).SetVal("{not json")
	mock.ExpectDel(key).SetVal(1)
	mock.ExpectSet(key, b, time.Hour).SetVal("OK")

	inner := &fakeAdapter{rs: rs}
	if _, err := NewCachingAdapter(rdb, time.Hour, inner).Fetch(context.Background(), "AAPL", start, end); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("corrupt entry must fall back to the provider")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCachingAdapter_Invalidate(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectScan(0, "rawseries:yahoo:AAPL:*", 200).SetVal([]string{key}, 0)
	mock.ExpectDel(key).SetVal(1)

	if err := NewCachingAdapter(rdb, time.Hour, &fakeAdapter{}).Invalidate(context.Background(), "AAPL"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSafe(t *testing.T) {
	if got := safe("a b:c"); got != "a_b_c" {
		t.Fatalf("got %q", got)
	}
}
