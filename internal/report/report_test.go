package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/guttosm/finfetch/internal/domain/models"
)

func sample() []models.ScreeningResult {
	return []models.ScreeningResult{
		{
			Symbol: "AAPL", DataPoints: 1258,
			AnnualizedReturn: models.Float(14.869835499703509),
			SharpeRatio:      models.Float(0.8123),
			PercentFromHigh:  models.Float(-5.3),
			Volatility:       models.Float(0.27182818),
			MaxDrawdown:      models.Float(-33.33333333333333),
			OpportunityScore: models.Float(0.1 + 0.2),
			Alpha:            models.Float(3.25),
			Beta:             models.Float(1.12),
			RSI14:            models.Float(61.5),
			SMA20:            models.Float(187.42),
			SMA50:            models.Float(181.07),
			VolumeRatio:      models.Float(0.93),
			DataQuality:      models.Float(0.995),
		},
		{Symbol: "NEW", DataPoints: 12, Insufficient: true},
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	in := sample()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if first != strings.Join(Headers, ",") {
		t.Fatalf("unexpected header %q", first)
	}

	out, err := ParseCSV(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d rows, got %d", len(in), len(out))
	}
	for i := range in {
		a, b := in[i], out[i]
		if a.Symbol != b.Symbol || a.DataPoints != b.DataPoints || a.Insufficient != b.Insufficient {
			t.Fatalf("row %d: got %+v want %+v", i, b, a)
		}
		ma, mb := metricFields(&a), metricFields(&b)
		for j := range ma {
			va, vb := *ma[j], *mb[j]
			switch {
			case va == nil && vb == nil:
			case va == nil || vb == nil:
				t.Fatalf("row %d %s: nil mismatch", i, Headers[j+1])
			case math.Abs(*va-*vb) > 1e-12:
				t.Fatalf("row %d %s: got %v want %v", i, Headers[j+1], *vb, *va)
			}
		}
	}
}

// csvLine builds a data line with the given symbol, first metric, data
// points and insufficient flag, leaving the other metrics empty.
func csvLine(symbol, first, points, insufficient string) string {
	cells := make([]string, len(Headers))
	cells[0], cells[1] = symbol, first
	cells[colDataPoints], cells[colInsufficient] = points, insufficient
	return strings.Join(Headers, ",") + "\n" + strings.Join(cells, ",") + "\n"
}

func TestParseCSV_RejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"short header":  "symbol,annualized_return\n",
		"renamed col":   strings.Replace(strings.Join(Headers, ","), "sharpe_ratio", "sharpe", 1) + "\n",
		"bad number":    csvLine("AAPL", "abc", "10", "false"),
		"bad bool":      csvLine("AAPL", "", "10", "maybe"),
		"bad points":    csvLine("AAPL", "", "ten", "false"),
		"missing cells": strings.Join(Headers, ",") + "\nAAPL,1\n",
		"empty symbol":  csvLine(" ", "", "10", "false"),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseCSV(strings.NewReader(in)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"SYMBOL", "ALPHA %", "BETA", "RSI", "AAPL", "14.87", "-5.30", "3.25", "1.12", "61.50", "n/a", "12*", "insufficient data"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestWrite_PropagatesWriterErrors(t *testing.T) {
	boom := errors.New("disk full")
	for _, f := range []Format{FormatTable, FormatCSV, FormatJSON} {
		t.Run(string(f), func(t *testing.T) {
			if err := Write(failingWriter{boom}, f, sample()); !errors.Is(err, boom) {
				t.Fatalf("expected %v, got %v", boom, err)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0]["symbol"] != "AAPL" || got[1]["sharpe_ratio"] != nil || got[1]["insufficient_data"] != true {
		t.Fatalf("unexpected json %v", got)
	}

	buf.Reset()
	if err := WriteJSON(&buf, nil); err != nil || strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("nil results should encode as [], got %q err=%v", buf.String(), err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "CSV": FormatCSV, " json ": FormatJSON, "table": FormatTable} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
}
