package ingestion

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/guttosm/finfetch/internal/domain/models"
)

// fileHeaders is the column order of a daily history file. The first six
// columns are required; vwap and transactions are optional but, when
// present, must appear in this order.
var fileHeaders = []string{
	"date",
	"open",
	"high",
	"low",
	"close",
	"volume",
	"vwap",
	"transactions",
}

const requiredColumns = 6

// parseHistory reads a daily OHLCV file and returns the bars in file order.
//
// It fails on:
//   - header not matching fileHeaders (order + count)
//   - a row whose column count differs from the header
//   - a cell that is present but not parseable
//
// It tolerates empty numeric cells (they become zero, or nil for the
// optional columns). Files using ';' as separator may use ',' as the decimal
// mark.
func parseHistory(ctx context.Context, in io.Reader) ([]models.PricePoint, error) {
	br := bufio.NewReader(in)
	comma := ','
	if first, err := br.Peek(256); len(first) > 0 || err == nil {
		line := string(first)
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		if strings.Contains(line, ";") {
			comma = ';'
		}
	}

	r := csv.NewReader(br)
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1 // checked explicitly below

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < requiredColumns || len(header) > len(fileHeaders) {
		return nil, fmt.Errorf("invalid header length: expected %d to %d, got %d", requiredColumns, len(fileHeaders), len(header))
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), fileHeaders[i]) {
			return nil, fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, fileHeaders[i], h)
		}
	}

	var out []models.PricePoint
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line after %d: %w", line, err)
		}
		line++

		if len(rec) != len(header) {
			return nil, fmt.Errorf("invalid column count on line %d: expected %d got %d", line, len(header), len(rec))
		}
		p, err := recordToPoint(rec, comma == ';')
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// recordToPoint converts one validated record into a PricePoint.
//
//	0 date          YYYY-MM-DD, required
//	1-4 open..close float, empty -> 0
//	5 volume        float, empty -> 0
//	6 vwap          optional float, empty -> nil
//	7 transactions  optional int, empty -> nil
func recordToPoint(rec []string, decimalComma bool) (models.PricePoint, error) {
	var p models.PricePoint

	s := strings.TrimSpace(rec[0])
	if s == "" {
		return p, fmt.Errorf("missing date")
	}
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return p, fmt.Errorf("invalid date: %v", err)
	}
	p.Date = d

	for i, dst := range []*float64{&p.Open, &p.High, &p.Low, &p.Close, &p.Volume} {
		v, ok, err := parseFloat(rec[i+1], decimalComma)
		if err != nil {
			return p, fmt.Errorf("invalid %s: %v", fileHeaders[i+1], err)
		}
		if ok {
			*dst = v
		}
	}

	if len(rec) > 6 {
		v, ok, err := parseFloat(rec[6], decimalComma)
		if err != nil {
			return p, fmt.Errorf("invalid vwap: %v", err)
		}
		if ok {
			p.VWAP = &v
		}
	}
	if len(rec) > 7 {
		if s := strings.TrimSpace(rec[7]); s != "" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return p, fmt.Errorf("invalid transactions: %v", err)
			}
			p.Transactions = &n
		}
	}
	return p, nil
}

func parseFloat(cell string, decimalComma bool) (float64, bool, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false, nil
	}
	if decimalComma {
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
