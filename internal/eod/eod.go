// Package eod turns the day's trade journal into a per-symbol CSV summary.
package eod

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/tradelog"
	"sentiment-trader/internal/types"
)

// DefaultCutoff is the local time after which the summary may be written.
const DefaultCutoff = 15*time.Hour + 40*time.Minute

// aggRow holds the day's totals for one broker symbol.
type aggRow struct {
	Symbol      string
	Actions     map[types.Action]int
	Declined    int
	Failed      int
	BuyQty      float64
	BuyValue    float64
	SellQty     float64
	SellValue   float64
	RealizedPnL float64
}

type Summarizer struct {
	dir    string
	loc    *time.Location
	cutoff time.Duration
	now    func() time.Time
}

var _ interfaces.EodSummarizer = (*Summarizer)(nil)

// NewSummarizer reads journals from dir. cutoff is the offset from local
// midnight after which ShouldRunNow reports true.
func NewSummarizer(dir string, loc *time.Location, cutoff time.Duration) *Summarizer {
	if dir == "" {
		dir = tradelog.LogDir()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Summarizer{dir: dir, loc: loc, cutoff: cutoff, now: time.Now}
}

func (s *Summarizer) csvPath(t time.Time) string {
	return filepath.Join(s.dir, "eod", t.Format("2006-01-02")+".csv")
}

// SummarizeDay writes the CSV for the day of t. It returns an empty path and
// no error when nothing was journaled that day.
func (s *Summarizer) SummarizeDay(t time.Time) (string, error) {
	t = t.In(s.loc)
	aggs, err := s.aggregate(tradelog.DailyFile(s.dir, t))
	if err != nil || len(aggs) == 0 {
		return "", err
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := s.csvPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{
		"symbol", "enter_long", "enter_short", "exit_long", "exit_short", "declined", "failed",
		"buy_qty", "buy_avg", "sell_qty", "sell_avg", "realized_pnl", "gross_buy_value", "gross_sell_value",
	}
	if err := w.Write(headers); err != nil {
		return "", err
	}

	var totalBuy, totalSell, totalPnL float64
	var totalFailed, totalDeclined int
	for _, k := range keys {
		r := aggs[k]
		var buyAvg, sellAvg float64
		if r.BuyQty > 0 {
			buyAvg = r.BuyValue / r.BuyQty
		}
		if r.SellQty > 0 {
			sellAvg = r.SellValue / r.SellQty
		}
		r.RealizedPnL = min(r.BuyQty, r.SellQty) * (sellAvg - buyAvg)

		rec := []string{
			r.Symbol,
			strconv.Itoa(r.Actions[types.EnterLong]),
			strconv.Itoa(r.Actions[types.EnterShort]),
			strconv.Itoa(r.Actions[types.ExitLong]),
			strconv.Itoa(r.Actions[types.ExitShort]),
			strconv.Itoa(r.Declined),
			strconv.Itoa(r.Failed),
			formatQty(r.BuyQty), fmt.Sprintf("%.4f", buyAvg),
			formatQty(r.SellQty), fmt.Sprintf("%.4f", sellAvg),
			fmt.Sprintf("%.2f", r.RealizedPnL),
			fmt.Sprintf("%.2f", r.BuyValue),
			fmt.Sprintf("%.2f", r.SellValue),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		totalBuy += r.BuyValue
		totalSell += r.SellValue
		totalPnL += r.RealizedPnL
		totalFailed += r.Failed
		totalDeclined += r.Declined
	}
	_ = w.Write([]string{
		"TOTAL", "", "", "", "", strconv.Itoa(totalDeclined), strconv.Itoa(totalFailed), "", "", "", "",
		fmt.Sprintf("%.2f", totalPnL), fmt.Sprintf("%.2f", totalBuy), fmt.Sprintf("%.2f", totalSell),
	})
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}

// aggregate skips lines that are not trade records.
func (s *Summarizer) aggregate(inPath string) (map[string]*aggRow, error) {
	f, err := os.Open(inPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec types.TradeRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil || rec.Symbol == "" || !rec.Action.Valid() {
			continue
		}
		row := aggs[rec.Symbol]
		if row == nil {
			row = &aggRow{Symbol: rec.Symbol, Actions: map[types.Action]int{}}
			aggs[rec.Symbol] = row
		}

		switch rec.Status {
		case "DECLINED":
			row.Declined++
			continue
		case "FAILED":
			row.Failed++
			continue
		}
		row.Actions[rec.Action]++

		value := rec.Volume * rec.Price
		switch rec.Action {
		case types.EnterLong, types.ExitShort:
			row.BuyQty += rec.Volume
			row.BuyValue += value
		case types.EnterShort, types.ExitLong:
			row.SellQty += rec.Volume
			row.SellValue += value
		}
	}
	return aggs, sc.Err()
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func (s *Summarizer) SummarizeToday() (string, error) {
	return s.SummarizeDay(s.now())
}

// ShouldRunNow is true past the cutoff when today's CSV does not exist yet.
func (s *Summarizer) ShouldRunNow() (bool, string) {
	now := s.now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	outPath := s.csvPath(now)
	if now.Sub(midnight) >= s.cutoff {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}

var defaultSummarizer interfaces.EodSummarizer = NewSummarizer("", time.Local, DefaultCutoff)

// SetDefaultSummarizer allows setting a custom default summarizer (e.g., wrapped with observability)
func SetDefaultSummarizer(summarizer interfaces.EodSummarizer) {
	defaultSummarizer = summarizer
}

func SummarizeDay(t time.Time) (string, error) {
	return defaultSummarizer.SummarizeDay(t)
}

func SummarizeToday() (string, error) {
	return defaultSummarizer.SummarizeToday()
}

func ShouldRunNow() (bool, string) {
	return defaultSummarizer.ShouldRunNow()
}
