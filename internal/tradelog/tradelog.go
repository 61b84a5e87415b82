// Package tradelog writes the daily JSONL journal of trade signals and
// engine cycles.
package tradelog

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/trace"
	"sentiment-trader/internal/types"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	dayLayout  = "2006-01-02"
	logExt     = ".txt"
)

// LogDir is TRADER_LOG_DIR, or "logs" when unset.
func LogDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

// DailyFile is the trade journal file for the day of t.
func DailyFile(dir string, t time.Time) string {
	return filepath.Join(dir, t.Format(dayLayout)+logExt)
}

// CycleFile is the cycle journal file for the day of t.
func CycleFile(dir string, t time.Time) string {
	return filepath.Join(dir, "cycles", t.Format(dayLayout)+logExt)
}

// CycleEntry is one line of the cycle journal.
type CycleEntry struct {
	Time      string `json:"time"`
	Phase     string `json:"phase"`
	Skipped   bool   `json:"skipped,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Positions int    `json:"positions"`
	Signals   int    `json:"signals"`
	Submitted int    `json:"submitted"`
	Declined  int    `json:"declined"`
	Failed    int    `json:"failed"`
	Millis    int64  `json:"duration_ms"`
	Error     string `json:"error,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

type Journal struct {
	dir string
	loc *time.Location
	now func() time.Time
	mu  sync.Mutex
}

var _ interfaces.TradeJournal = (*Journal)(nil)

// New journals into dir, dating files in loc. An empty dir means LogDir().
func New(dir string, loc *time.Location) *Journal {
	if dir == "" {
		dir = LogDir()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Journal{dir: dir, loc: loc, now: time.Now}
}

func (j *Journal) Dir() string { return j.dir }

// Append stamps rec with the journal clock when it has no time yet.
func (j *Journal) Append(rec types.TradeRecord) error {
	now := j.now().In(j.loc)
	if rec.Time == "" {
		rec.Time = now.Format(timeLayout)
	}
	return j.appendLine(DailyFile(j.dir, now), rec)
}

// AppendCycle records report with the trace id of ctx's span, if tracing is on.
func (j *Journal) AppendCycle(ctx context.Context, report types.CycleReport, cycleErr error) error {
	now := j.now().In(j.loc)
	e := CycleEntry{
		Time:      now.Format(timeLayout),
		Phase:     report.Phase,
		Skipped:   report.Skipped,
		Reason:    report.Reason,
		Positions: report.Positions,
		Signals:   len(report.Signals),
		Submitted: report.Submitted,
		Declined:  report.Declined,
		Failed:    report.Failed,
		Millis:    report.Duration.Milliseconds(),
	}
	if cycleErr != nil {
		e.Error = cycleErr.Error()
	}
	if traceID, _, ok := trace.GetTraceFields(ctx); ok {
		e.TraceID = traceID
	}
	return j.appendLine(CycleFile(j.dir, now), e)
}

func (j *Journal) appendLine(p string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

type cycleJournal struct {
	engine  interfaces.Engine
	journal *Journal
}

// WrapEngine journals every cycle that did not skip.
func (j *Journal) WrapEngine(e interfaces.Engine) interfaces.Engine {
	return &cycleJournal{engine: e, journal: j}
}

func (c *cycleJournal) RunCycle(ctx context.Context) (types.CycleReport, error) {
	report, err := c.engine.RunCycle(ctx)
	if report.Skipped && err == nil {
		return report, nil
	}
	if jerr := c.journal.AppendCycle(ctx, report, err); jerr != nil {
		return report, fmt.Errorf("journal cycle: %w (cycle error: %v)", jerr, err)
	}
	return report, err
}

// CompressOlder gzips journal files last modified more than retentionDays ago.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := j.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != logExt {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// if already gz exists, remove original
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
