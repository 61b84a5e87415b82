package eodobs

import (
	"context"
	"time"

	"sentiment-trader/internal/interfaces"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
	now        func() time.Time
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
		now:        time.Now,
	}
}

func (o *observableEodSummarizer) SummarizeDay(t time.Time) (string, error) {
	return o.summarize(t, "eod.SummarizeDay", func() (string, error) {
		return o.summarizer.SummarizeDay(t)
	})
}

func (o *observableEodSummarizer) SummarizeToday() (string, error) {
	return o.summarize(o.now(), "eod.SummarizeToday", o.summarizer.SummarizeToday)
}

func (o *observableEodSummarizer) summarize(day time.Time, span string, run func() (string, error)) (string, error) {
	ctx, sp := trace.StartSpan(context.Background(), span)
	defer sp.End()

	date := day.Format("2006-01-02")
	start := time.Now()
	logger.InfoSkip(ctx, 2, "Starting EOD summary generation", "date", date)

	csvPath, err := run()
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 2, "EOD summary generation failed", err, "date", date)
		return "", err
	}
	if csvPath == "" {
		logger.InfoSkip(ctx, 2, "No trades found for EOD summary", "date", date)
		return "", nil
	}

	logger.InfoSkip(ctx, 2, "EOD summary generated successfully",
		"date", date,
		"csv_path", csvPath,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return csvPath, nil
}

func (o *observableEodSummarizer) ShouldRunNow() (bool, string) {
	ctx, span := trace.StartSpan(context.Background(), "eod.ShouldRunNow")
	defer span.End()

	shouldRun, csvPath := o.summarizer.ShouldRunNow()
	logger.DebugSkip(ctx, 1, "EOD check completed",
		"should_run", shouldRun,
		"csv_path", csvPath,
	)
	return shouldRun, csvPath
}
