package download

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// progressLogger logs download progress at most once per second,
// plus a final line when the body reaches EOF.
type progressLogger struct {
	logger    *slog.Logger
	path      string
	startTime time.Time
	every     rate.Sometimes
}

func newProgressLogger(logger *slog.Logger, path string) *progressLogger {
	return &progressLogger{
		logger:    logger,
		path:      path,
		startTime: time.Now(),
		every:     rate.Sometimes{Interval: time.Second},
	}
}

func (pl *progressLogger) observe(read, total int64, done bool) {
	if done {
		pl.log("download complete", read, total)
		return
	}

	pl.every.Do(func() {
		pl.log("downloading", read, total)
	})
}

func (pl *progressLogger) log(msg string, read, total int64) {
	elapsed := time.Since(pl.startTime)
	attrs := []any{
		"path", pl.path,
		"transferred", read,
		"total", total,
		"elapsed", elapsed.Round(time.Millisecond),
	}
	if total > 0 {
		attrs = append(attrs, "progress", float64(read)/float64(total)*100)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		attrs = append(attrs, "mbps", float64(read)/secs/(1024*1024))
	}
	pl.logger.Info(msg, attrs...)
}
