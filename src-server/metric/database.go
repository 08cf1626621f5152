package metric

import (
	"context"
	"log/slog"
	"time"

	"eventfair/src-server/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

const databaseEmptyReadName = "eventfair_database_empty_read_microsec"

// Probe the latency of an empty read every interval until shutdown is closed.
func WatchDatabase(db *bun.DB, interval time.Duration, shutdown <-chan struct{}) {
	databaseEmptyRead := register(prometheus.NewGauge(prometheus.GaugeOpts{
		Name: databaseEmptyReadName,
		Help: "The latency of an empty database read in microseconds",
	}), databaseEmptyReadName)
	databaseEmptyRead.Set(0)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-shutdown:
				unregister(databaseEmptyRead, databaseEmptyReadName)
				return
			case <-ticker.C:
				latency, err := database(db)
				if err != nil {
					slog.Error("can't get database latency", "error", err)
					continue
				}
				databaseEmptyRead.Set(float64(latency.Microseconds()))
			}
		}
	}()
}

func database(db *bun.DB) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if _, err := db.NewSelect().
		Model((*model.Event)(nil)).
		Where("id = ?", "").
		Exists(ctx); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
