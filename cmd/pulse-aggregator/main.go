package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pulseboard/pulse/pkg/analytics"
	"github.com/pulseboard/pulse/pkg/config"
	"github.com/pulseboard/pulse/pkg/eventstore"
	"github.com/pulseboard/pulse/pkg/observability"
)

var (
	dailySchedule = flag.String("daily-schedule", "5 0 * * *", "Cron schedule for the daily rollup (default: 00:05 UTC)")
	runOnce       = flag.Bool("run-once", false, "Run the rollup once and exit")
	rollupDate    = flag.String("date", "", "Date to roll up (YYYY-MM-DD). Defaults to yesterday. Only used with --run-once")
	backfillFrom  = flag.String("backfill-from", "", "Start date (YYYY-MM-DD) for a backfill run. Only used with --run-once")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	store, err := eventstore.Open(eventstore.Config{
		DSN:          cfg.ClickHouse.DSN,
		MaxOpenConns: cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns: cfg.ClickHouse.MaxIdleConns,
		WriteTimeout: cfg.ClickHouse.WriteTimeout,
		QueryTimeout: cfg.ClickHouse.QueryTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to connect to event store: %v", err)
	}
	defer store.Close()

	aggregator := analytics.NewAggregator(store.DB(), logger)

	if *runOnce {
		if err := runOnceMode(aggregator); err != nil {
			log.Fatalf("Rollup failed: %v", err)
		}
		log.Println("Rollup completed successfully")
		return
	}

	c := cron.New()
	_, err = c.AddFunc(*dailySchedule, func() {
		if err := aggregator.AggregateYesterday(context.Background()); err != nil {
			logger.WithError(err).Error("Daily rollup failed")
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily rollup: %v", err)
	}

	c.Start()
	log.Println("Pulse aggregator started")
	log.Printf("Daily rollup schedule: %s", *dailySchedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()
	log.Println("Aggregator stopped")
}

func runOnceMode(aggregator *analytics.Aggregator) error {
	ctx := context.Background()

	date := time.Now().UTC().AddDate(0, 0, -1)
	if *rollupDate != "" {
		var err error
		date, err = time.Parse("2006-01-02", *rollupDate)
		if err != nil {
			return err
		}
	}

	if *backfillFrom != "" {
		from, err := time.Parse("2006-01-02", *backfillFrom)
		if err != nil {
			return err
		}
		log.Printf("Backfilling rollups from %s through %s",
			from.Format("2006-01-02"), date.Format("2006-01-02"))
		return aggregator.Backfill(ctx, from, date)
	}

	log.Printf("Running rollup for %s", date.Format("2006-01-02"))
	return aggregator.AggregateDay(ctx, date)
}
