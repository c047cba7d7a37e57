// Command agridata-collect resolves name-based queries and persists the
// resulting series and observations into local storage for later analysis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"agridata/internal/api"
	"agridata/internal/client"
	"agridata/internal/domain"
	"agridata/internal/observability"
	"agridata/internal/resolve"
	"agridata/internal/storage"
	chstore "agridata/internal/storage/clickhouse"
	"agridata/internal/storage/memory"
	"agridata/internal/storage/migrations"
	pgstore "agridata/internal/storage/postgres"
)

const tokenEnvVar = "AGRIDATA_TOKEN"

func main() {
	item := flag.String("item", "", "Item name, e.g. corn")
	metric := flag.String("metric", "", "Metric name, e.g. production quantity")
	region := flag.String("region", "", "Region name, e.g. united states")
	partnerRegion := flag.String("partner-region", "", "Partner region name for bilateral series")
	startDate := flag.String("start-date", "", "Requested range start (YYYY-MM-DD)")
	endDate := flag.String("end-date", "", "Requested range end (YYYY-MM-DD)")
	depth := flag.Int("depth", resolve.DefaultMaxCombinationDepth, "Candidates per dimension in combinatorial search")
	top := flag.Int("top", 5, "How many top-ranked series to collect")
	showRevisions := flag.Bool("show-revisions", false, "Collect historical revisions of each period")
	apiURL := flag.String("api-url", "https://api.gro-intelligence.com", "Remote API base URL")
	token := flag.String("token", "", "API access token (falls back to "+tokenEnvVar+")")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for observations")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[collect] ", log.LstdFlags)

	_ = godotenv.Load()

	accessToken := *token
	if accessToken == "" {
		accessToken = os.Getenv(tokenEnvVar)
	}
	if accessToken == "" {
		logger.Fatalf("No API token. Use --token or set %s", tokenEnvVar)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, aborting", sig)
		cancel()
	}()

	q := resolve.Query{
		Item:          *item,
		Metric:        *metric,
		Region:        *region,
		PartnerRegion: *partnerRegion,
	}
	var err error
	if q.StartDate, err = parseDate(*startDate); err != nil {
		logger.Fatalf("parse --start-date: %v", err)
	}
	if q.EndDate, err = parseDate(*endDate); err != nil {
		logger.Fatalf("parse --end-date: %v", err)
	}
	if q.Empty() {
		logger.Fatal("Nothing to search: set at least one of --item, --metric, --region, --partner-region")
	}

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	if err := run(ctx, logger, q, collectOptions{
		apiURL:        *apiURL,
		token:         accessToken,
		depth:         *depth,
		top:           *top,
		showRevisions: *showRevisions,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		useMemory:     *useMemory,
	}); err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}
}

type collectOptions struct {
	apiURL, token string
	depth, top    int
	showRevisions bool
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
}

func run(ctx context.Context, logger *log.Logger, q resolve.Query, opts collectOptions) error {
	// Create stores (use interfaces)
	var seriesStore storage.SeriesStore = memory.NewSeriesStore()
	var observationStore storage.ObservationStore = memory.NewObservationStore()

	if !opts.useMemory {
		pool, err := pgstore.NewPool(ctx, opts.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}

		seriesStore = pgstore.NewSeriesStore(pool)
		observationStore = pgstore.NewObservationStore(pool)

		// Observations can optionally go to ClickHouse instead
		if opts.clickhouseDSN != "" {
			conn, err := chstore.NewConn(ctx, opts.clickhouseDSN)
			if err != nil {
				return fmt.Errorf("connect to clickhouse: %w", err)
			}
			defer conn.Close()

			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				return fmt.Errorf("run clickhouse migrations: %w", err)
			}
			observationStore = chstore.NewObservationStore(conn)
		}
	}

	apiClient := api.NewHTTPClient(opts.apiURL, opts.token)
	c := client.New(apiClient, client.Options{Depth: opts.depth, Logger: logger})

	ranked, err := c.FindDataSeries(ctx, q)
	if err != nil {
		return err
	}
	selected := ranked.Take(opts.top)
	if len(selected) == 0 {
		return client.ErrNoResults
	}
	logger.Printf("collecting %d series", len(selected))

	var pointOpts *api.PointOpts
	if opts.showRevisions {
		pointOpts = &api.PointOpts{ShowRevisions: true}
	}

	collected := 0
	for _, series := range selected {
		s := series
		if err := seriesStore.Insert(ctx, &s); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				logger.Printf("series %s already collected, refreshing observations", s.Key())
			} else {
				return fmt.Errorf("store series %s: %w", s.Key(), err)
			}
		}

		points, err := c.GetDataPoints(ctx, s, pointOpts, 0)
		if err != nil {
			return fmt.Errorf("fetch points for %s: %w", s.Key(), err)
		}
		if len(points) == 0 {
			logger.Printf("no points for %s", s.Key())
			continue
		}

		batch := make([]*domain.Point, len(points))
		for i := range points {
			batch[i] = &points[i]
		}
		if err := observationStore.InsertBulk(ctx, batch); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				logger.Printf("observations for %s already stored, skipping", s.Key())
				continue
			}
			return fmt.Errorf("store observations for %s: %w", s.Key(), err)
		}
		collected += len(batch)
		logger.Printf("stored %d observations for %s", len(batch), s.Key())
	}

	logger.Printf("collection complete: %d series, %d observations", len(selected), collected)
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
