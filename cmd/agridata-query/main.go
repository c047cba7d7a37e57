// Command agridata-query resolves name-based queries against the remote API
// and prints the best-ranked series' observations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"agridata/internal/api"
	"agridata/internal/client"
	"agridata/internal/observability"
	"agridata/internal/reporting"
	"agridata/internal/resolve"
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
	top := flag.Int("top", 1, "How many top-ranked series to fetch")
	output := flag.String("output", "csv", "Output format: csv or markdown")
	showRevisions := flag.Bool("show-revisions", false, "Include historical revisions of each period")
	random := flag.Bool("random", false, "Pick a random series with data instead of querying")
	seed := flag.Int64("seed", 0, "RNG seed for --random (0 = time-based)")
	apiURL := flag.String("api-url", "https://api.gro-intelligence.com", "Remote API base URL")
	token := flag.String("token", "", "API access token (falls back to "+tokenEnvVar+")")
	printToken := flag.Bool("print-token", false, "Print the resolved API token and exit")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stderr, "[query] ", log.LstdFlags)

	// .env is optional; flags and environment win over it
	_ = godotenv.Load()

	accessToken := *token
	if accessToken == "" {
		accessToken = os.Getenv(tokenEnvVar)
	}
	if *printToken {
		fmt.Println(accessToken)
		return
	}
	if accessToken == "" {
		logger.Fatalf("No API token. Use --token or set %s", tokenEnvVar)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
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

	apiClient := api.NewHTTPClient(*apiURL, accessToken)
	c := client.New(apiClient, client.Options{
		Depth:  *depth,
		Seed:   *seed,
		Logger: logger,
	})

	var err error
	if *random {
		err = runRandom(ctx, c)
	} else {
		err = runQuery(ctx, c, queryArgs{
			item:          *item,
			metric:        *metric,
			region:        *region,
			partnerRegion: *partnerRegion,
			startDate:     *startDate,
			endDate:       *endDate,
			top:           *top,
			output:        *output,
			showRevisions: *showRevisions,
		})
	}
	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}
}

type queryArgs struct {
	item, metric, region, partnerRegion string
	startDate, endDate                  string
	top                                 int
	output                              string
	showRevisions                       bool
}

// runQuery resolves the query, fetches the top-ranked series and writes the
// accumulated table to stdout.
func runQuery(ctx context.Context, c *client.Client, args queryArgs) error {
	q := resolve.Query{
		Item:          args.item,
		Metric:        args.metric,
		Region:        args.region,
		PartnerRegion: args.partnerRegion,
	}
	var err error
	if q.StartDate, err = parseDate(args.startDate); err != nil {
		return fmt.Errorf("parse --start-date: %w", err)
	}
	if q.EndDate, err = parseDate(args.endDate); err != nil {
		return fmt.Errorf("parse --end-date: %w", err)
	}
	if q.Empty() {
		return fmt.Errorf("nothing to search: set at least one of --item, --metric, --region, --partner-region")
	}

	ranked, err := c.FindDataSeries(ctx, q)
	if err != nil {
		return err
	}
	selected := ranked.Take(args.top)
	if len(selected) == 0 {
		return client.ErrNoResults
	}
	for _, s := range selected {
		c.AddSingleDataSeries(s)
	}

	var opts *api.PointOpts
	if args.showRevisions {
		opts = &api.PointOpts{ShowRevisions: true}
	}
	f, err := c.DataFrame(ctx, opts)
	if err != nil {
		return err
	}

	switch strings.ToLower(args.output) {
	case "csv":
		fmt.Print(reporting.RenderFrameCSV(f))
	case "markdown", "md":
		report := reporting.NewGenerator().Generate(q, 0, 0, selected, f)
		fmt.Print(reporting.RenderMarkdown(report))
	default:
		return fmt.Errorf("unknown output format %q", args.output)
	}
	return nil
}

// runRandom picks a random series with data and prints its observations.
func runRandom(ctx context.Context, c *client.Client) error {
	filter, err := c.PickRandomEntities(ctx)
	if err != nil {
		return err
	}
	series, err := c.PickRandomDataSeries(ctx, filter)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "picked %s\n", series.Key())
	return c.WriteSeriesCSV(ctx, os.Stdout, series)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
