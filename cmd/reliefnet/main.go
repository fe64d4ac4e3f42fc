// Command reliefnet runs the disaster-relief logistics coordinator: a
// query pipeline that turns a natural-language supply request into a
// ranked, routed delivery plan against live situational awareness.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jordigilh/reliefnet/internal/config"
	"github.com/jordigilh/reliefnet/pkg/adapters"
	"github.com/jordigilh/reliefnet/pkg/cache"
	"github.com/jordigilh/reliefnet/pkg/clock"
	"github.com/jordigilh/reliefnet/pkg/extractor"
	"github.com/jordigilh/reliefnet/pkg/fusion"
	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/metrics"
	"github.com/jordigilh/reliefnet/pkg/network"
	"github.com/jordigilh/reliefnet/pkg/notify"
	"github.com/jordigilh/reliefnet/pkg/pipeline"
	"github.com/jordigilh/reliefnet/pkg/policy"
	"github.com/jordigilh/reliefnet/pkg/reports"
	"github.com/jordigilh/reliefnet/pkg/routing"
	"github.com/jordigilh/reliefnet/pkg/shelters"
)

const demoQuery = "We need water and blankets delivered urgently to survivors near Asheville, bridge is out"

// keywordExtractor is the no-LLM-configured collaborator: it satisfies both
// halves of the Extractor contract with the deterministic fallback rules,
// so the pipeline always has a parser and resolver even when
// extractor.provider isn't "anthropic".
type keywordExtractor struct {
	depots []shelters.SupplyDepot
}

func (k keywordExtractor) ParseQuery(_ context.Context, text string) extractor.ParsedQuery {
	return extractor.ParseQueryFallback(text, k.depots)
}

func (k keywordExtractor) ReconcileConflict(_ context.Context, cluster []reports.Report, _ string) (fusion.ReconciliationResult, error) {
	return fusion.DeterministicReconcile(fusion.Cluster{Reports: cluster}), nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the coordinator's YAML configuration")
	demo := flag.Bool("demo", false, "run one canned query and exit")
	jsonOut := flag.Bool("json", false, "print the raw JSON response instead of a formatted summary")
	flag.Parse()

	log := logrus.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("reliefnet: failed to load configuration")
	}
	configureLogging(log, cfg.Logging)

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort, log)
	metricsServer.StartAsync()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Stop(ctx)
	}()

	p, err := buildPipeline(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("reliefnet: failed to build pipeline")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *demo:
		runOnce(ctx, p, demoQuery, *jsonOut)
	default:
		runInteractive(ctx, p, *jsonOut, log)
	}
}

func configureLogging(log *logrus.Logger, cfg config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

// buildPipeline wires every C8 collaborator from cfg: the source adapters,
// the road graph, the Extractor, the external router, the tick cache, and
// the Slack notifier.
func buildPipeline(cfg *config.Config, log *logrus.Logger) (*pipeline.Pipeline, error) {
	source := adapters.FileDatasetSource{}

	roadData, err := os.ReadFile(cfg.Adapters.RoadNetwork)
	if err != nil {
		return nil, fmt.Errorf("failed to read road network dataset: %w", err)
	}
	graph, err := network.LoadGraph(roadData)
	if err != nil {
		return nil, fmt.Errorf("failed to load road network: %w", err)
	}

	shelterSource := &adapters.SheltersAdapter{Path: cfg.Adapters.Shelters, Source: source, Log: log}
	depots := shelterSource.LoadSupplyDepots()

	var parser pipeline.QueryParser
	var resolver fusion.ConflictResolver
	if cfg.Extractor.Provider == "anthropic" {
		llm := extractor.NewExtractor(cfg.Extractor.APIKey, cfg.Extractor.Model, cfg.Extractor.Timeout, depots, log)
		parser, resolver = llm, llm
	} else {
		fallback := keywordExtractor{depots: depots}
		parser, resolver = fallback, fallback
	}

	var external routing.ExternalRouter
	if cfg.Router.BaseURL != "" {
		external = routing.NewHTTPExternalRouter(cfg.Router.BaseURL, cfg.Router.APIKey, cfg.Router.Timeout)
	}
	router := routing.NewRouter(graph, external, log)

	tables := policy.Load(context.Background(), log)

	var redisClient *redis.Client
	if cfg.Cache.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	}
	tickCache := cache.New(redisClient, cfg.Cache.TTL, log)

	notifier := notify.New(cfg.Notify.SlackWebhookURL, cfg.Notify.Channel)
	scenarioClock := clock.New(time.Now())

	p := pipeline.New(cfg.Pipeline.AdmissionQueueBound, log)
	p.Adapters = []adapters.Adapter{
		adapters.SatelliteAdapter{Path: cfg.Adapters.Satellite, Source: source, Log: log},
		adapters.OfficialAdapter{Path: cfg.Adapters.Official, Source: source, Log: log},
		adapters.SocialAdapter{Path: cfg.Adapters.SocialMedia, Source: source, Log: log},
		*shelterSource,
	}
	p.ShelterSource = shelterSource
	p.Graph = graph
	p.Router = router
	p.Parser = parser
	p.Resolver = resolver
	p.Policy = tables
	p.Cache = tickCache
	p.Notifier = notifier
	p.Clock = scenarioClock
	p.BBox = region(cfg)
	p.QueryTimeout = cfg.Pipeline.QueryTimeout
	p.Log = log
	return p, nil
}

func region(cfg *config.Config) geo.BoundingBox {
	b := cfg.Region.BoundingBox
	return geo.BoundingBox{West: b.West, South: b.South, East: b.East, North: b.North}
}

func runOnce(ctx context.Context, p *pipeline.Pipeline, query string, jsonOut bool) {
	resp := p.Run(ctx, query)
	printResponse(resp, jsonOut)
}

func runInteractive(ctx context.Context, p *pipeline.Pipeline, jsonOut bool, log *logrus.Logger) {
	fmt.Println("reliefnet interactive mode — enter a query, `time <hours>` to advance the scenario clock, `new` to list reports since the last tick, or `quit` to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "quit":
			return
		case strings.HasPrefix(line, "time "):
			advanceClock(p, strings.TrimPrefix(line, "time "), log)
		case line == "new":
			gatherNew(ctx, p, log)
		default:
			resp := p.Run(ctx, line)
			printResponse(resp, jsonOut)
		}
	}
}

func advanceClock(p *pipeline.Pipeline, arg string, log *logrus.Logger) {
	hours, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		log.WithError(err).Warn("reliefnet: could not parse hour count for time advance")
		return
	}
	p.Clock.Advance(hours, func() {
		if p.Cache != nil {
			p.Cache.Invalidate()
		}
	})
}

// gatherNew reports what changed since the scenario clock's last tick
// (C9's gather_new()) without running a full query.
func gatherNew(ctx context.Context, p *pipeline.Pipeline, log *logrus.Logger) {
	newReports, partial := p.GatherNew(ctx, p.BBox)
	if partial {
		log.Warn("reliefnet: gather_new was cut short by the query deadline")
	}
	fmt.Printf("%d report(s) since the last tick\n", len(newReports))
	for _, r := range newReports {
		fmt.Printf("  %s  %-14s  %s\n", r.Timestamp.Format("2006-01-02T15:04:05Z"), r.Kind, r.Source)
	}
}

func printResponse(resp *pipeline.Response, jsonOut bool) {
	if jsonOut {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to marshal response:", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	fmt.Println(resp.Reasoning)
	if resp.Error != "" {
		fmt.Println("error:", resp.Error)
	}
}
