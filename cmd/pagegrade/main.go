// Package main is the pagegrade CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	pgcli "github.com/hyperjump/pagegrade/internal/cli"
	"github.com/hyperjump/pagegrade/internal/config"
	"github.com/hyperjump/pagegrade/internal/embedding"
	"github.com/hyperjump/pagegrade/internal/extract"
	"github.com/hyperjump/pagegrade/internal/features"
	"github.com/hyperjump/pagegrade/internal/fetch"
	"github.com/hyperjump/pagegrade/internal/metrics"
	"github.com/hyperjump/pagegrade/internal/models"
	"github.com/hyperjump/pagegrade/internal/pipeline"
	"github.com/hyperjump/pagegrade/internal/report"
	"github.com/hyperjump/pagegrade/internal/scoring"
	"github.com/hyperjump/pagegrade/internal/server"
	"github.com/hyperjump/pagegrade/internal/storage"
	"github.com/hyperjump/pagegrade/internal/vector"
	"github.com/hyperjump/pagegrade/internal/watcher"
	"github.com/hyperjump/pagegrade/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/pagegrade/config.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "pagegrade: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pagegrade",
		Usage:   "Score web pages for content quality and find near-duplicates",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: defaultConfigPath, Usage: "config file path", EnvVars: []string{"PAGEGRADE_CONFIG"}},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "text", Usage: "output format: text or json"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API (and the inbox watcher when watch directories are configured)",
				Action: runServe,
			},
			{
				Name:      "analyze",
				Usage:     "Analyse one page, HTML file, text or local document",
				ArgsUsage: "[url]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "html", Usage: "read raw HTML from this file; the url argument, if any, names the page"},
					&cli.StringFlag{Name: "text", Usage: "analyse this text instead of a page"},
					&cli.StringFlag{Name: "file", Usage: "extract and analyse a local document (txt, md, html, pdf, docx, odt, rtf, xlsx)"},
					&cli.StringFlag{Name: "server", Usage: "send the request to a running server instead of loading models locally"},
				},
				Action: runAnalyze,
			},
			{
				Name:  "batch",
				Usage: "Analyse many pages, rank keywords across them and report duplicates",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "CSV or XLSX with a url column and optional html_content"},
					&cli.StringSliceFlag{Name: "urls", Usage: "comma-separated URLs"},
					&cli.StringFlag{Name: "report", Aliases: []string{"r"}, Usage: "write results to this .csv, .xlsx or .json file"},
					&cli.StringFlag{Name: "features", Usage: "write the per-page features table to this CSV file"},
					&cli.StringFlag{Name: "duplicates", Usage: "write duplicate pairs to this CSV file"},
				},
				Action: runBatch,
			},
			{
				Name:      "compare",
				Usage:     "Compare two pages or two texts",
				ArgsUsage: "<url_a> <url_b>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text-a", Usage: "first text"},
					&cli.StringFlag{Name: "text-b", Usage: "second text"},
					&cli.StringFlag{Name: "server", Usage: "send the request to a running server"},
				},
				Action: runCompare,
			},
			{
				Name:  "status",
				Usage: "Show corpus, index and model status",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "server", Usage: "query a running server (empty = open local storage)"},
				},
				Action: runStatus,
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "pagegrade version %s\n", version)
					return nil
				},
			},
		},
	}
}

// loadConfig loads config from path. When path is the default and a config.yaml exists in
// the working directory, that file is used instead so the CLI works from a project checkout.
// Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// env is the per-command setup shared by every action.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	format pgcli.OutputFormat
}

func setup(c *cli.Context) (*env, error) {
	format, err := pgcli.ParseOutputFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	cfg, path, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || c.Bool("debug")
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("Config loaded", zap.String("config_path", path), zap.Bool("debug", debug))
	return &env{cfg: cfg, logger: logger, format: format}, nil
}

// Components holds initialised services.
type Components struct {
	Storage  *storage.SQLiteStorage
	Embedder embedding.Embedder
	Index    *vector.MemoryIndex
	Metrics  *metrics.Metrics
	Analyzer *pipeline.Analyzer

	indexPath string
	logger    *zap.Logger
}

// Close saves the corpus index and releases storage and the embedder.
func (c *Components) Close() {
	if err := c.Analyzer.SaveIndex(c.indexPath); err != nil {
		c.logger.Warn("Corpus index save failed", zap.String("path", c.indexPath), zap.Error(err))
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents loads the quality model and embedder, opens storage and restores the
// corpus index. A missing model file is an error.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	scorer, err := scoring.NewScorer(cfg.Scoring, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load quality model: %w", err)
	}
	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	index, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize corpus index: %w", err)
	}

	engine := features.NewEngine(
		features.WithTopKeywords(cfg.Scoring.TopKeywords),
		features.WithMaxFeatures(cfg.Scoring.MaxKeywordFeatures),
		features.WithLanguageDetection(cfg.Scoring.DetectLanguageOrDefault()),
		features.WithLogger(logger),
	)
	m := metrics.New()
	analyzer := pipeline.New(engine, embedder, scorer, cfg.Scoring,
		pipeline.WithLogger(logger),
		pipeline.WithFetcher(fetch.New(cfg.Fetch, fetch.WithLogger(logger))),
		pipeline.WithExtractor(extract.NewExtractor(cfg.Fetch.MaxBodyBytes)),
		pipeline.WithStorage(store),
		pipeline.WithIndex(index),
		pipeline.WithMetrics(m),
	)
	if err := analyzer.LoadIndex(ctx, cfg.Storage.VectorIndexPath); err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to restore corpus index: %w", err)
	}
	return &Components{
		Storage:   store,
		Embedder:  embedder,
		Index:     index,
		Metrics:   m,
		Analyzer:  analyzer,
		indexPath: cfg.Storage.VectorIndexPath,
		logger:    logger,
	}, nil
}

func runServe(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	comps, err := initializeComponents(c.Context, e.cfg, e.logger)
	if err != nil {
		e.logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	if len(e.cfg.Watch.Directories) > 0 {
		inbox := watcher.New(e.cfg.Watch, comps.Analyzer, watcher.WithLogger(e.logger))
		if err := inbox.Start(c.Context); err != nil {
			e.logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		synced := make(chan struct{})
		defer func() {
			inbox.Stop()
			<-synced
		}()
		go func() {
			defer close(synced)
			n := inbox.Sync(c.Context)
			e.logger.Info("Inbox synced", zap.Int("files", n))
		}()
	}

	srv := server.NewServer(comps.Analyzer, e.cfg, comps.Metrics, e.logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-c.Context.Done():
	}

	e.logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func runAnalyze(c *cli.Context) error {
	req, filePath, err := analyzeRequest(c.Args().First(), c.String("html"), c.String("text"), c.String("file"))
	if err != nil {
		return err
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	if addr := c.String("server"); addr != "" {
		if filePath != "" {
			return fmt.Errorf("--file cannot be sent to a server")
		}
		res, err := pgcli.NewClient(addr, e.cfg.Fetch.Timeout+time.Minute).Analyze(c.Context, req)
		if err != nil {
			return err
		}
		return pgcli.WriteResult(c.App.Writer, res, e.format)
	}

	comps, err := initializeComponents(c.Context, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	var res *models.AnalysisResult
	if filePath != "" {
		res, err = comps.Analyzer.AnalyzeFile(c.Context, filePath)
	} else {
		res, err = comps.Analyzer.Analyze(c.Context, req)
	}
	if err != nil {
		return err
	}
	return pgcli.WriteResult(c.App.Writer, res, e.format)
}

// analyzeRequest builds the request for the analyze command. It returns a file path instead
// when --file is set.
func analyzeRequest(url, htmlPath, text, filePath string) (models.AnalyzeRequest, string, error) {
	set := 0
	for _, v := range []string{htmlPath, text, filePath} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return models.AnalyzeRequest{}, "", fmt.Errorf("use only one of --html, --text and --file")
	}
	if filePath != "" {
		if url != "" {
			return models.AnalyzeRequest{}, "", fmt.Errorf("--file does not take a url argument")
		}
		return models.AnalyzeRequest{}, filePath, nil
	}
	req := models.AnalyzeRequest{URL: url, Text: text}
	if htmlPath != "" {
		data, err := os.ReadFile(htmlPath)
		if err != nil {
			return models.AnalyzeRequest{}, "", fmt.Errorf("failed to read html: %w", err)
		}
		req.HTML = string(data)
	}
	if err := req.Validate(); err != nil {
		return models.AnalyzeRequest{}, "", err
	}
	return req, "", nil
}

func runBatch(c *cli.Context) error {
	req, err := batchRequest(c.String("input"), c.StringSlice("urls"))
	if err != nil {
		return err
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	comps, err := initializeComponents(c.Context, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	res, err := comps.Analyzer.Batch(c.Context, req)
	if err != nil {
		return err
	}
	if out := c.String("report"); out != "" {
		if err := report.WriteFile(out, res); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		e.logger.Info("Report written", zap.String("path", out), zap.String("format", report.FormatFromPath(out)))
	}
	if out := c.String("features"); out != "" {
		if err := report.WriteFeaturesFile(out, res.Results); err != nil {
			return fmt.Errorf("failed to write features: %w", err)
		}
		e.logger.Info("Features written", zap.String("path", out), zap.Int("rows", len(res.Results)))
	}
	if out := c.String("duplicates"); out != "" {
		if err := report.WriteDuplicatesFile(out, res.Duplicates); err != nil {
			return fmt.Errorf("failed to write duplicates: %w", err)
		}
		e.logger.Info("Duplicates written", zap.String("path", out), zap.Int("pairs", len(res.Duplicates)))
	}
	return pgcli.WriteBatchSummary(c.App.Writer, res, e.format)
}

// batchRequest merges rows from an input file with URLs given on the command line.
// Each --urls value may itself be comma-separated.
func batchRequest(input string, urls []string) (models.BatchRequest, error) {
	var req models.BatchRequest
	if input != "" {
		rows, err := report.ReadBatchFile(input)
		if err != nil {
			return req, err
		}
		req.Rows = rows
	}
	for _, u := range urls {
		req.URLs = append(req.URLs, strings.Split(u, ",")...)
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

func runCompare(c *cli.Context) error {
	req := models.CompareRequest{
		URLA:  c.Args().Get(0),
		URLB:  c.Args().Get(1),
		TextA: c.String("text-a"),
		TextB: c.String("text-b"),
	}
	if err := req.Validate(); err != nil {
		return err
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	var cmp *models.Comparison
	if addr := c.String("server"); addr != "" {
		cmp, err = pgcli.NewClient(addr, 2*e.cfg.Fetch.Timeout+time.Minute).Compare(c.Context, req)
	} else {
		var comps *Components
		comps, err = initializeComponents(c.Context, e.cfg, e.logger)
		if err != nil {
			return err
		}
		defer comps.Close()
		cmp, err = comps.Analyzer.Compare(c.Context, req)
	}
	if err != nil {
		return err
	}
	return pgcli.WriteComparison(c.App.Writer, cmp, e.format)
}

func runStatus(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	var st *server.StatusResponse
	if addr := c.String("server"); addr != "" {
		st, err = pgcli.NewClient(addr, 10*time.Second).Status(c.Context)
		if err != nil {
			return err
		}
	} else {
		comps, err := initializeComponents(c.Context, e.cfg, e.logger)
		if err != nil {
			return err
		}
		defer comps.Close()
		status, err := comps.Analyzer.Status(c.Context)
		if err != nil {
			return err
		}
		st = &server.StatusResponse{Status: status}
		if st.Disk, err = storage.DiskUsage(e.cfg.Storage.DatabasePath, e.cfg.Storage.VectorIndexPath); err != nil {
			e.logger.Warn("Disk usage unavailable", zap.Error(err))
		}
	}
	return pgcli.WriteStatus(c.App.Writer, st, e.format)
}
