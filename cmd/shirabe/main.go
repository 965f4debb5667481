// Package main is the Shirabe CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/karakuri/shirabe/internal/chunker"
	"github.com/karakuri/shirabe/internal/cli"
	"github.com/karakuri/shirabe/internal/config"
	"github.com/karakuri/shirabe/internal/embedding"
	"github.com/karakuri/shirabe/internal/extract"
	"github.com/karakuri/shirabe/internal/models"
	"github.com/karakuri/shirabe/internal/retrieval"
	"github.com/karakuri/shirabe/internal/server"
	"github.com/karakuri/shirabe/internal/store"
	"github.com/karakuri/shirabe/internal/watcher"
	"github.com/karakuri/shirabe/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/shirabe/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "shirabe server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "delete":
		runDelete()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("shirabe version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, searches, indexing)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	restored, err := components.Service.RestoreIndex(context.Background())
	if err != nil {
		logger.Fatal("Failed to restore index", zap.Error(err))
	}
	logger.Info("index restored", zap.Bool("snapshot_found", restored))

	watchOpts := []watcher.WatcherOption{
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS) * time.Millisecond),
	}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}

	var srv *server.Server
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) { srv.OnFileChanged(path) },
		func(path string) { srv.OnFileRemoved(path) },
		watchOpts...,
	)
	srv = server.NewServer(components.Service, cfg, logger,
		server.WithWatcher(watchSvc, resolvedConfigPath))

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := components.Service.SaveIndex(saveCtx); err != nil {
		logger.Warn("index save failed", zap.Error(err))
	}
	saveCancel()
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: shirabe search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  shirabe search machine learning
  shirabe search "machine learning"                  # same as above
  shirabe search --top-k 5 --min-similarity 0.3 your query
  shirabe search --output json "query"               # structured JSON for other apps
  shirabe search --server "" --config ./config.yaml offline query
`)
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the index directly)")
	topK := fs.Int("top-k", 0, "number of results (0 = config default)")
	minSimilarity := fs.Float64("min-similarity", 0, "minimum cosine similarity in [0,1]")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	case "compact":
		format = cli.OutputCompact
	default:
		fmt.Printf("Unknown output format %q; use text, compact, or json\n", *outputFormat)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query:         queryStr,
		TopK:          *topK,
		MinSimilarity: *minSimilarity,
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running; the server owns the
		// in-memory index, so this sees everything indexed so far.
		response, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct mode: load the persisted snapshot and search it locally.
	cfg, _, err := loadConfig(*configPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if _, err := components.Service.RestoreIndex(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to restore index: %v\n", err)
		os.Exit(1)
	}
	results, err := components.Service.Search(ctx, searchQuery.Query, searchQuery.TopK, searchQuery.MinSimilarity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	response := &cli.SearchResponse{Results: results, Count: len(results)}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*cli.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response cli.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents      int                    `json:"documents"`
	Passages       int                    `json:"passages"`
	LastUpdated    time.Time              `json:"last_updated"`
	Project        string                 `json:"project"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		if _, err := components.Service.RestoreIndex(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to restore index: %v\n", err)
			os.Exit(1)
		}
		stats := components.Service.Stats()
		status = statusResponse{
			Documents:   stats.Documents,
			Passages:    stats.Passages,
			LastUpdated: stats.LastUpdated,
			Project:     stats.ProjectHash,
			Config: map[string]interface{}{
				"embedding_model": cfg.Embedding.Model,
				"chunk_size":      cfg.Chunking.ChunkSize,
				"chunk_overlap":   cfg.Chunking.Overlap,
				"storage_backend": cfg.Storage.Backend,
			},
		}
		diskBytes, err := store.DiskUsageBytes(cfg.Storage.Dir, cfg.Storage.DatabasePath)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:         %d   # count of indexed documents\n", status.Documents)
		fmt.Printf("passages:          %d   # count of embedded passages\n", status.Passages)
		fmt.Printf("project:           %s\n", status.Project)
		if !status.LastUpdated.IsZero() {
			fmt.Printf("last_updated:      %s\n", status.LastUpdated.Format(time.RFC3339))
		}
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:  %d\n", *status.DiskUsageBytes)
		}
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			for _, k := range []string{"embedding_model", "chunk_size", "chunk_overlap", "storage_backend"} {
				if v, ok := status.Config[k]; ok {
					fmt.Printf("%-18s %v\n", k+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runIndex() {
	flagSet := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := flagSet.String("config", defaultConfigPath, "config file path")
	_ = flagSet.Parse(os.Args[2:])

	if flagSet.NArg() < 1 {
		fmt.Println("Usage: shirabe index [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := flagSet.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if _, err := components.Service.RestoreIndex(ctx); err != nil {
		fmt.Printf("Failed to restore index: %v\n", err)
		os.Exit(1)
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := indexDirectory(ctx, components.Service, path, cfg.Watch.Extensions)
		if err != nil {
			fmt.Printf("Indexing directory failed: %v\n", err)
			os.Exit(1)
		}
		if err := components.Service.SaveIndex(ctx); err != nil {
			fmt.Printf("Saving index failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d file(s) from %s\n", n, path)
		return
	}
	doc, err := components.Service.IndexFile(ctx, path)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	if err := components.Service.SaveIndex(ctx); err != nil {
		fmt.Printf("Saving index failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document indexed successfully: %s\n", doc.ID)
}

// indexDirectory walks root and indexes every regular file matching exts
// (empty exts = all files). Returns the number of files indexed.
func indexDirectory(ctx context.Context, svc *retrieval.Service, root string, exts []string) (int, error) {
	matches := func(path string) bool {
		if len(exts) == 0 {
			return true
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range exts {
			if strings.ToLower(e) == ext {
				return true
			}
		}
		return false
	}
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !matches(path) {
			return nil
		}
		if _, err := svc.IndexFile(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
			return nil
		}
		count++
		return nil
	})
	return count, err
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: shirabe delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if _, err := components.Service.RestoreIndex(ctx); err != nil {
		fmt.Printf("Failed to restore index: %v\n", err)
		os.Exit(1)
	}
	if !components.Service.RemoveDocument(docID) {
		fmt.Printf("Document not found: %s\n", docID)
		os.Exit(1)
	}
	if err := components.Service.SaveIndex(ctx); err != nil {
		fmt.Printf("Saving index failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: shirabe watch <add|remove|list> [path]")
		fmt.Println("  shirabe watch add <path>     Add directory to watch")
		fmt.Println("  shirabe watch remove <path>  Remove directory from watch")
		fmt.Println("  shirabe watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: shirabe watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: shirabe watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store    store.Store
	Embedder embedding.Embedder
	Service  *retrieval.Service
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	var st store.Store
	switch cfg.Storage.Backend {
	case "sqlite":
		sqliteStore, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		st = sqliteStore
	default:
		diskOpts := []store.DiskOption{}
		if logger != nil {
			diskOpts = append(diskOpts, store.WithLogger(logger))
		}
		st = store.NewDiskStore(cfg.Storage.Dir, diskOpts...)
	}

	var embedder embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	default:
		embedder = embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			APIKeyEnv:  cfg.Embedding.APIKeyEnv,
			Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
			Dimensions: cfg.Embedding.Dimensions,
		})
	}
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)
	}

	chunkOpts := []chunker.Option{}
	if cfg.Chunking.MaxTextLen > 0 {
		chunkOpts = append(chunkOpts, chunker.WithMaxTextLen(cfg.Chunking.MaxTextLen))
	}
	if cfg.Chunking.MaxChunks > 0 {
		chunkOpts = append(chunkOpts, chunker.WithMaxChunks(cfg.Chunking.MaxChunks))
	}
	chk := chunker.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap, chunkOpts...)

	svcOpts := []retrieval.Option{
		retrieval.WithExtractor(extract.NewExtractor()),
	}
	if debug && logger != nil {
		svcOpts = append(svcOpts, retrieval.WithLogger(logger))
	}
	if cfg.Chunking.ByParagraph {
		svcOpts = append(svcOpts, retrieval.WithParagraphChunking())
	}
	svc := retrieval.NewService(chk, embedder, st, cfg.Project, svcOpts...)

	return &Components{
		Store:    st,
		Embedder: embedder,
		Service:  svc,
	}, nil
}

func printUsage() {
	fmt.Println(`shirabe - Local semantic retrieval engine

Usage:
  shirabe server [flags]           Start the HTTP server
  shirabe search [flags] <query>   Search indexed passages
  shirabe index [flags] <path>     Index a file or directory
  shirabe delete [flags] <id>      Delete a document
  shirabe status [flags]           Show index status
  shirabe watch <add|remove|list>  Manage watched directories
  shirabe version                  Show version
  shirabe help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/shirabe/config.yaml)
  --debug            Enable debug logging (file events, searches, indexing)

Search Flags:
  --config string          Config file path (for direct mode)
  --server string          Server URL (default: http://localhost:8080). Use empty (--server "") to load the persisted index directly.
  --top-k int              Number of results (0 = config default)
  --min-similarity float   Minimum cosine similarity in [0,1]
  --output string          Output format: text, compact, or json (default: text)

Index Flags:
  --config string    Config file path

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct mode.
  --output string    Output format: text or json (default: text)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  shirabe server
  shirabe search "vector databases"
  shirabe search --top-k 5 embeddings
  shirabe search --output json "query"   # structured JSON for other apps
  shirabe index notes.md
  shirabe index ./docs
  shirabe delete 2f6c0d3a-...
  shirabe status
  shirabe watch add /path/to/docs
  shirabe watch list`)
}
