package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-interpreter/internal/category"
	"github.com/zombor/receipt-interpreter/internal/engine"
	"github.com/zombor/receipt-interpreter/internal/receipt"
	"github.com/zombor/receipt-interpreter/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// config holds the flags shared by every subcommand
type config struct {
	logLevel        *string
	dbPath          *string
	keywordsPath    *string
	strongThreshold *int
	usageCap        *int
	minTokenLen     *int
	maxTokens       *int
	scannerType     *string
	anthropicKey    *string
	anthropicModel  *string
	anthropicURL    *string
	geminiKey       *string
	geminiModel     *string
	ollamaURL       *string
	ollamaModel     *string
	remoteTimeout   *time.Duration
	maxImageBytes   *int
}

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	rootFlags := ff.NewFlagSet("receipt-interpreter")
	cfg := config{
		logLevel:        rootFlags.StringLong("log-level", "info", "Log level: debug, info, warn or error"),
		dbPath:          rootFlags.StringLong("db", "receipt-interpreter.db", "Database file path"),
		keywordsPath:    rootFlags.StringLong("keywords", "", "YAML keyword table replacing the built-in one (optional)"),
		strongThreshold: rootFlags.IntLong("strong-threshold", 20, "Category score at which a match is strong"),
		usageCap:        rootFlags.IntLong("usage-cap", 5, "Maximum usage reinforcement of a learned keyword"),
		minTokenLen:     rootFlags.IntLong("min-token-len", 3, "Shortest merchant token that is learned"),
		maxTokens:       rootFlags.IntLong("max-learned-tokens", 3, "Tokens learned per confirmed merchant"),
		scannerType:     rootFlags.StringLong("scanner", "anthropic", "Remote scanner: 'anthropic', 'gemini' or 'ollama'"),
		anthropicKey:    rootFlags.StringLong("anthropic-key", "", "Anthropic API key (or set ANTHROPIC_API_KEY env var)"),
		anthropicModel:  rootFlags.StringLong("anthropic-model", "claude-sonnet-4-5", "Anthropic model name"),
		anthropicURL:    rootFlags.StringLong("anthropic-url", "https://api.anthropic.com", "Anthropic API base URL"),
		geminiKey:       rootFlags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)"),
		geminiModel:     rootFlags.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name"),
		ollamaURL:       rootFlags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL"),
		ollamaModel:     rootFlags.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2.5vl, llama3.2-vision)"),
		remoteTimeout:   rootFlags.DurationLong("remote-timeout", 30*time.Second, "Timeout of one remote scan"),
		maxImageBytes:   rootFlags.IntLong("max-image-bytes", 4<<20, "Largest encoded page sent to the remote scanner"),
	}
	_ = rootFlags.StringLong("config", "", "Config file (optional)")
	showVersion := rootFlags.BoolLong("version", "Show version information")

	serveFlags := ff.NewFlagSet("serve").SetParent(rootFlags)
	var (
		port        = serveFlags.IntLong("port", 8080, "HTTP server port")
		storagePath = serveFlags.StringLong("storage", "./receipts", "Storage directory path")
		authUser    = serveFlags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = serveFlags.StringLong("auth-pass", "", "Basic auth password (optional)")
	)
	serveCmd := &ff.Command{
		Name:      "serve",
		Usage:     "receipt-interpreter serve [FLAGS]",
		ShortHelp: "run the HTTP API",
		Flags:     serveFlags,
		Exec: func(ctx context.Context, args []string) error {
			return serve(ctx, cfg, *port, *storagePath, receipt.BasicAuth{Username: *authUser, Password: *authPass})
		},
	}

	scanFlags := ff.NewFlagSet("scan").SetParent(rootFlags)
	var (
		textFile = scanFlags.StringLong("text-file", "", "File holding the recognized receipt text")
		images   = scanFlags.StringLong("images", "", "Comma-separated page images or PDFs for the remote scanner")
	)
	scanCmd := &ff.Command{
		Name:      "scan",
		Usage:     "receipt-interpreter scan --text-file FILE [--images a.jpg,b.pdf]",
		ShortHelp: "interpret one receipt and print the result as JSON",
		Flags:     scanFlags,
		Exec: func(ctx context.Context, args []string) error {
			return scan(ctx, cfg, *textFile, *images)
		},
	}

	rootCmd := &ff.Command{
		Name:        "receipt-interpreter",
		Usage:       "receipt-interpreter [FLAGS] <SUBCOMMAND> ...",
		Flags:       rootFlags,
		Subcommands: []*ff.Command{serveCmd, scanCmd},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.Parse(os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_INTERPRETER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	)
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(rootCmd.GetSelected()))
		if !errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	setupLogging(*cfg.logLevel)

	if err := rootCmd.Run(ctx); err != nil {
		if errors.Is(err, ff.ErrNoExec) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(rootCmd))
			os.Exit(1)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// newScanner returns nil when the selected backend has no credential, which
// keeps every receipt on the local path.
func newScanner(cfg config) (scanning.Scanner, error) {
	switch *cfg.scannerType {
	case "anthropic":
		apiKey := *cfg.anthropicKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			slog.Warn("No Anthropic API key, remote scanning disabled. Set --anthropic-key flag or ANTHROPIC_API_KEY environment variable")
			return nil, nil
		}
		slog.Info("Initializing Anthropic scanner...", "model", *cfg.anthropicModel)
		return scanning.NewAnthropic(scanning.AnthropicConfig{
			APIKey:        apiKey,
			Model:         *cfg.anthropicModel,
			BaseURL:       *cfg.anthropicURL,
			Timeout:       *cfg.remoteTimeout,
			MaxImageBytes: *cfg.maxImageBytes,
		})
	case "gemini":
		apiKey := *cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Warn("No Gemini API key, remote scanning disabled. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			return nil, nil
		}
		slog.Info("Initializing Gemini scanner...", "model", *cfg.geminiModel)
		return scanning.NewGemini(apiKey, *cfg.geminiModel, *cfg.maxImageBytes)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *cfg.ollamaURL, "model", *cfg.ollamaModel)
		return scanning.NewOllama(*cfg.ollamaURL, *cfg.ollamaModel, *cfg.remoteTimeout, *cfg.maxImageBytes)
	default:
		return nil, fmt.Errorf("invalid scanner type %q, valid: anthropic, gemini or ollama", *cfg.scannerType)
	}
}

func newMatcher(cfg config) (*category.Matcher, error) {
	keywords := category.DefaultKeywordStore()
	if *cfg.keywordsPath != "" {
		var err error
		keywords, err = category.LoadKeywordStore(*cfg.keywordsPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded keyword table", "path", *cfg.keywordsPath, "categories", len(keywords.Categories()))
	}
	return category.NewMatcher(keywords, category.MatcherConfig{
		StrongThreshold: *cfg.strongThreshold,
		UsageCap:        *cfg.usageCap,
	}), nil
}

// app is the wiring shared by serve and scan
type app struct {
	engine  *engine.Engine
	learned *category.BoltStore
	learner *category.Learner
	close   func()
}

func newApp(cfg config) (*app, *receipt.BoltDB, error) {
	slog.Info("Initializing database...", "path", *cfg.dbPath)
	bolt, err := receipt.OpenBolt(*cfg.dbPath)
	if err != nil {
		return nil, nil, err
	}

	db, err := receipt.NewBoltDB(bolt)
	if err != nil {
		bolt.Close()
		return nil, nil, err
	}
	learned, err := category.NewBoltStore(bolt)
	if err != nil {
		bolt.Close()
		return nil, nil, err
	}

	matcher, err := newMatcher(cfg)
	if err != nil {
		bolt.Close()
		return nil, nil, err
	}

	scanner, err := newScanner(cfg)
	if err != nil {
		bolt.Close()
		return nil, nil, err
	}

	a := &app{
		engine:  engine.New(matcher, learned, scanner, *cfg.remoteTimeout),
		learned: learned,
		learner: category.NewLearner(learned, category.LearnerConfig{
			MinTokenLength: *cfg.minTokenLen,
			MaxTokens:      *cfg.maxTokens,
		}),
		close: func() {
			if scanner != nil {
				scanner.Close()
			}
			bolt.Close()
		},
	}
	return a, db, nil
}

func serve(ctx context.Context, cfg config, port int, storagePath string, basicAuth receipt.BasicAuth) error {
	a, db, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(storagePath)
	if err != nil {
		return err
	}

	service := receipt.NewService(db, a.engine, a.learner, a.learned, store)
	server := receipt.NewServer(service, basicAuth)

	addr := fmt.Sprintf(":%d", port)
	errc := make(chan error, 1)
	go func() {
		errc <- server.Start(addr)
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if basicAuth.Username != "" || basicAuth.Password != "" {
		slog.Info("Basic auth enabled", "user", basicAuth.Username)
	}

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("Shutting down...")
		return nil
	}
}

func scan(ctx context.Context, cfg config, textFile, images string) error {
	var input engine.Input
	if textFile != "" {
		text, err := os.ReadFile(textFile)
		if err != nil {
			return fmt.Errorf("reading text file: %w", err)
		}
		input.Text = string(text)
	}
	for _, path := range strings.Split(images, ",") {
		if path = strings.TrimSpace(path); path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}
		input.Pages = append(input.Pages, scanning.Page{
			Data:        data,
			ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		})
	}
	if input.Text == "" && len(input.Pages) == 0 {
		return errors.New("--text-file or --images is required")
	}

	a, _, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	result := a.engine.Interpret(ctx, input)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
