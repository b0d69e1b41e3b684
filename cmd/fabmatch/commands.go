package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/fabmatch"
	"github.com/poiesic/fabmatch/ingestion"
	"github.com/poiesic/fabmatch/recommend"
)

// loadConfig reads the configuration file and applies command line overrides.
func loadConfig(c *cli.Context) (*fabmatch.Config, error) {
	cfg, err := fabmatch.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if db := c.String("db"); db != "" {
		cfg.DBPath = db
	}
	if host := c.String("host"); host != "" {
		cfg.AI.Host = host
		cfg.AI.EmbeddingHost = ""
		cfg.AI.GeneratorHost = ""
	}
	if c.IsSet("file") {
		cfg.EquipmentFile = c.String("file")
	}
	if c.IsSet("batch-size") {
		cfg.Ingestion.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("embedding-model") {
		cfg.AI.EmbeddingModel = c.String("embedding-model")
	}
	return cfg, nil
}

func openService(c *cli.Context) (*fabmatch.Service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	svc, err := fabmatch.NewService(cfg, fabmatch.WithProgress(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func seedCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Seed(ctx, ingestion.SeedOptions{
		Force: c.Bool("force"),
		Prune: c.Bool("prune"),
	})
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	if result.Skipped {
		fmt.Fprintln(c.App.Writer, "Data file unchanged; nothing to do (use --force to reload).")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Loaded %d, embedded %d, removed %d equipment.\n",
		result.Loaded, result.Embedded, result.Removed)
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.Reembed(ctx)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Re-embedded %d equipment.\n", n)
	return nil
}

func askCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("query is required")
	}

	ctx, stop := signalContext(c)
	defer stop()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	resp, err := svc.Ask(ctx, recommend.Request{
		Query:           query,
		TopK:            c.Int("top-k"),
		UserInstitution: c.String("institution"),
	})
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printResponse(c.App.Writer, resp)
	return nil
}

func chatCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()
	if err := svc.Start(ctx); err != nil {
		return err
	}

	return runChat(ctx, svc, c.App.Reader, c.App.Writer, recommend.Request{
		TopK:            c.Int("top-k"),
		UserInstitution: c.String("institution"),
	})
}

// streamer is the part of the service used by the chat loop.
type streamer interface {
	Stream(ctx context.Context, req recommend.Request) (<-chan recommend.Event, error)
}

// runChat reads queries line by line and streams each answer. The session
// carries over between lines until "/new".
func runChat(ctx context.Context, svc streamer, in io.Reader, out io.Writer, base recommend.Request) error {
	printBanner(out)
	scanner := bufio.NewScanner(in)
	sessionID := ""
	for {
		fmt.Fprint(out, promptColor.Sprint("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/new":
			sessionID = ""
			fmt.Fprintln(out, infoColor.Sprint("Started a new conversation."))
			continue
		}

		req := base
		req.Query = line
		req.SessionID = sessionID
		events, err := svc.Stream(ctx, req)
		if err != nil {
			if code := recommend.Code(err); code != "" {
				fmt.Fprintln(out, errorColor.Sprintf("[%s] %v", code, err))
				continue
			}
			return err
		}
		sessionID = printStream(out, events)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func policyCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	mgr := svc.Policy()
	if mgr == nil {
		fmt.Fprintln(c.App.Writer, "No policy directory configured.")
		return nil
	}
	settings, err := mgr.Settings()
	if err != nil {
		slog.Warn("policy settings unavailable", "err", err)
	}
	printPolicy(c.App.Writer, mgr.Dir(), mgr.Tables().Institutions(), settings)
	return nil
}

func statusCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	stats, err := svc.Stats(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Equipment: %d (embedded %d, indexed %d)\n", stats.Equipment, stats.Embedded, stats.Indexed)
	if stats.PolicyDir != "" {
		fmt.Fprintf(c.App.Writer, "Policy:    %s (%d institutions)\n", stats.PolicyDir, len(stats.Institutions))
	}
	for _, cp := range stats.Checkpoints {
		fmt.Fprintf(c.App.Writer, "Last %-6s %s (%d records)\n", cp.Name+":", cp.UpdatedAt.Local().Format(time.DateTime), cp.Count)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
