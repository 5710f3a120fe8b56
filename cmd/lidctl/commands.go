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
	"strings"
	"text/tabwriter"

	"github.com/MrWong99/lidroute/internal/app"
	"github.com/MrWong99/lidroute/internal/config"
	"github.com/MrWong99/lidroute/internal/langid"
	"github.com/MrWong99/lidroute/internal/lexstore"
	"github.com/MrWong99/lidroute/internal/lexstore/file"
	"github.com/MrWong99/lidroute/internal/lexstore/postgres"
	redisstore "github.com/MrWong99/lidroute/internal/lexstore/redis"
	"github.com/MrWong99/lidroute/internal/validation"
	"github.com/MrWong99/lidroute/pkg/types"
)

// stdout is swapped in tests.
var stdout io.Writer = os.Stdout

// loadConfig reads the config file. A missing file yields the defaults so
// the routing commands work without any setup.
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("config file not found, using defaults", "path", g.Config)
		return config.LoadFromReader(strings.NewReader(""))
	}
	return cfg, err
}

// newApp builds an application for offline use. The HTTP server is never
// started.
func (g *Globals) newApp(ctx context.Context) (*app.App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	return app.New(ctx, cfg, app.WithVersion(version))
}

// ── route ─────────────────────────────────────────────────────────────────────

// RouteCmd routes each argument, or each line of stdin when no argument is
// given.
type RouteCmd struct {
	Text []string `arg:"" optional:"" help:"Texts to route; reads lines from stdin when empty"`
}

func (c *RouteCmd) Run(ctx context.Context, g *Globals) error {
	texts := c.Text
	if len(texts) == 0 {
		var err error
		if texts, err = readLines(os.Stdin); err != nil {
			return err
		}
	}
	if len(texts) == 0 {
		return errors.New("no input text")
	}

	a, err := g.newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(context.Background())

	results, err := a.Router().ProcessBatch(ctx, texts)
	if g.JSON {
		enc := json.NewEncoder(stdout)
		for _, r := range results {
			if encErr := enc.Encode(r); encErr != nil {
				return encErr
			}
		}
		return err
	}
	printResults(stdout, results)
	return err
}

func printResults(w io.Writer, results []types.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LANG\tCONF\tROUTE\tSTATUS\tCLEANED")
	for _, r := range results {
		status := r.Status
		if r.Failure != nil {
			status += " (" + r.Failure.Message + ")"
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\n", r.LangCode, r.Confidence, r.RouteKey, status, r.CleanedText)
	}
	tw.Flush()
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return out, nil
}

// ── inspect ───────────────────────────────────────────────────────────────────

// InspectCmd shows the per-token lexicon report for one text.
type InspectCmd struct {
	Lang string `name:"lang" short:"l" help:"Pipeline to use; detected when empty"`
	Text string `arg:"" help:"Text to inspect"`
}

func (c *InspectCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(context.Background())

	code, cleaned, report := a.Router().Inspect(ctx, c.Text, c.Lang)
	if g.JSON {
		return json.NewEncoder(stdout).Encode(map[string]any{
			"lang_code":    code,
			"cleaned_text": cleaned,
			"tokens":       report,
		})
	}
	printReport(stdout, code, cleaned, report)
	return nil
}

func printReport(w io.Writer, code, cleaned string, report []validation.TokenReport) {
	fmt.Fprintf(w, "pipeline: %s\ncleaned:  %s\n\n", code, cleaned)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tKNOWN\tSUGGESTIONS\tCLOSEST")
	for _, t := range report {
		closest := ""
		if t.Closest != "" {
			closest = fmt.Sprintf("%s (%.2f)", t.Closest, t.Similarity)
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", t.Token, t.Known, strings.Join(t.Suggestions, ","), closest)
	}
	tw.Flush()
}

// ── languages ─────────────────────────────────────────────────────────────────

// LanguagesCmd lists the supported languages.
type LanguagesCmd struct{}

func (c *LanguagesCmd) Run(g *Globals) error {
	langs := langid.Languages()
	if g.JSON {
		return json.NewEncoder(stdout).Encode(langs)
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tROUTE")
	for _, l := range langs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Code, l.Name, l.RouteKey)
	}
	return tw.Flush()
}

// ── lexicon ───────────────────────────────────────────────────────────────────

// MigrateCmd creates the PostgreSQL schema.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Lexicon.PostgresDSN == "" {
		return errors.New("lexicon.postgres_dsn is not configured")
	}
	store, err := postgres.Open(ctx, cfg.Lexicon.PostgresDSN)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "postgres: schema up to date")
	return nil
}

// SeedCmd copies overlays into every configured store.
type SeedCmd struct {
	File string `name:"file" short:"f" help:"YAML lexicon file to seed from; the built-in tables when empty" type:"existingfile"`
}

func (c *SeedCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	overlays, err := c.overlays(ctx)
	if err != nil {
		return err
	}

	seeded := 0
	if dsn := cfg.Lexicon.PostgresDSN; dsn != "" {
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		if err := store.Seed(ctx, overlays); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "postgres: seeded %v\n", lexstore.Codes(overlays))
		seeded++
	}
	if r := cfg.Lexicon.Redis; r != nil {
		store, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
		})
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Seed(ctx, overlays); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "redis: seeded %v\n", lexstore.Codes(overlays))
		seeded++
	}
	if seeded == 0 {
		return errors.New("no lexicon store configured; set lexicon.postgres_dsn or lexicon.redis")
	}
	return nil
}

func (c *SeedCmd) overlays(ctx context.Context) (map[string]validation.Overlay, error) {
	if c.File == "" {
		return lexstore.FromRegistry(validation.DefaultRegistry()), nil
	}
	return file.New(c.File).Load(ctx)
}

// ExportCmd writes the built-in tables in the lexicon file format.
type ExportCmd struct{}

func (c *ExportCmd) Run() error {
	return file.Write(stdout, lexstore.FromRegistry(validation.DefaultRegistry()))
}

// ── version ───────────────────────────────────────────────────────────────────

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "lidctl %s\n", version)
	return nil
}
