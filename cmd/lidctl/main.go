// Command lidctl is the operator CLI for lidroute. It routes text offline,
// inspects pipelines and manages the external lexicon stores.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// CLI defines the command-line interface for lidctl.
type CLI struct {
	Globals

	Route     RouteCmd     `cmd:"" help:"Route text through the configured classifier and pipelines"`
	Inspect   InspectCmd   `cmd:"" help:"Show how a pipeline cleans text, token by token"`
	Languages LanguagesCmd `cmd:"" help:"List supported languages and route keys"`
	Lexicon   LexiconGroup `cmd:"" help:"Manage external lexicon stores"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// Globals are flags shared by every command.
type Globals struct {
	Config string `name:"config" short:"c" help:"Path to the YAML configuration file" default:"config.yaml" type:"path"`
	JSON   bool   `name:"json" help:"Print machine-readable JSON"`
}

// LexiconGroup contains lexicon store operations.
type LexiconGroup struct {
	Migrate MigrateCmd `cmd:"" help:"Create the lexicon tables in PostgreSQL"`
	Seed    SeedCmd    `cmd:"" help:"Copy lexicon overlays into PostgreSQL and Redis"`
	Export  ExportCmd  `cmd:"" help:"Write the built-in tables as a YAML lexicon file"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("lidctl"),
		kong.Description("Operator CLI for the lidroute language router"),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&cli.Globals)
	stop()
	kctx.FatalIfErrorf(err)
}
