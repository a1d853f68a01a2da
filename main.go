package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/replaydeck/pokerpipe/internal/applog"
	"github.com/replaydeck/pokerpipe/internal/config"
	"github.com/replaydeck/pokerpipe/internal/identity"
	"github.com/replaydeck/pokerpipe/internal/ingest"
	"github.com/replaydeck/pokerpipe/internal/persistence"
	"github.com/replaydeck/pokerpipe/internal/replay"
	"github.com/replaydeck/pokerpipe/internal/watcher"
)

var (
	version   = "dev"
	commit    = "local"
	buildDate = "unknown"
)

const usage = `pokerpipe - poker replay ingestion and identity resolution

Usage:
  pokerpipe ingest <file.json|directory>   Ingest replay document(s)
  pokerpipe watch                          Watch the replay directory and auto-ingest
  pokerpipe stats [raw]                    Player statistics (enriched by default)
  pokerpipe summary                        Database row counts
  pokerpipe load-mappings [file]           Full-sync player mappings from YAML
  pokerpipe unmapped                       List players without canonical mappings
  pokerpipe export-players [file]          Generate a mapping YAML template
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		pterm.Error.Printfln("load config: %v", err)
		os.Exit(1)
	}
	applog.Init(cfg.Debug)

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	store, err := persistence.NewStore(cfg.DatabasePath)
	if err != nil {
		pterm.Error.Printfln("open store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, store, os.Args[1:]); err != nil {
		pterm.Error.Printfln("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, store *persistence.Store, args []string) error {
	in := ingest.NewIngestor(store)
	resolver := identity.NewResolver(store)

	switch args[0] {
	case "ingest":
		if len(args) < 2 {
			return fmt.Errorf("usage: pokerpipe ingest <file.json|directory>")
		}
		return runIngest(ctx, in, args[1])

	case "watch":
		return runWatch(ctx, cfg, in)

	case "stats":
		enriched := !(len(args) > 1 && args[1] == "raw")
		return runStats(ctx, store, enriched, cfg.MinSessions)

	case "summary":
		return runSummary(ctx, store)

	case "load-mappings":
		path := cfg.MappingFile
		if len(args) > 1 {
			path = args[1]
		}
		return runLoadMappings(ctx, resolver, path)

	case "unmapped":
		return runUnmapped(ctx, store)

	case "export-players":
		out := ""
		if len(args) > 1 {
			out = args[1]
		}
		return runExportPlayers(ctx, resolver, out)

	case "version":
		pterm.Info.Printfln("pokerpipe %s (%s, built %s)", version, commit, buildDate)
		return nil

	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runIngest(ctx context.Context, in *ingest.Ingestor, target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		stats, err := in.IngestFile(ctx, target)
		if err != nil {
			return err
		}
		printIngestStats(stats)
		return nil
	}

	batch, err := in.IngestDirectory(ctx, target)
	if err != nil {
		return err
	}
	for _, r := range batch.Results {
		if r.Err != nil {
			pterm.Warning.Printfln("%s: %v", r.Path, r.Err)
			continue
		}
		pterm.Success.Printfln("%s: session %s, %d hands", r.Path, r.Stats.SessionID, r.Stats.HandsProcessed)
	}
	pterm.Info.Printfln("ingested %d document(s), %d failed", batch.Succeeded(), batch.Failed())
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config, in *ingest.Ingestor) error {
	rw, err := watcher.NewReplayWatcher(cfg.ReplayDir, watcher.WatcherConfig{
		OnDocument: func(path string) {
			stats, err := in.IngestFile(ctx, path)
			if err != nil {
				pterm.Warning.Printfln("%s: %v", path, err)
				return
			}
			pterm.Success.Printfln("%s: session %s, %d hands", path, stats.SessionID, stats.HandsProcessed)
		},
		OnError: func(err error) {
			pterm.Warning.Printfln("watcher: %v", err)
		},
	})
	if err != nil {
		return err
	}
	if err := rw.Start(); err != nil {
		return err
	}
	defer rw.Stop()

	pterm.Info.Printfln("watching %s (ctrl-c to stop)", cfg.ReplayDir)
	<-ctx.Done()
	return nil
}

func runStats(ctx context.Context, store *persistence.Store, enriched bool, minSessions int) error {
	rows, err := store.PlayerStats(ctx, persistence.PlayerStatsOptions{
		Enriched:    enriched,
		MinSessions: minSessions,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		pterm.Info.Println("no player data yet")
		return nil
	}

	table := pterm.TableData{{"Player", "Sessions", "Hands", "Won", "Profit", "Avg/Hand", "Showdowns"}}
	for _, r := range rows {
		table = append(table, []string{
			r.Name,
			strconv.Itoa(r.SessionsPlayed),
			strconv.Itoa(r.HandsPlayed),
			strconv.Itoa(r.HandsWon),
			formatProfit(r.TotalProfit),
			fmt.Sprintf("%.1f", r.AvgProfitPerHand),
			strconv.Itoa(r.Showdowns),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}

func runSummary(ctx context.Context, store *persistence.Store) error {
	c, err := store.Summary(ctx)
	if err != nil {
		return err
	}
	table := pterm.TableData{
		{"Sessions", strconv.Itoa(c.Sessions)},
		{"Hands", strconv.Itoa(c.Hands)},
		{"Players", strconv.Itoa(c.Players)},
		{"Events", strconv.Itoa(c.Events)},
		{"Canonical players", strconv.Itoa(c.CanonicalPlayers)},
	}
	if err := pterm.DefaultTable.WithData(table).Render(); err != nil {
		return err
	}

	actions, err := store.ActionDistribution(ctx)
	if err != nil {
		return err
	}
	if len(actions) > 0 {
		pterm.Info.Println("action distribution")
		dist := pterm.TableData{{"Action", "Count"}}
		for _, a := range actions {
			dist = append(dist, []string{actionLabel(a.Label), strconv.Itoa(a.Count)})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(dist).Render(); err != nil {
			return err
		}
	}
	return nil
}

func runLoadMappings(ctx context.Context, resolver *identity.Resolver, path string) error {
	stats, err := resolver.LoadMappings(ctx, path)
	if err != nil {
		return err
	}
	if stats.Err != nil {
		pterm.Warning.Printfln("mappings not loaded: %v", stats.Err)
		return nil
	}
	pterm.Success.Printfln("loaded %d canonical player(s), %d alias(es)", stats.CanonicalPlayersAdded, stats.AliasesAdded)
	for _, w := range stats.Warnings {
		pterm.Warning.Println(w)
	}
	return nil
}

func runUnmapped(ctx context.Context, store *persistence.Store) error {
	unmapped, err := store.UnmappedPlayers(ctx)
	if err != nil {
		return err
	}
	if len(unmapped) == 0 {
		pterm.Success.Println("all players are mapped")
		return nil
	}

	table := pterm.TableData{{"Player ID", "Nickname", "Hands"}}
	for _, u := range unmapped {
		table = append(table, []string{u.RawPlayerID, u.Nickname, strconv.Itoa(u.HandsPlayed)})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(table).Render(); err != nil {
		return err
	}
	pterm.Info.Printfln("%d unmapped player(s); edit the mapping file and run load-mappings", len(unmapped))
	return nil
}

func runExportPlayers(ctx context.Context, resolver *identity.Resolver, out string) error {
	template, err := resolver.ExportTemplate(ctx)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Print(template)
		return nil
	}
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", out)
	}
	if err := os.WriteFile(out, []byte(template), 0o644); err != nil {
		return err
	}
	pterm.Success.Printfln("exported player template to %s", out)
	return nil
}

func printIngestStats(stats persistence.IngestStats) {
	table := pterm.TableData{
		{"Session", stats.SessionID},
		{"Hands", strconv.Itoa(stats.HandsProcessed)},
		{"Players", strconv.Itoa(stats.PlayersAdded)},
		{"Events", strconv.Itoa(stats.EventsAdded)},
		{"Results", strconv.Itoa(stats.ResultsAdded)},
	}
	_ = pterm.DefaultTable.WithData(table).Render()
}

func formatProfit(p int64) string {
	if p > 0 {
		return fmt.Sprintf("+%d", p)
	}
	return strconv.FormatInt(p, 10)
}

func actionLabel(rawTag string) string {
	n, err := strconv.Atoi(rawTag)
	if err != nil {
		return rawTag
	}
	return replay.EventType(n).String()
}
