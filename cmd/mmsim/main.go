package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"mm_sim/internal/app"
	"mm_sim/internal/engine"
	"mm_sim/internal/service"
	"mm_sim/internal/strategy"

	"github.com/shopspring/decimal"

	_ "net/http/pprof" // For pprof profiling
)

const usage = `usage: mmsim <command> [flags]

commands:
  run     run simulations and print a summary
  runs    list stored runs
  serve   start the HTTP API and live stream
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = runCmd(args)
	case "runs":
		err = runsCmd(args)
	case "serve":
		err = serveCmd(args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		slog.Error("❌ Command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func bootstrap(configPath string, withStream bool) (*app.Bootstrap, error) {
	b := app.NewBootstrap()
	if err := b.Initialize(configPath, withStream); err != nil {
		return nil, fmt.Errorf("bootstrapping failed: %w", err)
	}
	return b, nil
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", app.DefaultConfigPath, "config file")
	name := fs.String("strategy", "", "strategy name ("+strings.Join(strategy.Names(), ", ")+")")
	params := fs.String("params", "", `strategy params as JSON, e.g. '{"short":3,"long":5}'`)
	intervals := fs.Int("intervals", 0, "number of intervals (0 = config)")
	seed := fs.Uint64("seed", 0, "random seed (0 = config or time)")
	count := fs.Int("n", 1, "number of runs")
	workers := fs.Int("workers", 4, "concurrent runs")
	export := fs.Bool("export", false, "write ledger CSV and equity chart into the report dir")
	reportDir := fs.String("report", "", "report dir (default from config, implies -export)")
	fs.Parse(args)

	b, err := bootstrap(*configPath, false)
	if err != nil {
		return err
	}
	defer b.Close()

	req := service.RunRequest{Strategy: *name, Intervals: *intervals, Seed: *seed}
	if *params != "" {
		if err := json.Unmarshal([]byte(*params), &req.Params); err != nil {
			return fmt.Errorf("parse -params: %w", err)
		}
	}

	reqs := make([]service.RunRequest, *count)
	for i := range reqs {
		reqs[i] = req
		if req.Seed != 0 {
			reqs[i].Seed = req.Seed + uint64(i)*3
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := b.Service.RunBatch(ctx, reqs, *workers)

	dir := *reportDir
	if dir == "" && *export {
		dir = b.Config.Report.Dir
	}
	printSummary(results)
	for _, res := range results {
		if res == nil || dir == "" {
			continue
		}
		csvPath, chartPath, rerr := service.ExportReports(res, dir)
		if rerr != nil {
			slog.Error("Failed to export reports", slog.String("run_id", res.ID), slog.Any("error", rerr))
			continue
		}
		fmt.Printf("report %s: %s, %s\n", res.ID, csvPath, chartPath)
	}
	return err
}

func printSummary(results []*engine.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTRATEGY\tINTERVALS\tCASH\tHOLDING\tMARK-TO-MARKET\tPROFIT\tWARNINGS")
	for _, res := range results {
		if res == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%s\t%d\n",
			res.ID[:8], res.Strategy, res.Intervals,
			res.FinalCash.StringFixed(2), res.FinalHolding,
			res.MarkToMarket.StringFixed(2), decimal.Sum(decimal.Zero, res.Profit...).StringFixed(2),
			res.Warnings+res.Clamps)
	}
	w.Flush()
}

func runsCmd(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	configPath := fs.String("config", app.DefaultConfigPath, "config file")
	del := fs.String("delete", "", "delete the run with this id")
	fs.Parse(args)

	b, err := bootstrap(*configPath, false)
	if err != nil {
		return err
	}
	defer b.Close()

	if *del != "" {
		if err := b.Storage.DeleteRun(*del); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", *del)
		return nil
	}

	runs, err := b.Storage.ListRuns()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSTRATEGY\tINTERVALS\tMARK-TO-MARKET\tLOG")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Format(time.DateTime), r.Strategy, r.Intervals,
			r.MarkToMarket.StringFixed(2), r.LogPath)
	}
	return w.Flush()
}

func serveCmd(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", app.DefaultConfigPath, "config file")
	addr := fs.String("addr", "", "listen address (default from config)")
	pprof := fs.Bool("pprof", false, "serve pprof on localhost:6060")
	fs.Parse(args)

	b, err := bootstrap(*configPath, true)
	if err != nil {
		return err
	}
	defer b.Close()

	if *pprof {
		go func() {
			// Localhost only for security
			slog.Info("🕵️ Pprof server started on localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b.StartHub(ctx)

	listen := b.Config.Server.Addr
	if *addr != "" {
		listen = *addr
	}
	srv := &http.Server{
		Addr:              listen,
		Handler:           b.Server(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("✨ API server listening", slog.String("addr", listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("👋 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
