package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/config"
	"github.com/forPelevin/shortsmith/internal/httpapi"
	"github.com/forPelevin/shortsmith/internal/logging"
	"github.com/forPelevin/shortsmith/internal/pipeline"
)

type runCtx struct {
	ctx context.Context
	app *pipeline.App
	log *zap.Logger
}

// output is {success, error} plus the operation's payload.
type output struct {
	apperr.Result
	Data any `json:"data,omitempty"`
}

// execute wires the app from the environment, runs fn and prints its
// result envelope as JSON on stdout.
func execute(cmd *cobra.Command, fn func(*runCtx) (any, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	x, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = x.log.Sync() }()
	defer x.app.Close()

	data, err := fn(x)
	out := output{Result: apperr.Envelope(err)}
	if err == nil {
		out.Data = data
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		return errors.Join(err, encErr)
	}
	return err
}

func setup(ctx context.Context, cmd *cobra.Command) (*runCtx, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, apperr.Config("config", "%v", err)
	}
	app, err := pipeline.Build(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &runCtx{ctx: ctx, app: app, log: log}, nil
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	x, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = x.log.Sync() }()
	defer x.app.Close()

	cfg := x.app.Config
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	sweeper, err := pipeline.StartSweeper(cfg.CleanupCron, cfg.SourceVideoTTL, x.app.Service, x.log.Named("sweeper"))
	if err != nil {
		return apperr.Config("config", "%v", err)
	}
	if sweeper != nil {
		defer sweeper.Stop()
	}

	e := httpapi.New(x.app.Service, httpapi.Options{UploadsDir: cfg.UploadsDir, AllowedOrigins: cfg.HTTPOrigins}, x.log.Named("http"))
	return httpapi.Serve(ctx, e, addr, x.log)
}

// target splits a positional argument into a video id or a url.
func target(arg string) (id, url string) {
	arg = strings.TrimSpace(arg)
	// ids never contain dots or slashes
	if strings.ContainsAny(arg, "./") {
		return "", arg
	}
	return arg, ""
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, apperr.InvalidInput("index", "invalid highlight index %q", s)
	}
	return n, nil
}

func parseSeconds(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, apperr.InvalidInput(name, "invalid seconds %q", s)
	}
	return v, nil
}
