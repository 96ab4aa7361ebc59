package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/pflag"

	"github.com/e164/e164-go/internal/app"
	"github.com/e164/e164-go/internal/config"
	"github.com/e164/e164-go/internal/logger"
)

const (
	exitOK           = 0
	exitStartup      = 1
	exitLookupFailed = 2
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	code, err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "e164: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string, stdout io.Writer) (int, error) {
	fs := pflag.NewFlagSet("e164", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: e164 [flags] <phone-number>\n")
		fs.PrintDefaults()
	}
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK, nil
		}
		return exitStartup, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitStartup, fmt.Errorf("expected exactly one phone number, got %d arguments", fs.NArg())
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return exitStartup, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return exitStartup, fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := app.NewRunner(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize runner", "error", err.Error())
		return exitStartup, err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.ErrorObj("runner close failed", "error", err.Error())
		}
	}()

	res := runner.Lookup(ctx, fs.Arg(0))

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return exitStartup, fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(stdout, string(out))

	if !res.IsSuccess() {
		return exitLookupFailed, nil
	}
	return exitOK, nil
}
