package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mediscan-client/internal/conf"
	"mediscan-client/internal/credential"
	"mediscan-client/internal/medicine"
	"mediscan-client/internal/session"
)

var errNotLoggedIn = errors.New("not logged in")

var (
	flagconf  string
	flagdebug bool
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
	flag.BoolVar(&flagdebug, "debug", false, "log every request")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `usage: %s [flags] <command> [args]

commands:
  login <username|email> <password>
  signup <username> <email> <password>
  whoami
  logout
  extract <file>

flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	level := slog.LevelWarn
	if flagdebug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// load config
	cfg, err := conf.Load(flagconf)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// credential 层
	storage, closeStorage, err := newStorage(cfg.Session)
	if err != nil {
		logger.Error("failed to init credential storage", "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	decoder, err := newDecoder(ctx, cfg.Auth)
	if err != nil {
		logger.Error("failed to init token decoder", "error", err)
		os.Exit(1)
	}
	store := credential.NewStore(storage, decoder, credential.WithLogger(logger))

	// session 层
	client, err := session.New(session.Config{
		BaseURL:    cfg.API.BaseURL,
		Headers:    cfg.API.Headers,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Logger:     logger,
	}, store)
	if err != nil {
		logger.Error("failed to init session client", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, client, flag.Args()); err != nil {
		var failure *session.Failure
		if errors.As(err, &failure) {
			fmt.Fprintln(os.Stderr, failure.Message)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		closeStorage()
		os.Exit(1)
	}
}

func run(ctx context.Context, client *session.Client, args []string) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "login":
		if len(args) != 2 {
			return errUsage(cmd)
		}
		ok, err := client.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			return client.LastError()
		}
		fmt.Println("Logged in.")

	case "signup":
		if len(args) != 3 {
			return errUsage(cmd)
		}
		reg, err := client.Register(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Println(reg.Message())

	case "whoami":
		identity := client.Identity(ctx)
		if identity == nil {
			return errNotLoggedIn
		}
		fmt.Println(identity.Subject)

	case "logout":
		if err := client.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Logged out.")

	case "extract":
		if len(args) != 1 {
			return errUsage(cmd)
		}
		result, err := medicine.NewClient(client).ExtractFile(ctx, args[0])
		if err != nil {
			return err
		}
		printExtraction(result)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func printExtraction(result *medicine.ExtractionResult) {
	fmt.Printf("%s (%d of %d matched, %.2fs)\n",
		result.Message, result.TotalMedicinesFound, len(result.Medicines), result.ProcessingTime)
	for _, m := range result.Medicines {
		if m.Matched() {
			fmt.Printf("  %-24s -> %s (%.0f%%)\n", m.OriginalName, m.MatchedName, m.ConfidenceScore)
		} else {
			fmt.Printf("  %-24s -> no match\n", m.OriginalName)
		}
	}
}

func errUsage(cmd string) error {
	return fmt.Errorf("wrong number of arguments for %s, see -h", cmd)
}

func newStorage(cfg conf.Session) (credential.Storage, func(), error) {
	switch cfg.Store {
	case conf.StoreMemory:
		return credential.NewMemoryStorage(), func() {}, nil
	case conf.StoreSQLite:
		s, err := credential.NewSQLiteStorage(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		s, err := credential.NewFileStorage(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

func newDecoder(ctx context.Context, cfg conf.Auth) (credential.Decoder, error) {
	if cfg.Issuer == "" {
		return credential.NewJWTDecoder(), nil
	}
	decoder, err := credential.NewOIDCDecoder(ctx, cfg.Issuer, cfg.ClientID)
	if err != nil {
		return nil, err
	}
	return decoder, nil
}
