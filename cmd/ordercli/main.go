package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/phenrril/orderdesk/internal/adapters/catalogapi"
	"github.com/phenrril/orderdesk/internal/domain"
)

func main() {
	_ = godotenv.Load()

	var (
		apiURL  = flag.String("api", envOr("ORDERDESK_API", "http://localhost:8080"), "orderdesk API base URL")
		token   = flag.String("token", os.Getenv("ORDERDESK_TOKEN"), "bearer token")
		tenant  = flag.String("tenant", os.Getenv("ORDERDESK_TENANT"), "tenant id")
		form    = flag.String("form", os.Getenv("ORDERDESK_FORM"), "form id orders are submitted through")
		maxProd = flag.Int("max", 0, "max products per order (0 uses the default)")
		restore = flag.String("restore", "", "order id to load for editing")
		timeout = flag.Duration("timeout", 10*time.Second, "API request timeout")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	if strings.TrimSpace(*tenant) == "" || strings.TrimSpace(*form) == "" {
		fmt.Fprintln(os.Stderr, "tenant and form are required (-tenant, -form or ORDERDESK_TENANT, ORDERDESK_FORM)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api := catalogapi.NewClient(*apiURL, catalogapi.StaticToken(*token), *timeout)
	s := newSession(api, *tenant, *form, *maxProd, os.Stdout, logger)
	if *restore != "" {
		if _, err := s.exec(ctx, "restore "+*restore); err != nil {
			logger.Fatal().Err(err).Str("order_id", *restore).Msg("restore order")
		}
	}

	fmt.Println(`orderdesk, type "help" for commands`)
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			break
		}
		quit, err := s.exec(ctx, sc.Text())
		if err != nil {
			if domain.IsAuthFailure(err) {
				logger.Warn().Err(err).Msg("request rejected")
				continue
			}
			fmt.Fprintln(os.Stdout, "error:", err)
		}
		if quit || ctx.Err() != nil {
			break
		}
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
