// Package main provides a CLI command for generating the daily briefing
// export (spec §6). Usage:
//
//	catchup-briefing --recipients a@example.com,b@example.com [--min-priority low] [--hours-back 24] [--include-read] [--format text|html|json]
//
// Actual delivery (email transport) is out of core scope per spec §1;
// this command renders the briefing and writes it to stdout, the way
// cmd/ai/summarize renders its report without owning delivery.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	pgRepo "catchup-feed/internal/infra/adapter/persistence/postgres"
	"catchup-feed/internal/infra/db"
	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/usecase/briefing"
)

// briefingOutput is the JSON output format for a rendered briefing.
type briefingOutput struct {
	Subject    string   `json:"subject"`
	Recipients []string `json:"recipients"`
	ItemCount  int      `json:"item_count"`
	PlainText  string   `json:"plain_text"`
	HTML       string   `json:"html"`
}

func main() {
	var (
		recipients  string
		minPriority string
		hoursBack   int
		includeRead bool
		format      string
	)

	flag.StringVar(&recipients, "recipients", "", "Comma-separated recipient list (required)")
	flag.StringVar(&minPriority, "min-priority", "low", "Minimum priority: none, low, medium, or high")
	flag.IntVar(&hoursBack, "hours-back", 24, "Lookback window in hours")
	flag.BoolVar(&includeRead, "include-read", false, "Include items already marked read")
	flag.StringVar(&format, "format", "text", "Output format: text, html, or json")
	flag.Parse()

	recipientList := splitNonEmpty(recipients)
	if len(recipientList) == 0 {
		fmt.Fprintln(os.Stderr, "Error: --recipients is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: catchup-briefing --recipients a@example.com,b@example.com [--min-priority low] [--hours-back 24] [--include-read] [--format json]")
		os.Exit(1)
	}

	priority := entity.Priority(minPriority)
	if entity.PriorityRank(priority) < 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid --min-priority %q\n", minPriority)
		os.Exit(1)
	}

	logger := initLogger()
	database := db.Open()
	defer func() { _ = database.Close() }()

	items := pgRepo.NewItemRepo(database)
	svc := briefing.New(items, briefing.NewMetrics())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	logger.Info("building briefing",
		slog.Int("recipients", len(recipientList)),
		slog.String("min_priority", minPriority),
		slog.Int("hours_back", hoursBack))

	result, err := svc.Build(ctx, briefing.Request{
		Recipients:  recipientList,
		MinPriority: priority,
		HoursBack:   hoursBack,
		IncludeRead: includeRead,
	}, time.Now())
	if err != nil {
		logger.Error("build briefing failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch format {
	case "json":
		outputJSON(result)
	case "html":
		fmt.Println(result.HTML)
	default:
		fmt.Printf("Subject: %s\n\n", result.Subject)
		fmt.Println(result.PlainText)
	}
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func outputJSON(result *briefing.Briefing) {
	output := briefingOutput{
		Subject:    result.Subject,
		Recipients: result.Recipients,
		ItemCount:  result.ItemCount,
		PlainText:  result.PlainText,
		HTML:       result.HTML,
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}
