// Command convlogd runs the conversation-logging listeners against an
// in-process bus.
//
// Usage:
//
//	convlogd -config convlog.yaml
//
// Settings come from the config file, then any CONVLOG_* environment
// variables (a .env file in the working directory is loaded first).
//
// The only event source inside the binary is the context dispatch queue,
// which publishes INPUT notifications. OUTPUT and SCORING notifications
// come from whatever publishes to the bus in a larger deployment; see
// examples/scoring for correlation end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "convlog.yaml", "path to a YAML or JSON config file")
	requestSchedule := flag.String("request-schedule", "", "cron spec for issuing sample context requests (empty disables)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options{configPath: *configPath, requestSchedule: *requestSchedule}); err != nil {
		fmt.Fprintln(os.Stderr, "convlogd:", err)
		os.Exit(1)
	}
}

type options struct {
	configPath      string
	requestSchedule string
}

func newLogger(level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
