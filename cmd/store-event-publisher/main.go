package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/baystatus/internal/storeevents"
	"github.com/angelmondragon/baystatus/internal/transport"
	"github.com/angelmondragon/baystatus/pkg/config"
	"github.com/angelmondragon/baystatus/pkg/logger"
)

const serviceName = "store-event-publisher"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})

	_ = godotenv.Load()

	file := flag.String("file", "", "path to a JSON store event frame (\"-\" reads stdin)")
	frame := flag.String("frame", "", "inline JSON store event frame")
	skipValidate := flag.Bool("skip-validate", false, "publish the frame without parsing it first")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	if cfg.Broker.Kind == config.BrokerMemory {
		fmt.Fprintln(os.Stderr, "the memory broker has no remote subscribers; set BAYSTATUS_BROKER_KIND")
		os.Exit(1)
	}

	body, err := readFrame(*file, *frame, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read frame: %v\n", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"broker":      cfg.Broker.Kind,
		"destination": cfg.Broker.Destination,
	})

	if !*skipValidate {
		event, err := storeevents.Parse(body)
		if err != nil {
			logg.Error(ctx, "frame rejected", err)
			os.Exit(1)
		}
		ctx = logg.WithEventID(ctx, event.EventID)
	}

	broker, err := transport.New(ctx, cfg, logg)
	requireResource(ctx, logg, "broker", err)
	defer broker.Close()

	if err := broker.Publish(ctx, cfg.Broker.Destination, body); err != nil {
		logg.Error(ctx, "publish failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "store event published")
}

// readFrame picks the inline frame, then the file, then stdin for "-".
func readFrame(file, inline string, stdin io.Reader) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case file == "-":
		return io.ReadAll(stdin)
	case file != "":
		return os.ReadFile(file)
	default:
		return nil, fmt.Errorf("one of -file or -frame is required")
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
