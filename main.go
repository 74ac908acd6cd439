package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atmotube-export/internal/config"
	"atmotube-export/internal/export"
	s3mirror "atmotube-export/internal/export/infrastructure/s3"
	"atmotube-export/internal/notify"
	"atmotube-export/internal/observability/metrics"
	"atmotube-export/internal/telemetry/application"
	"atmotube-export/internal/telemetry/infrastructure/atmotube"
	"atmotube-export/internal/telemetry/interfaces/console"
)

func main() {
	configPath := flag.String("config", getenvDefault("ATMOTUBE_CONFIG", config.DefaultPath), "path to config file (json or yaml)")
	startDate := flag.String(console.StartDateFlagName, "", "start date YYYY-MM-DD; empty or missing value uses start_date from config")
	if err := flag.CommandLine.Parse(console.NormalizeArgs(os.Args[1:])); err != nil {
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startFlag := console.StartDateFlag{Value: *startDate}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == console.StartDateFlagName {
			startFlag.Set = true
		}
	})
	start, err := console.ResolveStartDate(startFlag, cfg.StartDate, console.NewPrompter(os.Stdin, os.Stdout))
	if err != nil {
		logger.Fatalf("start date error: %v", err)
	}

	client, err := atmotube.NewClient(cfg.URL, cfg.APIKey)
	if err != nil {
		logger.Fatalf("atmotube client error: %v", err)
	}
	writers, err := export.WritersFor(cfg.Formats)
	if err != nil {
		logger.Fatalf("export formats error: %v", err)
	}
	exporter, err := export.NewExporter(cfg.OutputRoot, writers, logger)
	if err != nil {
		logger.Fatalf("exporter error: %v", err)
	}

	recorder := metrics.New()
	opts := []application.Option{application.WithRecorder(recorder)}

	if cfg.Storage.Enabled() {
		mirror, err := s3mirror.NewMirror(s3mirror.Options{
			Endpoint:      cfg.Storage.Endpoint,
			Bucket:        cfg.Storage.Bucket,
			Prefix:        cfg.Storage.Prefix,
			Region:        cfg.Storage.Region,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			AccessKeyFile: cfg.Storage.AccessKeyFile,
			SecretKeyFile: cfg.Storage.SecretKeyFile,
		})
		if err != nil {
			logger.Fatalf("s3 mirror error: %v", err)
		}
		opts = append(opts, application.WithMirror(mirror))
	}

	var notifiers []application.Notifier
	if cfg.Notify.WebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(cfg.Notify.WebhookURL, logger)
		if err != nil {
			logger.Fatalf("webhook notifier error: %v", err)
		}
		notifiers = append(notifiers, webhook)
	}
	if cfg.Notify.MQTT.Broker != "" {
		mqttNotifier, err := notify.NewMQTTNotifier(notify.MQTTOptions{
			Broker:   cfg.Notify.MQTT.Broker,
			Topic:    cfg.Notify.MQTT.Topic,
			ClientID: cfg.Notify.MQTT.ClientID,
			Username: cfg.Notify.MQTT.Username,
			Password: cfg.Notify.MQTT.Password,
		}, logger)
		if err != nil {
			logger.Printf("mqtt notifier disabled: %v", err)
		} else {
			defer mqttNotifier.Close()
			notifiers = append(notifiers, mqttNotifier)
		}
	}
	if len(notifiers) > 0 {
		opts = append(opts, application.WithNotifier(notify.NewMultiNotifier(notifiers...)))
	}

	service, err := application.NewExportService(client, exporter, os.Stdout, logger, opts...)
	if err != nil {
		logger.Fatalf("export service error: %v", err)
	}

	window := service.Window(start)
	summary, runErr := service.Run(ctx, cfg.MACAddresses, window)
	recorder.MarkRun(time.Now())
	if cfg.Metrics.PushgatewayURL != "" {
		if err := recorder.Push(context.Background(), cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			logger.Printf("metrics push error: %v", err)
		}
	}
	if runErr != nil {
		logger.Fatalf("run error: %v", runErr)
	}
	logger.Printf("run finished: window=%s devices=%d exported=%d failed=%d records=%d",
		window, summary.Devices, summary.Exported, summary.Failed, summary.Records)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
