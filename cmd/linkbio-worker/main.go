// Worker consumes telemetry events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/pflag"

	"linkbio-telemetry/backend/internal/config"
	"linkbio-telemetry/backend/internal/telemetry/loki"
)

func main() {
	fs := pflag.NewFlagSet("linkbio-worker", pflag.ExitOnError)
	fs.String("brokers", "", "comma-separated Kafka brokers (KAFKA_BROKERS)")
	fs.String("topic", "", "Kafka topic (TELEMETRY_KAFKA_TOPIC)")
	fs.String("group", "", "Kafka consumer group (KAFKA_GROUP_ID)")
	fs.String("loki-url", "", "Loki base URL (LOKI_URL)")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadWithFlags(fs, map[string]string{
		"brokers":  "KAFKA_BROKERS",
		"topic":    "TELEMETRY_KAFKA_TOPIC",
		"group":    "KAFKA_GROUP_ID",
		"loki-url": "LOKI_URL",
	})
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	client := loki.NewClient(cfg.LokiURL)
	log.Printf("worker: consuming from %s (group %s), pushing to %s", cfg.KafkaTopic, cfg.KafkaGroupID, cfg.LokiURL)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := client.PushEventJSON(pushCtx, msg.Value); err != nil {
			log.Printf("worker: loki push failed (partition %d offset %d): %v", msg.Partition, msg.Offset, err)
		}
		pushCancel()
	}
}
