// linkbio-ingest-mock runs a local stand-in for the analytics ingestion endpoint.
// It records batches, answers with badges from INGEST_SCRIPT, and forwards events to Kafka
// when KAFKA_BROKERS is set. With INGEST_JWT_SECRET set, batches need a bearer token; pass
// --issue-token to print one and exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"linkbio-telemetry/backend/internal/config"
	"linkbio-telemetry/backend/internal/ingest"
	"linkbio-telemetry/backend/internal/security"
	"linkbio-telemetry/backend/internal/telemetry"
	"linkbio-telemetry/backend/internal/telemetry/producer"
)

func main() {
	fs := pflag.NewFlagSet("linkbio-ingest-mock", pflag.ExitOnError)
	fs.String("addr", "", "listen address (INGEST_ADDR)")
	fs.String("script", "", "YAML badge script (INGEST_SCRIPT)")
	fs.String("jwt-secret", "", "HS256 secret for bearer tokens (INGEST_JWT_SECRET)")
	issueFor := fs.String("issue-token", "", "print a bearer token for this profile owner and exit")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadWithFlags(fs, map[string]string{
		"addr":       "INGEST_ADDR",
		"script":     "INGEST_SCRIPT",
		"jwt-secret": "INGEST_JWT_SECRET",
	})
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var tokens *security.TokenProvider
	if cfg.IngestJWTSecret != "" {
		tokens, err = security.NewTokenProvider(cfg.IngestJWTSecret, "", "", 24*time.Hour)
		if err != nil {
			log.Fatalf("ingest: %v", err)
		}
	}
	if *issueFor != "" {
		if tokens == nil {
			log.Fatal("ingest: --issue-token needs INGEST_JWT_SECRET")
		}
		token, exp, err := tokens.Issue(*issueFor, "")
		if err != nil {
			log.Fatalf("ingest: issue token: %v", err)
		}
		fmt.Println(token)
		log.Printf("ingest: token for %s expires %s", *issueFor, exp.Format(time.RFC3339))
		return
	}

	var script *ingest.Script
	if cfg.IngestScript != "" {
		script, err = ingest.LoadScript(cfg.IngestScript)
		if err != nil {
			log.Fatalf("ingest: %v", err)
		}
		log.Printf("ingest: loaded %d scripted step(s) from %s", len(script.Steps), cfg.IngestScript)
	}

	opts := ingest.Options{Recorder: ingest.NewRecorder(script), Tokens: tokens}
	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic)
	if kafkaProducer != nil {
		opts.Emitter = kafkaProducer
		log.Printf("ingest: forwarding events to Kafka topic %s", cfg.KafkaTopic)
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.IngestAddr,
		Handler:           ingest.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("ingest: listening on %s%s", cfg.IngestAddr, ingest.BatchPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("ingest: shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("ingest: shutdown: %v", err)
	}
	if kafkaProducer != nil {
		time.Sleep(telemetry.ShutdownDrainDuration)
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("ingest: kafka close: %v", err)
		}
	}
	log.Println("ingest: stopped")
}
