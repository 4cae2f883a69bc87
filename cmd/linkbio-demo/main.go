// linkbio-demo drives the telemetry pipeline against an ingestion endpoint (e.g. linkbio-ingest-mock):
// it records a profile view, clicks random links, flips the notification gate now and then, and
// prints badge notifications. On exit it sends whatever is still queued.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"linkbio-telemetry/backend/internal/config"
	"linkbio-telemetry/backend/internal/pipeline"
	"linkbio-telemetry/backend/internal/security"
	"linkbio-telemetry/backend/internal/telemetry/domain"
	"linkbio-telemetry/backend/internal/telemetry/tracker"
)

func main() {
	fs := pflag.NewFlagSet("linkbio-demo", pflag.ExitOnError)
	fs.String("endpoint", "", "ingestion endpoint (TELEMETRY_ENDPOINT)")
	fs.String("token", "", "bearer token (TELEMETRY_AUTH_TOKEN)")
	profile := fs.String("profile", "demo-profile", "profile id to report events for")
	links := fs.Int("links", 4, "number of links on the profile")
	clickEvery := fs.Duration("click-every", 700*time.Millisecond, "mean time between link clicks")
	gateEvery := fs.Duration("gate-every", 20*time.Second, "flip the notification gate this often; 0 keeps it on")
	duration := fs.Duration("duration", 0, "stop after this long; 0 runs until interrupted")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadWithFlags(fs, map[string]string{
		"endpoint": "TELEMETRY_ENDPOINT",
		"token":    "TELEMETRY_AUTH_TOKEN",
	})
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.TelemetryAuthToken == "" && cfg.IngestJWTSecret != "" {
		// Local runs against the mock endpoint: mint a token with the shared secret.
		tokens, err := security.NewTokenProvider(cfg.IngestJWTSecret, "", "", time.Hour)
		if err != nil {
			log.Fatalf("demo: %v", err)
		}
		if cfg.TelemetryAuthToken, _, err = tokens.Issue(*profile, ""); err != nil {
			log.Fatalf("demo: issue token: %v", err)
		}
	}

	ctx := context.Background()
	p, err := pipeline.New(ctx, cfg, pipeline.Options{Enricher: enrich})
	if err != nil {
		log.Fatalf("demo: %v", err)
	}
	ui := newConsole(os.Stdout, p.Bus)
	p.Bus.Subscribe(ui.handle)
	p.Start()
	log.Printf("demo: session %s reporting to %s", p.Tracker.SessionID(), cfg.TelemetryEndpoint)

	if err := p.Tracker.TrackEvent(ctx, tracker.Track{Type: domain.EventView, ProfileID: *profile}); err != nil {
		log.Printf("demo: track view: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}
	var gateTick <-chan time.Time
	if *gateEvery > 0 {
		t := time.NewTicker(*gateEvery)
		defer t.Stop()
		gateTick = t.C
	}
	nextClick := time.NewTimer(jitter(*clickEvery))
	defer nextClick.Stop()

loop:
	for {
		select {
		case <-quit:
			break loop
		case <-deadline:
			break loop
		case <-gateTick:
			allowed := !p.Gate.NotificationsAllowed()
			p.SetNotificationsAllowed(allowed)
			log.Printf("demo: notification gate %s", onOff(allowed))
		case <-nextClick.C:
			link := fmt.Sprintf("link-%d", rand.IntN(max(*links, 1))+1)
			t := tracker.Track{Type: domain.EventClick, ProfileID: *profile, LinkID: link}
			if rand.IntN(10) == 0 {
				t.Type = domain.EventShare
				t.Immediate = true
			}
			if err := p.Tracker.TrackEvent(ctx, t); err != nil {
				log.Printf("demo: track %s: %v", t.Type, err)
			}
			nextClick.Reset(jitter(*clickEvery))
		}
	}

	log.Printf("demo: shutting down, %d event(s) queued", p.Tracker.Pending())
	p.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()
	if err := p.Shutdown(shutdownCtx); err != nil {
		os.Exit(1)
	}
}

// enrich stands in for the browser context a web host would attach.
func enrich(_ context.Context, e *domain.TelemetryEvent) {
	if e.DeviceInfo == nil {
		e.DeviceInfo = domain.Metadata{}
	}
	e.DeviceInfo["os"] = runtime.GOOS
	e.DeviceInfo["userAgent"] = "linkbio-demo"
	if e.LocationInfo == nil {
		e.LocationInfo = domain.Metadata{}
	}
	e.LocationInfo["timezone"] = time.Local.String()
	if e.ReferrerInfo == nil {
		e.ReferrerInfo = domain.Metadata{"referrer": "direct"}
	}
}

func jitter(mean time.Duration) time.Duration {
	if mean <= 0 {
		return time.Second
	}
	return mean/2 + rand.N(mean)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
