// Package pipeline assembles the tracker, badge interpreter, and notification bus from config
// and owns their combined lifecycle.
package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"linkbio-telemetry/backend/internal/badge"
	"linkbio-telemetry/backend/internal/config"
	"linkbio-telemetry/backend/internal/notify"
	telemetryotel "linkbio-telemetry/backend/internal/telemetry/otel"
	"linkbio-telemetry/backend/internal/telemetry/tracker"
	"linkbio-telemetry/backend/internal/telemetry/transport"
)

// Options overrides parts of the default wiring.
type Options struct {
	// Transport replaces the HTTP transport built from config.
	Transport transport.Transport
	Enricher  tracker.Enricher
	// Providers replaces the OTel providers built from config; the pipeline does not shut them down.
	Providers *telemetryotel.Providers
	Now       func() time.Time
}

// Pipeline is one host's telemetry and notification stack.
type Pipeline struct {
	Tracker     *tracker.Tracker
	Bus         *notify.Bus
	Interpreter *badge.Interpreter
	// Gate is the host context switch; notifications are shown only while it is on.
	Gate *notify.Switch

	providers    *telemetryotel.Providers
	ownProviders bool
}

// New builds a stopped pipeline. The gate starts on.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	providers := opts.Providers
	own := false
	if providers == nil {
		var err error
		providers, err = telemetryotel.NewProviders(ctx, telemetryotel.Settings{
			Endpoint:    cfg.OTLPEndpoint,
			ServiceName: cfg.ServiceName,
			Insecure:    cfg.OTLPInsecure,
		})
		if err != nil {
			return nil, err
		}
		own = true
	}
	fail := func(err error) (*Pipeline, error) {
		if own {
			_ = providers.Shutdown(context.Background())
		}
		return nil, err
	}

	observer, err := telemetryotel.NewFlushObserver(providers.MeterProvider, providers.LoggerProvider)
	if err != nil {
		return fail(err)
	}

	bus := notify.NewBus(notify.Options{
		TTL:           cfg.NotifyTTL(),
		SweepInterval: cfg.NotifySweepInterval(),
		Disabled:      !cfg.NotifyEnabled,
		Now:           opts.Now,
	})
	gate := notify.NewSwitch(true)
	interp := badge.NewInterpreter(bus, gate, cfg.NotifyStagger())

	tr := opts.Transport
	if tr == nil {
		tr = transport.NewHTTPTransport(cfg.TelemetryEndpoint, cfg.TelemetryAuthToken, cfg.RequestTimeout())
	}
	tr = telemetryotel.TracedTransport(providers.TracerProvider, tr)

	trk, err := tracker.New(tracker.Config{
		FlushInterval: cfg.FlushInterval(),
		MaxBatchSize:  cfg.MaxBatchSize,
		SendTimeout:   cfg.RequestTimeout(),
		RetryBackoff: tracker.BackoffConfig{
			Base: cfg.RetryBackoffBase(),
			Max:  cfg.RetryBackoffMax(),
		},
	}, tracker.Deps{
		Transport: tr,
		Results:   interp,
		Observer:  observer,
		Enricher:  opts.Enricher,
		Now:       opts.Now,
	})
	if err != nil {
		return fail(err)
	}

	return &Pipeline{
		Tracker:      trk,
		Bus:          bus,
		Interpreter:  interp,
		Gate:         gate,
		providers:    providers,
		ownProviders: own,
	}, nil
}

// Start arms the periodic flush and the notification sweep.
func (p *Pipeline) Start() {
	p.Bus.StartSweeper()
	p.Tracker.Start()
}

// SetNotificationsAllowed flips the host gate. Turning it off also drops the notifications
// already on screen.
func (p *Pipeline) SetNotificationsAllowed(allowed bool) {
	p.Gate.Set(allowed)
	if !allowed {
		p.Bus.Clear()
	}
}

// Stop cancels the periodic flush. Notifications keep expiring.
func (p *Pipeline) Stop() {
	p.Tracker.Stop()
}

// Shutdown sends what is queued, then tears everything down: the tracker rejects further
// events, pending staggered notifications are cancelled, the sweep stops, and owned OTel
// providers are flushed. The returned error is the final flush's, if any.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	flushErr := p.Tracker.ForceFlush(ctx)
	if flushErr != nil {
		log.Printf("pipeline: final flush failed, %d event(s) left unsent: %v", p.Tracker.Pending(), flushErr)
	}
	p.Tracker.Destroy()
	p.Tracker.Wait()
	p.Interpreter.Stop()
	p.Bus.StopSweeper()
	if p.ownProviders {
		if err := p.providers.Shutdown(ctx); err != nil {
			log.Printf("pipeline: otel shutdown: %v", err)
		}
	}
	return flushErr
}
