// Command weighsim drives a full weigh-in/weigh-out cycle against the
// simulated scale and SAP connector, then prints the resulting pair. Useful
// as a smoke check for a new station before hardware arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/scalehouse/weighbridge/internal/adapters/repository"
	sap "github.com/scalehouse/weighbridge/internal/adapters/sap"
	scale "github.com/scalehouse/weighbridge/internal/adapters/scale"
	service "github.com/scalehouse/weighbridge/internal/app"
	"github.com/scalehouse/weighbridge/internal/config"
	"github.com/scalehouse/weighbridge/pkg/logger"
)

const runTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("weighsim: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := logger.Init(); err != nil {
		return err
	}
	log := logger.Get()

	ledger, err := repository.Open(":memory:")
	if err != nil {
		return err
	}
	defer ledger.Close()

	// fast polling so the demo finishes in seconds
	scaleCfg := config.ScaleConfig{
		PollIntervalMS:       20,
		RetryBackoffMS:       20,
		DisconnectWaitMS:     2000,
		StabilityToleranceKg: 20,
		StabilityDwellMS:     200,
	}

	driver := scale.NewSimDriver(
		scale.WithScript([]float64{0, 12000, 0, 38000}),
		scale.WithReadsPerPhase(25),
	)
	channel := scale.New(driver, scaleCfg, scale.WithLogger(log.Named("scale")))
	if err := channel.Connect(ctx); err != nil {
		return err
	}
	defer channel.Disconnect()

	gateway := sap.NewGateway(sap.NewSimConnector(), sap.WithLogger(log.Named("sap")))
	if err := gateway.Connect(ctx); err != nil {
		return err
	}

	svc := service.New(
		service.WithLedger(ledger),
		service.WithTelemetry(channel),
		service.WithGateway(gateway),
		service.WithLogger(log.Named("session")),
	)

	if err := svc.SetTruckContext(ctx, "TRK-001", "Haulers Ltd", "Gravel"); err != nil {
		return err
	}

	events, unsubscribe := channel.Subscribe()
	defer unsubscribe()

	// capture each plateau as it settles: deck empty, truck in, deck
	// empty, truck out
	captured := 0
	for captured < 2 {
		select {
		case ev := <-events:
			if ev.Err != nil {
				return ev.Err
			}
			if ev.Stable == nil || ev.Stable.Value < 1000 {
				continue
			}
			if captured == 0 {
				w, err := svc.CaptureEntry(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("entry captured: %.0f kg (id %d)\n", w.Weight, w.ID)
			} else {
				w, err := svc.CaptureExit(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("exit captured:  %.0f kg (id %d)\n", w.Weight, w.ID)
			}
			captured++
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	sent, err := svc.SendLatest(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("sent to sap:    %s\n", sent.SAPDocument)

	pair, err := svc.PairFor(ctx, "TRK-001")
	if err != nil {
		return err
	}
	fmt.Printf("net weight:     %.0f kg over %s (complete=%t)\n",
		pair.NetWeight(), pair.Duration().Round(time.Millisecond), pair.IsComplete())
	return nil
}
