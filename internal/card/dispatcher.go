package card

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/intake/internal/platform/metrics"
)

const defaultPrintTimeout = 30 * time.Second

// Dispatcher renders and prints cards in the background. Print failures are
// logged and counted; they never reach the caller.
type Dispatcher struct {
	renderer *Renderer
	printer  Printer
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher returns a Dispatcher. m may be nil.
func NewDispatcher(r *Renderer, p Printer, logger zerolog.Logger, m *metrics.Metrics) *Dispatcher {
	if p == nil {
		p = NopPrinter{}
	}
	return &Dispatcher{
		renderer: r,
		printer:  p,
		logger:   logger.With().Str("component", "card").Logger(),
		metrics:  m,
		timeout:  defaultPrintTimeout,
	}
}

// Dispatch queues c for printing and returns immediately.
func (d *Dispatcher) Dispatch(c Card) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		err := d.print(c)
		d.metrics.ObservePrint(err)
		if err != nil {
			d.logger.Error().Err(err).Str("phn", c.PHN).Msg("card print failed")
			return
		}
		d.logger.Info().Str("phn", c.PHN).Msg("card sent to printer")
	}()
}

func (d *Dispatcher) print(c Card) error {
	a, err := d.renderer.Render(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	return d.printer.Print(ctx, a)
}

// Wait blocks until all dispatched cards have been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
