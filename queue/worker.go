package queue

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultPeriod = 5 * time.Second

// Worker sweeps the outbox on a fixed period and hands payloads to Deliver.
type Worker struct {
	Outbox  *Outbox
	Deliver func(payload string) error

	// Sweep interval. Zero means defaultPeriod.
	Period time.Duration
}

func (w *Worker) Run(ctx context.Context) {
	period := w.Period
	if period <= 0 {
		period = defaultPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			delivered, err := w.Outbox.Drain(w.Deliver)
			if err != nil {
				logrus.WithError(err).Warningln("Outbox drain incomplete.")
			}
			if delivered > 0 {
				logrus.WithField("delivered", delivered).Debugln("Outbox drained.")
			}
		}
	}
}
