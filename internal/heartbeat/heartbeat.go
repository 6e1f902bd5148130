// internal/heartbeat/heartbeat.go
package heartbeat

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/user/auditrelay/internal/ledger"
	"github.com/user/auditrelay/internal/uptime"
)

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Heartbeat periodically logs uptime and the number of origins reported so
// far. It only reads shared state and never touches the pipeline.
type Heartbeat struct {
	cron   *cron.Cron
	clock  *uptime.Clock
	ledger *ledger.Ledger
}

// New creates a Heartbeat firing on the given cron schedule.
func New(schedule string, clock *uptime.Clock, led *ledger.Ledger) (*Heartbeat, error) {
	h := &Heartbeat{
		cron:   cron.New(cron.WithParser(cronParser)),
		clock:  clock,
		ledger: led,
	}
	if _, err := h.cron.AddFunc(schedule, h.beat); err != nil {
		return nil, fmt.Errorf("parse heartbeat schedule: %w", err)
	}
	return h, nil
}

func (h *Heartbeat) beat() {
	slog.Info("heartbeat",
		"uptime", h.clock.Human(),
		"origins_reported", h.ledger.Len(),
	)
}

// Start begins the cron ticker.
func (h *Heartbeat) Start() {
	h.cron.Start()
}

// Stop halts the ticker; running beats finish on their own.
func (h *Heartbeat) Stop() {
	h.cron.Stop()
}
