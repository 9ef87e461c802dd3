package outbox

import (
	"context"
	"fmt"
	"time"

	"auragold-backend/integrations/whatsapp"
	"auragold-backend/models"

	"github.com/romana/rlog"
)

const DefaultBatch = 20

// Queue is the persisted outbox.
type Queue interface {
	ClaimOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, id string, entry *models.MessageLog, at time.Time) error
	MarkOutboxFailed(ctx context.Context, id string, reason string) error
	FailInterrupted(ctx context.Context) (int64, error)
}

// Messenger delivers one message. It never returns an error; failures are
// reported in the result.
type Messenger interface {
	SendMessage(ctx context.Context, to, text, customerName, msgContext string) whatsapp.Result
	SendTemplateMessage(ctx context.Context, to, name, lang string, variables []string, customerName string) whatsapp.Result
}

type Reporter interface {
	Capture(source, message string, severity models.ErrorSeverity) string
}

type DrainReport struct {
	Claimed int
	Sent    int
	Failed  int
}

// Dispatcher drains the outbox. Each message is attempted at most once: a
// failed send is marked FAILED and never retried.
type Dispatcher struct {
	queue     Queue
	messenger Messenger
	reporter  Reporter
	batch     int
	now       func() time.Time
}

func NewDispatcher(queue Queue, messenger Messenger, reporter Reporter, batch int) *Dispatcher {
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &Dispatcher{
		queue:     queue,
		messenger: messenger,
		reporter:  reporter,
		batch:     batch,
		now:       time.Now,
	}
}

// Drain sends pending messages until the queue is empty or ctx is done.
func (d *Dispatcher) Drain(ctx context.Context) (DrainReport, error) {
	var report DrainReport
	for ctx.Err() == nil {
		claimed, err := d.queue.ClaimOutbox(ctx, d.batch)
		if err != nil {
			return report, err
		}
		report.Claimed += len(claimed)
		for _, msg := range claimed {
			if d.deliver(ctx, msg) {
				report.Sent++
			} else {
				report.Failed++
			}
		}
		if len(claimed) < d.batch {
			break
		}
	}
	return report, nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg models.OutboxMessage) bool {
	var res whatsapp.Result
	switch msg.Kind {
	case models.OutboxTemplate:
		res = d.messenger.SendTemplateMessage(ctx, msg.Phone, msg.Template, msg.Language, msg.Variables, msg.CustomerName)
	case models.OutboxText:
		res = d.messenger.SendMessage(ctx, msg.Phone, msg.Body, msg.CustomerName, msg.Context)
	default:
		res = whatsapp.Result{Error: fmt.Sprintf("unknown outbox kind %q", msg.Kind)}
	}

	if res.Success {
		if res.LogEntry != nil && res.LogEntry.Context == "" {
			res.LogEntry.Context = msg.Context
		}
		if err := d.queue.MarkOutboxSent(ctx, msg.ID, res.LogEntry, d.now()); err != nil {
			rlog.Errorf("outbox %s sent but not recorded: %v", msg.ID, err)
		}
		rlog.Infof("Outbox %s delivered to %s (%s)", msg.ID, msg.CustomerName, msg.Context)
		return true
	}

	if err := d.queue.MarkOutboxFailed(ctx, msg.ID, res.Error); err != nil {
		rlog.Errorf("outbox %s failed and not recorded: %v", msg.ID, err)
	}
	if d.reporter != nil {
		d.reporter.Capture("WhatsApp Outbox",
			fmt.Sprintf("%s for %s failed: %s", msg.Context, msg.CustomerName, res.Error), models.SeverityMedium)
	}
	return false
}

// Run drains on every tick until ctx is cancelled. Messages left SENDING by
// a previous process are marked FAILED first, since they may have gone out.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if n, err := d.queue.FailInterrupted(ctx); err != nil {
		rlog.Errorf("outbox: could not fail interrupted messages: %v", err)
	} else if n > 0 {
		rlog.Warnf("outbox: %d interrupted messages marked FAILED", n)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := d.Drain(ctx); err != nil && ctx.Err() == nil {
			rlog.Errorf("outbox drain: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
