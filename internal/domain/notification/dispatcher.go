package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bedside/bedside/internal/domain/triage"
)

// Dispatcher fans a request notification out to every assigned recipient over
// the channels its priority warrants, retrying transient failures. A failing
// recipient never blocks delivery to the others.
type Dispatcher struct {
	store       Store
	senders     map[Channel]Sender
	maxRetries  int
	retryDelays []time.Duration
	logger      zerolog.Logger
}

func NewDispatcher(store Store, logger zerolog.Logger, maxRetries int, senders ...Sender) *Dispatcher {
	byChannel := make(map[Channel]Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Name()] = s
	}
	return &Dispatcher{
		store:       store,
		senders:     byChannel,
		maxRetries:  maxRetries,
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
		logger:      logger,
	}
}

// channelsFor maps request priority to delivery channels. The dashboard is
// always notified; push is added for high and critical, SMS for critical only.
func channelsFor(priority triage.Urgency) []Channel {
	channels := []Channel{ChannelDashboard}
	switch priority {
	case triage.UrgencyCritical:
		channels = append(channels, ChannelPush, ChannelSMS)
	case triage.UrgencyHigh:
		channels = append(channels, ChannelPush)
	}
	return channels
}

// Dispatch delivers msg to all recipients and blocks until every delivery has
// either succeeded or exhausted its retries. Records for each delivery are
// persisted through the store and returned.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, recipients []Recipient) []*Record {
	channels := channelsFor(msg.Priority)

	var wg sync.WaitGroup
	records := make([]*Record, 0, len(recipients)*len(channels))
	var mu sync.Mutex

	for _, recipient := range recipients {
		for _, ch := range channels {
			sender, ok := d.senders[ch]
			if !ok {
				continue
			}
			wg.Add(1)
			go func(recipient Recipient, sender Sender) {
				defer wg.Done()
				rec := d.deliver(ctx, sender, msg, recipient)
				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
			}(recipient, sender)
		}
	}
	wg.Wait()
	return records
}

func (d *Dispatcher) deliver(ctx context.Context, sender Sender, msg Message, recipient Recipient) *Record {
	msg.Recipient = recipient
	rec := &Record{
		ID:            uuid.New(),
		RequestID:     msg.RequestID,
		RecipientID:   recipient.ID,
		RecipientRole: recipient.Role,
		Channel:       sender.Name(),
		Priority:      string(msg.Priority),
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := d.store.Create(ctx, rec); err != nil {
		d.logger.Error().Err(err).
			Str("request_id", msg.RequestID.String()).
			Str("channel", string(sender.Name())).
			Msg("failed to persist notification record")
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			rec.Status = StatusRetrying
			if err := d.store.Update(ctx, rec); err != nil {
				d.logger.Error().Err(err).Str("notification_id", rec.ID.String()).Msg("failed to update notification record")
			}
			if !d.sleep(ctx, d.backoff(attempt-1)) {
				break
			}
		}

		rec.Attempts++
		lastErr = sender.Send(ctx, msg)
		if lastErr == nil {
			sentAt := time.Now().UTC()
			rec.Status = StatusSent
			rec.SentAt = &sentAt
			rec.LastError = nil
			if err := d.store.Update(ctx, rec); err != nil {
				d.logger.Error().Err(err).Str("notification_id", rec.ID.String()).Msg("failed to update notification record")
			}
			return rec
		}

		errText := lastErr.Error()
		rec.LastError = &errText
		d.logger.Warn().Err(lastErr).
			Str("request_id", msg.RequestID.String()).
			Str("recipient", recipient.ID).
			Str("channel", string(sender.Name())).
			Int("attempt", rec.Attempts).
			Msg("notification delivery failed")
	}

	rec.Status = StatusFailed
	if err := d.store.Update(ctx, rec); err != nil {
		d.logger.Error().Err(err).Str("notification_id", rec.ID.String()).Msg("failed to update notification record")
	}
	return rec
}

func (d *Dispatcher) backoff(n int) time.Duration {
	if n >= len(d.retryDelays) {
		return d.retryDelays[len(d.retryDelays)-1]
	}
	return d.retryDelays[n]
}

// sleep waits for the given delay or until the context is done, returning
// false when the context was cancelled.
func (d *Dispatcher) sleep(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
