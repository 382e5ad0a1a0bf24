// Package cart implements the abandoned-cart coordinator (C11): a
// detection pass over active carts, idempotent email/SMS follow-up
// dispatch, and a cleanup job purging old records.
package cart

import (
	"fmt"
	"time"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/observability"
)

const (
	namespace  = "abandoned_cart"
	indexKey   = "index"
	recordTTL  = 45 * 24 * time.Hour
	retentionDefault = 30 * 24 * time.Hour
)

// CartSnapshot is one active cart as reported by the webshop collaborator.
type CartSnapshot struct {
	CartID       string
	UserID       string
	TotalValue   float64
	Items        []domain.CartItem
	LastActivity time.Time
}

// CartSource enumerates currently active carts. The core treats it as a
// narrow, opaque collaborator; the webshop integration supplies the
// concrete implementation.
type CartSource interface {
	ListActiveCarts(ctx domain.Context) ([]CartSnapshot, error)
}

// EmailSender dispatches the abandoned-cart email follow-up.
type EmailSender interface {
	SendAbandonedCartEmail(ctx domain.Context, cart domain.AbandonedCart) error
}

// SMSSender dispatches the abandoned-cart SMS follow-up.
type SMSSender interface {
	SendAbandonedCartSMS(ctx domain.Context, cart domain.AbandonedCart) error
}

// Config holds the coordinator's tunables, sourced from environment
// configuration.
type Config struct {
	TimeoutMinutes         int
	MinValueForFollowup    float64
	EmailDelayMinutes      int
	SMSDelayHours          int
	RetentionDays          int
}

// Coordinator implements the C11 abandoned-cart lifecycle on top of the
// shared cache pool, namespaced like every other stateful component.
type Coordinator struct {
	cache  domain.CachePool
	source CartSource
	email  EmailSender
	sms    SMSSender
	cfg    Config
}

// New builds a Coordinator. email/sms may be nil, in which case follow-up
// dispatch is a no-op that still marks the flag (useful when no
// notification channel is configured for a deployment).
func New(cache domain.CachePool, source CartSource, email EmailSender, sms SMSSender, cfg Config) *Coordinator {
	if cfg.TimeoutMinutes <= 0 {
		cfg.TimeoutMinutes = 30
	}
	if cfg.MinValueForFollowup <= 0 {
		cfg.MinValueForFollowup = 5000
	}
	if cfg.EmailDelayMinutes <= 0 {
		cfg.EmailDelayMinutes = 30
	}
	if cfg.SMSDelayHours <= 0 {
		cfg.SMSDelayHours = 2
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	return &Coordinator{cache: cache, source: source, email: email, sms: sms, cfg: cfg}
}

func recordKey(cartID string) string {
	return "cart:" + cartID
}

// DetectAbandoned runs one detection pass: every active cart whose total
// value clears the threshold and whose last activity is stale enough, and
// which has no prior record, becomes an AbandonedCart.
func (c *Coordinator) DetectAbandoned(ctx domain.Context) ([]domain.AbandonedCart, error) {
	carts, err := c.source.ListActiveCarts(ctx)
	if err != nil {
		return nil, fmt.Errorf("op=cart.DetectAbandoned: %w", err)
	}

	timeout := time.Duration(c.cfg.TimeoutMinutes) * time.Minute
	now := time.Now()

	var created []domain.AbandonedCart
	for _, snapshot := range carts {
		if snapshot.TotalValue < c.cfg.MinValueForFollowup {
			continue
		}
		if now.Sub(snapshot.LastActivity) < timeout {
			continue
		}

		exists, err := c.cache.Exists(ctx, recordKey(snapshot.CartID), namespace)
		if err != nil {
			return created, fmt.Errorf("op=cart.DetectAbandoned: %w", err)
		}
		if exists {
			continue
		}

		record := domain.AbandonedCart{
			CartID:       snapshot.CartID,
			UserID:       snapshot.UserID,
			TotalValue:   snapshot.TotalValue,
			Items:        snapshot.Items,
			LastActivity: snapshot.LastActivity,
			AbandonedAt:  now,
		}
		if err := c.saveRecord(ctx, record); err != nil {
			return created, fmt.Errorf("op=cart.DetectAbandoned: %w", err)
		}
		if err := c.addToIndex(ctx, record.CartID); err != nil {
			return created, fmt.Errorf("op=cart.DetectAbandoned: %w", err)
		}

		observability.CartsAbandonedTotal.Inc()
		created = append(created, record)
	}
	return created, nil
}

// EmailDue reports whether record's email follow-up delay has elapsed.
func (c *Coordinator) EmailDue(record domain.AbandonedCart) bool {
	due := record.AbandonedAt.Add(time.Duration(c.cfg.EmailDelayMinutes) * time.Minute)
	return !record.EmailSent && time.Now().After(due)
}

// SMSDue reports whether record's SMS follow-up delay has elapsed.
func (c *Coordinator) SMSDue(record domain.AbandonedCart) bool {
	due := record.AbandonedAt.Add(time.Duration(c.cfg.SMSDelayHours) * time.Hour)
	return !record.SMSSent && time.Now().After(due)
}

// DispatchEmail sends the email follow-up for cartID, idempotently:
// re-reads the record first and returns success without resending if
// email_sent is already set.
func (c *Coordinator) DispatchEmail(ctx domain.Context, cartID string) error {
	record, found, err := c.readRecord(ctx, cartID)
	if err != nil {
		return fmt.Errorf("op=cart.DispatchEmail: %w", err)
	}
	if !found || record.EmailSent {
		return nil
	}

	if c.email != nil {
		if err := c.email.SendAbandonedCartEmail(ctx, record); err != nil {
			return fmt.Errorf("op=cart.DispatchEmail: %w", err)
		}
	}

	record.EmailSent = true
	record.FollowUpCount++
	observability.CartFollowUpsSentTotal.WithLabelValues("email").Inc()
	return c.saveRecord(ctx, record)
}

// DispatchSMS sends the SMS follow-up for cartID, with the same
// idempotency guarantee as DispatchEmail.
func (c *Coordinator) DispatchSMS(ctx domain.Context, cartID string) error {
	record, found, err := c.readRecord(ctx, cartID)
	if err != nil {
		return fmt.Errorf("op=cart.DispatchSMS: %w", err)
	}
	if !found || record.SMSSent {
		return nil
	}

	if c.sms != nil {
		if err := c.sms.SendAbandonedCartSMS(ctx, record); err != nil {
			return fmt.Errorf("op=cart.DispatchSMS: %w", err)
		}
	}

	record.SMSSent = true
	record.FollowUpCount++
	observability.CartFollowUpsSentTotal.WithLabelValues("sms").Inc()
	return c.saveRecord(ctx, record)
}

// ProcessDueFollowUps scans every known abandoned-cart record and
// dispatches the email or SMS follow-up for any whose delay has elapsed.
// It is the single periodic entry point the scheduler's AbandonedCartDetect
// job calls after a detection pass, per the design notes' "one fiber per
// job kind" guidance: detection and due-dispatch share the same 15-minute
// tick instead of a timer goroutine per cart.
func (c *Coordinator) ProcessDueFollowUps(ctx domain.Context) (emailsSent, smsSent int, err error) {
	ids, ierr := c.readIndex(ctx)
	if ierr != nil {
		return 0, 0, fmt.Errorf("op=cart.ProcessDueFollowUps: %w", ierr)
	}

	for _, id := range ids {
		record, found, rerr := c.readRecord(ctx, id)
		if rerr != nil {
			return emailsSent, smsSent, fmt.Errorf("op=cart.ProcessDueFollowUps: %w", rerr)
		}
		if !found || record.Recovered {
			continue
		}
		if c.EmailDue(record) {
			if derr := c.DispatchEmail(ctx, id); derr != nil {
				return emailsSent, smsSent, fmt.Errorf("op=cart.ProcessDueFollowUps: %w", derr)
			}
			emailsSent++
		}
		// SMS only follows an already-dispatched email (§3 invariant).
		if record.EmailSent && c.SMSDue(record) {
			if derr := c.DispatchSMS(ctx, id); derr != nil {
				return emailsSent, smsSent, fmt.Errorf("op=cart.ProcessDueFollowUps: %w", derr)
			}
			smsSent++
		}
	}
	return emailsSent, smsSent, nil
}

// Cleanup purges abandoned-cart records older than the configured
// retention window (default 30 days).
func (c *Coordinator) Cleanup(ctx domain.Context) (int, error) {
	ids, err := c.readIndex(ctx)
	if err != nil {
		return 0, fmt.Errorf("op=cart.Cleanup: %w", err)
	}

	cutoff := time.Now().Add(-time.Duration(c.cfg.RetentionDays) * 24 * time.Hour)
	var remaining []string
	purged := 0
	for _, id := range ids {
		record, found, err := c.readRecord(ctx, id)
		if err != nil {
			return purged, fmt.Errorf("op=cart.Cleanup: %w", err)
		}
		if !found {
			continue
		}
		if record.AbandonedAt.Before(cutoff) {
			if err := c.cache.Delete(ctx, recordKey(id), namespace); err != nil {
				return purged, fmt.Errorf("op=cart.Cleanup: %w", err)
			}
			purged++
			continue
		}
		remaining = append(remaining, id)
	}
	if purged > 0 {
		if err := c.writeIndex(ctx, remaining); err != nil {
			return purged, fmt.Errorf("op=cart.Cleanup: %w", err)
		}
	}
	return purged, nil
}

func (c *Coordinator) readRecord(ctx domain.Context, cartID string) (domain.AbandonedCart, bool, error) {
	var record domain.AbandonedCart
	found, err := c.cache.Get(ctx, recordKey(cartID), namespace, &record)
	return record, found, err
}

func (c *Coordinator) saveRecord(ctx domain.Context, record domain.AbandonedCart) error {
	return c.cache.Set(ctx, recordKey(record.CartID), record, namespace, recordTTL)
}

func (c *Coordinator) readIndex(ctx domain.Context) ([]string, error) {
	var ids []string
	_, err := c.cache.Get(ctx, indexKey, namespace, &ids)
	return ids, err
}

func (c *Coordinator) writeIndex(ctx domain.Context, ids []string) error {
	return c.cache.Set(ctx, indexKey, ids, namespace, recordTTL)
}

func (c *Coordinator) addToIndex(ctx domain.Context, cartID string) error {
	ids, err := c.readIndex(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == cartID {
			return nil
		}
	}
	return c.writeIndex(ctx, append(ids, cartID))
}
