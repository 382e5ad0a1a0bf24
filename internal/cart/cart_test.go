package cart

import (
	"context"
	"testing"
	"time"

	"github.com/chatbuddy/core/internal/cache"
	"github.com/chatbuddy/core/internal/domain"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	carts []CartSnapshot
}

func (s stubSource) ListActiveCarts(ctx domain.Context) ([]CartSnapshot, error) {
	return s.carts, nil
}

type recordingEmail struct {
	sent []string
}

func (r *recordingEmail) SendAbandonedCartEmail(ctx domain.Context, c domain.AbandonedCart) error {
	r.sent = append(r.sent, c.CartID)
	return nil
}

type recordingSMS struct {
	sent []string
}

func (r *recordingSMS) SendAbandonedCartSMS(ctx domain.Context, c domain.AbandonedCart) error {
	r.sent = append(r.sent, c.CartID)
	return nil
}

func TestDetectAbandoned_ValueAndTimeoutBothRequired(t *testing.T) {
	pool := cache.NewInMemory(1024)
	source := stubSource{carts: []CartSnapshot{
		{CartID: "low-value", UserID: "u1", TotalValue: 100, LastActivity: time.Now().Add(-time.Hour)},
		{CartID: "fresh", UserID: "u2", TotalValue: 10000, LastActivity: time.Now()},
		{CartID: "abandoned", UserID: "u3", TotalValue: 10000, LastActivity: time.Now().Add(-time.Hour)},
	}}
	coord := New(pool, source, nil, nil, Config{TimeoutMinutes: 30, MinValueForFollowup: 5000})

	created, err := coord.DetectAbandoned(context.Background())
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, "abandoned", created[0].CartID)
}

func TestDetectAbandoned_SkipsAlreadyRecorded(t *testing.T) {
	pool := cache.NewInMemory(1024)
	source := stubSource{carts: []CartSnapshot{
		{CartID: "c1", UserID: "u1", TotalValue: 10000, LastActivity: time.Now().Add(-time.Hour)},
	}}
	coord := New(pool, source, nil, nil, Config{TimeoutMinutes: 30, MinValueForFollowup: 5000})

	first, err := coord.DetectAbandoned(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := coord.DetectAbandoned(context.Background())
	require.NoError(t, err)
	require.Empty(t, second)
}

func TestDispatchEmail_IsIdempotent(t *testing.T) {
	pool := cache.NewInMemory(1024)
	source := stubSource{carts: []CartSnapshot{
		{CartID: "c1", UserID: "u1", TotalValue: 10000, LastActivity: time.Now().Add(-time.Hour)},
	}}
	email := &recordingEmail{}
	coord := New(pool, source, email, nil, Config{TimeoutMinutes: 30, MinValueForFollowup: 5000})

	_, err := coord.DetectAbandoned(context.Background())
	require.NoError(t, err)

	require.NoError(t, coord.DispatchEmail(context.Background(), "c1"))
	require.NoError(t, coord.DispatchEmail(context.Background(), "c1"))

	require.Len(t, email.sent, 1)
}

func TestDispatchSMS_NeverSendsWithoutRecord(t *testing.T) {
	pool := cache.NewInMemory(1024)
	sms := &recordingSMS{}
	coord := New(pool, stubSource{}, nil, sms, Config{})

	require.NoError(t, coord.DispatchSMS(context.Background(), "missing"))
	require.Empty(t, sms.sent)
}

func TestCleanup_PurgesOldRecordsOnly(t *testing.T) {
	pool := cache.NewInMemory(1024)
	coord := New(pool, stubSource{}, nil, nil, Config{RetentionDays: 30})

	old := domain.AbandonedCart{CartID: "old", AbandonedAt: time.Now().Add(-40 * 24 * time.Hour)}
	fresh := domain.AbandonedCart{CartID: "fresh", AbandonedAt: time.Now()}
	require.NoError(t, coord.saveRecord(context.Background(), old))
	require.NoError(t, coord.addToIndex(context.Background(), old.CartID))
	require.NoError(t, coord.saveRecord(context.Background(), fresh))
	require.NoError(t, coord.addToIndex(context.Background(), fresh.CartID))

	purged, err := coord.Cleanup(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, purged)

	_, found, err := coord.readRecord(context.Background(), "fresh")
	require.NoError(t, err)
	require.True(t, found)

	_, found, err = coord.readRecord(context.Background(), "old")
	require.NoError(t, err)
	require.False(t, found)
}

func TestProcessDueFollowUps_EmailThenSMSInOrder(t *testing.T) {
	pool := cache.NewInMemory(1024)
	email := &recordingEmail{}
	sms := &recordingSMS{}
	coord := New(pool, stubSource{}, email, sms, Config{EmailDelayMinutes: 30, SMSDelayHours: 2})
	ctx := context.Background()

	emailDue := domain.AbandonedCart{CartID: "email-due", AbandonedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, coord.saveRecord(ctx, emailDue))
	require.NoError(t, coord.addToIndex(ctx, emailDue.CartID))

	notDue := domain.AbandonedCart{CartID: "not-due", AbandonedAt: time.Now()}
	require.NoError(t, coord.saveRecord(ctx, notDue))
	require.NoError(t, coord.addToIndex(ctx, notDue.CartID))

	emails, smsSent, err := coord.ProcessDueFollowUps(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, emails)
	require.Equal(t, 0, smsSent)
	require.Equal(t, []string{"email-due"}, email.sent)
	require.Empty(t, sms.sent)

	record, found, err := coord.readRecord(ctx, "email-due")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, record.EmailSent)
}

func TestProcessDueFollowUps_SMSOnlyAfterEmailSent(t *testing.T) {
	pool := cache.NewInMemory(1024)
	sms := &recordingSMS{}
	coord := New(pool, stubSource{}, nil, sms, Config{EmailDelayMinutes: 10000, SMSDelayHours: 2})
	ctx := context.Background()

	// SMS delay has elapsed but the email delay has not, so email_sent is
	// still false: SMS must stay withheld regardless.
	noEmail := domain.AbandonedCart{CartID: "no-email", AbandonedAt: time.Now().Add(-3 * time.Hour)}
	require.NoError(t, coord.saveRecord(ctx, noEmail))
	require.NoError(t, coord.addToIndex(ctx, noEmail.CartID))

	_, smsSent, err := coord.ProcessDueFollowUps(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, smsSent)
	require.Empty(t, sms.sent)
}
