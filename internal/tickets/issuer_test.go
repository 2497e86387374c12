package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/pkg/apperr"
)

func TestBook_IssuesSignedTicket(t *testing.T) {
	f := newFixture(t)
	e := f.approvedEvent("0")
	tk := f.book(t, e.ID)

	assert.False(t, tk.Verified)
	assert.Nil(t, tk.VerifiedAt)
	assert.Equal(t, 1, tk.Quantity)
	assert.Equal(t, f.clock.UnixMilli(), tk.IssuedAtMs)
	assert.Equal(t, "Asha Rao", tk.Details.AttendeeName)
	assert.Equal(t, "asha@campus.edu", tk.Details.AttendeeEmail)
	assert.Equal(t, "Spring Hack Night", tk.Details.EventName)
	assert.Equal(t, "2026-03-20", tk.Details.EventDate)
	assert.Equal(t, "18:30", tk.Details.EventTime)
	assert.Equal(t, "Engineering Hall", tk.Details.EventLocation)
	assert.True(t, tk.Details.Price.IsZero())
	assert.Equal(t, "/tickets/"+tk.ID.String()+"/qr", tk.Details.QR)

	var p Payload
	require.NoError(t, json.Unmarshal([]byte(tk.Details.QRData), &p))
	assert.Equal(t, tk.ID, p.TicketID)
	assert.Equal(t, e.ID, p.EventID)
	assert.Equal(t, tk.IssuedAtMs, p.Timestamp)
	assert.True(t, tk.PurchaseDate().Equal(p.PurchaseDate))
	assert.True(t, f.signer.Verify(p.VerificationToken, tk.ID, f.attendee.ID, e.ID, tk.IssuedAtMs))

	stored, err := f.tickets.GetByID(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.Details.QRData, stored.Details.QRData)

	ev, _ := f.events.GetByID(context.Background(), e.ID)
	assert.Equal(t, 1, ev.AttendeesCount)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Ticket Booked", f.notifier.sent[0].Title)
	assert.Equal(t, models.NotificationTicket, f.notifier.sent[0].Type)
	assert.Equal(t, f.attendee.ID, f.notifier.to[0])

	require.Len(t, f.jobs.jobs, 1)
	assert.Equal(t, tk.ID, f.jobs.jobs[0].TicketID)
}

func TestBook_ExplicitAttendee(t *testing.T) {
	f := newFixture(t)
	e := f.approvedEvent("12.50")
	tk, err := f.issuer.Book(context.Background(), BookInput{
		UserID:        f.attendee.ID,
		EventID:       e.ID,
		AttendeeName:  "  Guest Name ",
		AttendeeEmail: "Guest@Example.COM",
	})
	require.NoError(t, err)
	assert.Equal(t, "Guest Name", tk.Details.AttendeeName)
	assert.Equal(t, "guest@example.com", tk.Details.AttendeeEmail)
	assert.True(t, decimal.RequireFromString("12.5").Equal(tk.Details.Price))
}

func TestBook_DuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	e := f.approvedEvent("0")
	f.book(t, e.ID)

	_, err := f.issuer.Book(context.Background(), BookInput{UserID: f.attendee.ID, EventID: e.ID})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 1, f.tickets.count())
}

func TestBook_StorageUniqueViolationIsConflict(t *testing.T) {
	f := newFixture(t)
	e := f.approvedEvent("0")
	// The existence check passed but a concurrent booking won the insert.
	f.tickets.failCreate = errDuplicateTicket

	_, err := f.issuer.Book(context.Background(), BookInput{UserID: f.attendee.ID, EventID: e.ID})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.jobs.jobs)
}

func TestBook_Preconditions(t *testing.T) {
	f := newFixture(t)
	pending := f.events.add(models.Event{OwnerID: f.attendee.ID, Title: "Pending", Date: "2026-04-01"})
	capacity := 1
	full := f.events.add(models.Event{OwnerID: f.admin.ID, Title: "Full", IsApproved: true, Capacity: &capacity, AttendeesCount: 1})

	cases := []struct {
		name string
		in   BookInput
		kind apperr.Kind
	}{
		{"anonymous", BookInput{EventID: pending.ID}, apperr.KindUnauthenticated},
		{"missing event", BookInput{UserID: f.attendee.ID, EventID: uuid.New()}, apperr.KindNotFound},
		{"unapproved event", BookInput{UserID: f.attendee.ID, EventID: pending.ID}, apperr.KindForbidden},
		{"sold out", BookInput{UserID: f.attendee.ID, EventID: full.ID}, apperr.KindConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.issuer.Book(context.Background(), tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}
	assert.Zero(t, f.tickets.count())
}

func TestBook_AdminMayBookPendingEvent(t *testing.T) {
	f := newFixture(t)
	pending := f.events.add(models.Event{OwnerID: f.attendee.ID, Title: "Pending"})
	_, err := f.issuer.Book(context.Background(), BookInput{UserID: f.admin.ID, IsAdmin: true, EventID: pending.ID})
	require.NoError(t, err)
}

func TestBook_DeletedAccountIsUnauthenticated(t *testing.T) {
	f := newFixture(t)
	e := f.approvedEvent("0")
	_, err := f.issuer.Book(context.Background(), BookInput{UserID: uuid.New(), EventID: e.ID})
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestBook_StorageFailureCreatesNothing(t *testing.T) {
	f := newFixture(t)
	e := f.approvedEvent("0")
	f.tickets.failCreate = errors.New("connection reset")

	_, err := f.issuer.Book(context.Background(), BookInput{UserID: f.attendee.ID, EventID: e.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Zero(t, f.tickets.count())
	assert.Empty(t, f.notifier.sent)
}

func TestBook_QueueFailureStillBooks(t *testing.T) {
	f := newFixture(t)
	f.jobs.err = errors.New("redis down")
	e := f.approvedEvent("0")
	f.book(t, e.ID)
	assert.Equal(t, 1, f.tickets.count())
}

func TestBook_MultipleSeats(t *testing.T) {
	f := newFixture(t)
	capacity := 5
	e := f.events.add(models.Event{Title: "Study Jam", IsApproved: true, Price: decimal.NewFromInt(8), Capacity: &capacity, AttendeesCount: 1})

	tk, err := f.issuer.Book(context.Background(), BookInput{UserID: f.attendee.ID, EventID: e.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, tk.Quantity)

	stored, err := f.events.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.AttendeesCount)
}

func TestBook_QuantityBeyondRemainingSeats(t *testing.T) {
	f := newFixture(t)
	capacity := 5
	e := f.events.add(models.Event{Title: "Study Jam", IsApproved: true, Capacity: &capacity, AttendeesCount: 3})

	_, err := f.issuer.Book(context.Background(), BookInput{UserID: f.attendee.ID, EventID: e.ID, Quantity: 3})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "only 2 tickets available", apperr.Message(err))
	assert.Zero(t, f.tickets.count())

	for _, q := range []int{-1, MaxOrderQuantity + 1} {
		_, err := f.issuer.Book(context.Background(), BookInput{UserID: f.attendee.ID, EventID: e.ID, Quantity: q})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "quantity %d", q)
	}
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	paid := f.approvedEvent("25.00")
	cheap := f.approvedEvent("10.00")
	free := f.approvedEvent("0")
	capacity := 5
	limited := f.events.add(models.Event{Title: "Limited", IsApproved: true, Price: decimal.NewFromInt(100), Capacity: &capacity, AttendeesCount: 3})
	pending := f.events.add(models.Event{Title: "Pending", Price: decimal.NewFromInt(5)})

	s, err := f.issuer.Quote(context.Background(), paid.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, "100", s.Subtotal.String())
	assert.Equal(t, "5", s.ServiceFee.String())
	assert.Equal(t, "105", s.Total.String())
	assert.Nil(t, s.Available)

	s, err = f.issuer.Quote(context.Background(), cheap.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "2", s.ServiceFee.String(), "minimum fee applies")

	s, err = f.issuer.Quote(context.Background(), free.ID, 3)
	require.NoError(t, err)
	assert.True(t, s.Total.IsZero())

	s, err = f.issuer.Quote(context.Background(), limited.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, s.Available)
	assert.Equal(t, 2, *s.Available)

	_, err = f.issuer.Quote(context.Background(), limited.ID, 3)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.issuer.Quote(context.Background(), paid.ID, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.issuer.Quote(context.Background(), paid.ID, MaxOrderQuantity+1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.issuer.Quote(context.Background(), pending.ID, 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
