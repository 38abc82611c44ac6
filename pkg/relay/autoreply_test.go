package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/tinydesk/pkg/store"
)

func pendingOffer(t *testing.T, w *AutoreplyWorkflow) AutoreplyRecord {
	t.Helper()
	rec, err := w.Offer(AutoreplyRecord{
		ControlMessageID: "500",
		RelayMessageID:   "200",
		UserID:           "42",
		Question:         "where is my order?",
		ReplyText:        "it ships tomorrow",
	})
	require.NoError(t, err)
	return rec
}

func TestOfferStartsPending(t *testing.T) {
	w := NewAutoreplyWorkflow(store.NewMemory())

	rec, err := w.Offer(AutoreplyRecord{
		ControlMessageID: "500",
		RelayMessageID:   "200",
		UserID:           "42",
		State:            StateApproved, // caller-supplied state is ignored
	})
	require.NoError(t, err)
	assert.Equal(t, StatePending, rec.State)

	got, err := w.Lookup("500")
	require.NoError(t, err)
	assert.Equal(t, StatePending, got.State)
}

func TestOfferDuplicateControlID(t *testing.T) {
	w := NewAutoreplyWorkflow(store.NewMemory())
	pendingOffer(t, w)

	_, err := w.Offer(AutoreplyRecord{ControlMessageID: "500"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestDecideApprove(t *testing.T) {
	w := NewAutoreplyWorkflow(store.NewMemory())
	pendingOffer(t, w)

	rec, err := w.Decide("500", OutcomeApproved)
	require.NoError(t, err)
	assert.Equal(t, StateApproved, rec.State)
	assert.Equal(t, "it ships tomorrow", rec.ReplyText)
}

func TestDecideIsTerminal(t *testing.T) {
	w := NewAutoreplyWorkflow(store.NewMemory())
	pendingOffer(t, w)

	_, err := w.Decide("500", OutcomeDiscarded)
	require.NoError(t, err)

	_, err = w.Decide("500", OutcomeApproved)
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	got, err := w.Lookup("500")
	require.NoError(t, err)
	assert.Equal(t, StateDiscarded, got.State)
}

func TestDecideUnknownRecord(t *testing.T) {
	w := NewAutoreplyWorkflow(store.NewMemory())

	_, err := w.Decide("999", OutcomeApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecideInvalidOutcome(t *testing.T) {
	w := NewAutoreplyWorkflow(store.NewMemory())
	pendingOffer(t, w)

	_, err := w.Decide("500", Outcome("maybe"))
	assert.Error(t, err)

	got, lookupErr := w.Lookup("500")
	require.NoError(t, lookupErr)
	assert.Equal(t, StatePending, got.State)
}

func TestFindByRelay(t *testing.T) {
	w := NewAutoreplyWorkflow(store.NewMemory())
	pendingOffer(t, w)

	rec, err := w.FindByRelay("200")
	require.NoError(t, err)
	assert.Equal(t, "500", rec.ControlMessageID)

	_, err = w.FindByRelay("201")
	assert.ErrorIs(t, err, ErrNotFound)
}
