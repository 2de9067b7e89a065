package usecase

import (
	"context"
	"errors"
	"testing"

	"SignalDeck/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, gw *fakeGateway) (*Controller, *Store, *recordingNotifier) {
	t.Helper()
	store := newTestStore(t, 20)
	notifier := &recordingNotifier{}
	ctrl := NewController(store, gw, notifier, testLogger(t), nopMetrics{})
	return ctrl, store, notifier
}

func TestConfirmAppliesOptimisticallyThenCommits(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	ctrl, store, notifier := newTestController(t, gw)
	store.MergeSignals([]models.Signal{sig("s1", models.StatusPendingConfirmation)})

	lot := 0.25
	require.NoError(t, ctrl.Confirm(context.Background(), "s1", &lot))

	got, ok := store.Signal("s1")
	require.True(t, ok)
	assert.Equal(t, models.StatusExecuted, got.Status)
	assert.Equal(t, 1, gw.callCount("confirm"))
	assert.Equal(t, []models.ActionType{models.ActionConfirm}, notifier.succeeded)

	// Resolved: a follow-up action is allowed again.
	assert.NoError(t, ctrl.Reject(context.Background(), "s1", "late"))
}

func TestConfirmFailureRollsBack(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.mutationErr = errors.New("gateway unavailable")
	ctrl, store, notifier := newTestController(t, gw)
	store.MergeSignals([]models.Signal{sig("s1", models.StatusPendingConfirmation)})

	err := ctrl.Confirm(context.Background(), "s1", nil)
	require.Error(t, err)

	got, ok := store.Signal("s1")
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingConfirmation, got.Status)
	assert.Equal(t, []models.ActionType{models.ActionConfirm}, notifier.failed)
}

func TestSecondActionWhilePendingIsRejectedLocally(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	ctrl, store, _ := newTestController(t, gw)
	store.MergeSignals([]models.Signal{sig("s1", models.StatusPendingConfirmation)})

	_, err := store.stageStatus("s1", models.ActionConfirm, models.StatusExecuted)
	require.NoError(t, err)

	err = ctrl.Reject(context.Background(), "s1", "changed my mind")
	assert.ErrorIs(t, err, ErrActionPending)
	assert.Zero(t, gw.callCount("reject"), "rejected locally, never sent")
}

func TestActionOnUnknownSignal(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	ctrl, _, _ := newTestController(t, gw)

	assert.ErrorIs(t, ctrl.Confirm(context.Background(), "nope", nil), ErrUnknownSignal)
	assert.Zero(t, gw.callCount("confirm"))
}

func TestCorrectLeavesStatusUntouched(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	ctrl, store, _ := newTestController(t, gw)
	store.MergeSignals([]models.Signal{sig("s1", models.StatusFailed)})

	require.NoError(t, ctrl.Correct(context.Background(), "s1", models.DirectionSell))

	got, _ := store.Signal("s1")
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 1, gw.callCount("correct"))
}

func TestDismissFailureReinserts(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.mutationErr = errors.New("boom")
	ctrl, store, _ := newTestController(t, gw)
	store.MergeSignals([]models.Signal{sig("s1", models.StatusExecuted)})

	err := ctrl.Dismiss(context.Background(), "s1")
	require.Error(t, err)

	got, ok := store.Signal("s1")
	require.True(t, ok)
	assert.Equal(t, models.StatusExecuted, got.Status)
}

func TestDismissCompletedNoTerminalIsNoOp(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	ctrl, store, _ := newTestController(t, gw)
	store.MergeSignals([]models.Signal{sig("live", models.StatusValidated)})

	require.NoError(t, ctrl.DismissCompleted(context.Background()))
	assert.Zero(t, gw.callCount("dismiss_completed"), "nothing to dismiss, no request")
}

func TestDismissCompletedFailureRestoresCapturedSet(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.mutationErr = errors.New("boom")
	ctrl, store, _ := newTestController(t, gw)
	store.MergeSignals([]models.Signal{
		sig("done1", models.StatusExecuted),
		sig("done2", models.StatusSkipped),
	})

	err := ctrl.DismissCompleted(context.Background())
	require.Error(t, err)
	assert.Len(t, store.Signals(), 2)
}
