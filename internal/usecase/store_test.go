package usecase

import (
	"fmt"
	"testing"
	"time"

	"SignalDeck/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEventInsertsUnknownSignal(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)

	payload := sig("s1", "")
	s.ApplyEvent(models.Event{
		Type:       models.EventSignalPending,
		ReceivedAt: time.Now(),
		Signal:     &payload,
	})

	got := s.Signals()
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, models.StatusPendingConfirmation, got[0].Status)
}

func TestApplyEventMergesExistingSignal(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)
	s.MergeSignals([]models.Signal{sig("s1", models.StatusParsed)})

	payload := models.Signal{ID: "s1", EntryPrice: 2400.5}
	s.ApplyEvent(models.Event{Type: models.EventSignalValidated, ReceivedAt: time.Now(), Signal: &payload})

	got, ok := s.Signal("s1")
	require.True(t, ok)
	assert.Equal(t, models.StatusValidated, got.Status)
	assert.Equal(t, 2400.5, got.EntryPrice)
	// Fields absent from the payload survive the merge.
	assert.Equal(t, "XAUUSD", got.Symbol)
	require.Len(t, s.Signals(), 1)
}

func TestApplyEventFiresTransitionHook(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)

	var gotFrom, gotTo models.SignalStatus
	s.SetTransitionHook(func(_ models.Signal, from, to models.SignalStatus) {
		gotFrom, gotTo = from, to
	})

	s.MergeSignals([]models.Signal{sig("s1", models.StatusValidated)})
	payload := models.Signal{ID: "s1"}
	s.ApplyEvent(models.Event{Type: models.EventSignalPending, ReceivedAt: time.Now(), Signal: &payload})

	assert.Equal(t, models.StatusValidated, gotFrom)
	assert.Equal(t, models.StatusPendingConfirmation, gotTo)
}

func TestApplyEventAccountSnapshot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)

	acc := models.AccountSnapshot{Balance: 10000, Equity: 10250, Currency: "USD"}
	s.ApplyEvent(models.Event{Type: models.EventAccount, ReceivedAt: time.Now(), Account: &acc})

	assert.Equal(t, acc, s.Account())
}

func TestMergeSignalsNeverDuplicatesIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)

	s.MergeSignals([]models.Signal{sig("s1", models.StatusParsed), sig("s2", models.StatusParsed)})
	s.MergeSignals([]models.Signal{sig("s2", models.StatusValidated), sig("s3", models.StatusReceived)})

	got := s.Signals()
	require.Len(t, got, 3)
	seen := map[string]bool{}
	for _, g := range got {
		assert.False(t, seen[g.ID], "duplicate id %s", g.ID)
		seen[g.ID] = true
	}
	updated, ok := s.Signal("s2")
	require.True(t, ok)
	assert.Equal(t, models.StatusValidated, updated.Status)
}

func TestMergeSignalsPreservesOptimisticStatus(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)
	s.MergeSignals([]models.Signal{sig("s1", models.StatusPendingConfirmation)})

	_, err := s.stageStatus("s1", models.ActionConfirm, models.StatusExecuted)
	require.NoError(t, err)

	// A snapshot taken before the confirm resolved still says pending.
	s.MergeSignals([]models.Signal{sig("s1", models.StatusPendingConfirmation)})

	got, ok := s.Signal("s1")
	require.True(t, ok)
	assert.Equal(t, models.StatusExecuted, got.Status)
}

func TestMergeSignalsNeverResurrectsDismissPending(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)
	s.MergeSignals([]models.Signal{sig("s1", models.StatusExecuted)})

	_, err := s.stageDismiss("s1")
	require.NoError(t, err)
	require.Empty(t, s.Signals())

	s.MergeSignals([]models.Signal{sig("s1", models.StatusExecuted)})
	assert.Empty(t, s.Signals())

	payload := models.Signal{ID: "s1"}
	s.ApplyEvent(models.Event{Type: models.EventSignalExecuted, ReceivedAt: time.Now(), Signal: &payload})
	assert.Empty(t, s.Signals())
}

func TestCapEvictsOldestButProtectsPending(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 3)

	s.MergeSignals([]models.Signal{sig("s1", models.StatusPendingConfirmation)})
	_, err := s.stageStatus("s1", models.ActionConfirm, models.StatusExecuted)
	require.NoError(t, err)

	for i := 2; i <= 6; i++ {
		s.MergeSignals([]models.Signal{sig(fmt.Sprintf("s%d", i), models.StatusReceived)})
	}

	got := s.Signals()
	require.Len(t, got, 3)
	_, ok := s.Signal("s1")
	assert.True(t, ok, "signal with an unresolved action must survive eviction")
}

func TestStageSecondActionRejected(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)
	s.MergeSignals([]models.Signal{sig("s1", models.StatusPendingConfirmation)})

	_, err := s.stageStatus("s1", models.ActionConfirm, models.StatusExecuted)
	require.NoError(t, err)

	_, err = s.stageStatus("s1", models.ActionReject, models.StatusRejected)
	assert.ErrorIs(t, err, ErrActionPending)
	_, err = s.stageDismiss("s1")
	assert.ErrorIs(t, err, ErrActionPending)
}

func TestStageUnknownSignal(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)

	_, err := s.stageStatus("missing", models.ActionConfirm, models.StatusExecuted)
	assert.ErrorIs(t, err, ErrUnknownSignal)
	_, err = s.stageDismiss("missing")
	assert.ErrorIs(t, err, ErrUnknownSignal)
}

func TestStageDismissCompletedCapturesTerminalSet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)
	s.MergeSignals([]models.Signal{
		sig("done1", models.StatusExecuted),
		sig("live", models.StatusPendingConfirmation),
		sig("done2", models.StatusFailed),
		sig("done3", models.StatusSkipped),
	})

	pa, err := s.stageDismissCompleted()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"done1", "done2", "done3"}, pa.TargetIDs)

	got := s.Signals()
	require.Len(t, got, 1)
	assert.Equal(t, "live", got[0].ID)
}

func TestStageDismissCompletedNothingTerminal(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)
	s.MergeSignals([]models.Signal{sig("live", models.StatusValidated)})

	_, err := s.stageDismissCompleted()
	assert.ErrorIs(t, err, errNothingToDismiss)
}

func TestRollbackRestoresStatus(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)
	s.MergeSignals([]models.Signal{sig("s1", models.StatusPendingConfirmation)})

	pa, err := s.stageStatus("s1", models.ActionConfirm, models.StatusExecuted)
	require.NoError(t, err)

	got, _ := s.Signal("s1")
	require.Equal(t, models.StatusExecuted, got.Status)

	s.rollback(pa)
	got, ok := s.Signal("s1")
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingConfirmation, got.Status)

	// The gate is released.
	_, err = s.stageStatus("s1", models.ActionReject, models.StatusRejected)
	assert.NoError(t, err)
}

func TestRollbackReinsertsCapturedSetOnly(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)
	s.MergeSignals([]models.Signal{
		sig("done1", models.StatusExecuted),
		sig("done2", models.StatusRejected),
	})

	pa, err := s.stageDismissCompleted()
	require.NoError(t, err)
	require.Empty(t, s.Signals())

	// A new terminal signal arrives while the bulk dismissal is unresolved.
	s.MergeSignals([]models.Signal{sig("late", models.StatusExecuted)})

	s.rollback(pa)
	got := s.Signals()
	require.Len(t, got, 3)
	ids := make([]string, 0, len(got))
	for _, g := range got {
		ids = append(ids, g.ID)
	}
	assert.ElementsMatch(t, []string{"done1", "done2", "late"}, ids)
}

func TestCommitClearsLotSelectionOnConfirm(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)
	s.MergeSignals([]models.Signal{sig("s1", models.StatusPendingConfirmation)})
	s.SetLotSelection("s1", 0.5)

	pa, err := s.stageStatus("s1", models.ActionConfirm, models.StatusExecuted)
	require.NoError(t, err)
	s.commit(pa)

	_, ok := s.LotSelection("s1")
	assert.False(t, ok)
}

func TestSelectorsReturnCopies(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 20)
	s.MergeSignals([]models.Signal{sig("s1", models.StatusParsed)})

	got := s.Signals()
	got[0].Status = models.StatusFailed

	kept, _ := s.Signal("s1")
	assert.Equal(t, models.StatusParsed, kept.Status)
}
