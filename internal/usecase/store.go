package usecase

import (
	"errors"
	"sync"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"

	"github.com/google/uuid"
)

var (
	// ErrActionPending is returned when a mutation is requested for a signal
	// that already has an unresolved optimistic action. The second request is
	// rejected locally, never queued.
	ErrActionPending = errors.New("an action for this signal is already in flight")
	// ErrUnknownSignal is returned when the target id is not in the visible set.
	ErrUnknownSignal = errors.New("unknown signal id")

	errNothingToDismiss = errors.New("no terminal signals to dismiss")
)

// TransitionHook observes signal status changes. from is empty for inserts.
type TransitionHook func(sig models.Signal, from, to models.SignalStatus)

// Store is the single consolidated read-model: signals, positions, stats,
// account, settings, connection state and the optimistic-action overlay.
// All invariants (unique ids, one PendingAction per id, the 20-signal cap)
// are enforced here rather than at call sites. Every accessor returns
// copies; callers never see internal slices.
type Store struct {
	mu      sync.Mutex
	log     *applogger.Logger
	metrics drepo.Metrics

	signals []*models.Signal // newest first
	limit   int
	pending map[string]*models.PendingAction // by signal id; bulk actions share one entry
	lots    map[string]float64               // ephemeral per-signal lot selection

	positions []models.Position
	stats     models.Stats
	account   models.AccountSnapshot
	settings  models.Settings
	channel   models.ChannelHealth
	conn      models.ConnStatus

	onTransition TransitionHook
}

// NewStore creates a store capped at limit visible signals.
func NewStore(limit int, log *applogger.Logger, metrics drepo.Metrics) *Store {
	if limit <= 0 {
		limit = 20
	}
	return &Store{
		log:     log,
		metrics: metrics,
		limit:   limit,
		pending: make(map[string]*models.PendingAction),
		lots:    make(map[string]float64),
		conn:    models.ConnClosed,
	}
}

// SetTransitionHook registers the observer fired on status transitions.
// Must be called before events start flowing.
func (s *Store) SetTransitionHook(h TransitionHook) { s.onTransition = h }

// ApplyEvent projects one dispatched event onto the read-model. Signal
// events for unknown ids insert a new entity; trade events carry no entity
// and are handled entirely by the backstop fetch.
func (s *Store) ApplyEvent(ev models.Event) {
	switch {
	case ev.Signal != nil:
		s.applySignalEvent(ev)
	case ev.Account != nil:
		s.mu.Lock()
		s.account = *ev.Account
		s.mu.Unlock()
	}
}

func (s *Store) applySignalEvent(ev models.Event) {
	status, ok := models.SignalStatusForEvent(ev.Type)
	if !ok {
		return
	}

	var fired []transition
	s.mu.Lock()
	if pa, held := s.pending[ev.Signal.ID]; held && isDismiss(pa.Type) {
		// The id is optimistically hidden; nothing may resurface it until
		// the dismissal resolves.
		s.mu.Unlock()
		return
	}

	if cur := s.findLocked(ev.Signal.ID); cur != nil {
		from := cur.Status
		mergeSignalFields(cur, ev.Signal)
		cur.Status = status
		if from != status {
			fired = append(fired, transition{*cur, from, status})
		}
	} else {
		entity := *ev.Signal
		entity.Status = status
		if entity.ReceivedAt.IsZero() {
			entity.ReceivedAt = ev.ReceivedAt
		}
		s.insertLocked(&entity)
		fired = append(fired, transition{entity, "", status})
	}
	s.metrics.SetVisibleSignals(len(s.signals))
	s.mu.Unlock()

	s.fire(fired)
}

// MergeSignals reconciles an authoritative snapshot into the collection by
// id: existing entries are updated in place, genuinely new ones are
// prepended, and nothing is removed (signals only leave the visible set via
// explicit dismissal). While an optimistic action is unresolved for an id
// the merge preserves the optimistic status and never resurrects a
// dismissed entry.
func (s *Store) MergeSignals(fetched []models.Signal) {
	var fired []transition
	s.mu.Lock()

	var fresh []*models.Signal
	for i := range fetched {
		f := fetched[i]
		pa, held := s.pending[f.ID]
		if held && isDismiss(pa.Type) {
			continue
		}
		if cur := s.findLocked(f.ID); cur != nil {
			if held {
				keep := cur.Status
				*cur = f
				cur.Status = keep
				continue
			}
			from := cur.Status
			*cur = f
			if from != f.Status {
				fired = append(fired, transition{*cur, from, f.Status})
			}
			continue
		}
		entity := f
		fresh = append(fresh, &entity)
		fired = append(fired, transition{entity, "", entity.Status})
	}

	if len(fresh) > 0 {
		s.signals = append(fresh, s.signals...)
	}
	s.capLocked()
	s.metrics.SetVisibleSignals(len(s.signals))
	s.mu.Unlock()

	s.fire(fired)
}

// ReplacePositions swaps the position list wholesale; the server is the sole
// writer for this resource.
func (s *Store) ReplacePositions(p []models.Position) {
	s.mu.Lock()
	s.positions = p
	s.mu.Unlock()
}

func (s *Store) ReplaceStats(st models.Stats) {
	s.mu.Lock()
	s.stats = st
	s.mu.Unlock()
}

func (s *Store) ReplaceAccount(a models.AccountSnapshot) {
	s.mu.Lock()
	s.account = a
	s.mu.Unlock()
}

func (s *Store) ReplaceSettings(set models.Settings) {
	s.mu.Lock()
	s.settings = set
	s.mu.Unlock()
}

func (s *Store) SetChannelHealth(h models.ChannelHealth) {
	s.mu.Lock()
	s.channel = h
	s.mu.Unlock()
}

func (s *Store) SetConnStatus(c models.ConnStatus) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

// --- selectors ---

// Signals returns a copy of the visible collection, newest first.
func (s *Store) Signals() []models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Signal, len(s.signals))
	for i, sig := range s.signals {
		out[i] = *sig
	}
	return out
}

// Signal returns a copy of one signal by id.
func (s *Store) Signal(id string) (models.Signal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.findLocked(id); cur != nil {
		return *cur, true
	}
	return models.Signal{}, false
}

func (s *Store) Positions() []models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Position, len(s.positions))
	copy(out, s.positions)
	return out
}

func (s *Store) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Store) Account() models.AccountSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

func (s *Store) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Store) ChannelHealth() models.ChannelHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

func (s *Store) ConnStatus() models.ConnStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// SetLotSelection records the ephemeral lot size chosen for a signal's
// confirmation panel.
func (s *Store) SetLotSelection(id string, lot float64) {
	s.mu.Lock()
	s.lots[id] = lot
	s.mu.Unlock()
}

// LotSelection returns the selected lot size for a signal, if any.
func (s *Store) LotSelection(id string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[id]
	return lot, ok
}

// --- optimistic action staging (called by the Controller) ---

// stageStatus applies a tentative status to one signal and opens a
// PendingAction holding the prior copy for rollback.
func (s *Store) stageStatus(id string, typ models.ActionType, to models.SignalStatus) (*models.PendingAction, error) {
	var fired []transition
	s.mu.Lock()
	if _, held := s.pending[id]; held {
		s.mu.Unlock()
		return nil, ErrActionPending
	}
	cur := s.findLocked(id)
	if cur == nil {
		s.mu.Unlock()
		return nil, ErrUnknownSignal
	}
	pa := &models.PendingAction{
		ID:          uuid.New(),
		Type:        typ,
		TargetIDs:   []string{id},
		SubmittedAt: time.Now(),
		Prior:       []models.Signal{*cur},
	}
	s.pending[id] = pa
	from := cur.Status
	cur.Status = to
	if from != to {
		fired = append(fired, transition{*cur, from, to})
	}
	s.mu.Unlock()

	s.fire(fired)
	return pa, nil
}

// stageGate opens a PendingAction without touching local state. Used by
// correct, where the server re-validates and re-emits events; the gate only
// blocks concurrent mutations for the same id.
func (s *Store) stageGate(id string, typ models.ActionType) (*models.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.pending[id]; held {
		return nil, ErrActionPending
	}
	cur := s.findLocked(id)
	if cur == nil {
		return nil, ErrUnknownSignal
	}
	pa := &models.PendingAction{
		ID:          uuid.New(),
		Type:        typ,
		TargetIDs:   []string{id},
		SubmittedAt: time.Now(),
	}
	s.pending[id] = pa
	return pa, nil
}

// stageDismiss removes one signal from the visible set, keeping the removed
// copy for reinsertion on failure.
func (s *Store) stageDismiss(id string) (*models.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.pending[id]; held {
		return nil, ErrActionPending
	}
	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, ErrUnknownSignal
	}
	pa := &models.PendingAction{
		ID:          uuid.New(),
		Type:        models.ActionDismiss,
		TargetIDs:   []string{id},
		SubmittedAt: time.Now(),
		Prior:       []models.Signal{*s.signals[idx]},
	}
	s.pending[id] = pa
	s.signals = append(s.signals[:idx], s.signals[idx+1:]...)
	s.metrics.SetVisibleSignals(len(s.signals))
	return pa, nil
}

// stageDismissCompleted captures the set of currently-terminal signals at
// call time and hides exactly that set. Signals with unresolved actions are
// excluded from the capture.
func (s *Store) stageDismissCompleted() (*models.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pa := &models.PendingAction{
		ID:          uuid.New(),
		Type:        models.ActionDismissCompleted,
		SubmittedAt: time.Now(),
	}
	kept := s.signals[:0]
	for _, sig := range s.signals {
		_, held := s.pending[sig.ID]
		if sig.Status.Terminal() && !held {
			pa.TargetIDs = append(pa.TargetIDs, sig.ID)
			pa.Prior = append(pa.Prior, *sig)
			continue
		}
		kept = append(kept, sig)
	}
	if len(pa.TargetIDs) == 0 {
		return nil, errNothingToDismiss
	}
	s.signals = kept
	for _, id := range pa.TargetIDs {
		s.pending[id] = pa
	}
	s.metrics.SetVisibleSignals(len(s.signals))
	return pa, nil
}

// commit discards a resolved PendingAction. Confirm commits also clear the
// per-signal lot selection.
func (s *Store) commit(pa *models.PendingAction) {
	s.mu.Lock()
	for _, id := range pa.TargetIDs {
		delete(s.pending, id)
		if pa.Type == models.ActionConfirm {
			delete(s.lots, id)
		}
	}
	s.mu.Unlock()
}

// rollback restores exactly the state captured when the action was staged.
// Only the specific action's effect is undone; unrelated concurrent state is
// untouched.
func (s *Store) rollback(pa *models.PendingAction) {
	var fired []transition
	s.mu.Lock()
	for _, id := range pa.TargetIDs {
		delete(s.pending, id)
	}
	switch pa.Type {
	case models.ActionConfirm, models.ActionReject:
		prior := pa.Prior[0]
		if cur := s.findLocked(prior.ID); cur != nil {
			from := cur.Status
			cur.Status = prior.Status
			if from != prior.Status {
				fired = append(fired, transition{*cur, from, prior.Status})
			}
		} else {
			entity := prior
			s.insertLocked(&entity)
		}
	case models.ActionDismiss, models.ActionDismissCompleted:
		// Reinsert exactly the captured set, not whatever is terminal now.
		restored := make([]*models.Signal, 0, len(pa.Prior))
		for i := range pa.Prior {
			if s.findLocked(pa.Prior[i].ID) != nil {
				continue
			}
			entity := pa.Prior[i]
			restored = append(restored, &entity)
		}
		s.signals = append(restored, s.signals...)
		s.capLocked()
	}
	s.metrics.SetVisibleSignals(len(s.signals))
	s.mu.Unlock()

	s.fire(fired)
}

// --- internals; callers hold s.mu ---

type transition struct {
	sig  models.Signal
	from models.SignalStatus
	to   models.SignalStatus
}

func (s *Store) fire(ts []transition) {
	if s.onTransition == nil {
		return
	}
	for _, t := range ts {
		s.onTransition(t.sig, t.from, t.to)
	}
}

func (s *Store) findLocked(id string) *models.Signal {
	if idx := s.indexLocked(id); idx >= 0 {
		return s.signals[idx]
	}
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i, sig := range s.signals {
		if sig.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) insertLocked(sig *models.Signal) {
	s.signals = append([]*models.Signal{sig}, s.signals...)
	s.capLocked()
}

// capLocked evicts from the tail past the visible limit, skipping entries
// with an unresolved optimistic action.
func (s *Store) capLocked() {
	if len(s.signals) <= s.limit {
		return
	}
	for i := len(s.signals) - 1; i >= 0 && len(s.signals) > s.limit; i-- {
		if _, held := s.pending[s.signals[i].ID]; held {
			continue
		}
		s.signals = append(s.signals[:i], s.signals[i+1:]...)
	}
}

// mergeSignalFields overlays non-empty payload fields onto the stored
// entity. Identity and first-seen time are never overwritten.
func mergeSignalFields(dst, src *models.Signal) {
	if src.Symbol != "" {
		dst.Symbol = src.Symbol
	}
	if src.Direction != "" {
		dst.Direction = src.Direction
	}
	if src.EntryPrice != 0 {
		dst.EntryPrice = src.EntryPrice
	}
	if src.StopLoss != 0 {
		dst.StopLoss = src.StopLoss
	}
	if len(src.TakeProfits) > 0 {
		dst.TakeProfits = src.TakeProfits
	}
	if src.Confidence != 0 {
		dst.Confidence = src.Confidence
	}
	if len(src.Warnings) > 0 {
		dst.Warnings = src.Warnings
	}
	if src.FailureReason != "" {
		dst.FailureReason = src.FailureReason
	}
	if src.RawMessage != "" {
		dst.RawMessage = src.RawMessage
	}
	if src.Channel != (models.Channel{}) {
		dst.Channel = src.Channel
	}
}

func isDismiss(t models.ActionType) bool {
	return t == models.ActionDismiss || t == models.ActionDismissCompleted
}
