package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"
)

// Controller executes user-initiated mutations with immediate local
// projection and rollback-on-failure. The tentative state is applied before
// the network call is issued, so the read-model never shows a gap between
// the action and visible feedback. Failed actions are not retried; the user
// resubmits.
type Controller struct {
	store    *Store
	gw       drepo.GatewayAPI
	notifier drepo.Notifier
	log      *applogger.Logger
	metrics  drepo.Metrics
}

func NewController(store *Store, gw drepo.GatewayAPI, notifier drepo.Notifier, log *applogger.Logger, metrics drepo.Metrics) *Controller {
	return &Controller{store: store, gw: gw, notifier: notifier, log: log, metrics: metrics}
}

// Confirm marks the signal executed locally, records the prior status, then
// issues the remote confirmation. lotSize nil means the server default. On
// failure the prior status is restored and the error surfaced to the caller.
func (c *Controller) Confirm(ctx context.Context, id string, lotSize *float64) error {
	pa, err := c.store.stageStatus(id, models.ActionConfirm, models.StatusExecuted)
	if err != nil {
		return err
	}
	return c.resolve(ctx, pa, id, func() error {
		return c.gw.ConfirmSignal(ctx, id, lotSize)
	})
}

// Reject is symmetric to Confirm with target status rejected.
func (c *Controller) Reject(ctx context.Context, id, reason string) error {
	pa, err := c.store.stageStatus(id, models.ActionReject, models.StatusRejected)
	if err != nil {
		return err
	}
	return c.resolve(ctx, pa, id, func() error {
		return c.gw.RejectSignal(ctx, id, reason)
	})
}

// Correct asks the server to re-run the pipeline with a flipped direction.
// No optimistic status change: the outcome arrives via the event/backstop
// path. The pending gate still blocks concurrent mutations for the id.
func (c *Controller) Correct(ctx context.Context, id string, newDirection models.Direction) error {
	pa, err := c.store.stageGate(id, models.ActionCorrect)
	if err != nil {
		return err
	}
	return c.resolve(ctx, pa, id, func() error {
		return c.gw.CorrectSignal(ctx, id, newDirection)
	})
}

// Dismiss removes the signal from the visible set immediately and reinserts
// it if the remote dismissal fails.
func (c *Controller) Dismiss(ctx context.Context, id string) error {
	pa, err := c.store.stageDismiss(id)
	if err != nil {
		return err
	}
	return c.resolve(ctx, pa, id, func() error {
		return c.gw.DismissSignal(ctx, id)
	})
}

// DismissCompleted hides exactly the set of signals that are terminal at
// call time and issues one bulk mutation. A failure reinserts that captured
// set, not whatever is terminal at failure time. With nothing to dismiss it
// is a local no-op.
func (c *Controller) DismissCompleted(ctx context.Context) error {
	pa, err := c.store.stageDismissCompleted()
	if err != nil {
		if errors.Is(err, errNothingToDismiss) {
			return nil
		}
		return err
	}
	return c.resolve(ctx, pa, "", func() error {
		return c.gw.DismissCompleted(ctx)
	})
}

// resolve runs the remote call and commits or rolls back the staged action.
// Exactly this action's effect is undone on failure.
func (c *Controller) resolve(ctx context.Context, pa *models.PendingAction, id string, call func() error) error {
	start := time.Now()
	err := call()
	c.metrics.RecordLatency("action_"+string(pa.Type), time.Since(start).Seconds())

	if err != nil {
		c.store.rollback(pa)
		c.metrics.RecordAction(string(pa.Type), "failed")
		c.notifier.ActionFailed(pa.Type, id, err)
		c.log.Warn("action failed, rolled back",
			applogger.String("action", string(pa.Type)),
			applogger.String("signal_id", id),
			applogger.Error(err))
		return fmt.Errorf("%s: %w", pa.Type, err)
	}

	c.store.commit(pa)
	c.metrics.RecordAction(string(pa.Type), "ok")
	c.notifier.ActionSucceeded(pa.Type, id)
	return nil
}
