package notify

import (
	"SignalDeck/internal/domain/models"
	"SignalDeck/internal/service/prefs"
	applogger "SignalDeck/pkg/logger"
)

// Cue names an audible/visual notification class.
type Cue string

const (
	CueAlert   Cue = "alert"   // a signal awaits confirmation
	CueSuccess Cue = "success" // action confirmed by the gateway
	CueError   Cue = "error"   // action failed, state rolled back
)

// CuePlayer renders a cue. The default implementation only logs; the
// display collaborator subscribes to the view API and plays actual sound.
type CuePlayer func(cue Cue)

// Service observes state transitions and fires cues. Sound cues honor the
// persisted sound-enabled preference; log lines are always written.
type Service struct {
	prefs *prefs.Service
	log   *applogger.Logger
	play  CuePlayer
}

func NewService(p *prefs.Service, log *applogger.Logger, play CuePlayer) *Service {
	s := &Service{prefs: p, log: log, play: play}
	if s.play == nil {
		s.play = func(cue Cue) {
			log.Debug("cue", applogger.String("cue", string(cue)))
		}
	}
	return s
}

func (s *Service) SignalTransition(sig models.Signal, from, to models.SignalStatus) {
	switch to {
	case models.StatusPendingConfirmation:
		s.log.Info("signal awaiting confirmation",
			applogger.String("signal_id", sig.ID),
			applogger.String("symbol", sig.Symbol))
		s.cue(CueAlert)
	case models.StatusFailed:
		s.log.Warn("signal failed",
			applogger.String("signal_id", sig.ID),
			applogger.String("reason", sig.FailureReason))
		s.cue(CueError)
	}
}

func (s *Service) ActionSucceeded(action models.ActionType, id string) {
	s.log.Info("action succeeded",
		applogger.String("action", string(action)),
		applogger.String("signal_id", id))
	s.cue(CueSuccess)
}

func (s *Service) ActionFailed(action models.ActionType, id string, err error) {
	s.log.Warn("action failed",
		applogger.String("action", string(action)),
		applogger.String("signal_id", id),
		applogger.Error(err))
	s.cue(CueError)
}

func (s *Service) ConnectionChanged(status models.ConnStatus) {
	s.log.Info("connection status changed", applogger.String("status", string(status)))
}

func (s *Service) cue(c Cue) {
	if !s.prefs.SoundEnabled() {
		return
	}
	s.play(c)
}
