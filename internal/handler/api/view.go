package api

import (
	"errors"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	"SignalDeck/internal/service/cache"
	"SignalDeck/internal/service/prefs"
	"SignalDeck/internal/usecase"
	xhttp "SignalDeck/pkg/http"
	applogger "SignalDeck/pkg/logger"
	"SignalDeck/pkg/util"

	"github.com/labstack/echo/v4"
)

const presetTTL = 5 * time.Minute

// ViewHandler exposes the read-model and action surface to display
// collaborators. Display code renders whatever these endpoints return and
// never mutates state except through the action routes.
type ViewHandler struct {
	log        *applogger.Logger
	store      *usecase.Store
	actions    *usecase.Controller
	dispatcher *usecase.Dispatcher
	poller     *usecase.Poller
	prefs      *prefs.Service
	gw         drepo.GatewayAPI
	presets    *cache.TTLCache
	feed       *applogger.Feed
}

func NewViewHandler(
	log *applogger.Logger,
	store *usecase.Store,
	actions *usecase.Controller,
	dispatcher *usecase.Dispatcher,
	poller *usecase.Poller,
	p *prefs.Service,
	gw drepo.GatewayAPI,
	feed *applogger.Feed,
) *ViewHandler {
	return &ViewHandler{
		log:        log,
		store:      store,
		actions:    actions,
		dispatcher: dispatcher,
		poller:     poller,
		prefs:      p,
		gw:         gw,
		presets:    cache.NewTTLCache(),
		feed:       feed,
	}
}

func (h *ViewHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")

	view := g.Group("/view")
	view.GET("/signals", h.Signals)
	view.GET("/positions", h.Positions)
	view.GET("/stats", h.Stats)
	view.GET("/account", h.Account)
	view.GET("/settings", h.Settings)
	view.GET("/connection", h.Connection)
	view.GET("/events", h.Events)
	view.GET("/errors", h.Errors)
	view.GET("/lot-presets", h.LotPresets)
	view.GET("/last-lot", h.LastLot)

	g.POST("/signals/:id/confirm", h.Confirm)
	g.POST("/signals/:id/reject", h.Reject)
	g.POST("/signals/:id/correct", h.Correct)
	g.POST("/signals/:id/dismiss", h.Dismiss)
	g.POST("/signals/dismiss-completed", h.DismissCompleted)
	g.POST("/signals/:id/lot", h.SelectLot)

	g.POST("/control/pause", h.Pause)
	g.POST("/control/resume", h.Resume)

	ui := g.Group("/ui")
	ui.POST("/visibility", h.Visibility)
	ui.GET("/prefs", h.Prefs)
	ui.PUT("/prefs", h.UpdatePrefs)
}

// --- read-model ---

func (h *ViewHandler) Signals(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Signals())
}

func (h *ViewHandler) Positions(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Positions())
}

func (h *ViewHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Stats())
}

func (h *ViewHandler) Account(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Account())
}

func (h *ViewHandler) Settings(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Settings())
}

func (h *ViewHandler) Connection(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":  h.store.ConnStatus(),
		"channel": h.store.ChannelHealth(),
	})
}

func (h *ViewHandler) Events(c echo.Context) error {
	events := h.dispatcher.Recent()
	limit := util.ParseIntDefault(c.QueryParam("limit"), len(events))
	if limit < 0 {
		limit = 0
	}
	if limit < len(events) {
		events = events[len(events)-limit:]
	}
	return xhttp.SuccessResponse(c, events)
}

func (h *ViewHandler) Errors(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.feed.Recent())
}

func (h *ViewHandler) LotPresets(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol is required")
	}
	if v, ok := h.presets.Get(symbol); ok {
		return xhttp.SuccessResponse(c, v)
	}
	presets, err := h.gw.LotPresets(c.Request().Context(), symbol)
	if err != nil {
		h.log.Warn("lot presets fetch failed", applogger.Error(err))
		return xhttp.BadGatewayResponse(c, err.Error())
	}
	h.presets.Set(symbol, presets, presetTTL)
	return xhttp.SuccessResponse(c, presets)
}

func (h *ViewHandler) LastLot(c echo.Context) error {
	lot, err := h.gw.LastTradeLot(c.Request().Context())
	if err != nil {
		return xhttp.BadGatewayResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, map[string]float64{"lot_size": lot})
}

// --- actions ---

type confirmRequest struct {
	LotSize *float64 `json:"lot_size" validate:"omitempty,gt=0"`
}

func (h *ViewHandler) Confirm(c echo.Context) error {
	req := &confirmRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	id := c.Param("id")

	lot := req.LotSize
	if lot == nil {
		if sel, ok := h.store.LotSelection(id); ok {
			lot = &sel
		}
	}
	return h.actionResult(c, h.actions.Confirm(c.Request().Context(), id, lot))
}

type rejectRequest struct {
	Reason string `json:"reason" default:"manual_reject"`
}

func (h *ViewHandler) Reject(c echo.Context) error {
	req := &rejectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.actionResult(c, h.actions.Reject(c.Request().Context(), c.Param("id"), req.Reason))
}

type correctRequest struct {
	NewDirection models.Direction `json:"new_direction" validate:"required,oneof=buy sell"`
}

func (h *ViewHandler) Correct(c echo.Context) error {
	req := &correctRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.actionResult(c, h.actions.Correct(c.Request().Context(), c.Param("id"), req.NewDirection))
}

func (h *ViewHandler) Dismiss(c echo.Context) error {
	return h.actionResult(c, h.actions.Dismiss(c.Request().Context(), c.Param("id")))
}

func (h *ViewHandler) DismissCompleted(c echo.Context) error {
	return h.actionResult(c, h.actions.DismissCompleted(c.Request().Context()))
}

type lotRequest struct {
	LotSize float64 `json:"lot_size" validate:"required,gt=0"`
}

// SelectLot records the ephemeral lot selection for a signal's confirmation
// panel; it is cleared when the confirm succeeds.
func (h *ViewHandler) SelectLot(c echo.Context) error {
	req := &lotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.store.SetLotSelection(c.Param("id"), req.LotSize)
	return xhttp.NoContentResponse(c)
}

func (h *ViewHandler) Pause(c echo.Context) error {
	if err := h.gw.Pause(c.Request().Context()); err != nil {
		return xhttp.BadGatewayResponse(c, err.Error())
	}
	return xhttp.NoContentResponse(c)
}

func (h *ViewHandler) Resume(c echo.Context) error {
	if err := h.gw.Resume(c.Request().Context()); err != nil {
		return xhttp.BadGatewayResponse(c, err.Error())
	}
	return xhttp.NoContentResponse(c)
}

// --- ui state ---

type visibilityRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

func (h *ViewHandler) Visibility(c echo.Context) error {
	req := &visibilityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.poller.SetVisible(*req.Visible)
	return xhttp.NoContentResponse(c)
}

func (h *ViewHandler) Prefs(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.prefs.Snapshot())
}

type prefsRequest struct {
	SoundEnabled     *bool `json:"sound_enabled"`
	SidebarCollapsed *bool `json:"sidebar_collapsed"`
}

func (h *ViewHandler) UpdatePrefs(c echo.Context) error {
	req := &prefsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.SoundEnabled != nil {
		if err := h.prefs.SetSoundEnabled(*req.SoundEnabled); err != nil {
			h.log.Error("save pref failed", applogger.Error(err))
			return xhttp.InternalServerErrorResponse(c)
		}
	}
	if req.SidebarCollapsed != nil {
		if err := h.prefs.SetSidebarCollapsed(*req.SidebarCollapsed); err != nil {
			h.log.Error("save pref failed", applogger.Error(err))
			return xhttp.InternalServerErrorResponse(c)
		}
	}
	return xhttp.SuccessResponse(c, h.prefs.Snapshot())
}

// actionResult maps controller errors onto HTTP statuses: local rejections
// keep their specific codes, remote failures surface as 502 scoped to the
// one entity/action that failed.
func (h *ViewHandler) actionResult(c echo.Context, err error) error {
	switch {
	case err == nil:
		return xhttp.NoContentResponse(c)
	case errors.Is(err, usecase.ErrActionPending):
		return xhttp.ConflictResponse(c, err.Error())
	case errors.Is(err, usecase.ErrUnknownSignal):
		return xhttp.NotFoundResponse(c, err.Error())
	default:
		return xhttp.BadGatewayResponse(c, err.Error())
	}
}
