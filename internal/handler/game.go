package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/zonehunt/zonehunt-server/internal/game"
	"github.com/zonehunt/zonehunt-server/internal/geo"
	"github.com/zonehunt/zonehunt-server/internal/ws"
	"github.com/zonehunt/zonehunt-server/internal/zone"
)

const requestTimeout = 5 * time.Second

// GameHandler handles in-game messages for authenticated clients.
type GameHandler struct {
	router *Router
}

// NewGameHandler creates a new game handler.
func NewGameHandler(router *Router) *GameHandler {
	return &GameHandler{router: router}
}

type selectRoleRequest struct {
	PlayerID string `json:"playerId,omitempty"` // empty means self
	Role     string `json:"role"`
}

// HandleSelectRole changes a player's role. Changing another player's
// role requires an admin session.
func (h *GameHandler) HandleSelectRole(client *ws.Client, msg ws.Message) {
	eng := h.router.Session(client)
	if eng == nil {
		return
	}

	var req selectRoleRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		client.SendMessage(ws.NewErrorMessage("invalid role data"))
		return
	}
	role, ok := game.ParseRole(req.Role)
	if !ok {
		client.SendMessage(ws.NewErrorMessage("unknown role: " + req.Role))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := eng.SetRole(ctx, req.PlayerID, role); err != nil {
		client.SendMessage(ws.NewErrorMessage(err.Error()))
		return
	}
	slog.Debug("role changed", "player", client.PlayerID, "target", req.PlayerID, "role", role)
}

// HandleCreateZone creates a game zone from the client's definition.
func (h *GameHandler) HandleCreateZone(client *ws.Client, msg ws.Message) {
	var z zone.Zone
	if err := json.Unmarshal(msg.Data, &z); err != nil {
		client.SendMessage(ws.NewErrorMessage("invalid zone data"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	id, err := h.router.registry.Create(ctx, &z, client.PlayerID)
	if err != nil {
		client.SendMessage(ws.NewErrorMessage(err.Error()))
		return
	}
	slog.Info("zone created", "zone", id, "by", client.PlayerID)
}

type deleteZoneRequest struct {
	ID string `json:"id"`
}

// HandleDeleteZone removes a zone by ID.
func (h *GameHandler) HandleDeleteZone(client *ws.Client, msg ws.Message) {
	var req deleteZoneRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.ID == "" {
		client.SendMessage(ws.NewErrorMessage("invalid zone data"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := h.router.registry.Delete(ctx, req.ID); err != nil {
		client.SendMessage(ws.NewErrorMessage(err.Error()))
		return
	}
	slog.Info("zone deleted", "zone", req.ID, "by", client.PlayerID)
}

type useSimulatorRequest struct {
	Enabled bool `json:"enabled"`
}

// HandleUseSimulator toggles simulator mode for the session.
func (h *GameHandler) HandleUseSimulator(client *ws.Client, msg ws.Message) {
	eng := h.router.Session(client)
	if eng == nil {
		return
	}

	var req useSimulatorRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		client.SendMessage(ws.NewErrorMessage("invalid simulator data"))
		return
	}
	eng.UseSimulator(req.Enabled)
}

type simulatorPositionRequest struct {
	Position geo.Position `json:"position"`
}

// HandleSimulatorPosition teleports the simulated player.
func (h *GameHandler) HandleSimulatorPosition(client *ws.Client, msg ws.Message) {
	eng := h.router.Session(client)
	if eng == nil {
		return
	}

	var req simulatorPositionRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		client.SendMessage(ws.NewErrorMessage("invalid position data"))
		return
	}
	if err := eng.SimulatorSet(req.Position); err != nil {
		client.SendMessage(ws.NewErrorMessage(err.Error()))
	}
}

type simulatorMoveRequest struct {
	Direction string `json:"direction"`
}

// HandleSimulatorMove steps the simulated player one step.
func (h *GameHandler) HandleSimulatorMove(client *ws.Client, msg ws.Message) {
	eng := h.router.Session(client)
	if eng == nil {
		return
	}

	var req simulatorMoveRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		client.SendMessage(ws.NewErrorMessage("invalid move data"))
		return
	}
	if _, err := eng.SimulatorMove(req.Direction); err != nil {
		client.SendMessage(ws.NewErrorMessage(err.Error()))
	}
}

type dismissAlertRequest struct {
	ID string `json:"id"`
}

// HandleDismissAlert dismisses a visible notification early.
func (h *GameHandler) HandleDismissAlert(client *ws.Client, msg ws.Message) {
	eng := h.router.Session(client)
	if eng == nil {
		return
	}

	var req dismissAlertRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.ID == "" {
		client.SendMessage(ws.NewErrorMessage("invalid alert data"))
		return
	}
	eng.Dismiss(req.ID)
}

type reportLocationRequest struct {
	Position geo.Position `json:"position"`
}

// HandleReportLocation feeds one client sensor reading into the
// session's location source.
func (h *GameHandler) HandleReportLocation(client *ws.Client, msg ws.Message) {
	src := h.router.Source(client)
	if src == nil {
		return
	}

	var req reportLocationRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		client.SendMessage(ws.NewErrorMessage("invalid location data"))
		return
	}
	src.ReportSample(req.Position)
}

type reportLocationErrorRequest struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HandleReportLocationError feeds one client sensor failure into the
// session's location source.
func (h *GameHandler) HandleReportLocationError(client *ws.Client, msg ws.Message) {
	src := h.router.Source(client)
	if src == nil {
		return
	}

	var req reportLocationErrorRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		client.SendMessage(ws.NewErrorMessage("invalid location error data"))
		return
	}
	src.ReportError(req.Code, req.Message)
}
