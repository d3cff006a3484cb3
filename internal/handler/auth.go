package handler

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zonehunt/zonehunt-server/internal/auth"
	"github.com/zonehunt/zonehunt-server/internal/ws"
)

const authTimeout = 10 * time.Second

// AuthHandler handles authentication messages.
type AuthHandler struct {
	tokens *auth.TokenService
	router *Router
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(tokens *auth.TokenService, router *Router) *AuthHandler {
	return &AuthHandler{tokens: tokens, router: router}
}

type authenticateRequest struct {
	Method string `json:"method"`

	// Token login
	Token string `json:"token,omitempty"`

	// Guest login
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`

	// SlowSensor asks for relaxed location timeouts, for devices with
	// a slow GPS fix.
	SlowSensor bool `json:"slowSensor,omitempty"`
}

type authSuccessResponse struct {
	Success     bool   `json:"success"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Admin       bool   `json:"admin,omitempty"`
	Token       string `json:"token,omitempty"`
}

type authFailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HandleAuthenticate processes an authentication request.
func (h *AuthHandler) HandleAuthenticate(client *ws.Client, msg ws.Message) {
	if client.Authenticated() {
		client.SendMessage(ws.NewErrorMessage("already authenticated"))
		return
	}

	var req authenticateRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendFailure(client, "invalid auth data")
		return
	}

	switch req.Method {
	case "token":
		h.handleToken(client, req)
	case "guest":
		h.handleGuest(client, req)
	default:
		h.sendFailure(client, "unknown auth method: "+req.Method)
	}
}

func (h *AuthHandler) handleToken(client *ws.Client, req authenticateRequest) {
	id, err := h.tokens.Verify(req.Token)
	if err != nil {
		slog.Warn("token verification failed", "error", err, "client", client.ID)
		h.sendFailure(client, "verification failed")
		return
	}
	h.authenticateClient(client, id, "", req.SlowSensor)
}

// handleGuest mints a fresh identity for a nameless drop-in player and
// hands back a token so reconnects keep the same player ID.
func (h *AuthHandler) handleGuest(client *ws.Client, req authenticateRequest) {
	if req.DisplayName == "" {
		h.sendFailure(client, "displayName is required for guest login")
		return
	}

	id := auth.Identity{
		PlayerID:    uuid.New().String(),
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}
	token, err := h.tokens.Issue(id)
	if err != nil {
		slog.Error("failed to issue guest token", "error", err)
		h.sendFailure(client, "internal error")
		return
	}

	slog.Info("guest identity created", "player", id.PlayerID, "name", id.DisplayName)
	h.authenticateClient(client, id, token, req.SlowSensor)
}

func (h *AuthHandler) authenticateClient(client *ws.Client, id auth.Identity, token string, slowSensor bool) {
	if err := h.router.StartSession(client, id, slowSensor); err != nil {
		slog.Error("failed to start session", "error", err, "player", id.PlayerID)
		h.sendFailure(client, "internal error")
		return
	}

	client.PlayerID = id.PlayerID
	client.SetAuthenticated(true)

	resp, _ := ws.NewMessage(ws.TypeAuthenticated, authSuccessResponse{
		Success:     true,
		PlayerID:    id.PlayerID,
		DisplayName: id.DisplayName,
		Admin:       id.Admin,
		Token:       token,
	})
	client.SendMessage(resp)

	slog.Info("client authenticated", "client", client.ID, "player", id.PlayerID)
}

func (h *AuthHandler) sendFailure(client *ws.Client, errMsg string) {
	resp, _ := ws.NewMessage(ws.TypeAuthenticated, authFailureResponse{
		Success: false,
		Error:   errMsg,
	})
	client.SendMessage(resp)
}

// StartAuthTimeout closes the connection if the client doesn't authenticate in time.
func (h *AuthHandler) StartAuthTimeout(client *ws.Client) {
	time.AfterFunc(authTimeout, func() {
		if !client.Authenticated() {
			slog.Info("auth timeout, closing connection", "client", client.ID)
			client.SendMessage(ws.NewErrorMessage("authentication timeout"))
			client.Conn.Close()
		}
	})
}
