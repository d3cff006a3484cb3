package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/zonehunt/zonehunt-server/internal/auth"
	"github.com/zonehunt/zonehunt-server/internal/game"
	"github.com/zonehunt/zonehunt-server/internal/metrics"
	"github.com/zonehunt/zonehunt-server/internal/presence"
	"github.com/zonehunt/zonehunt-server/internal/sensor"
	"github.com/zonehunt/zonehunt-server/internal/session"
	"github.com/zonehunt/zonehunt-server/internal/store"
	"github.com/zonehunt/zonehunt-server/internal/ws"
	"github.com/zonehunt/zonehunt-server/internal/zone"
)

// clientSession is everything the router holds per authenticated client.
type clientSession struct {
	engine *session.Engine
	source *sensor.RemoteSource
}

// Router dispatches incoming messages to the appropriate handler and
// owns the per-client sessions.
type Router struct {
	authH *AuthHandler
	game  *GameHandler

	st         store.Store
	registry   *zone.Registry
	hub        *ws.Hub
	sessionCfg session.Config
	mc         *metrics.Collector

	mu       sync.RWMutex
	sessions map[*ws.Client]*clientSession
}

// NewRouter creates a new message router. It takes over the registry's
// change callback to broadcast zone updates.
func NewRouter(hub *ws.Hub, st store.Store, registry *zone.Registry, tokens *auth.TokenService, cfg session.Config, mc *metrics.Collector) *Router {
	r := &Router{
		st:         st,
		registry:   registry,
		hub:        hub,
		sessionCfg: cfg,
		mc:         mc,
		sessions:   make(map[*ws.Client]*clientSession),
	}
	r.authH = NewAuthHandler(tokens, r)
	r.game = NewGameHandler(r)

	registry.OnChange = r.zonesChanged
	return r
}

// HandleMessage parses and routes an incoming client message.
func (r *Router) HandleMessage(cm *ws.ClientMessage) {
	var msg ws.Message
	if err := json.Unmarshal(cm.Data, &msg); err != nil {
		slog.Warn("invalid message format", "client", cm.Client.ID, "error", err)
		cm.Client.SendMessage(ws.NewErrorMessage("invalid message format"))
		return
	}

	// Auth messages are always allowed
	if msg.Type == ws.TypeAuthenticate {
		r.authH.HandleAuthenticate(cm.Client, msg)
		return
	}

	// Auth guard: block unauthenticated clients
	if !cm.Client.Authenticated() {
		cm.Client.SendMessage(ws.NewErrorMessage("authentication required"))
		return
	}

	switch msg.Type {
	case ws.TypeSelectRole:
		r.game.HandleSelectRole(cm.Client, msg)
	case ws.TypeCreateZone:
		r.game.HandleCreateZone(cm.Client, msg)
	case ws.TypeDeleteZone:
		r.game.HandleDeleteZone(cm.Client, msg)
	case ws.TypeUseSimulator:
		r.game.HandleUseSimulator(cm.Client, msg)
	case ws.TypeSimulatorPosition:
		r.game.HandleSimulatorPosition(cm.Client, msg)
	case ws.TypeSimulatorMove:
		r.game.HandleSimulatorMove(cm.Client, msg)
	case ws.TypeDismissAlert:
		r.game.HandleDismissAlert(cm.Client, msg)
	case ws.TypeReportLocation:
		r.game.HandleReportLocation(cm.Client, msg)
	case ws.TypeReportLocationErr:
		r.game.HandleReportLocationError(cm.Client, msg)

	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", cm.Client.ID)
		cm.Client.SendMessage(ws.NewErrorMessage("unknown message type: " + msg.Type))
	}
}

// StartSession builds and starts the session pipeline for a freshly
// authenticated client. Clients that flagged a slow location sensor
// get the conservative timeout profile.
func (r *Router) StartSession(client *ws.Client, id auth.Identity, slowSensor bool) error {
	cfg := r.sessionCfg
	if slowSensor {
		cfg.Sensor = sensor.ConservativeConfig()
	}

	src := sensor.NewRemoteSource()
	engine := session.NewEngine(id, r.st, r.registry, src, cfg, r.mc)

	engine.OnPresence = func(players map[string]*game.Player) {
		msg, err := ws.NewMessage(ws.TypePresence, players)
		if err != nil {
			return
		}
		client.SendMessage(msg)
	}
	engine.OnNotice = func(n presence.Notice) {
		msg, _ := ws.NewMessage(ws.TypeNotification, n)
		client.SendMessage(msg)
	}
	engine.OnNoticeDismiss = func(noticeID string) {
		msg, _ := ws.NewMessage(ws.TypeAlertDismiss, map[string]string{"id": noticeID})
		client.SendMessage(msg)
	}
	engine.OnLocationError = func(err error) {
		msg, _ := ws.NewMessage(ws.TypeLocationError, ws.ErrorMessage{Message: err.Error()})
		client.SendMessage(msg)
	}

	if err := engine.Start(context.Background()); err != nil {
		return err
	}

	r.mu.Lock()
	r.sessions[client] = &clientSession{engine: engine, source: src}
	n := len(r.sessions)
	r.mu.Unlock()
	if r.mc != nil {
		r.mc.Sessions(n)
	}

	// Current zone set, so the client can render before the first change.
	if msg, err := ws.NewMessage(ws.TypeZones, r.registry.Zones()); err == nil {
		client.SendMessage(msg)
	}
	return nil
}

// Session returns the session for a client, or nil.
func (r *Router) Session(client *ws.Client) *session.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cs := r.sessions[client]; cs != nil {
		return cs.engine
	}
	return nil
}

// Source returns the client-fed location source for a client, or nil.
func (r *Router) Source(client *ws.Client) *sensor.RemoteSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cs := r.sessions[client]; cs != nil {
		return cs.source
	}
	return nil
}

// HandleDisconnect tears down the client's session.
func (r *Router) HandleDisconnect(client *ws.Client) {
	r.mu.Lock()
	cs := r.sessions[client]
	delete(r.sessions, client)
	n := len(r.sessions)
	r.mu.Unlock()
	if r.mc != nil {
		r.mc.Sessions(n)
	}

	if cs != nil {
		cs.engine.Stop()
	}
}

// StartAuthTimeout starts the authentication timeout for a new client.
func (r *Router) StartAuthTimeout(client *ws.Client) {
	r.authH.StartAuthTimeout(client)
}

func (r *Router) zonesChanged(zones []*zone.Zone) {
	if msg, err := ws.NewMessage(ws.TypeZones, zones); err == nil {
		r.hub.BroadcastMessage(msg)
	}

	r.mu.RLock()
	engines := make([]*session.Engine, 0, len(r.sessions))
	for _, cs := range r.sessions {
		engines = append(engines, cs.engine)
	}
	r.mu.RUnlock()

	for _, e := range engines {
		e.ZonesChanged(zones)
	}
}
