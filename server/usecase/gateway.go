package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ponyo877/bingo/server/domain"
)

const backendNotice = "the game server could not save this change; play continues on the live copy"

var errRoomCodeTaken = errors.New("room code taken")

// Gateway applies client requests to rooms and decides who hears about the result.
type Gateway struct {
	registry  *RoomRegistry
	hub       domain.Hub
	autoStart bool
}

type GatewayOption func(*Gateway)

// WithAutoStart starts a waiting room as soon as it has enough players.
func WithAutoStart(enabled bool) GatewayOption {
	return func(g *Gateway) {
		g.autoStart = enabled
	}
}

func NewGateway(registry *RoomRegistry, hub domain.Hub, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		registry:  registry,
		hub:       hub,
		autoStart: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HandleSession processes one connection's requests in order until the request channel
// is closed, then removes the connection's players from every room it joined.
// Nothing is written to outbox after HandleSession returns.
func (g *Gateway) HandleSession(
	ctx context.Context,
	session domain.Session,
	requests <-chan domain.Request,
	outbox chan<- domain.Event,
) error {
	if err := g.Connect(session.ID, outbox); err != nil {
		return err
	}
	defer g.Disconnect(ctx, session.ID)

	log.Debug().Str("session", session.String()).Msg("session started")
	for request := range requests {
		g.Handle(ctx, session.ID, request)
	}
	return nil
}

func (g *Gateway) Connect(connID string, outbox chan<- domain.Event) error {
	if err := g.hub.Register(connID, outbox); err != nil {
		return fmt.Errorf("failed to register session: %w", err)
	}
	return nil
}

// Disconnect treats a closed connection as leave_room for every room it joined.
func (g *Gateway) Disconnect(ctx context.Context, connID string) {
	for roomID, playerID := range g.hub.Unregister(connID) {
		g.removePlayer(ctx, connID, roomID, playerID)
	}
	log.Debug().Str("conn_id", connID).Msg("session ended")
}

// Handle runs a single request. Handlers are not cancellable once started.
func (g *Gateway) Handle(ctx context.Context, connID string, req domain.Request) {
	ctx = context.WithoutCancel(ctx)

	if !req.IsValid() {
		log.Debug().Str("conn_id", connID).Str("request", req.String()).Msg("invalid request")
		g.hub.Send(connID, domain.NewErrorEvent(req.RoomID, fmt.Errorf("invalid %s request", req.Type)))
		return
	}

	switch req.Type {
	case domain.RequestCreateRoom:
		g.handleCreateRoom(ctx, connID, req)
	case domain.RequestJoinRoom:
		g.handleJoinRoom(ctx, connID, req.RoomID, req, false)
	case domain.RequestSetBoard:
		g.handleSetBoard(ctx, connID, req)
	case domain.RequestStartGame:
		g.handleStartGame(ctx, connID, req)
	case domain.RequestCallNumber:
		g.handleCallNumber(ctx, connID, req)
	case domain.RequestMarkNumber:
		g.handleMarkNumber(ctx, connID, req)
	case domain.RequestResetGame:
		g.handleResetGame(ctx, connID, req)
	case domain.RequestLeaveRoom:
		g.handleLeaveRoom(ctx, connID, req)
	case domain.RequestCheckServer:
		g.hub.Send(connID, domain.NewServerStatusEvent(g.Status(ctx)))
	}
}

func (g *Gateway) Status(ctx context.Context) domain.ServerStatus {
	status := "ok"
	if err := g.registry.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("repository ping failed")
		status = "degraded"
	}
	return domain.ServerStatus{
		Status:        status,
		Rooms:         g.registry.Count(),
		Connections:   g.hub.ConnectionCount(),
		DroppedEvents: g.hub.Stats().DroppedEvents,
	}
}

func (g *Gateway) handleCreateRoom(ctx context.Context, connID string, req domain.Request) {
	for range 5 {
		code, err := g.registry.NewRoomCode()
		if err != nil {
			log.Error().Err(err).Msg("failed to create room")
			g.hub.Send(connID, domain.NewErrorEvent("", err))
			return
		}
		if !errors.Is(g.handleJoinRoom(ctx, connID, code, req, true), errRoomCodeTaken) {
			return
		}
	}
	g.hub.Send(connID, domain.NewErrorEvent("", errors.New("could not allocate a room code")))
}

func (g *Gateway) handleJoinRoom(ctx context.Context, connID, roomID string, req domain.Request, create bool) error {
	unlock := g.registry.Lock(roomID)
	defer unlock()

	if create && g.registry.Exists(roomID) {
		return errRoomCodeTaken
	}
	if _, joined := g.hub.PlayerOf(connID, roomID); joined {
		g.hub.Send(connID, domain.NewErrorEvent(roomID, domain.ErrAlreadyJoined))
		return domain.ErrAlreadyJoined
	}

	player, err := domain.NewPlayer(req.Name, req.Board)
	if err != nil {
		g.hub.Send(connID, domain.NewErrorEvent(roomID, err))
		return err
	}

	room := g.registry.GetOrCreate(roomID)
	joined, err := room.Join(player)
	switch {
	case errors.Is(err, domain.ErrRoomFull):
		log.Info().Str("room_id", roomID).Str("name", player.Name).Msg("join rejected: room full")
		g.hub.Send(connID, domain.NewRoomFullEvent(roomID))
		return err
	case errors.Is(err, domain.ErrNameTaken):
		log.Info().Str("room_id", roomID).Str("name", player.Name).Msg("join rejected: name taken")
		g.hub.Send(connID, domain.NewNameTakenEvent(roomID, player.Name))
		return err
	case err != nil:
		g.hub.Send(connID, domain.NewErrorEvent(roomID, err))
		return err
	}
	started := g.autoStart && room.AutoStart()

	// Subscribing before the commit means a connection that already went away
	// never leaves a member behind that nobody will remove.
	if err := g.hub.Subscribe(connID, roomID, joined.ID); err != nil {
		log.Debug().Err(err).Str("conn_id", connID).Str("room_id", roomID).Msg("join dropped")
		return err
	}
	g.commit(ctx, connID, room)

	log.Info().
		Str("room_id", roomID).
		Str("player_id", joined.ID).
		Str("name", joined.Name).
		Int("members", len(room.Members)).
		Msg("player joined room")

	g.hub.Send(connID, domain.NewJoinSuccessEvent(roomID, joined))
	events := []domain.Event{domain.NewPlayerJoinedEvent(roomID, joined)}
	if started {
		events = append(events, domain.NewGameStartedEvent(roomID))
	}
	g.broadcast(room, events...)
	return nil
}

func (g *Gateway) handleSetBoard(ctx context.Context, connID string, req domain.Request) {
	unlock := g.registry.Lock(req.RoomID)
	defer unlock()

	room, playerID, ok := g.lookup(connID, req)
	if !ok {
		return
	}
	if err := room.SetBoard(playerID, req.Board); err != nil {
		g.reject(connID, req, err)
		return
	}
	g.commit(ctx, connID, room)
	g.broadcast(room)
}

func (g *Gateway) handleStartGame(ctx context.Context, connID string, req domain.Request) {
	unlock := g.registry.Lock(req.RoomID)
	defer unlock()

	room, playerID, ok := g.lookup(connID, req)
	if !ok {
		return
	}
	if err := room.Start(playerID); err != nil {
		g.reject(connID, req, err)
		return
	}
	g.commit(ctx, connID, room)
	log.Info().Str("room_id", room.ID).Msg("game started")
	g.broadcast(room, domain.NewGameStartedEvent(room.ID))
}

func (g *Gateway) handleCallNumber(ctx context.Context, connID string, req domain.Request) {
	unlock := g.registry.Lock(req.RoomID)
	defer unlock()

	room, _, ok := g.lookup(connID, req)
	if !ok {
		return
	}
	if err := room.Call(req.Number); err != nil {
		g.reject(connID, req, err)
		return
	}
	g.commit(ctx, connID, room)
	g.broadcast(room, domain.NewNumberCalledEvent(room.ID, req.Number))
}

func (g *Gateway) handleMarkNumber(ctx context.Context, connID string, req domain.Request) {
	unlock := g.registry.Lock(req.RoomID)
	defer unlock()

	room, playerID, ok := g.lookup(connID, req)
	if !ok {
		return
	}
	player, won, err := room.Mark(playerID, req.Index, req.Number)
	if err != nil {
		g.reject(connID, req, err)
		return
	}
	if req.CompletedLines != player.CompletedLines {
		log.Debug().
			Str("room_id", room.ID).
			Str("player_id", playerID).
			Int("reported", req.CompletedLines).
			Int("computed", player.CompletedLines).
			Msg("client line count ignored")
	}
	g.commit(ctx, connID, room)

	events := []domain.Event{domain.NewNumberMarkedEvent(room.ID, player, req.Index, player.Board[req.Index])}
	if won {
		log.Info().Str("room_id", room.ID).Str("winner", player.Name).Msg("game won")
		events = append(events, domain.NewGameWonEvent(room.ID, player))
	}
	g.broadcast(room, events...)
}

func (g *Gateway) handleResetGame(ctx context.Context, connID string, req domain.Request) {
	unlock := g.registry.Lock(req.RoomID)
	defer unlock()

	room, playerID, ok := g.lookup(connID, req)
	if !ok {
		return
	}
	if p, _ := room.Member(playerID); !p.IsHost {
		log.Debug().Str("room_id", room.ID).Str("player_id", playerID).Msg("reset ignored: not host")
		return
	}
	room.Reset(g.autoStart)
	g.commit(ctx, connID, room)
	log.Info().Str("room_id", room.ID).Str("status", room.Status.String()).Msg("game reset")
	g.broadcast(room, domain.NewGameResetEvent(room.ID))
}

func (g *Gateway) handleLeaveRoom(ctx context.Context, connID string, req domain.Request) {
	playerID, ok := g.memberOf(connID, req)
	if !ok {
		return
	}
	g.hub.Unsubscribe(connID, req.RoomID)
	g.removePlayer(ctx, connID, req.RoomID, playerID)
}

// removePlayer expects the connection to be unsubscribed from the room already.
func (g *Gateway) removePlayer(ctx context.Context, connID, roomID, playerID string) {
	ctx = context.WithoutCancel(ctx)
	unlock := g.registry.Lock(roomID)
	defer unlock()

	room, ok := g.registry.Get(roomID)
	if !ok {
		return
	}
	left, err := room.Leave(playerID)
	if err != nil {
		return
	}
	g.commit(ctx, connID, room)

	if room.IsEmpty() {
		log.Info().Str("room_id", roomID).Msg("room destroyed: no members left")
		return
	}
	log.Info().Str("room_id", roomID).Str("player_id", playerID).Str("name", left.Name).Msg("player left room")
	g.broadcast(room, domain.NewPlayerLeftEvent(roomID, left))
}

// lookup resolves the acting player of this connection and a copy of the room.
// Missing rooms or players drop the request silently.
func (g *Gateway) lookup(connID string, req domain.Request) (*domain.Room, string, bool) {
	playerID, ok := g.memberOf(connID, req)
	if !ok {
		return nil, "", false
	}
	room, ok := g.registry.Get(req.RoomID)
	if !ok {
		log.Debug().Str("room_id", req.RoomID).Str("request", req.Type.String()).Msg("room not found, request dropped")
		return nil, "", false
	}
	if _, ok := room.Member(playerID); !ok {
		return nil, "", false
	}
	return room, playerID, true
}

func (g *Gateway) memberOf(connID string, req domain.Request) (string, bool) {
	playerID, ok := g.hub.PlayerOf(connID, req.RoomID)
	if !ok || (req.PlayerID != "" && req.PlayerID != playerID) {
		log.Debug().
			Str("conn_id", connID).
			Str("room_id", req.RoomID).
			Str("request", req.Type.String()).
			Msg("connection is not this player, request dropped")
		return "", false
	}
	return playerID, true
}

func (g *Gateway) reject(connID string, req domain.Request, err error) {
	if errors.Is(err, domain.ErrPlayerNotFound) || errors.Is(err, domain.ErrNotHost) {
		log.Debug().Err(err).Str("room_id", req.RoomID).Str("request", req.Type.String()).Msg("request dropped")
		return
	}
	g.hub.Send(connID, domain.NewErrorEvent(req.RoomID, err))
}

// commit saves or removes the room. A backend failure keeps the live copy and
// tells only the requester.
func (g *Gateway) commit(ctx context.Context, connID string, room *domain.Room) {
	if err := g.registry.Save(ctx, room); err != nil {
		log.Warn().Err(err).Str("room_id", room.ID).Msg("room committed in memory only")
		g.hub.Send(connID, domain.NewNoticeEvent(room.ID, backendNotice))
	}
}

// broadcast sends the notifications followed by the full snapshot to every subscriber.
func (g *Gateway) broadcast(room *domain.Room, events ...domain.Event) {
	events = append(events, domain.NewRoomUpdateEvent(room.Snapshot()))
	g.hub.Broadcast(room.ID, events...)
}
