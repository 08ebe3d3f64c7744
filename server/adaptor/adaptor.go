package adaptor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ponyo877/bingo/server/domain"
)

var errRateLimited = errors.New("too many requests, slow down")

type Options struct {
	OutboxSize     int
	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 20
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 40
	}
	return o
}

// Adaptor bridges WebSocket connections to the gateway: one session per connection.
type Adaptor struct {
	gateway  Gateway
	options  Options
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conns   map[*websocketConnection]struct{}
	closing bool
	streams sync.WaitGroup
}

func NewAdaptor(gateway Gateway, options Options) *Adaptor {
	options = options.withDefaults()
	return &Adaptor{
		gateway: gateway,
		options: options,
		conns:   make(map[*websocketConnection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(options.AllowedOrigins),
		},
	}
}

// originChecker allows every origin when the list is empty or contains "*".
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.ContainsFunc(allowed, func(a string) bool {
			return strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host)
		})
	}
}

// ServeWS upgrades the request and runs the session until either side closes.
func (a *Adaptor) ServeWS(w http.ResponseWriter, r *http.Request) {
	if a.isClosing() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	wc := newWebsocketConnection(conn)
	if !a.track(wc) {
		wc.Close("server shutting down")
		return
	}
	defer a.untrack(wc)

	session := domain.NewSession(uuid.NewString(), r.RemoteAddr)
	a.stream(r.Context(), wc, session)
}

func (a *Adaptor) isClosing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closing
}

// track registers a live connection. It refuses once Shutdown has started.
func (a *Adaptor) track(wc *websocketConnection) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closing {
		return false
	}
	a.conns[wc] = struct{}{}
	a.streams.Add(1)
	return true
}

func (a *Adaptor) untrack(wc *websocketConnection) {
	a.mu.Lock()
	delete(a.conns, wc)
	a.mu.Unlock()
	a.streams.Done()
}

// Shutdown closes every live connection and waits until their sessions have run the
// disconnect path, or ctx expires. http.Server.Shutdown does not reach hijacked connections.
func (a *Adaptor) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closing = true
	for wc := range a.conns {
		wc.Close("server shutting down")
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sessions still running: %w", ctx.Err())
	}
}

func (a *Adaptor) stream(ctx context.Context, conn *websocketConnection, session domain.Session) {
	logger := log.With().Str("conn_id", session.ID).Str("remote", session.Remote).Logger()
	logger.Info().Msg("client connected")

	requestChan := make(chan domain.Request)
	outbox := make(chan domain.Event, a.options.OutboxSize)

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := a.gateway.HandleSession(ctx, session, requestChan, outbox); err != nil {
			logger.Error().Err(err).Msg("session failed")
			conn.socket.Close()
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		a.writeLoop(conn, outbox)
	}()

	a.readLoop(conn, session, requestChan, outbox, sessionDone)

	// the gateway stops writing to the outbox once HandleSession has returned
	close(requestChan)
	<-sessionDone
	close(outbox)
	<-writerDone
	logger.Info().Msg("client disconnected")
}

func (a *Adaptor) readLoop(
	conn *websocketConnection,
	session domain.Session,
	requestChan chan<- domain.Request,
	outbox chan<- domain.Event,
	sessionDone <-chan struct{},
) {
	limiter := rate.NewLimiter(rate.Limit(a.options.RateLimit), a.options.RateBurst)
	reply := func(e domain.Event) {
		select {
		case outbox <- e:
		default:
		}
	}

	for {
		data, err := conn.Read()
		if err != nil {
			if isExpectedClose(err) {
				log.Debug().Str("conn_id", session.ID).Msg("client closed connection")
			} else {
				log.Debug().Err(err).Str("conn_id", session.ID).Msg("read failed")
			}
			return
		}
		if !limiter.Allow() {
			reply(domain.NewErrorEvent("", errRateLimited))
			continue
		}

		request, err := DecodeRequest(data)
		if err != nil {
			log.Debug().Err(err).Str("conn_id", session.ID).Msg("rejected frame")
			reply(domain.NewErrorEvent("", err))
			continue
		}

		select {
		case requestChan <- request:
		case <-sessionDone:
			return
		}
	}
}

func (a *Adaptor) writeLoop(conn *websocketConnection, outbox <-chan domain.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-outbox:
			if !ok {
				conn.Close("bye")
				return
			}
			data, err := EncodeEvent(e)
			if err != nil {
				log.Error().Err(err).Str("event", e.String()).Msg("failed to encode event")
				continue
			}
			if err := conn.Write(data); err != nil {
				log.Debug().Err(err).Msg("write failed, closing connection")
				conn.socket.Close()
				drain(outbox)
				return
			}
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				conn.socket.Close()
				drain(outbox)
				return
			}
		}
	}
}

// drain discards events until the session closes the outbox.
func drain(outbox <-chan domain.Event) {
	for range outbox {
	}
}
