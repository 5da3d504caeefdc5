package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/avoronkov/flare/internal/domain/model"
	"github.com/avoronkov/flare/internal/realtime"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
	chatsvc "github.com/avoronkov/flare/internal/services/chat"
	matchessvc "github.com/avoronkov/flare/internal/services/matches"
	profilessvc "github.com/avoronkov/flare/internal/services/profiles"
	"github.com/avoronkov/flare/internal/transport/http/dto"
)

const writeWait = 10 * time.Second

type Dependencies struct {
	Auth     *authsvc.Service
	Matches  *matchessvc.Service
	Profiles *profilessvc.Service
	Chat     *chatsvc.Service
	Broker   *realtime.Broker
	Logger   *zap.Logger
}

// Handler upgrades to WebSocket and serves live-query streams. Auth comes
// from the token query parameter because browsers cannot set headers on
// WebSocket dials.
func Handler(deps Dependencies) http.HandlerFunc {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Auth == nil || deps.Broker == nil {
			http.Error(w, "realtime is unavailable", http.StatusInternalServerError)
			return
		}

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := deps.Auth.ValidateAccessToken(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept failed", zap.Error(err))
			return
		}

		identity := authsvc.Identity{UserID: claims.UserID, Username: claims.Username}
		session := &session{
			deps:     deps,
			conn:     conn,
			identity: identity,
			logger:   logger.With(zap.String("user_id", identity.UserID)),
			subs:     map[string]func(){},
		}
		session.serve(r.Context())
	}
}

// session is one authenticated connection. Each subscribed stream runs its
// own forwarding goroutine; writes to the socket are serialized by writeMu.
type session struct {
	deps     Dependencies
	conn     *websocket.Conn
	identity authsvc.Identity
	logger   *zap.Logger

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]func()
	wg   sync.WaitGroup
}

func (s *session) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(authsvc.WithIdentity(parent, s.identity))
	defer func() {
		cancel()
		s.closeAllStreams()
		s.wg.Wait()
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event ClientEvent
		if err := wsjson.Read(ctx, s.conn, &event); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		switch event.Type {
		case EventSubscribe:
			s.subscribe(ctx, event)
		case EventUnsubscribe:
			s.unsubscribe(streamKey(event))
		case EventPing:
			s.write(ctx, ServerEvent{Type: EventPong})
		default:
			s.write(ctx, ServerEvent{Type: EventError, Code: "UNKNOWN_EVENT", Message: "unknown event type: " + event.Type})
		}
	}
}

func (s *session) subscribe(ctx context.Context, event ClientEvent) {
	key := streamKey(event)

	switch event.Stream {
	case StreamMatches:
		if s.deps.Matches == nil {
			s.write(ctx, ServerEvent{Type: EventError, Code: "STREAM_UNAVAILABLE", Message: "matches stream is unavailable"})
			return
		}
		sub, err := s.deps.Matches.Watch(ctx, s.identity.UserID, 0)
		if err != nil {
			s.write(ctx, ServerEvent{Type: EventError, Code: "SUBSCRIBE_FAILED", Message: "cannot open matches stream"})
			return
		}
		startForward(s, ctx, key, sub, func(views []matchessvc.View) ServerEvent {
			return snapshotEvent(event, dto.MapMatchViews(views))
		})

	case StreamMessages:
		if event.MatchID == "" {
			s.write(ctx, ServerEvent{Type: EventError, Code: "INVALID_PAYLOAD", Message: "match_id is required for the messages stream"})
			return
		}
		if s.deps.Chat == nil {
			s.write(ctx, ServerEvent{Type: EventError, Code: "STREAM_UNAVAILABLE", Message: "messages stream is unavailable"})
			return
		}
		// Authorization runs inside ListMessages on every fetch, so a
		// removed participant loses the stream on the next event.
		sub := realtime.Subscribe(ctx, s.deps.Broker, realtime.MessagesTopic(event.MatchID), func(ctx context.Context) ([]model.Message, error) {
			return s.deps.Chat.ListMessages(ctx, event.MatchID, 0)
		})
		startForward(s, ctx, key, sub, func(msgs []model.Message) ServerEvent {
			return snapshotEvent(event, dto.MapMessages(msgs))
		})

	case StreamProfile:
		userID := event.UserID
		if userID == "" {
			userID = s.identity.UserID
		}
		if s.deps.Profiles == nil {
			s.write(ctx, ServerEvent{Type: EventError, Code: "STREAM_UNAVAILABLE", Message: "profile stream is unavailable"})
			return
		}
		sub, err := s.deps.Profiles.Watch(ctx, userID)
		if err != nil {
			s.write(ctx, ServerEvent{Type: EventError, Code: "SUBSCRIBE_FAILED", Message: "cannot open profile stream"})
			return
		}
		startForward(s, ctx, key, sub, func(users []model.User) ServerEvent {
			return snapshotEvent(event, dto.MapUsers(users))
		})

	default:
		s.write(ctx, ServerEvent{Type: EventError, Code: "INVALID_PAYLOAD", Message: "unknown stream: " + event.Stream})
	}
}

// startForward registers the subscription under key and pumps its snapshots
// into the socket until it closes. Re-subscribing to the same key replaces
// the previous stream.
func startForward[T any](s *session, ctx context.Context, key string, sub *realtime.Subscription[T], mapEvent func([]T) ServerEvent) {
	s.track(key, sub.Close)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer s.untrack(key)

		for items := range sub.Snapshots() {
			if !s.write(ctx, mapEvent(items)) {
				sub.Close()
				return
			}
		}

		if err := sub.Err(); err != nil && ctx.Err() == nil {
			s.logger.Warn("stream closed with error", zap.String("stream", key), zap.Error(err))
			s.write(ctx, ServerEvent{Type: EventError, Code: "STREAM_CLOSED", Message: "stream closed: " + key})
		}
	}()
}

func (s *session) track(key string, closeFn func()) {
	s.mu.Lock()
	if old, ok := s.subs[key]; ok {
		old()
	}
	s.subs[key] = closeFn
	s.mu.Unlock()
}

func (s *session) untrack(key string) {
	s.mu.Lock()
	delete(s.subs, key)
	s.mu.Unlock()
}

func (s *session) unsubscribe(key string) {
	s.mu.Lock()
	closeFn, ok := s.subs[key]
	delete(s.subs, key)
	s.mu.Unlock()
	if ok {
		closeFn()
	}
}

func (s *session) closeAllStreams() {
	s.mu.Lock()
	for _, closeFn := range s.subs {
		closeFn()
	}
	s.subs = map[string]func(){}
	s.mu.Unlock()
}

func (s *session) write(ctx context.Context, event ServerEvent) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := wsjson.Write(writeCtx, s.conn, event); err != nil {
		return false
	}
	return true
}

func streamKey(event ClientEvent) string {
	switch event.Stream {
	case StreamMessages:
		return StreamMessages + ":" + event.MatchID
	case StreamProfile:
		return StreamProfile + ":" + event.UserID
	default:
		return event.Stream
	}
}

func snapshotEvent(req ClientEvent, items any) ServerEvent {
	raw, err := json.Marshal(items)
	if err != nil {
		raw = []byte("[]")
	}
	return ServerEvent{
		Type:    EventSnapshot,
		Stream:  req.Stream,
		MatchID: req.MatchID,
		UserID:  req.UserID,
		Items:   raw,
	}
}
