// Package relay is the connection multiplexer: it binds transport
// connections to sessions, routes inbound frames, replays history and
// relays turns between the client and the session engine while
// mirroring everything to the transcript store.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/identity"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
	identitymodel "github.com/ilam0602/glg-mobile-messages-ws/internal/model/identity"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/protocol"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/service/engine"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/service/resolver"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/store"
)

// Engine is the slice of the session engine the multiplexer needs.
// Satisfied by *engine.Service; nil when the model is not configured.
type Engine interface {
	Start(ctx context.Context, profile identitymodel.Profile) (engine.Conversation, error)
	Resume(ctx context.Context, profile identitymodel.Profile, history []chat.Message) (engine.Conversation, error)
}

// Config wires the multiplexer's collaborators.
type Config struct {
	Transcripts store.TranscriptStore
	Directory   identity.Directory
	Contacts    store.ContactStore // optional
	Engine      Engine             // optional
	Resolver    *resolver.Resolver
	Logger      zerolog.Logger
}

// Service multiplexes all live connections. One Service per process.
type Service struct {
	registry    *Registry
	transcripts store.TranscriptStore
	directory   identity.Directory
	contacts    store.ContactStore
	engine      Engine
	resolver    *resolver.Resolver
	logger      zerolog.Logger
	now         func() time.Time
}

func New(cfg Config) *Service {
	return &Service{
		registry:    NewRegistry(),
		transcripts: cfg.Transcripts,
		directory:   cfg.Directory,
		contacts:    cfg.Contacts,
		engine:      cfg.Engine,
		resolver:    cfg.Resolver,
		logger:      cfg.Logger.With().Str("component", "relay").Logger(),
		now:         time.Now,
	}
}

// Registry exposes the shared tables for inspection (health, tests).
func (s *Service) Registry() *Registry {
	return s.registry
}

// State of one connection's binding lifecycle.
type State int

const (
	StateUnbound State = iota
	StateBinding
	StateBound
	StateClosed
)

// Conn is the multiplexer's view of one transport connection. All
// methods are called from that connection's single read goroutine, so
// inbound frames are processed strictly in receipt order and the
// fields need no lock of their own.
type Conn struct {
	svc       *Service
	transport Transport
	state     State
	sessionID string
	uid       string
}

// NewConn registers interest in a freshly accepted transport. The
// connection starts unbound; a session is associated only after an
// attach or start-chat frame.
func (s *Service) NewConn(t Transport) *Conn {
	return &Conn{svc: s, transport: t, state: StateUnbound}
}

func (c *Conn) State() State {
	return c.state
}

// SessionID returns the currently bound session id, empty if unbound.
func (c *Conn) SessionID() string {
	return c.sessionID
}

// Close releases the connection binding so no frame is ever delivered
// to a dead transport. The live session handle deliberately survives
// for a later resume.
func (c *Conn) Close() {
	if c.state == StateClosed {
		return
	}
	if c.sessionID != "" {
		c.svc.registry.Unbind(c.sessionID, c.transport)
	}
	c.state = StateClosed
}

// HandleFrame routes one inbound frame. Dispatch priority: attach to
// an explicit session id, then start-chat, then plain chat message.
func (c *Conn) HandleFrame(ctx context.Context, ident identitymodel.Identity, text string) {
	if c.state == StateClosed {
		return
	}

	cmd := protocol.ParseCommand(text)
	switch cmd.Kind {
	case protocol.KindAttachSession:
		c.handleAttach(ctx, ident, cmd.SessionID)
	case protocol.KindStartChat:
		c.handleStartChat(ctx, ident)
	default:
		c.handleChatMessage(ctx, ident, cmd.Text)
	}
}

// handleAttach replays an existing session's transcript to this
// connection. Ownership is validated against the stored rows; a
// mismatch yields no data and no acknowledgement, so an unauthorized
// caller cannot even confirm the session id exists.
func (c *Conn) handleAttach(ctx context.Context, ident identitymodel.Identity, sessionID string) {
	if sessionID == "" {
		c.svc.logger.Warn().Str("uid", ident.UID).Msg("attach frame with empty session id dropped")
		return
	}

	c.state = StateBinding
	history, err := c.svc.transcripts.History(ctx, sessionID)
	if err != nil {
		c.svc.logger.Error().Err(err).Str("session_id", sessionID).Msg("transcript load failed")
		c.sendError("could not load session history")
		c.state = StateUnbound
		return
	}

	if len(history) > 0 && history[0].OwnerUID != ident.UID {
		c.svc.logger.Warn().
			Str("uid", ident.UID).
			Str("session_id", sessionID).
			Msg("attach rejected: session owned by another identity")
		c.state = StateUnbound
		return
	}

	c.bind(ident.UID, sessionID)

	c.send(protocol.HistoryAnnouncement(sessionID))
	earliest := c.svc.now().Unix()
	if len(history) > 0 {
		earliest = history[0].Timestamp
	}
	c.send(protocol.HistoryDate(earliest))
	for _, msg := range history {
		c.send(protocol.HistoryLine(msg))
	}
	c.send(protocol.HistoryDone())
}

// handleStartChat runs the resolver and either mints a new session or
// resumes the most recent one. Resolution failures fail open into a
// new empty session rather than locking the user out.
func (c *Conn) handleStartChat(ctx context.Context, ident identitymodel.Identity) {
	c.state = StateBinding

	decision := resolver.Decision{Kind: resolver.KindNew}
	if d, err := c.svc.resolver.Resolve(ctx, ident.UID); err != nil {
		c.svc.logger.Warn().Err(err).Str("uid", ident.UID).Msg("resolution failed; starting new session")
	} else {
		decision = d
	}

	profile := c.svc.fetchProfile(ctx, ident.UID)

	if decision.Kind == resolver.KindResume {
		c.resumeSession(ctx, ident, profile, decision.SessionID)
		return
	}
	c.startNewSession(ctx, ident, profile)
}

func (c *Conn) startNewSession(ctx context.Context, ident identitymodel.Identity, profile identitymodel.Profile) {
	if c.svc.engine != nil {
		conv, err := c.svc.engine.Start(ctx, profile)
		if err != nil {
			c.svc.logger.Warn().Err(err).Str("uid", ident.UID).Msg("engine start failed; session continues without a live handle")
		} else {
			c.svc.registry.PutHandle(ident.UID, conv)
		}
	}

	sessionID := uuid.NewString()
	if err := c.svc.directory.AddSession(ctx, ident.UID, sessionID); err != nil {
		c.svc.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session id not recorded; resume will not find it")
	}

	c.bind(ident.UID, sessionID)
	c.send(protocol.SessionAnnouncement(sessionID))
	c.send(protocol.DateFrame(c.svc.now().Unix()))

	greetingText := greeting(profile.Name)
	c.persist(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    chat.SenderAgent,
		Body:      greetingText,
		Timestamp: c.svc.now().Unix(),
		OwnerUID:  ident.UID,
	})
	c.svc.registry.Deliver(sessionID, protocol.AgentReply(greetingText))
	c.send(protocol.Ready())

	c.svc.logger.Info().Str("uid", ident.UID).Str("session_id", sessionID).Msg("new session started")
}

func (c *Conn) resumeSession(ctx context.Context, ident identitymodel.Identity, profile identitymodel.Profile, sessionID string) {
	if _, ok := c.svc.registry.Handle(ident.UID); !ok && c.svc.engine != nil {
		history, err := c.svc.transcripts.History(ctx, sessionID)
		if err != nil {
			c.svc.logger.Warn().Err(err).Str("session_id", sessionID).Msg("rehydrate failed; starting new session")
			c.startNewSession(ctx, ident, profile)
			return
		}
		conv, err := c.svc.engine.Resume(ctx, profile, history)
		if err != nil {
			c.svc.logger.Warn().Err(err).Str("session_id", sessionID).Msg("engine resume failed; session continues without a live handle")
		} else {
			c.svc.registry.PutHandle(ident.UID, conv)
		}
	}

	c.bind(ident.UID, sessionID)
	c.send(protocol.Ready())

	c.svc.logger.Info().Str("uid", ident.UID).Str("session_id", sessionID).Msg("session resumed")
}

// handleChatMessage relays one user turn: persist it, ask the engine
// for a reply, persist that, deliver. The persist for the user turn is
// issued before the reply is requested so the transcript order always
// matches the real exchange order.
func (c *Conn) handleChatMessage(ctx context.Context, ident identitymodel.Identity, text string) {
	if c.state != StateBound {
		c.sendError("no active session: send start_chat: first")
		return
	}

	c.persist(ctx, chat.Message{
		SessionID: c.sessionID,
		Sender:    chat.SenderUser,
		Body:      text,
		Timestamp: c.svc.now().Unix(),
		OwnerUID:  ident.UID,
	})

	conv, ok := c.svc.registry.Handle(ident.UID)
	if !ok {
		conv = c.rehydrate(ctx, ident)
	}
	if conv == nil {
		c.sendError("agent unavailable")
		return
	}

	reply, err := conv.Reply(ctx, text)
	if err != nil {
		c.svc.logger.Error().Err(err).Str("session_id", c.sessionID).Msg("reply generation failed")
		c.sendError("agent failed to respond, please try again")
		return
	}

	c.persist(ctx, chat.Message{
		SessionID: c.sessionID,
		Sender:    chat.SenderAgent,
		Body:      reply,
		Timestamp: c.svc.now().Unix(),
		OwnerUID:  ident.UID,
	})

	if !c.svc.registry.Deliver(c.sessionID, protocol.AgentReply(reply)) {
		c.svc.logger.Debug().Str("session_id", c.sessionID).Msg("connection gone; reply persisted but not delivered")
	}
}

// rehydrate rebuilds the live handle from the stored transcript, which
// happens when a client resumes against a fresh process.
func (c *Conn) rehydrate(ctx context.Context, ident identitymodel.Identity) engine.Conversation {
	if c.svc.engine == nil {
		return nil
	}
	history, err := c.svc.transcripts.History(ctx, c.sessionID)
	if err != nil {
		c.svc.logger.Warn().Err(err).Str("session_id", c.sessionID).Msg("rehydrate transcript load failed")
		history = nil
	}
	conv, err := c.svc.engine.Resume(ctx, c.svc.fetchProfile(ctx, ident.UID), history)
	if err != nil {
		c.svc.logger.Error().Err(err).Str("session_id", c.sessionID).Msg("rehydrate failed")
		return nil
	}
	c.svc.registry.PutHandle(ident.UID, conv)
	return conv
}

func (c *Conn) bind(uid, sessionID string) {
	// A connection is reassignable: attaching to a second session
	// releases the first binding.
	if c.sessionID != "" && c.sessionID != sessionID {
		c.svc.registry.Unbind(c.sessionID, c.transport)
	}
	c.svc.registry.Bind(sessionID, c.transport)
	c.sessionID = sessionID
	c.uid = uid
	c.state = StateBound
}

// persist mirrors a message to the transcript store. Durability is
// best-effort: failures are logged, never surfaced mid-exchange, and
// the write continues even if the connection context is cancelled.
func (c *Conn) persist(ctx context.Context, msg chat.Message) {
	if err := c.svc.transcripts.Append(context.WithoutCancel(ctx), msg); err != nil {
		c.svc.logger.Error().Err(err).
			Str("session_id", msg.SessionID).
			Str("sender", msg.Sender).
			Msg("transcript append failed")
	}
}

func (s *Service) fetchProfile(ctx context.Context, uid string) identitymodel.Profile {
	profile, err := s.directory.Profile(ctx, uid)
	if err != nil {
		s.logger.Warn().Err(err).Str("uid", uid).Msg("profile lookup failed; using generic instruction")
		return identitymodel.Profile{}
	}
	if s.contacts != nil && profile.ContactID != "" {
		details, err := s.contacts.ProgramDetails(ctx, profile.ContactID)
		if err != nil {
			s.logger.Warn().Err(err).Str("contact_id", profile.ContactID).Msg("program details lookup failed")
		} else {
			profile.ProgramDetails = details
		}
	}
	return profile
}

func (c *Conn) send(frame string) {
	if err := c.transport.Send(frame); err != nil {
		c.svc.logger.Debug().Err(err).Str("session_id", c.sessionID).Msg("frame send failed")
	}
}

func (c *Conn) sendError(message string) {
	c.send(protocol.ErrorEnvelope(message))
}

func greeting(name string) string {
	if name == "" {
		return "Hello, My name is Paige. How can I help you today?"
	}
	return fmt.Sprintf("Hello %s, My name is Paige. How can I help you today?", name)
}
