// Package protocol owns the textual wire grammar spoken over the
// WebSocket. Inbound frames are parsed into tagged commands at the
// boundary; outbound frames are built here so the prefixes stay in one
// place. The grammar is inherited from the deployed mobile clients and
// must not change shape.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
)

// Inbound command prefixes.
const (
	attachPrefix    = "sid:"
	startChatPrefix = "start_chat:"
)

// Outbound frame prefixes.
const (
	sessionAnnouncePrefix = "Kore Session ID: "
	datePrefix            = "DATE: "
	historyPrefix         = "HISTORY: "
	historyDoneFrame      = "HISTORY DONE:"
	readyFrame            = "ready: "
	agentReplyPrefix      = "From Slack: "
)

// CommandKind tags a parsed inbound frame.
type CommandKind int

const (
	// KindChatMessage is the default: the whole frame is a user turn.
	KindChatMessage CommandKind = iota
	// KindAttachSession requests a replay of an existing session.
	KindAttachSession
	// KindStartChat asks the server to begin or resume a session.
	KindStartChat
)

// Command is the parsed form of one inbound frame.
type Command struct {
	Kind      CommandKind
	SessionID string
	Text      string
}

// Envelope is the JSON wrapper every inbound WebSocket frame arrives
// in. The token rides out-of-band next to the message payload.
type Envelope struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// ParseEnvelope decodes one raw WebSocket frame.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode frame envelope: %w", err)
	}
	return env, nil
}

// ParseCommand classifies a frame body by prefix. Dispatch order
// matters: attach beats start_chat beats plain chat message.
func ParseCommand(text string) Command {
	switch {
	case strings.HasPrefix(text, attachPrefix):
		return Command{Kind: KindAttachSession, SessionID: text[len(attachPrefix):]}
	case strings.HasPrefix(text, startChatPrefix):
		return Command{Kind: KindStartChat}
	default:
		return Command{Kind: KindChatMessage, Text: text}
	}
}

// SessionAnnouncement tells the client which session id it was bound to.
func SessionAnnouncement(sessionID string) string {
	return sessionAnnouncePrefix + sessionID
}

// DateFrame carries a timestamp in epoch seconds.
func DateFrame(epochSeconds int64) string {
	return fmt.Sprintf("%s%d", datePrefix, epochSeconds)
}

// HistoryAnnouncement opens a replay stream for the given session.
func HistoryAnnouncement(sessionID string) string {
	return historyPrefix + SessionAnnouncement(sessionID)
}

// HistoryDate carries the earliest timestamp of the replayed transcript.
func HistoryDate(epochSeconds int64) string {
	return historyPrefix + DateFrame(epochSeconds)
}

// HistoryLine renders one replayed message.
func HistoryLine(msg chat.Message) string {
	return fmt.Sprintf("%s%s: %s", historyPrefix, msg.Sender, msg.Body)
}

// HistoryDone terminates a replay stream.
func HistoryDone() string {
	return historyDoneFrame
}

// Ready signals the client may start sending chat messages.
func Ready() string {
	return readyFrame
}

// AgentReply wraps an agent turn for delivery.
func AgentReply(text string) string {
	return agentReplyPrefix + text
}

// ErrorEnvelope renders the JSON error frame used for per-connection
// failures.
func ErrorEnvelope(message string) string {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error":"internal error"}`
	}
	return string(payload)
}
