package townsim

import (
	"time"

	"github.com/google/uuid"
)

// ConversationState is one state in the invite/walk-over/participating/leave
// machine, grounded on the ordered-processing idiom of the teacher's
// conflict.go ConflictResolver, generalized into an explicit per-entity
// state machine (the teacher has no conversation concept at all — this is
// new mechanics built in the teacher's plain-struct-plus-methods idiom).
type ConversationState string

const (
	ConversationInvited       ConversationState = "invited"
	ConversationWalkingOver   ConversationState = "walkingOver"
	ConversationParticipating ConversationState = "participating"
	ConversationEnded         ConversationState = "ended"
)

type ConversationLine struct {
	SpeakerID PlayerID
	Text      string
	Tick      int64
	At        time.Time
}

// TypingLock is the conversation's single advisory mutex: only the holder
// may append the next line, grounded on spec.md §4.4's isTyping token.
type TypingLock struct {
	Held        bool
	PlayerID    PlayerID
	MessageUUID string
	Since       time.Time
}

// Conversation holds the participants and transcript of a live exchange.
// MaxMessages and cooldown values follow the Open Question decision in
// SPEC_FULL.md §9 (upper end of spec.md's named ranges).
type Conversation struct {
	ID        ConversationID
	Initiator PlayerID
	Invitee   PlayerID
	State     ConversationState

	InviteeInvitedAt time.Time
	InviteeAcceptedAt time.Time

	StartedAt time.Time
	EndedAt   time.Time

	Lines       []ConversationLine
	MaxMessages int

	Typing TypingLock
}

func NewConversation(id ConversationID, initiator, invitee PlayerID, now time.Time) *Conversation {
	return &Conversation{
		ID:               id,
		Initiator:        initiator,
		Invitee:          invitee,
		State:            ConversationInvited,
		InviteeInvitedAt: now,
		MaxMessages:      MaxConversationMessages,
	}
}

func (c *Conversation) Participants() [2]PlayerID {
	return [2]PlayerID{c.Initiator, c.Invitee}
}

func (c *Conversation) BeginWalkingOver() { c.State = ConversationWalkingOver }

func (c *Conversation) BeginParticipating(now time.Time) {
	c.State = ConversationParticipating
	c.StartedAt = now
	c.InviteeAcceptedAt = now
}

// AcquireTypingLock takes the advisory typing mutex for speaker, grounded
// on spec.md §4.4's "take the typing lock with a fresh message-uuid" rule.
// Fails if another participant already holds it.
func (c *Conversation) AcquireTypingLock(speaker PlayerID, now time.Time) (string, bool) {
	if c.Typing.Held && c.Typing.PlayerID != speaker {
		return "", false
	}
	msgUUID := uuid.New().String()
	c.Typing = TypingLock{Held: true, PlayerID: speaker, MessageUUID: msgUUID, Since: now}
	return msgUUID, true
}

func (c *Conversation) ReleaseTypingLock() { c.Typing = TypingLock{} }

func (c *Conversation) LastMessage() (ConversationLine, bool) {
	if len(c.Lines) == 0 {
		return ConversationLine{}, false
	}
	return c.Lines[len(c.Lines)-1], true
}

func (c *Conversation) AddLine(speaker PlayerID, text string, tick int64, now time.Time) bool {
	if c.State != ConversationParticipating {
		return false
	}
	if len(c.Lines) >= c.MaxMessages {
		return false
	}
	c.Lines = append(c.Lines, ConversationLine{SpeakerID: speaker, Text: text, Tick: tick, At: now})
	c.ReleaseTypingLock()
	return true
}

func (c *Conversation) IsExhausted() bool {
	return len(c.Lines) >= c.MaxMessages
}

// EligibleToSpeak implements spec.md §4.4's participating→participating
// speaking-eligibility rule: nobody else holds the typing lock, and either
// the agent is the creator with no message yet or AWKWARD_CONVERSATION_TIMEOUT
// has elapsed since start, or otherwise MESSAGE_COOLDOWN has elapsed since
// the last message and the candidate did not author it.
func (c *Conversation) EligibleToSpeak(candidate PlayerID, now time.Time) bool {
	if c.State != ConversationParticipating || c.IsExhausted() {
		return false
	}
	if c.Typing.Held && c.Typing.PlayerID != candidate {
		return false
	}
	last, hasLast := c.LastMessage()
	if !hasLast {
		return candidate == c.Initiator || now.Sub(c.StartedAt) >= AwkwardConversationTimeout
	}
	if last.SpeakerID == candidate {
		return false
	}
	return now.Sub(last.At) >= MessageCooldown
}

// ShouldEnd implements spec.md §4.4's participating→left rule.
func (c *Conversation) ShouldEnd(now time.Time) bool {
	if c.State != ConversationParticipating {
		return false
	}
	return now.Sub(c.StartedAt) >= MaxConversationDuration || c.IsExhausted()
}

// InviteExpired implements the walkingOver give-up rule: invited +
// INVITE_TIMEOUT < now.
func (c *Conversation) InviteExpired(now time.Time) bool {
	if c.State != ConversationInvited && c.State != ConversationWalkingOver {
		return false
	}
	return now.Sub(c.InviteeInvitedAt) > InviteTimeout
}

func (c *Conversation) End(now time.Time) {
	c.State = ConversationEnded
	c.EndedAt = now
	c.ReleaseTypingLock()
}

func (c *Conversation) Includes(p PlayerID) bool {
	return c.Initiator == p || c.Invitee == p
}

// CandidateScore implements spec.md §4.4's invite-candidate scoring formula:
// base 50 + 0.5*trust - 2*revenge + 0.3*loyalty - 0.5*fear, multiplied by
// 10/(distance+10), with revenge>70 excluded entirely.
func CandidateScore(trust, revenge, loyalty, fear float64, distance float64) (score float64, eligible bool) {
	if revenge > 70 {
		return 0, false
	}
	base := 50 + 0.5*trust - 2*revenge + 0.3*loyalty - 0.5*fear
	return base * (10 / (distance + 10)), true
}
