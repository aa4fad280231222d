package townsim

import "github.com/google/uuid"

// PlayerID identifies a Player within a World's arena. Underlying
// representation is a uuid, but callers must never treat ids as
// interchangeable across entity kinds.
type PlayerID uuid.UUID

// AgentID identifies the autonomy layer bound to a Player.
type AgentID uuid.UUID

// ConversationID identifies a live conversation between two or more players.
type ConversationID uuid.UUID

// OperationID identifies a dispatched asynchronous operation.
type OperationID uuid.UUID

// WorldID identifies a simulated world/town.
type WorldID uuid.UUID

// EngineID identifies the scheduler attached to one World, grounded on
// spec.md §3's distinct Engine entity (the teacher has no equivalent
// identity separate from its single Game/Engine pairing).
type EngineID uuid.UUID

func NewPlayerID() PlayerID             { return PlayerID(uuid.New()) }
func NewAgentID() AgentID               { return AgentID(uuid.New()) }
func NewConversationID() ConversationID { return ConversationID(uuid.New()) }
func NewOperationID() OperationID       { return OperationID(uuid.New()) }
func NewWorldID() WorldID               { return WorldID(uuid.New()) }
func NewEngineID() EngineID             { return EngineID(uuid.New()) }

func (id PlayerID) String() string       { return uuid.UUID(id).String() }
func (id AgentID) String() string        { return uuid.UUID(id).String() }
func (id ConversationID) String() string { return uuid.UUID(id).String() }
func (id OperationID) String() string    { return uuid.UUID(id).String() }
func (id WorldID) String() string        { return uuid.UUID(id).String() }
func (id EngineID) String() string       { return uuid.UUID(id).String() }

func (id PlayerID) IsZero() bool { return id == PlayerID{} }
func (id AgentID) IsZero() bool  { return id == AgentID{} }
