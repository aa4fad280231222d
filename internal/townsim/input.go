package townsim

import "time"

// ErrorKind is the closed set of error categories a Result can carry,
// grounded on the teacher's GameError sentinels in game/engine.go,
// generalized per the redesign note calling for a closed tagged union
// rather than ad hoc error strings.
type ErrorKind string

const (
	ErrInvalidInput ErrorKind = "invalidInput"
	ErrRateLimited  ErrorKind = "rateLimited"
	ErrNotFound     ErrorKind = "notFound"
	ErrConflict     ErrorKind = "conflict"
	ErrTimedOut     ErrorKind = "timedOut"
	ErrInternal     ErrorKind = "internal"
)

// Result is the discriminated ok(value)|error(kind, message) union every
// input resolves to, grounded on the teacher's ActionResult but replacing
// its single struct-of-optional-fields shape with an explicit two-case
// union (spec §9's "closed tagged union" redesign note).
type Result struct {
	ok      bool
	value   any
	kind    ErrorKind
	message string
}

func Ok(value any) Result { return Result{ok: true, value: value} }

func Err(kind ErrorKind, message string) Result {
	return Result{ok: false, kind: kind, message: message}
}

func (r Result) IsOK() bool          { return r.ok }
func (r Result) Value() any          { return r.value }
func (r Result) ErrorKind() ErrorKind { return r.kind }
func (r Result) Message() string     { return r.message }

// InputName is the closed set of input kinds the kernel accepts, grounded
// on the teacher's ActionType enum (actions.go) but generalized from game
// actions to simulation-level operations.
type InputName string

const (
	InputJoin                    InputName = "join"
	InputLeave                   InputName = "leave"
	InputMoveTo                  InputName = "moveTo"
	InputEnterZone               InputName = "enterZone"
	InputStartConversation       InputName = "startConversation"
	InputSendMessage             InputName = "sendMessage"
	InputLeaveConversation       InputName = "leaveConversation"
	InputStartRobbery            InputName = "startRobbery"
	InputFinishRobbery           InputName = "finishRobbery"
	InputStartCombat             InputName = "startCombat"
	InputFinishCombat            InputName = "finishCombat"
	InputDoSomething             InputName = "doSomething"
	InputFinishDoSomething       InputName = "finishDoSomething"
	InputFinishConversationLine  InputName = "finishConversationLine"
	InputCreateAgentFromAIArena  InputName = "createAgentFromAIArena"
	InputUpdatePlayerEquipment   InputName = "updatePlayerEquipment"
	InputFinishRememberConversation InputName = "finishRememberConversation"
	InputFinishGrantMovementXP  InputName = "finishGrantMovementXP"
	InputFinishGenerateLootDrop InputName = "finishGenerateLootDrop"
)

// Input is a single journaled command: a name plus a closed set of
// arguments, numbered densely and monotonically within its world.
type Input struct {
	Number    int64
	Name      InputName
	PlayerID  PlayerID
	Args      map[string]any
	Tick      int64
	QueuedAt  time.Time

	// returnValue is recorded once the engine applies this input,
	// grounded on spec.md §6's "Return values are the sole way callers
	// observe input completion (by polling by id)".
	returnValue Result
}

// Operation describes an asynchronous task dispatched off the tick path.
// Operations never mutate the world directly; they resolve to a follow-up
// Input appended to the journal, per spec §9's "tasks communicate only via
// the input journal" redesign note. Grounded on a generalization of the
// teacher's synchronous llmClient.GetAction call in game/tick.go into an
// explicit, named, asynchronously-dispatched unit.
type OperationName string

const (
	OpRequestAgentDecision     OperationName = "requestAgentDecision"
	OpGenerateConversationLine OperationName = "generateConversationLine"
	OpResolveActivity          OperationName = "resolveActivity"
	OpResolveRobbery           OperationName = "resolveRobbery"
	OpResolveCombat            OperationName = "resolveCombat"
	OpAgentRememberConversation OperationName = "agentRememberConversation"

	// OpLogZoneChange and OpLogActivityEnd back spec.md §4.3's player-tick
	// housekeeping log writes; OpGrantMovementXP and OpGenerateLootDrop back
	// its idle-step-accounting and per-zone loot-roll rules.
	OpLogZoneChange    OperationName = "logZoneChange"
	OpLogActivityEnd   OperationName = "logActivityEnd"
	OpGrantMovementXP  OperationName = "grantMovementXP"
	OpGenerateLootDrop OperationName = "generateLootDrop"

	// OpLogHospitalRecovery backs spec.md §4.6's "a hospital_recovery log
	// is emitted upon return" rule, scheduled when engine.go discharges a
	// knocked-out player.
	OpLogHospitalRecovery OperationName = "logHospitalRecovery"

	// OpCleanupPlayerData backs spec.md §6's leave{playerId} contract
	// ("schedules cleanupPlayerData"): removes the derived durable records
	// a departing player leaves behind, off the tick path.
	OpCleanupPlayerData OperationName = "cleanupPlayerData"
)

type Operation struct {
	ID       OperationID
	Name     OperationName
	WorldID  WorldID
	PlayerID PlayerID
	Args     map[string]any
	Started  time.Time
}
