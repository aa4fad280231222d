package townsim

import "time"

// Tunables, grounded on spec.md §6's constants table. Where spec.md names a
// range rather than a single value, the canonical choice follows the Open
// Question decision recorded in SPEC_FULL.md §9 and DESIGN.md: the upper end
// of the named range.
const (
	Tick                      = 16 * time.Millisecond
	StepInterval              = 1 * time.Second
	MaxStep                   = 10 * time.Minute
	PathfindingTimeout        = 60 * time.Second
	PathfindingBackoffMax     = 1 * time.Second
	CollisionThreshold        = 0.75
	ConversationDistance      = 1.3
	MidpointThreshold         = 4.0
	ConversationCooldown      = 15 * time.Second
	ActivityCooldown          = 10 * time.Second
	PlayerConversationCooldown = 60 * time.Second
	InviteAcceptProbability   = 0.8
	InviteTimeout             = 60 * time.Second
	AwkwardConversationTimeout = 60 * time.Second
	MaxConversationDuration   = 10 * time.Minute
	MaxConversationMessages   = 8
	MessageCooldown           = 2 * time.Second
	ActionTimeout             = 120 * time.Second
	HumanIdleTooLong          = 5 * time.Minute
	IdleWorldTimeout          = 30 * time.Minute
	MaxHumanPlayers           = 8
	MaxPathfindsPerStep       = 16
	VacuumMaxAge              = 2 * 7 * 24 * time.Hour
	DeleteBatchSize           = 200
	MaxInputsPerEngine        = 1000
	RobberyCooldown           = 45 * time.Second
	CombatCooldown            = 45 * time.Second
	HospitalRecovery          = 30 * time.Second
	DeadEngineStallAge        = 2 * time.Minute
	JustLeftConversationWindow = 5 * time.Second
)
