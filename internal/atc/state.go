package atc

// StreamingState is the ATC's externally observable phase (spec.md §4.1's public contract).
// Internally the turn runs through a finer-grained state machine (preflight/streaming/draining/
// recovery-decision); StreamingState collapses that down to the three states callers can act on.
type StreamingState int

const (
	// Idle: no turn in progress, no pending entry, no non-terminal-or-unforwarded tool call.
	Idle StreamingState = iota
	// Responding: actively consuming a stream, or a tool call is pre-terminal or
	// terminal-but-not-yet-forwarded.
	Responding
	// WaitingForConfirmation: at least one tracked tool call is in awaiting_approval.
	WaitingForConfirmation
)

func (s StreamingState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Responding:
		return "Responding"
	case WaitingForConfirmation:
		return "WaitingForConfirmation"
	default:
		return "Unknown"
	}
}

// internalPhase names the turn's finer-grained phases (spec.md §4.1's Preflight/Streaming/
// Draining/RecoveryDecision diagram). It is not exposed, and the turn loop does not store or
// read it: the phases are implicit in the control flow of runOneTurn.
type internalPhase int

const (
	phasePreflight internalPhase = iota
	phaseStreaming
	phaseDraining
	phaseRecoveryDecision
)

// TurnState holds the six counters scoped to one user-originated turn, persisting across every
// recovery continuation it spawns (spec.md §3's Turn state / invariant 3).
type TurnState struct {
	RetryAttempts            int
	AutoRecoveryAttempts     int
	LoopRecoveryAttempts     int
	ProviderRecoveryAttempts int
	LimitRecoveryAttempts    int
	FinishRecoveryAttempts   int
}

// reset applies spec.md §4.1's counter-reset policy for entering a non-continuation turn:
// retry_attempts and auto_recovery_attempts always reset; the other four reset unless their
// matching skip flag is set. Continuations never call this at all (it is called only once,
// from SubmitQuery, before loop() starts the continuation chain).
func (t *TurnState) reset(opts Options) {
	t.RetryAttempts = 0
	t.AutoRecoveryAttempts = 0
	if !opts.SkipLoopReset {
		t.LoopRecoveryAttempts = 0
	}
	if !opts.SkipProviderReset {
		t.ProviderRecoveryAttempts = 0
	}
	if !opts.SkipLimitReset {
		t.LimitRecoveryAttempts = 0
	}
	if !opts.SkipFinishReset {
		t.FinishRecoveryAttempts = 0
	}
}

// Options mirrors spec.md §4.1's submit_query options: {is_continuation, skip_loop_reset,
// skip_provider_reset, skip_limit_reset, skip_finish_reset}.
type Options struct {
	IsContinuation    bool
	SkipLoopReset     bool
	SkipProviderReset bool
	SkipLimitReset    bool
	SkipFinishReset   bool
}
