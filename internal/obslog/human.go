package obslog

// HumanErr pairs a message suitable for the scrollback (§7 "user-facing error") with a
// separate, more detailed message suitable for structured logging.
type HumanErr struct {
	HumanMessage string
	Err
}

// NewHumanErr returns a HumanErr: HumanMessage is shown to the user, msg/args are logged.
func NewHumanErr(humanMsg string, msg string, args ...any) error {
	return &HumanErr{HumanMessage: humanMsg, Err: Err{Message: msg, attrs: args}}
}

// Error satisfies the error interface, returning only the human message (unless empty, in
// which case the logging message is used). The logging-suitable message is available via
// e.Err.Error().
func (e *HumanErr) Error() string {
	if e.HumanMessage != "" {
		return e.HumanMessage
	}
	return e.Err.Error()
}
