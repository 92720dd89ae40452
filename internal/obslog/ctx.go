package obslog

import "log/slog"

// Ctx is held by long-lived components (the ATC's Controller keeps one as its log field) to
// give them a consistent Log/LogNew/LogWrapped surface without each one holding its own
// *slog.Logger plumbing.
type Ctx struct {
	Logger *slog.Logger
}

func NewCtx(logger *slog.Logger) Ctx {
	return Ctx{Logger: logger}
}

func (c Ctx) LogNew(msg string, args ...any) error {
	return LogNew(c.Logger, msg, args...)
}

func (c Ctx) LogWrapped(msg string, cause error, args ...any) error {
	return LogWrapped(c.Logger, msg, cause, args...)
}

func (c Ctx) Log(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Info(msg, args...)
	}
}
