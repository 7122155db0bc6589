package diag

import "fmt"

// Event is one accumulated diagnostic: a recoverable error or a warning
// that was promoted to an error by its WarningMode.
type Event struct {
	Kind     string
	Location string
	Message  string
}

// Context is the compiler's diagnostic sink, threaded by reference through
// the pipeline exactly as the teacher threads no such object (it logs
// directly) but as spec.md §9's design note prescribes: "Replace [a
// globally-threaded context] with a small, explicit CompilerContext
// {config, err_sink} plus pure-function APIs that take &mut err_sink
// where needed." Context is that err_sink.
type Context struct {
	modes  map[WarningKind]WarningMode
	events []Event
}

// NewContext builds a Context with every warning kind defaulting to off,
// matching ErrorsAndWarnings' default constructor in
// original_source/include/errors_warnings.h.
func NewContext() *Context {
	modes := make(map[WarningKind]WarningMode, len(AllWarningKinds))
	for _, k := range AllWarningKinds {
		modes[k] = ModeOff
	}
	return &Context{modes: modes}
}

// SetMode configures the severity of a single warning kind.
func (c *Context) SetMode(kind WarningKind, mode WarningMode) {
	c.modes[kind] = mode
}

// SetAllModes configures every warning kind to the same severity, mirroring
// ErrorsAndWarnings::setAllWarnings.
func (c *Context) SetAllModes(mode WarningMode) {
	for _, k := range AllWarningKinds {
		c.modes[k] = mode
	}
}

// PromoteWarnToError upgrades every currently-"warn" kind to "error",
// mirroring ErrorsAndWarnings::setAllEnabledWarningsToErrors. Kinds left
// off stay off.
func (c *Context) PromoteWarnToError() {
	for k, m := range c.modes {
		if m == ModeWarn {
			c.modes[k] = ModeError
		}
	}
}

// Mode reports a warning kind's configured severity.
func (c *Context) Mode(kind WarningKind) WarningMode {
	return c.modes[kind]
}

// Recoverable records a recoverable user error (spec.md §7): it always
// increments the error counter, regardless of warning configuration,
// since recoverable errors are not warnings.
func (c *Context) Recoverable(kind RecoverableKind, location, format string, args ...any) {
	c.events = append(c.events, Event{
		Kind:     string(kind),
		Location: location,
		Message:  fmt.Sprintf(format, args...),
	})
	Error(string(kind), map[string]any{"location": location, "detail": fmt.Sprintf(format, args...)})
}

// Warn records a diagnostic of the given warning kind. Its severity is
// looked up from the kind's configured WarningMode: off emits nothing,
// warn logs and continues, error logs and increments the error counter.
func (c *Context) Warn(kind WarningKind, location, format string, args ...any) {
	mode := c.modes[kind]
	if mode == ModeOff {
		return
	}
	detail := fmt.Sprintf(format, args...)
	if mode == ModeError {
		c.events = append(c.events, Event{Kind: string(kind), Location: location, Message: detail})
		Error(string(kind), map[string]any{"location": location, "detail": detail})
		return
	}
	Warn(string(kind), map[string]any{"location": location, "detail": detail})
}

// ErrorCount returns the number of accumulated recoverable errors and
// warnings promoted to errors.
func (c *Context) ErrorCount() int {
	return len(c.events)
}

// Events returns the accumulated diagnostic events in the order recorded.
func (c *Context) Events() []Event {
	return c.events
}

// CheckPhaseBoundary enforces spec.md §7's "at well-defined phase
// boundaries... checks the counter and terminates if non-zero" policy. A
// non-nil error means the calling phase must abort the compile.
func (c *Context) CheckPhaseBoundary(phase string) error {
	if c.ErrorCount() == 0 {
		return nil
	}
	return fmt.Errorf("%d error(s) accumulated after %s phase", c.ErrorCount(), phase)
}
