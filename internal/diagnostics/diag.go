package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes emitted by the effect supervisor.
const (
	EffectStarted   = "EFFECT.STARTED"
	EffectStopped   = "EFFECT.STOPPED"
	EffectCompleted = "EFFECT.COMPLETED"
	EffectUnknown   = "EFFECT.UNKNOWN"
	Restored        = "DEVICES.RESTORED"
)

type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Code     string         `json:"code"`
	Summary  string         `json:"summary"`
	Detail   string         `json:"detail,omitempty"`
	Time     time.Time      `json:"time"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

// Listener receives diagnostics. It must not block.
type Listener func(Diagnostic)

// Emit stamps d with the current time and delivers it to l, if any.
func (l Listener) Emit(d Diagnostic) {
	if l == nil {
		return
	}
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	l(d)
}
