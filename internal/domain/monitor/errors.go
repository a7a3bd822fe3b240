package monitor

import "errors"

// Sentinel kinds for monitor errors. Sources wrap their failures with
// ErrPermission or ErrDevice so callers can tell them apart.
var (
	ErrPermission     = errors.New("audio input permission denied")
	ErrDevice         = errors.New("audio input device unavailable")
	ErrAlreadyRunning = errors.New("monitor already running")
	ErrNilSource      = errors.New("audio source is nil")
)

// FailureKind names the acquisition failure carried by err: "permission",
// "device" or "" when err is neither.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrDevice):
		return "device"
	default:
		return ""
	}
}
