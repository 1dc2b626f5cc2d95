package hover

import "github.com/dshills/reghover/internal/integration/debug/registers"

// ContextKey is the context key mirroring InspectState.HoverActive for
// inspect command enablement.
const ContextKey = "reghover.hoverActive"

// InspectState is the interaction state of one debug session.
type InspectState struct {
	// HoverActive is set by a register hover and cleared by any selection
	// change.
	HoverActive bool

	// Inspecting adds a memory window to the hover.
	Inspecting bool

	// ModeIndex selects the display mode.
	ModeIndex int
}

// toggleInspect flips Inspecting. It reports false and changes nothing
// when no hover is active.
func (s *InspectState) toggleInspect() bool {
	if !s.HoverActive {
		return false
	}
	s.Inspecting = !s.Inspecting
	return true
}

// nextMode advances ModeIndex cyclically over n modes. It reports false
// and changes nothing when no hover is active.
func (s *InspectState) nextMode(n int) bool {
	if !s.HoverActive || n == 0 {
		return false
	}
	s.ModeIndex = (s.ModeIndex + 1) % n
	return true
}

// mode returns the current display mode from modes.
func (s InspectState) mode(modes []registers.Mode) registers.Mode {
	if len(modes) == 0 {
		return registers.ModeHex
	}
	return modes[s.ModeIndex%len(modes)]
}
