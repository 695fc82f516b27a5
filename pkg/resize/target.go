package resize

import "fmt"

// TargetKind distinguishes element targets from the viewport.
type TargetKind uint8

const (
	KindElement TargetKind = 0x01 // DOM element by ID
	KindScreen  TargetKind = 0x02 // Document body / viewport
)

// String returns the string representation of the target kind.
func (k TargetKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindScreen:
		return "screen"
	default:
		return "unknown"
	}
}

// Target identifies something whose width can be observed.
// Target is comparable and used as a map key.
type Target struct {
	Kind TargetKind
	ID   string
}

// Screen is the singleton viewport target.
var Screen = Target{Kind: KindScreen}

// Element returns the target for the DOM element with the given ID.
func Element(id string) Target {
	return Target{Kind: KindElement, ID: id}
}

// IsScreen reports whether t is the viewport target.
func (t Target) IsScreen() bool {
	return t.Kind == KindScreen
}

// Valid reports whether the target can be observed.
func (t Target) Valid() bool {
	switch t.Kind {
	case KindScreen:
		return true
	case KindElement:
		return t.ID != ""
	default:
		return false
	}
}

// Notify delivers a settled width for t to host.
func (t Target) Notify(host Host, width int) {
	if t.IsScreen() {
		host.OnScreenWidthChanged(width)
		return
	}
	host.OnElementWidthChanged(t.ID, width)
}

// String returns a log-friendly form of the target.
func (t Target) String() string {
	if t.IsScreen() {
		return "screen"
	}
	return fmt.Sprintf("element#%s", t.ID)
}
