package usecase

import (
	"errors"
	"fmt"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

var ErrUnknownScreen = errors.New("unknown screen")

// Navigator shows exactly one screen at a time. It knows nothing about the camera;
// callers stop the scanner before leaving the scan screen.
type Navigator struct {
	current domain.Screen
	active  map[string]bool
	onEnter map[domain.Screen]func()
}

func NewNavigator() *Navigator {
	n := &Navigator{
		active:  make(map[string]bool),
		onEnter: make(map[domain.Screen]func()),
	}
	n.show(domain.ScreenHome)
	return n
}

// OnEnter registers fn to run every time screen becomes current.
func (n *Navigator) OnEnter(screen domain.Screen, fn func()) {
	n.onEnter[screen] = fn
}

// NavigateTo switches screens. An unrecognized screen changes nothing.
func (n *Navigator) NavigateTo(screen domain.Screen) error {
	if !screen.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownScreen, screen)
	}
	n.show(screen)
	if fn := n.onEnter[screen]; fn != nil {
		fn()
	}
	return nil
}

func (n *Navigator) show(screen domain.Screen) {
	for el := range n.active {
		n.active[el] = false
	}
	n.active[screen.Element()] = true
	n.current = screen
}

func (n *Navigator) Current() domain.Screen {
	return n.current
}

// ActiveElements lists the view elements currently shown; it holds exactly one entry.
func (n *Navigator) ActiveElements() []string {
	var out []string
	for el, on := range n.active {
		if on {
			out = append(out, el)
		}
	}
	return out
}

// IsActive reports whether the view element is the one shown.
func (n *Navigator) IsActive(element string) bool {
	return n.active[element]
}
