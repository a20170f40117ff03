package wizard

import "github.com/mbolis/quick-wizard/model"

type Transition string

const (
	TransitionNext     Transition = "next"
	TransitionPrev     Transition = "prev"
	TransitionBlocked  Transition = "blocked"
	TransitionComplete Transition = "complete"
)

// Observer receives runtime events. Implementations must not block.
type Observer interface {
	Transition(t Transition)
	ValidationFailed(fieldType model.FieldType)
	PersistenceFailed(op string)
}

type nopObserver struct{}

func (nopObserver) Transition(Transition)            {}
func (nopObserver) ValidationFailed(model.FieldType) {}
func (nopObserver) PersistenceFailed(string)         {}
