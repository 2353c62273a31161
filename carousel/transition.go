package carousel

import (
	"errors"
	"fmt"

	"github.com/bokamoso/signin/hooking"
	"github.com/bokamoso/signin/timing"
)

// ErrIndexOutOfRange is returned by GoTo when the requested slide does not
// exist.
var ErrIndexOutOfRange = errors.New("carousel: slide index out of range")

// Trigger identifies what asked for a slide change.
type Trigger int

// Triggers that can start a transition.
const (
	TriggerAutoAdvance Trigger = iota
	TriggerNext
	TriggerPrev
	TriggerGoTo
)

func (t Trigger) String() string {
	switch t {
	case TriggerAutoAdvance:
		return "auto"
	case TriggerNext:
		return "next"
	case TriggerPrev:
		return "prev"
	case TriggerGoTo:
		return "goto"
	default:
		return fmt.Sprintf("Trigger(%d)", int(t))
	}
}

// Transition describes one slide change. End is zero until the transition
// lock is released.
type Transition struct {
	Trigger Trigger
	From    int
	To      int
	Start   timing.VTime
	End     timing.VTime
}

// Request describes a slide change that was dropped because another
// transition was in flight. Index is the GoTo target, or -1.
type Request struct {
	Trigger Trigger
	Index   int
	Time    timing.VTime
}

// HookPosTransitionStart fires after the index changed and the lock was
// taken. The item is a Transition.
var HookPosTransitionStart = &hooking.HookPos{Name: "TransitionStart"}

// HookPosTransitionEnd fires after the lock was released. The item is a
// Transition with End set.
var HookPosTransitionEnd = &hooking.HookPos{Name: "TransitionEnd"}

// HookPosRequestDropped fires when a request arrives while locked. The item
// is a Request.
var HookPosRequestDropped = &hooking.HookPos{Name: "RequestDropped"}
