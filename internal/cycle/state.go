package cycle

import (
	"github.com/abdulachik/trendcard/internal/trend"
	"github.com/abdulachik/trendcard/internal/voice"
)

// State is a phase of the trend cycle.
type State int

const (
	StateFetching State = iota
	StateDeciding
	StateNarrating
	StateSkipping
	StateWarmingUp
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateDeciding:
		return "deciding"
	case StateNarrating:
		return "narrating"
	case StateSkipping:
		return "skipping"
	case StateWarmingUp:
		return "warming_up"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is the viewer-facing status line.
type Status int

const (
	StatusIdle Status = iota
	StatusWarmingUp
	StatusNarrating
	StatusPreparingNext
)

// String returns the status text shown to the viewer.
func (s Status) String() string {
	switch s {
	case StatusWarmingUp:
		return "Warming up, the next trend is not ready yet"
	case StatusNarrating:
		return "Narrating"
	case StatusPreparingNext:
		return "Preparing the next trend"
	default:
		return "Idle"
	}
}

// Label marks a displayed trend as the session's first or as a change.
type Label int

const (
	LabelFirst Label = iota + 1
	LabelChanged
)

// String returns the label text shown above the card.
func (l Label) String() string {
	switch l {
	case LabelFirst:
		return "Now trending"
	case LabelChanged:
		return "Just changed"
	default:
		return ""
	}
}

// Observer receives the controller's notifications. Calls happen on the
// controller's goroutine and must not block.
type Observer interface {
	StatusChanged(status Status)
	TrendChanged(rec trend.Record, label Label)
	// TrendRefreshed delivers a record whose description is unchanged so the
	// display can pick up other fields. It never implies narration.
	TrendRefreshed(rec trend.Record)
	NarrationFinished(rec trend.Record, ev voice.Event)
}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) StatusChanged(status Status) {
	for _, obs := range o {
		obs.StatusChanged(status)
	}
}

func (o Observers) TrendChanged(rec trend.Record, label Label) {
	for _, obs := range o {
		obs.TrendChanged(rec, label)
	}
}

func (o Observers) TrendRefreshed(rec trend.Record) {
	for _, obs := range o {
		obs.TrendRefreshed(rec)
	}
}

func (o Observers) NarrationFinished(rec trend.Record, ev voice.Event) {
	for _, obs := range o {
		obs.NarrationFinished(rec, ev)
	}
}

// nopObserver is used when the caller supplies none.
type nopObserver struct{}

func (nopObserver) StatusChanged(Status)                        {}
func (nopObserver) TrendChanged(trend.Record, Label)            {}
func (nopObserver) TrendRefreshed(trend.Record)                 {}
func (nopObserver) NarrationFinished(trend.Record, voice.Event) {}
