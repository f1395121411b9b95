package search

// State is the search box state.
type State int

const (
	// StateIdle shows no suggestions and has nothing in flight.
	StateIdle State = iota
	// StateTyping has a debounced suggestion fetch pending or in flight.
	StateTyping
	// StateSuggestionsVisible shows at least one suggestion.
	StateSuggestionsVisible
	// StateSearching has an explicit search or reverse geocode in flight.
	StateSearching
	// StateSettled holds a resolved location.
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTyping:
		return "typing"
	case StateSuggestionsVisible:
		return "suggestions_visible"
	case StateSearching:
		return "searching"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Mode controls whether keystrokes may fetch suggestions.
type Mode int

const (
	// ModeLive lets keystrokes fetch suggestions.
	ModeLive Mode = iota
	// ModeSuppressed ignores keystrokes for suggestions until the cooldown
	// after a resolved search elapses.
	ModeSuppressed
)

func (m Mode) String() string {
	if m == ModeSuppressed {
		return "suppressed"
	}
	return "live"
}

// Event is an input to the state machine.
type Event int

const (
	// EventKeystroke is an edit leaving a query of at least the minimum length.
	EventKeystroke Event = iota
	// EventShortKeystroke is an edit leaving a query below the minimum length.
	EventShortKeystroke
	// EventSuggestionsFetched is a current, non-empty suggestion result.
	EventSuggestionsFetched
	// EventSuggestionsEmpty is a current, empty suggestion result.
	EventSuggestionsEmpty
	// EventSubmit starts an explicit forward search.
	EventSubmit
	// EventReverseStart starts a reverse geocode for a dropped marker.
	EventReverseStart
	// EventResolved is a successful search or reverse geocode.
	EventResolved
	// EventNotFound is a search with no results.
	EventNotFound
	// EventFailed is a search that could not reach the provider.
	EventFailed
	// EventSuggestionPicked selects a visible suggestion.
	EventSuggestionPicked
	// EventDismiss is an outside click on the suggestion popover.
	EventDismiss
	// EventCooldownElapsed ends post-search suppression.
	EventCooldownElapsed
)

// Effect lists the side effects a transition asks for.
type Effect struct {
	// ScheduleFetch (re)starts the suggestion debounce.
	ScheduleFetch bool
	// CancelFetch drops any pending or in-flight suggestion fetch.
	CancelFetch bool
	// ClearSuggestions empties the suggestion list.
	ClearSuggestions bool
	// StartCooldown (re)starts the suppression timer.
	StartCooldown bool
}

// Transition is the result of applying an event.
type Transition struct {
	State  State
	Mode   Mode
	Effect Effect
}

// Next applies e to (s, m). It is a pure function; unknown combinations
// leave the state unchanged with no effects.
func Next(s State, m Mode, e Event) Transition {
	stay := Transition{State: s, Mode: m}

	switch e {
	case EventKeystroke:
		if s == StateSearching {
			return stay
		}
		if m == ModeSuppressed {
			return Transition{State: s, Mode: m, Effect: Effect{CancelFetch: true}}
		}
		return Transition{State: StateTyping, Mode: m, Effect: Effect{ScheduleFetch: true}}

	case EventShortKeystroke:
		if s == StateSearching {
			return stay
		}
		next := s
		if s == StateTyping || s == StateSuggestionsVisible {
			next = StateIdle
		}
		return Transition{State: next, Mode: m, Effect: Effect{CancelFetch: true, ClearSuggestions: true}}

	case EventSuggestionsFetched:
		if s != StateTyping {
			return stay
		}
		return Transition{State: StateSuggestionsVisible, Mode: m}

	case EventSuggestionsEmpty:
		if s != StateTyping {
			return stay
		}
		return Transition{State: StateIdle, Mode: m, Effect: Effect{ClearSuggestions: true}}

	case EventSubmit, EventReverseStart:
		return Transition{State: StateSearching, Mode: m, Effect: Effect{CancelFetch: true, ClearSuggestions: true}}

	case EventResolved:
		if s != StateSearching {
			return stay
		}
		return Transition{State: StateSettled, Mode: ModeSuppressed, Effect: Effect{StartCooldown: true}}

	case EventNotFound, EventFailed:
		if s != StateSearching {
			return stay
		}
		return Transition{State: StateIdle, Mode: ModeSuppressed, Effect: Effect{StartCooldown: true}}

	case EventSuggestionPicked:
		if s != StateSuggestionsVisible {
			return stay
		}
		return Transition{
			State:  StateSettled,
			Mode:   ModeSuppressed,
			Effect: Effect{CancelFetch: true, ClearSuggestions: true, StartCooldown: true},
		}

	case EventDismiss:
		if s != StateSuggestionsVisible && s != StateTyping {
			return stay
		}
		return Transition{State: StateIdle, Mode: m, Effect: Effect{CancelFetch: true, ClearSuggestions: true}}

	case EventCooldownElapsed:
		return Transition{State: s, Mode: ModeLive}
	}

	return stay
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
