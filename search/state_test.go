package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name  string
		state State
		mode  Mode
		event Event
		want  Transition
	}{
		{
			"keystroke from idle schedules fetch",
			StateIdle, ModeLive, EventKeystroke,
			Transition{State: StateTyping, Mode: ModeLive, Effect: Effect{ScheduleFetch: true}},
		},
		{
			"keystroke from settled schedules fetch",
			StateSettled, ModeLive, EventKeystroke,
			Transition{State: StateTyping, Mode: ModeLive, Effect: Effect{ScheduleFetch: true}},
		},
		{
			"keystroke during cooldown does not fetch",
			StateSettled, ModeSuppressed, EventKeystroke,
			Transition{State: StateSettled, Mode: ModeSuppressed, Effect: Effect{CancelFetch: true}},
		},
		{
			"keystroke while searching is ignored",
			StateSearching, ModeLive, EventKeystroke,
			Transition{State: StateSearching, Mode: ModeLive},
		},
		{
			"short keystroke hides suggestions",
			StateSuggestionsVisible, ModeLive, EventShortKeystroke,
			Transition{State: StateIdle, Mode: ModeLive, Effect: Effect{CancelFetch: true, ClearSuggestions: true}},
		},
		{
			"results while typing show suggestions",
			StateTyping, ModeLive, EventSuggestionsFetched,
			Transition{State: StateSuggestionsVisible, Mode: ModeLive},
		},
		{
			"empty results while typing go idle",
			StateTyping, ModeLive, EventSuggestionsEmpty,
			Transition{State: StateIdle, Mode: ModeLive, Effect: Effect{ClearSuggestions: true}},
		},
		{
			"late results after dismiss are ignored",
			StateIdle, ModeLive, EventSuggestionsFetched,
			Transition{State: StateIdle, Mode: ModeLive},
		},
		{
			"submit from anywhere searches",
			StateSuggestionsVisible, ModeSuppressed, EventSubmit,
			Transition{State: StateSearching, Mode: ModeSuppressed, Effect: Effect{CancelFetch: true, ClearSuggestions: true}},
		},
		{
			"resolved search settles and suppresses",
			StateSearching, ModeLive, EventResolved,
			Transition{State: StateSettled, Mode: ModeSuppressed, Effect: Effect{StartCooldown: true}},
		},
		{
			"not found returns to idle and suppresses",
			StateSearching, ModeLive, EventNotFound,
			Transition{State: StateIdle, Mode: ModeSuppressed, Effect: Effect{StartCooldown: true}},
		},
		{
			"failure returns to idle and suppresses",
			StateSearching, ModeLive, EventFailed,
			Transition{State: StateIdle, Mode: ModeSuppressed, Effect: Effect{StartCooldown: true}},
		},
		{
			"picking a suggestion settles",
			StateSuggestionsVisible, ModeLive, EventSuggestionPicked,
			Transition{State: StateSettled, Mode: ModeSuppressed, Effect: Effect{CancelFetch: true, ClearSuggestions: true, StartCooldown: true}},
		},
		{
			"dismiss hides suggestions",
			StateSuggestionsVisible, ModeLive, EventDismiss,
			Transition{State: StateIdle, Mode: ModeLive, Effect: Effect{CancelFetch: true, ClearSuggestions: true}},
		},
		{
			"dismiss when settled does nothing",
			StateSettled, ModeSuppressed, EventDismiss,
			Transition{State: StateSettled, Mode: ModeSuppressed},
		},
		{
			"cooldown elapsed restores live mode",
			StateSettled, ModeSuppressed, EventCooldownElapsed,
			Transition{State: StateSettled, Mode: ModeLive},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.state, tt.mode, tt.event))
		})
	}
}

func TestState_MarshalText(t *testing.T) {
	b, err := StateSuggestionsVisible.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "suggestions_visible", string(b))

	b, err = ModeSuppressed.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "suppressed", string(b))
}
