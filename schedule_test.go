package main

import (
	"slices"
	"testing"
	"time"
)

func mustDays(t *testing.T, names ...string) daySet {
	t.Helper()
	s, err := daySetFromNames(names)
	if err != nil {
		t.Fatalf("daySetFromNames(%v): %v", names, err)
	}
	return s
}

func TestDaySet_BitLayout(t *testing.T) {
	if got := mustDays(t, "sun"); got != 1 {
		t.Errorf("sun = %d, want 1", got)
	}
	if got := mustDays(t, "sat"); got != 64 {
		t.Errorf("sat = %d, want 64", got)
	}
	if got := mustDays(t, "mon", "wed", "mon"); got != 2|8 {
		t.Errorf("mon,wed = %d, want 10", got)
	}
}

func TestDaySet_NamesOrderAndNeverNil(t *testing.T) {
	s := mustDays(t, "sat", "mon", "sun")
	if got := s.names(); !slices.Equal(got, []string{"sun", "mon", "sat"}) {
		t.Errorf("names = %v", got)
	}
	if got := daySet(0).names(); got == nil || len(got) != 0 {
		t.Errorf("empty names = %#v, want empty slice", got)
	}
}

func TestDaySetFromNames_Rejects(t *testing.T) {
	for _, bad := range []string{"Monday", "MON", "", "funday"} {
		if _, err := daySetFromNames([]string{"mon", bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

// TestLockSession_LockedDayToggleIsNoop verifies a locked day cannot be
// deselected or re-added.
func TestLockSession_LockedDayToggleIsNoop(t *testing.T) {
	locked := mustDays(t, "mon", "fri")
	s := newLockSession(locked)

	s.toggle(time.Monday)
	s.toggle(time.Monday)
	s.toggle(time.Friday)
	if s.selected != locked {
		t.Errorf("selected = %v, want %v", s.selected.names(), locked.names())
	}
	if s.pending() != 0 {
		t.Errorf("pending = %v, want none", s.pending().names())
	}
}

func TestLockSession_PendingIsOnlyNewDays(t *testing.T) {
	s := newLockSession(mustDays(t, "mon"))
	s.toggle(time.Tuesday)
	s.toggle(time.Thursday)
	s.toggle(time.Thursday) // deselect again
	s.toggle(time.Monday)   // locked, ignored

	if got := s.pending(); got != mustDays(t, "tue") {
		t.Errorf("pending = %v, want [tue]", got.names())
	}
}

func TestLockSession_NothingSelectedNothingPending(t *testing.T) {
	s := newLockSession(0)
	if s.pending() != 0 {
		t.Errorf("fresh session has pending %v", s.pending().names())
	}
}

func TestDiffDaySets(t *testing.T) {
	cases := []struct {
		name         string
		prev, next   []string
		unlock, lock []string
	}{
		{"no change", []string{"mon"}, []string{"mon"}, []string{}, []string{}},
		{"unlock all", []string{"mon", "tue"}, nil, []string{"mon", "tue"}, []string{}},
		{"lock from empty", nil, []string{"sat", "sun"}, []string{}, []string{"sun", "sat"}},
		{"swap", []string{"mon", "wed"}, []string{"wed", "fri"}, []string{"mon"}, []string{"fri"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prev, next := mustDays(t, tc.prev...), mustDays(t, tc.next...)
			toUnlock, toLock := diffDaySets(prev, next)
			if !slices.Equal(toUnlock.names(), tc.unlock) || !slices.Equal(toLock.names(), tc.lock) {
				t.Errorf("diff = (%v, %v), want (%v, %v)", toUnlock.names(), toLock.names(), tc.unlock, tc.lock)
			}
			// Applying both lists to prev must yield next.
			if got := prev.minus(toUnlock) | toLock; got != next {
				t.Errorf("applied = %v, want %v", got.names(), next.names())
			}
		})
	}
}
