package banlist

import (
	"testing"
	"time"
)

func TestBanAndIsBanned(t *testing.T) {
	l := New()
	l.Ban("10.0.0.1", time.Minute)
	if !l.IsBanned("10.0.0.1") {
		t.Error("expected 10.0.0.1 to be banned")
	}
	if l.IsBanned("10.0.0.2") {
		t.Error("expected unrelated ip to not be banned")
	}
}

func TestBanExpiresAndSweepsLazily(t *testing.T) {
	l := New()
	l.Ban("10.0.0.1", -time.Second) // already expired

	if l.IsBanned("10.0.0.1") {
		t.Error("expected expired ban to report not-banned")
	}
	if l.Count() != 0 {
		t.Errorf("expected lazy eviction on lookup, count=%d", l.Count())
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	l := New()
	l.Ban("10.0.0.1", -time.Second)
	l.Ban("10.0.0.2", time.Hour)

	removed := l.Sweep()
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if l.Count() != 1 {
		t.Errorf("expected 1 remaining, got %d", l.Count())
	}
	if !l.IsBanned("10.0.0.2") {
		t.Error("expected 10.0.0.2 to still be banned")
	}
}

func TestUnban(t *testing.T) {
	l := New()
	l.Ban("10.0.0.1", time.Hour)
	l.Unban("10.0.0.1")
	if l.IsBanned("10.0.0.1") {
		t.Error("expected unban to clear the ban")
	}
}
