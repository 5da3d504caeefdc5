package model

import "testing"

func TestPairKeyIsOrderIndependent(t *testing.T) {
	if got := PairKey("alice", "bob"); got != "alice_bob" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := PairKey("bob", "alice"); got != "alice_bob" {
		t.Fatalf("key must not depend on argument order, got %q", got)
	}
}

func TestSortPair(t *testing.T) {
	a, b := SortPair("zed", "amy")
	if a != "amy" || b != "zed" {
		t.Fatalf("expected (amy, zed), got (%s, %s)", a, b)
	}
}

func TestMatchParticipantHelpers(t *testing.T) {
	m := Match{ID: "alice_bob", UserAID: "alice", UserBID: "bob", UnreadA: 2, UnreadB: 5}

	if m.Other("alice") != "bob" || m.Other("bob") != "alice" {
		t.Fatal("Other returned the wrong participant")
	}
	if m.UnreadFor("alice") != 2 || m.UnreadFor("bob") != 5 {
		t.Fatal("UnreadFor returned the wrong counter")
	}
	if !m.HasParticipant("alice") || !m.HasParticipant("bob") {
		t.Fatal("expected both users to be participants")
	}
	if m.HasParticipant("carol") {
		t.Fatal("carol is not a participant")
	}
}
