package persistence

import (
	"context"
	"strings"
	"testing"
)

func int64Ptr(v int64) *int64 { return &v }

func TestReplaceMappingsAndResolve(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	entries := []CanonicalEntry{
		{
			Name: "Alice",
			Aliases: []AliasEntry{
				{RawPlayerID: "usr_a", Nickname: "alice"},
				{RawPlayerID: "usr_a2", Nickname: "alice_alt"},
			},
		},
		{
			ID:      int64Ptr(7),
			Name:    "Bob",
			Aliases: []AliasEntry{{RawPlayerID: "usr_b", Nickname: "bob"}},
		},
	}

	res, err := s.ReplaceMappings(context.Background(), entries)
	if err != nil {
		t.Fatalf("replace mappings: %v", err)
	}
	if res.CanonicalPlayersAdded != 2 || res.AliasesAdded != 3 {
		t.Fatalf("load result = %+v, want 2 players, 3 aliases", res)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}

	for _, alias := range []AliasEntry{
		{RawPlayerID: "usr_a", Nickname: "alice"},
		{RawPlayerID: "usr_a2", Nickname: "alice_alt"},
		{RawPlayerID: "usr_b", Nickname: "bob"},
	} {
		ident, ok, err := s.ResolveAlias(context.Background(), alias.RawPlayerID, alias.Nickname)
		if err != nil {
			t.Fatalf("resolve (%s, %s): %v", alias.RawPlayerID, alias.Nickname, err)
		}
		if !ok {
			t.Errorf("alias (%s, %s) did not resolve", alias.RawPlayerID, alias.Nickname)
		}
		if ident.Name == "" {
			t.Errorf("alias (%s, %s) resolved to empty name", alias.RawPlayerID, alias.Nickname)
		}
	}

	ident, ok, err := s.ResolveAlias(context.Background(), "usr_b", "bob")
	if err != nil {
		t.Fatalf("resolve bob: %v", err)
	}
	if !ok || ident.CanonicalID != 7 {
		t.Errorf("bob resolved to id %d, want explicit id 7", ident.CanonicalID)
	}
}

func TestResolveAliasMiss(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, ok, err := s.ResolveAlias(context.Background(), "usr_unknown", "ghost")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ok {
		t.Error("unmapped alias should not resolve")
	}
}

func TestReplaceMappingsFullSync(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	first := []CanonicalEntry{
		{Name: "Alice", Aliases: []AliasEntry{{RawPlayerID: "usr_a", Nickname: "alice"}}},
	}
	if _, err := s.ReplaceMappings(context.Background(), first); err != nil {
		t.Fatalf("first load: %v", err)
	}

	second := []CanonicalEntry{
		{Name: "Bob", Aliases: []AliasEntry{{RawPlayerID: "usr_b", Nickname: "bob"}}},
	}
	if _, err := s.ReplaceMappings(context.Background(), second); err != nil {
		t.Fatalf("second load: %v", err)
	}

	// First load's rows are fully replaced, not merged.
	_, ok, err := s.ResolveAlias(context.Background(), "usr_a", "alice")
	if err != nil {
		t.Fatalf("resolve alice: %v", err)
	}
	if ok {
		t.Error("alias from a previous load should be gone after full sync")
	}
	if got := countRows(t, s, "canonical_players"); got != 1 {
		t.Errorf("canonical_players rows = %d, want 1", got)
	}
	if got := countRows(t, s, "player_aliases"); got != 1 {
		t.Errorf("player_aliases rows = %d, want 1", got)
	}
}

func TestReplaceMappingsDuplicateAlias(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	entries := []CanonicalEntry{
		{Name: "Alice", Aliases: []AliasEntry{{RawPlayerID: "usr_a", Nickname: "alice"}}},
		{Name: "Bob", Aliases: []AliasEntry{{RawPlayerID: "usr_a", Nickname: "alice"}}},
	}
	res, err := s.ReplaceMappings(context.Background(), entries)
	if err != nil {
		t.Fatalf("replace mappings: %v", err)
	}
	if res.AliasesAdded != 1 {
		t.Errorf("aliases added = %d, want 1", res.AliasesAdded)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "duplicate alias") {
		t.Errorf("warnings = %v, want one duplicate-alias warning", res.Warnings)
	}

	// The first binding wins.
	ident, ok, err := s.ResolveAlias(context.Background(), "usr_a", "alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !ok || ident.Name != "Alice" {
		t.Errorf("duplicate alias resolved to %+v, want Alice", ident)
	}
}
