package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/replaydeck/pokerpipe/internal/persistence"
	"github.com/replaydeck/pokerpipe/internal/replay"
)

func newTestResolver(t *testing.T) (*Resolver, *persistence.Store) {
	t.Helper()
	store, err := persistence.NewStore(filepath.Join(t.TempDir(), "poker.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return NewResolver(store), store
}

func writeMapping(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "player_map.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write mapping file: %v", err)
	}
	return path
}

func TestLoadMappingsAndResolve(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)
	path := writeMapping(t, `canonical_players:
  - name: "Alice"
    aliases:
      - id: "usr_a1"
        nickname: "alice"
      - id: "usr_a2"
        nickname: "alice_alt"
  - id: 9
    name: "Bob"
    aliases:
      - id: "usr_b"
        nickname: "bob"
`)

	stats, err := r.LoadMappings(context.Background(), path)
	if err != nil {
		t.Fatalf("load mappings: %v", err)
	}
	if stats.Err != nil {
		t.Fatalf("source error: %v", stats.Err)
	}
	if stats.CanonicalPlayersAdded != 2 || stats.AliasesAdded != 3 {
		t.Fatalf("stats = %+v, want 2 players, 3 aliases", stats)
	}

	id, name, mapped, err := r.Resolve(context.Background(), "usr_b", "bob")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !mapped || id != "canonical_9" || name != "Bob" {
		t.Errorf("resolved to (%s, %s, %v), want (canonical_9, Bob, true)", id, name, mapped)
	}

	id, name, mapped, err = r.Resolve(context.Background(), "usr_ghost", "ghost")
	if err != nil {
		t.Fatalf("resolve unmapped: %v", err)
	}
	if mapped || id != "usr_ghost" || name != "ghost" {
		t.Errorf("unmapped pair returned (%s, %s, %v), want raw values and false", id, name, mapped)
	}
}

func TestLoadMappingsMissingFile(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)
	stats, err := r.LoadMappings(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail the call: %v", err)
	}
	if !errors.Is(stats.Err, ErrSourceNotFound) {
		t.Errorf("stats.Err = %v, want ErrSourceNotFound", stats.Err)
	}
}

func TestLoadMappingsMalformedSource(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)
	path := writeMapping(t, "players:\n  - name: wrong-key\n")

	stats, err := r.LoadMappings(context.Background(), path)
	if err != nil {
		t.Fatalf("load mappings: %v", err)
	}
	if !errors.Is(stats.Err, ErrMalformedSource) {
		t.Errorf("stats.Err = %v, want ErrMalformedSource", stats.Err)
	}
}

func TestLoadMappingsSkipsBadEntries(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)
	path := writeMapping(t, `canonical_players:
  - aliases:
      - id: "usr_x"
        nickname: "orphan"
  - name: "Alice"
    aliases:
      - id: ""
        nickname: ""
      - id: "usr_a"
        nickname: "alice"
`)

	stats, err := r.LoadMappings(context.Background(), path)
	if err != nil {
		t.Fatalf("load mappings: %v", err)
	}
	if stats.CanonicalPlayersAdded != 1 {
		t.Errorf("players added = %d, want 1 (nameless entry skipped)", stats.CanonicalPlayersAdded)
	}
	if stats.AliasesAdded != 1 {
		t.Errorf("aliases added = %d, want 1 (empty stub skipped)", stats.AliasesAdded)
	}
	if len(stats.Warnings) != 1 || !strings.Contains(stats.Warnings[0], "missing name") {
		t.Errorf("warnings = %v, want one missing-name warning", stats.Warnings)
	}
}

func TestLoadMappingsReplacesPrevious(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)
	first := writeMapping(t, `canonical_players:
  - name: "Alice"
    aliases:
      - id: "usr_a"
        nickname: "alice"
`)
	if _, err := r.LoadMappings(context.Background(), first); err != nil {
		t.Fatalf("first load: %v", err)
	}

	second := writeMapping(t, `canonical_players:
  - name: "Bob"
    aliases:
      - id: "usr_b"
        nickname: "bob"
`)
	if _, err := r.LoadMappings(context.Background(), second); err != nil {
		t.Fatalf("second load: %v", err)
	}

	_, _, mapped, err := r.Resolve(context.Background(), "usr_a", "alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if mapped {
		t.Error("alias from the first load should be gone after the second")
	}
}

func TestExportTemplate(t *testing.T) {
	t.Parallel()

	r, store := newTestResolver(t)
	doc := &replay.Session{
		GameID: "game-1",
		Hands: []replay.Hand{{
			ID: "h1", Number: 1,
			Players: []replay.Player{
				{ID: "usr_a", Name: "alice", Seat: 1},
				{ID: "usr_b", Name: "bob", Seat: 2},
			},
		}},
	}
	if _, err := store.UpsertSession(context.Background(), doc); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	template, err := r.ExportTemplate(context.Background())
	if err != nil {
		t.Fatalf("export template: %v", err)
	}
	if !strings.HasPrefix(template, "# Player Identity Mapping Configuration") {
		t.Error("template missing comment header")
	}
	for _, want := range []string{"canonical_players:", "usr_a", "alice", "usr_b", "bob"} {
		if !strings.Contains(template, want) {
			t.Errorf("template missing %q:\n%s", want, template)
		}
	}

	// The template must round-trip straight back into a load.
	path := filepath.Join(t.TempDir(), "exported.yaml")
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	stats, err := r.LoadMappings(context.Background(), path)
	if err != nil {
		t.Fatalf("reload template: %v", err)
	}
	if stats.Err != nil {
		t.Fatalf("template reload reported: %v", stats.Err)
	}
	if stats.CanonicalPlayersAdded != 2 || stats.AliasesAdded != 2 {
		t.Errorf("reload stats = %+v, want 2 players, 2 aliases", stats)
	}
}
