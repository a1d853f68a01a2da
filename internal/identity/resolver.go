// Package identity loads the human-curated canonical-player mapping and
// resolves raw platform identities against it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/replaydeck/pokerpipe/internal/persistence"
)

// DefaultMappingFile is the conventional mapping source location.
const DefaultMappingFile = "player_map.yaml"

var (
	// ErrSourceNotFound reports a missing mapping file. Carried in
	// LoadStats.Err so the caller can decide to no-op.
	ErrSourceNotFound = errors.New("mapping source not found")
	// ErrMalformedSource reports a mapping file without the required
	// canonical_players key.
	ErrMalformedSource = errors.New("mapping source missing canonical_players key")
)

// Source is the declarative mapping document.
type Source struct {
	CanonicalPlayers []CanonicalPlayer `yaml:"canonical_players"`
}

// CanonicalPlayer is one curated real person. ID is optional; when absent
// the store assigns one.
type CanonicalPlayer struct {
	ID      *int64  `yaml:"id,omitempty"`
	Name    string  `yaml:"name"`
	Aliases []Alias `yaml:"aliases"`
}

// Alias is one (raw platform ID, nickname) pair claimed by a canonical
// player.
type Alias struct {
	ID       string `yaml:"id"`
	Nickname string `yaml:"nickname"`
}

// LoadStats summarises a LoadMappings call. Err holds source-level failures
// (missing file, malformed document); per-alias problems go to Warnings and
// never abort the load.
type LoadStats struct {
	CanonicalPlayersAdded int
	AliasesAdded          int
	Warnings              []string
	Err                   error
}

// Resolver couples the mapping source with the store's alias tables.
type Resolver struct {
	store *persistence.Store
}

func NewResolver(store *persistence.Store) *Resolver {
	return &Resolver{store: store}
}

// LoadMappings full-syncs the canonical/alias tables from the YAML source
// at path. Source-level failures are reported in the result, not returned:
// only store errors make the call itself fail.
func (r *Resolver) LoadMappings(ctx context.Context, path string) (LoadStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return LoadStats{Err: fmt.Errorf("%w: %s", ErrSourceNotFound, path)}, nil
		}
		return LoadStats{}, fmt.Errorf("read mapping source: %w", err)
	}

	var src Source
	if err := yaml.Unmarshal(data, &src); err != nil {
		return LoadStats{}, fmt.Errorf("parse mapping source: %w", err)
	}
	if src.CanonicalPlayers == nil {
		return LoadStats{Err: fmt.Errorf("%w: %s", ErrMalformedSource, path)}, nil
	}

	stats := LoadStats{}
	entries := make([]persistence.CanonicalEntry, 0, len(src.CanonicalPlayers))
	for _, cp := range src.CanonicalPlayers {
		if cp.Name == "" {
			stats.Warnings = append(stats.Warnings, "player entry missing name field")
			continue
		}
		entry := persistence.CanonicalEntry{ID: cp.ID, Name: cp.Name}
		for _, a := range cp.Aliases {
			// Empty alias stubs are expected in a fresh template; skip
			// them without noise.
			if a.ID == "" || a.Nickname == "" {
				continue
			}
			entry.Aliases = append(entry.Aliases, persistence.AliasEntry{
				RawPlayerID: a.ID,
				Nickname:    a.Nickname,
			})
		}
		entries = append(entries, entry)
	}

	res, err := r.store.ReplaceMappings(ctx, entries)
	if err != nil {
		return LoadStats{}, err
	}
	stats.CanonicalPlayersAdded = res.CanonicalPlayersAdded
	stats.AliasesAdded = res.AliasesAdded
	stats.Warnings = append(stats.Warnings, res.Warnings...)

	slog.Info("player mappings loaded",
		"source", path,
		"canonical", stats.CanonicalPlayersAdded,
		"aliases", stats.AliasesAdded,
		"warnings", len(stats.Warnings))
	return stats, nil
}

// Resolve maps a raw (player ID, nickname) pair to its canonical display
// identity. Unmapped pairs return the raw values and mapped=false.
func (r *Resolver) Resolve(ctx context.Context, rawPlayerID, nickname string) (displayID, displayName string, mapped bool, err error) {
	ident, ok, err := r.store.ResolveAlias(ctx, rawPlayerID, nickname)
	if err != nil {
		return "", "", false, err
	}
	if !ok {
		return rawPlayerID, nickname, false, nil
	}
	return fmt.Sprintf("canonical_%d", ident.CanonicalID), ident.Name, true, nil
}

const templateHeader = `# Player Identity Mapping Configuration
#
# Edit this file to group player aliases under their real names.
# Each canonical player can have multiple aliases (id + nickname pairs).
#
# Example: To merge 'Lenny' and 'LennyPoker' as the same person:
#   - name: "John Smith"
#     aliases:
#       - id: "abc123"
#         nickname: "Lenny"
#       - id: "xyz789"
#         nickname: "LennyPoker"
#

`

// ExportTemplate generates a mapping-file skeleton from the players already
// ingested. Each observed (raw ID, nickname) pair becomes its own canonical
// entry for the operator to merge by hand.
func (r *Resolver) ExportTemplate(ctx context.Context) (string, error) {
	counts, err := r.store.PlayerHandCounts(ctx)
	if err != nil {
		return "", err
	}

	src := Source{CanonicalPlayers: make([]CanonicalPlayer, 0, len(counts))}
	for _, c := range counts {
		src.CanonicalPlayers = append(src.CanonicalPlayers, CanonicalPlayer{
			Name: c.Nickname,
			Aliases: []Alias{
				{ID: c.RawPlayerID, Nickname: c.Nickname},
			},
		})
	}

	body, err := yaml.Marshal(&src)
	if err != nil {
		return "", fmt.Errorf("marshal mapping template: %w", err)
	}
	return templateHeader + string(body), nil
}
