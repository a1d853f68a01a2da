package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

// CanonicalEntry is one validated canonical-player record to load.
// A nil ID lets SQLite assign one.
type CanonicalEntry struct {
	ID      *int64
	Name    string
	Aliases []AliasEntry
}

// AliasEntry binds one (raw platform ID, nickname) pair to its canonical
// player. The pair is unique across the whole mapping table.
type AliasEntry struct {
	RawPlayerID string
	Nickname    string
}

// MappingLoadResult reports what a ReplaceMappings call wrote.
type MappingLoadResult struct {
	CanonicalPlayersAdded int
	AliasesAdded          int
	Warnings              []string
}

// ResolvedIdentity is a canonical identity looked up through an alias.
type ResolvedIdentity struct {
	CanonicalID int64
	Name        string
}

// ReplaceMappings performs a destructive full sync: all existing alias and
// canonical rows are deleted and repopulated from entries, inside one
// transaction so readers never observe a half-replaced mapping. A duplicate
// (raw ID, nickname) pair is recorded as a warning and skipped; the load
// continues.
func (s *Store) ReplaceMappings(ctx context.Context, entries []CanonicalEntry) (MappingLoadResult, error) {
	var res MappingLoadResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = replaceMappingsTx(ctx, tx, entries)
		return err
	})
	if err != nil {
		return MappingLoadResult{}, err
	}
	return res, nil
}

func replaceMappingsTx(ctx context.Context, tx *sql.Tx, entries []CanonicalEntry) (MappingLoadResult, error) {
	res := MappingLoadResult{}

	if _, err := tx.ExecContext(ctx, `DELETE FROM player_aliases`); err != nil {
		return MappingLoadResult{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM canonical_players`); err != nil {
		return MappingLoadResult{}, err
	}

	for _, e := range entries {
		var canonicalID int64
		if e.ID != nil {
			if _, err := tx.ExecContext(ctx, `INSERT INTO canonical_players(id, name) VALUES(?, ?)`, *e.ID, e.Name); err != nil {
				return MappingLoadResult{}, fmt.Errorf("insert canonical player %q: %w", e.Name, err)
			}
			canonicalID = *e.ID
		} else {
			r, err := tx.ExecContext(ctx, `INSERT INTO canonical_players(name) VALUES(?)`, e.Name)
			if err != nil {
				return MappingLoadResult{}, fmt.Errorf("insert canonical player %q: %w", e.Name, err)
			}
			canonicalID, err = r.LastInsertId()
			if err != nil {
				return MappingLoadResult{}, err
			}
		}
		res.CanonicalPlayersAdded++

		for _, a := range e.Aliases {
			// INSERT OR IGNORE keeps the transaction clean on duplicates;
			// a zero rows-affected result is the duplicate signal.
			r, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO player_aliases(raw_player_id, nickname, canonical_id)
				VALUES(?, ?, ?)`, a.RawPlayerID, a.Nickname, canonicalID)
			if err != nil {
				return MappingLoadResult{}, fmt.Errorf("insert alias (%s, %s): %w", a.RawPlayerID, a.Nickname, err)
			}
			n, err := r.RowsAffected()
			if err != nil {
				return MappingLoadResult{}, err
			}
			if n == 0 {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("duplicate alias (%s, %s) ignored for %q", a.RawPlayerID, a.Nickname, e.Name))
				continue
			}
			res.AliasesAdded++
		}
	}
	return res, nil
}

// ResolveAlias looks up the canonical identity bound to a (raw player ID,
// nickname) pair. A miss is the normal unmapped outcome, reported through
// the second return value.
func (s *Store) ResolveAlias(ctx context.Context, rawPlayerID, nickname string) (ResolvedIdentity, bool, error) {
	var r ResolvedIdentity
	err := s.db.QueryRowContext(ctx, `SELECT cp.id, cp.name
		FROM player_aliases pa
		JOIN canonical_players cp ON pa.canonical_id = cp.id
		WHERE pa.raw_player_id = ? AND pa.nickname = ?`,
		rawPlayerID, nickname,
	).Scan(&r.CanonicalID, &r.Name)
	if err == sql.ErrNoRows {
		return ResolvedIdentity{}, false, nil
	}
	if err != nil {
		return ResolvedIdentity{}, false, err
	}
	return r, true, nil
}
