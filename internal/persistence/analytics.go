package persistence

import (
	"context"
	"database/sql"
)

// PlayerStatsOptions selects the aggregation mode for PlayerStats.
// Enriched groups rows by resolved (canonical-or-raw) identity; raw mode
// ignores the mapping entirely. MinSessions drops groups whose distinct
// session count is below the threshold, applied after grouping.
type PlayerStatsOptions struct {
	Enriched    bool
	MinSessions int
}

type PlayerStatsRow struct {
	Key              string // "canonical_<id>" when mapped, raw player ID otherwise
	Name             string
	HandsPlayed      int
	SessionsPlayed   int
	TotalProfit      int64
	AvgProfitPerHand float64
	HandsWon         int
	Showdowns        int
}

type ProgressionRow struct {
	HandNumber int
	StartedAt  int64
	Key        string
	Name       string
	NetGain    int
	Stack      int
}

type PotRow struct {
	HandNumber int
	StartedAt  int64
	MaxPot     int
}

type UnmappedPlayer struct {
	RawPlayerID string
	Nickname    string
	HandsPlayed int
}

type PlayerHandCount struct {
	RawPlayerID string
	Nickname    string
	HandsPlayed int
}

type DistributionRow struct {
	Label string
	Count int
}

// SummaryCounts is the whole-database row-count overview.
type SummaryCounts struct {
	Sessions         int
	Hands            int
	Players          int
	Events           int
	CanonicalPlayers int
}

func (s *Store) PlayerStats(ctx context.Context, opts PlayerStatsOptions) ([]PlayerStatsRow, error) {
	var query string
	if opts.Enriched {
		query = `SELECT
			COALESCE('canonical_' || CAST(cp.id AS TEXT), p.id) AS player_key,
			COALESCE(cp.name, p.name) AS player_name,
			COUNT(DISTINCT hp.hand_id) AS hands_played,
			COUNT(DISTINCT h.session_id) AS sessions_played,
			COALESCE(SUM(hp.net_gain), 0) AS total_profit,
			COALESCE(AVG(hp.net_gain), 0) AS avg_profit_per_hand,
			SUM(CASE WHEN hp.net_gain > 0 THEN 1 ELSE 0 END) AS hands_won,
			SUM(CASE WHEN hp.showed_cards = 1 THEN 1 ELSE 0 END) AS showdowns
		FROM players p
		JOIN hand_players hp ON p.id = hp.player_id
		JOIN hands h ON hp.hand_id = h.id
		LEFT JOIN player_aliases pa ON p.id = pa.raw_player_id AND p.name = pa.nickname
		LEFT JOIN canonical_players cp ON pa.canonical_id = cp.id
		GROUP BY player_key`
	} else {
		query = `SELECT
			p.id AS player_key,
			p.name AS player_name,
			COUNT(DISTINCT hp.hand_id) AS hands_played,
			COUNT(DISTINCT h.session_id) AS sessions_played,
			COALESCE(SUM(hp.net_gain), 0) AS total_profit,
			COALESCE(AVG(hp.net_gain), 0) AS avg_profit_per_hand,
			SUM(CASE WHEN hp.net_gain > 0 THEN 1 ELSE 0 END) AS hands_won,
			SUM(CASE WHEN hp.showed_cards = 1 THEN 1 ELSE 0 END) AS showdowns
		FROM players p
		JOIN hand_players hp ON p.id = hp.player_id
		JOIN hands h ON hp.hand_id = h.id
		GROUP BY p.id`
	}

	args := []any{}
	if opts.MinSessions > 0 {
		// Post-aggregation filter: grouping decides which rows belong
		// together, so the threshold must not pre-filter raw rows.
		query += ` HAVING COUNT(DISTINCT h.session_id) >= ?`
		args = append(args, opts.MinSessions)
	}
	query += ` ORDER BY total_profit DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerStatsRow
	for rows.Next() {
		var r PlayerStatsRow
		var name sql.NullString
		if err := rows.Scan(
			&r.Key,
			&name,
			&r.HandsPlayed,
			&r.SessionsPlayed,
			&r.TotalProfit,
			&r.AvgProfitPerHand,
			&r.HandsWon,
			&r.Showdowns,
		); err != nil {
			return nil, err
		}
		r.Name = name.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// SessionProgression returns per-hand net-gain rows ordered by start time,
// for cumulative profit charting by the reporting layer.
func (s *Store) SessionProgression(ctx context.Context, enriched bool) ([]ProgressionRow, error) {
	var query string
	if enriched {
		query = `SELECT
			h.hand_number, h.started_at,
			COALESCE('canonical_' || CAST(cp.id AS TEXT), p.id) AS player_key,
			COALESCE(cp.name, p.name) AS player_name,
			hp.net_gain, hp.stack
		FROM hands h
		JOIN hand_players hp ON h.id = hp.hand_id
		JOIN players p ON hp.player_id = p.id
		LEFT JOIN player_aliases pa ON p.id = pa.raw_player_id AND p.name = pa.nickname
		LEFT JOIN canonical_players cp ON pa.canonical_id = cp.id
		ORDER BY h.started_at, player_key`
	} else {
		query = `SELECT
			h.hand_number, h.started_at, hp.player_id, p.name, hp.net_gain, hp.stack
		FROM hands h
		JOIN hand_players hp ON h.id = hp.hand_id
		JOIN players p ON hp.player_id = p.id
		ORDER BY h.started_at, hp.player_id`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProgressionRow
	for rows.Next() {
		var r ProgressionRow
		var name sql.NullString
		if err := rows.Scan(&r.HandNumber, &r.StartedAt, &r.Key, &name, &r.NetGain, &r.Stack); err != nil {
			return nil, err
		}
		r.Name = name.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// PotSizes returns the maximum result pot for every hand that has results.
func (s *Store) PotSizes(ctx context.Context) ([]PotRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		h.hand_number, h.started_at, COALESCE(MAX(hr.pot), 0)
		FROM hands h
		JOIN hand_results hr ON h.id = hr.hand_id
		GROUP BY h.id
		ORDER BY h.started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PotRow
	for rows.Next() {
		var r PotRow
		if err := rows.Scan(&r.HandNumber, &r.StartedAt, &r.MaxPot); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UnmappedPlayers lists every (raw ID, nickname) pair with no alias row,
// ordered by hands played so operators can triage the biggest gaps first.
func (s *Store) UnmappedPlayers(ctx context.Context) ([]UnmappedPlayer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		p.id, p.name, COUNT(DISTINCT hp.hand_id) AS hands_played
		FROM players p
		JOIN hand_players hp ON p.id = hp.player_id
		LEFT JOIN player_aliases pa ON p.id = pa.raw_player_id AND p.name = pa.nickname
		WHERE pa.id IS NULL
		GROUP BY p.id, p.name
		ORDER BY hands_played DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UnmappedPlayer
	for rows.Next() {
		var u UnmappedPlayer
		var nickname sql.NullString
		if err := rows.Scan(&u.RawPlayerID, &nickname, &u.HandsPlayed); err != nil {
			return nil, err
		}
		u.Nickname = nickname.String
		out = append(out, u)
	}
	return out, rows.Err()
}

// PlayerHandCounts lists all observed (raw ID, nickname) pairs with hand
// counts. Feeds the mapping template export.
func (s *Store) PlayerHandCounts(ctx context.Context) ([]PlayerHandCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		p.id, p.name, COUNT(DISTINCT hp.hand_id) AS hands_played
		FROM players p
		JOIN hand_players hp ON p.id = hp.player_id
		GROUP BY p.id, p.name
		ORDER BY hands_played DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerHandCount
	for rows.Next() {
		var c PlayerHandCount
		var nickname sql.NullString
		if err := rows.Scan(&c.RawPlayerID, &nickname, &c.HandsPlayed); err != nil {
			return nil, err
		}
		c.Nickname = nickname.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// HandTypeDistribution counts winning hand descriptions across all results.
func (s *Store) HandTypeDistribution(ctx context.Context) ([]DistributionRow, error) {
	return s.distribution(ctx, `SELECT hand_description, COUNT(*) AS cnt
		FROM hand_results
		WHERE hand_description IS NOT NULL
		GROUP BY hand_description
		ORDER BY cnt DESC`)
}

// ActionDistribution counts generic events per action-type tag. Labels are
// the raw integer tags, rendered by the caller via replay.EventType.
func (s *Store) ActionDistribution(ctx context.Context) ([]DistributionRow, error) {
	return s.distribution(ctx, `SELECT CAST(event_type AS TEXT), COUNT(*) AS cnt
		FROM events
		WHERE event_type IS NOT NULL
		GROUP BY event_type
		ORDER BY cnt DESC`)
}

func (s *Store) distribution(ctx context.Context, query string) ([]DistributionRow, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DistributionRow
	for rows.Next() {
		var r DistributionRow
		if err := rows.Scan(&r.Label, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Summary(ctx context.Context) (SummaryCounts, error) {
	var c SummaryCounts
	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM sessions`, &c.Sessions},
		{`SELECT COUNT(*) FROM hands`, &c.Hands},
		{`SELECT COUNT(*) FROM players`, &c.Players},
		{`SELECT COUNT(*) FROM events`, &c.Events},
		{`SELECT COUNT(*) FROM canonical_players`, &c.CanonicalPlayers},
	}
	for _, q := range counts {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return SummaryCounts{}, err
		}
	}
	return c, nil
}
