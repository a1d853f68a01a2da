package persistence

import (
	"context"
	"database/sql"
	"strings"

	"github.com/replaydeck/pokerpipe/internal/replay"
)

// IngestStats summarises what one UpsertSession call wrote.
type IngestStats struct {
	SessionID      string
	HandsProcessed int
	PlayersAdded   int
	EventsAdded    int
	ResultsAdded   int
}

// UpsertSession writes one session document into the normalized schema.
// The whole document is one transaction: a failure leaves the store
// unchanged for that document.
//
// Sessions, hands, players and hand_players are keyed upserts and safe to
// re-run. Events, community_cards and hand_results have no natural key and
// are appended per call; re-ingesting a document duplicates those rows.
func (s *Store) UpsertSession(ctx context.Context, doc *replay.Session) (IngestStats, error) {
	stats := IngestStats{SessionID: doc.GameID}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		stats, err = upsertSessionTx(ctx, tx, doc)
		return err
	})
	if err != nil {
		return IngestStats{}, err
	}
	return stats, nil
}

func upsertSessionTx(ctx context.Context, tx *sql.Tx, doc *replay.Session) (IngestStats, error) {
	stats := IngestStats{SessionID: doc.GameID}

	if _, err := tx.ExecContext(ctx, `INSERT INTO sessions(id, generated_at, observer_player_id, from_cache)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			generated_at=excluded.generated_at,
			observer_player_id=excluded.observer_player_id,
			from_cache=excluded.from_cache`,
		doc.GameID,
		nullIfEmpty(doc.GeneratedAt),
		nullIfEmpty(doc.PlayerID),
		boolToInt(doc.FromCache),
	); err != nil {
		return IngestStats{}, err
	}

	// Players counted once per call; the row itself is overwritten on every
	// occurrence so the stored nickname is last-write-wins.
	seenPlayers := make(map[string]bool)

	for hi := range doc.Hands {
		h := &doc.Hands[hi]
		if err := upsertHandTx(ctx, tx, doc.GameID, h, seenPlayers, &stats); err != nil {
			return IngestStats{}, err
		}
		stats.HandsProcessed++
	}
	return stats, nil
}

func upsertHandTx(ctx context.Context, tx *sql.Tx, sessionID string, h *replay.Hand, seenPlayers map[string]bool, stats *IngestStats) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO hands(
		id, session_id, hand_number, game_type, small_blind, big_blind,
		ante, dealer_seat, started_at, player_net
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		session_id=excluded.session_id,
		hand_number=excluded.hand_number,
		game_type=excluded.game_type,
		small_blind=excluded.small_blind,
		big_blind=excluded.big_blind,
		ante=excluded.ante,
		dealer_seat=excluded.dealer_seat,
		started_at=excluded.started_at,
		player_net=excluded.player_net`,
		h.ID,
		sessionID,
		int(h.Number),
		nullIfEmpty(h.GameType),
		h.SmallBlind,
		h.BigBlind,
		h.Ante,
		h.DealerSeat,
		h.StartedAt,
		h.PlayerNet,
	); err != nil {
		return err
	}

	// Seat assignments are independent per hand; the map is rebuilt here
	// and never reused across hands.
	seatToPlayer := make(map[int]string, len(h.Players))
	for _, p := range h.Players {
		seatToPlayer[p.Seat] = p.ID

		if _, err := tx.ExecContext(ctx, `INSERT INTO players(id, name) VALUES(?, ?)
			ON CONFLICT(id) DO UPDATE SET name=excluded.name`,
			p.ID, p.Name,
		); err != nil {
			return err
		}
		if !seenPlayers[p.ID] {
			seenPlayers[p.ID] = true
			stats.PlayersAdded++
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO hand_players(
			hand_id, player_id, seat, stack, hole_card_1, hole_card_2, net_gain, showed_cards
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hand_id, player_id) DO UPDATE SET
			seat=excluded.seat,
			stack=excluded.stack,
			hole_card_1=excluded.hole_card_1,
			hole_card_2=excluded.hole_card_2,
			net_gain=excluded.net_gain,
			showed_cards=excluded.showed_cards`,
			h.ID,
			p.ID,
			p.Seat,
			p.Stack,
			cardSlot(p.Hand, 0),
			cardSlot(p.Hand, 1),
			p.NetGain,
			boolToInt(p.Show),
		); err != nil {
			return err
		}
	}

	for _, ev := range h.Events {
		switch ev.Payload.Type {
		case replay.EventCommunityCards:
			if err := insertCommunityCardsTx(ctx, tx, h.ID, &ev.Payload); err != nil {
				return err
			}
		case replay.EventHandResult:
			if err := insertHandResultTx(ctx, tx, h.ID, &ev.Payload, seatToPlayer); err != nil {
				return err
			}
			stats.ResultsAdded++
		default:
			if _, err := tx.ExecContext(ctx, `INSERT INTO events(hand_id, event_time, event_type, seat, value)
				VALUES(?, ?, ?, ?, ?)`,
				h.ID,
				ev.At,
				int(ev.Payload.Type),
				nullableInt(ev.Payload.Seat),
				nullableInt(ev.Payload.Value),
			); err != nil {
				return err
			}
			stats.EventsAdded++
		}
	}
	return nil
}

func insertCommunityCardsTx(ctx context.Context, tx *sql.Tx, handID string, p *replay.Payload) error {
	turn := p.Turn
	if turn == 0 {
		turn = 1
	}
	run := p.Run
	if run == 0 {
		run = 1
	}
	// Always write exactly 5 card slots; absent slots are NULL.
	slots := [5]any{}
	for i := range slots {
		slots[i] = cardSlot(p.Cards, i)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO community_cards(
		hand_id, turn, run, card_1, card_2, card_3, card_4, card_5
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		handID, turn, run, slots[0], slots[1], slots[2], slots[3], slots[4])
	return err
}

func insertHandResultTx(ctx context.Context, tx *sql.Tx, handID string, p *replay.Payload, seatToPlayer map[int]string) error {
	// An empty seat resolves to a NULL player, not an error.
	var playerID any
	if p.Seat != nil {
		if id, ok := seatToPlayer[*p.Seat]; ok {
			playerID = id
		}
	}
	var combination any
	if len(p.Combination) > 0 {
		combination = strings.Join(p.Combination, ",")
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO hand_results(
		hand_id, seat, player_id, pot, value_won, hole_card_1, hole_card_2,
		hand_description, combination, position, run_number, hi_lo
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		handID,
		nullableInt(p.Seat),
		playerID,
		nullableInt(p.Pot),
		nullableInt(p.Value),
		cardSlot(p.Cards, 0),
		cardSlot(p.Cards, 1),
		nullIfEmpty(p.HandDescription),
		combination,
		nullableInt(p.Position),
		nullIfEmpty(p.RunNumber),
		nullIfEmpty(p.HiLo),
	)
	return err
}

func cardSlot(cards []string, i int) any {
	if i < len(cards) {
		return cards[i]
	}
	return nil
}
