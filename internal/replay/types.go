// Package replay defines the document model for one poker-session replay
// as exported by the platform, plus decoding and shape validation.
package replay

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// EventType is the integer action tag carried in an event payload.
// The set below is the known taxonomy; unrecognised values are still valid
// data and are stored with their raw tag preserved.
type EventType int

const (
	EventCheckCall      EventType = 0
	EventBigBlind       EventType = 2
	EventSmallBlind     EventType = 3
	EventRaise          EventType = 7
	EventBet            EventType = 8
	EventCommunityCards EventType = 9
	EventHandResult     EventType = 10
	EventFold           EventType = 11
	EventShowCards      EventType = 12
	EventShowdown       EventType = 15
	EventAllIn          EventType = 16
)

func (t EventType) String() string {
	switch t {
	case EventCheckCall:
		return "CHECK_CALL"
	case EventBigBlind:
		return "BIG_BLIND"
	case EventSmallBlind:
		return "SMALL_BLIND"
	case EventRaise:
		return "RAISE"
	case EventBet:
		return "BET"
	case EventCommunityCards:
		return "COMMUNITY_CARDS"
	case EventHandResult:
		return "HAND_RESULT"
	case EventFold:
		return "FOLD"
	case EventShowCards:
		return "SHOW_CARDS"
	case EventShowdown:
		return "SHOWDOWN"
	case EventAllIn:
		return "ALL_IN"
	default:
		return fmt.Sprintf("TYPE_%d", int(t))
	}
}

// FlexInt decodes a JSON number that some exports carry as a quoted string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("parse numeric string %q: %w", s, err)
		}
		*f = FlexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// Session is one replay document: a playing session with its ordered hands.
type Session struct {
	GameID      string `json:"gameId"`
	GeneratedAt string `json:"generatedAt"`
	PlayerID    string `json:"playerId"`
	FromCache   bool   `json:"fromCache"`
	Hands       []Hand `json:"hands"`
}

// Hand is one dealt hand within a session.
type Hand struct {
	ID         string   `json:"id"`
	Number     FlexInt  `json:"number"`
	GameType   string   `json:"gameType"`
	SmallBlind int      `json:"smallBlind"`
	BigBlind   int      `json:"bigBlind"`
	Ante       int      `json:"ante"`
	DealerSeat int      `json:"dealerSeat"`
	StartedAt  int64    `json:"startedAt"`
	PlayerNet  int      `json:"playerNet"`
	Players    []Player `json:"players"`
	Events     []Event  `json:"events"`
}

// Player is one roster entry scoped to a single hand.
type Player struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Seat    int      `json:"seat"`
	Stack   int      `json:"stack"`
	Hand    []string `json:"hand"` // hole cards, present only if revealed
	NetGain int      `json:"netGain"`
	Show    bool     `json:"show"`
}

// Event is one timestamped action within a hand.
type Event struct {
	At      int64   `json:"at"`
	Payload Payload `json:"payload"`
}

// Payload carries the action tag plus type-specific fields. Pointer fields
// distinguish "absent" from zero so the store can persist NULLs.
type Payload struct {
	Type  EventType `json:"type"`
	Seat  *int      `json:"seat"`
	Value *int      `json:"value"`

	// Community-card fields (Type == EventCommunityCards).
	Turn  int      `json:"turn"` // flop=1, turn=2, river=3
	Run   int      `json:"run"`
	Cards []string `json:"cards"`

	// Result fields (Type == EventHandResult).
	Pot             *int     `json:"pot"`
	Combination     []string `json:"combination"`
	HandDescription string   `json:"handDescription"`
	Position        *int     `json:"position"`
	RunNumber       string   `json:"runNumber"`
	HiLo            string   `json:"hiLo"`
}
