package replay

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
)

// MalformedInputError reports a required field missing from a replay
// document. Shape validation only; the payload is otherwise stored verbatim.
type MalformedInputError struct {
	Field string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("replay document missing required field %q", e.Field)
}

// Decode reads a session document from r and validates its shape.
func Decode(r io.Reader) (*Session, error) {
	var s Session
	dec := json.NewDecoder(r)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode replay document: %w", err)
	}
	if err := validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodeFile reads and validates the session document at path.
func DecodeFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay document: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func validate(s *Session) error {
	if s.GameID == "" {
		return &MalformedInputError{Field: "gameId"}
	}
	for i := range s.Hands {
		if s.Hands[i].ID == "" {
			return &MalformedInputError{Field: fmt.Sprintf("hands[%d].id", i)}
		}
	}
	return nil
}
