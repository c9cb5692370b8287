// internal/puzzle/load.go
//
// Puzzle set loading.
//
// Initialization behavior (Init):
//   1. If PUZZLES_FILE is set, load the puzzle set from that JSON file.
//   2. Otherwise fall back to the embedded default set in assets/.
//
// The set is loaded once (sync.Once); every entry is validated through New
// and duplicate IDs are rejected, so a loaded set is internally consistent.

package puzzle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/wordplay-labs/connections-server/assets"
)

var (
	initOnce   sync.Once
	loaded     []*Puzzle
	byID       map[int]*Puzzle
	initialErr error
)

// rawPuzzle mirrors the JSON content shape before validation.
type rawPuzzle struct {
	ID     int     `json:"id"`
	Groups []Group `json:"groups"`
}

// Init loads the puzzle set. Safe to call more than once; only the first
// call does work.
func Init() error {
	initOnce.Do(func() {
		data, src, err := readSource()
		if err != nil {
			initialErr = err
			return
		}
		loaded, byID, initialErr = parseSet(data)
		if initialErr != nil {
			initialErr = fmt.Errorf("load puzzles from %s: %w", src, initialErr)
		}
	})
	return initialErr
}

func readSource() (data []byte, src string, err error) {
	if path := os.Getenv("PUZZLES_FILE"); path != "" {
		data, err = os.ReadFile(path)
		return data, path, err
	}
	data, err = assets.PuzzlesJSON()
	return data, "embedded assets", err
}

func parseSet(data []byte) ([]*Puzzle, map[int]*Puzzle, error) {
	var raw []rawPuzzle
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return nil, nil, errors.New("empty puzzle set")
	}
	set := make([]*Puzzle, 0, len(raw))
	index := make(map[int]*Puzzle, len(raw))
	for _, r := range raw {
		p, err := New(r.ID, r.Groups)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := index[p.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate puzzle id %d", p.ID)
		}
		index[p.ID] = p
		set = append(set, p)
	}
	return set, index, nil
}

// All returns the loaded puzzle set in file order.
func All() []*Puzzle {
	return loaded
}

// ByID returns a loaded puzzle or nil.
func ByID(id int) *Puzzle {
	return byID[id]
}

// Count returns the number of loaded puzzles.
func Count() int { return len(loaded) }
