// internal/puzzle/puzzle.go
//
// Immutable puzzle definitions for the Connections game.
//
// A puzzle is 16 distinct words partitioned into 4 themed groups of 4.
// Construction validates the partition; a *Puzzle that exists is well-formed
// and never mutated afterwards.
//
// Constraints:
//   • Exactly 4 groups, exactly 4 words each, 16 distinct words overall.
//   • Puzzle IDs live in [0, 911].
//   • Words are normalized to lowercase and trimmed.

package puzzle

import (
	"fmt"
	"strings"
)

const (
	GroupCount = 4  // groups per puzzle
	GroupSize  = 4  // words per group
	WordCount  = 16 // words per puzzle

	// Valid puzzle ID range. IDs outside it are a content bug, not a
	// runtime game rule, so loading rejects them outright.
	MinID = 0
	MaxID = 911
)

// Group is one themed set of 4 words inside a puzzle.
type Group struct {
	Theme string   `json:"theme"`
	Words []string `json:"words"`
}

// Puzzle is the fixed content of one game: 16 words in 4 disjoint groups.
type Puzzle struct {
	ID     int     `json:"id"`
	Groups []Group `json:"groups"`

	words   []string       // all 16 words, group order
	groupOf map[string]int // word -> index into Groups
}

// New validates raw content and returns an immutable puzzle.
func New(id int, groups []Group) (*Puzzle, error) {
	if id < MinID || id > MaxID {
		return nil, fmt.Errorf("puzzle id %d out of range [%d,%d]", id, MinID, MaxID)
	}
	if len(groups) != GroupCount {
		return nil, fmt.Errorf("puzzle %d: want %d groups, got %d", id, GroupCount, len(groups))
	}

	p := &Puzzle{
		ID:      id,
		Groups:  make([]Group, 0, GroupCount),
		words:   make([]string, 0, WordCount),
		groupOf: make(map[string]int, WordCount),
	}
	for gi, g := range groups {
		if len(g.Words) != GroupSize {
			return nil, fmt.Errorf("puzzle %d group %q: want %d words, got %d", id, g.Theme, GroupSize, len(g.Words))
		}
		clean := Group{Theme: strings.TrimSpace(g.Theme), Words: make([]string, 0, GroupSize)}
		for _, w := range g.Words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				return nil, fmt.Errorf("puzzle %d group %q: empty word", id, g.Theme)
			}
			if _, dup := p.groupOf[w]; dup {
				return nil, fmt.Errorf("puzzle %d: duplicate word %q", id, w)
			}
			p.groupOf[w] = gi
			p.words = append(p.words, w)
			clean.Words = append(clean.Words, w)
		}
		p.Groups = append(p.Groups, clean)
	}
	if len(p.words) != WordCount {
		return nil, fmt.Errorf("puzzle %d: want %d words, got %d", id, WordCount, len(p.words))
	}
	return p, nil
}

// Words returns a copy of all 16 words in group order.
func (p *Puzzle) Words() []string {
	out := make([]string, len(p.words))
	copy(out, p.words)
	return out
}

// Contains reports whether w (already lowercased) belongs to the puzzle.
func (p *Puzzle) Contains(w string) bool {
	_, ok := p.groupOf[w]
	return ok
}

// GroupFor returns the group index for a word, or -1 if absent.
func (p *Puzzle) GroupFor(w string) int {
	gi, ok := p.groupOf[w]
	if !ok {
		return -1
	}
	return gi
}

// Solution returns the full grouping as word lists, group order.
func (p *Puzzle) Solution() [][]string {
	out := make([][]string, 0, GroupCount)
	for _, g := range p.Groups {
		ws := make([]string, len(g.Words))
		copy(ws, g.Words)
		out = append(out, ws)
	}
	return out
}

// MatchGroup reports which group a candidate of exactly GroupSize words
// matches in full, or -1 when it matches none. Candidates are compared as
// sets; order never matters.
func (p *Puzzle) MatchGroup(candidate []string) int {
	if len(candidate) != GroupSize {
		return -1
	}
	gi := -1
	seen := make(map[string]struct{}, GroupSize)
	for _, w := range candidate {
		g, ok := p.groupOf[w]
		if !ok {
			return -1
		}
		if _, dup := seen[w]; dup {
			return -1
		}
		seen[w] = struct{}{}
		if gi == -1 {
			gi = g
		} else if g != gi {
			return -1
		}
	}
	return gi
}
