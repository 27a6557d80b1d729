package analysis

import (
	"fmt"
	"sort"
	"time"
)

// ScoreKind tags a Score as a centipawn evaluation or a distance to a
// forced mate.
type ScoreKind int

const (
	Centipawn ScoreKind = iota
	MateIn
)

// Score is an engine evaluation relative to the side to move. For Centipawn
// the value is in 1/100 pawn units. For MateIn the value is a signed
// distance to a forced mate; 0 means the side to move is checkmated on the
// board right now.
type Score struct {
	Kind  ScoreKind `json:"kind"`
	Value int       `json:"value"`
}

// comparison maps a score onto a single axis for best-move selection.
// Winning mates sit above every centipawn value, with closer mates higher;
// losing mates sit below every centipawn value, with closer mates lower.
func (s Score) comparison() int {
	if s.Kind == MateIn {
		if s.Value > 0 {
			return 400_00 - s.Value*100
		}
		return -400_00 - s.Value*100
	}
	return s.Value
}

// String renders the score from the mover's perspective, "#3" for mates and
// a signed pawn figure otherwise.
func (s Score) String() string {
	if s.Kind == MateIn {
		return fmt.Sprintf("#%d", s.Value)
	}

	out := fmt.Sprintf("%+.2f", float64(s.Value)/100)
	if out == "+0.00" || out == "-0.00" {
		return "0.00"
	}
	return out
}

// MoveAnalysis is the latest known analysis for one candidate move.
type MoveAnalysis struct {
	Move  string `json:"uci"`
	Score Score  `json:"score"`
	Depth int    `json:"depth"`

	// PV is the predicted continuation starting with Move. A nil PV means
	// this entry came from a bare currmove report, which is lower-fidelity
	// data than a full line.
	PV []string `json:"pv,omitempty"`

	// Rank is the multipv rank; 1 is the engine's primary line.
	Rank int `json:"multipv"`

	Nodes    int `json:"nodes,omitempty"`
	SelDepth int `json:"seldepth,omitempty"`
	TimeMS   int `json:"time,omitempty"`
}

// Snapshot is an immutable view of the analysis at a point in time,
// consolidated across the current depth and everything archived from
// shallower depths.
type Snapshot struct {
	Depth      int                     `json:"depth"`
	Moves      map[string]MoveAnalysis `json:"moves"`
	BestMove   string                  `json:"best_move"`
	IsComplete bool                    `json:"complete"`
	Timestamp  time.Time               `json:"ts"`
}

// Ranked returns the snapshot's moves ordered for display: by rank, then by
// score, then by move for a stable order.
func (s Snapshot) Ranked() []MoveAnalysis {
	out := make([]MoveAnalysis, 0, len(s.Moves))
	for _, ma := range s.Moves {
		out = append(out, ma)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		ci, cj := out[i].Score.comparison(), out[j].Score.comparison()
		if ci != cj {
			return ci > cj
		}
		return out[i].Move < out[j].Move
	})

	return out
}

// Aggregator folds a stream of engine info lines into per-move analysis
// state. It is not safe for concurrent use; the caller must deliver lines
// from a single goroutine and Reset between positions.
type Aggregator struct {
	depth       int
	live        map[string]MoveAnalysis
	archive     map[int]map[string]MoveAnalysis
	blackToMove bool
	onUpdate    func(Snapshot)
}

func New() *Aggregator {
	a := &Aggregator{}
	a.Reset()
	return a
}

// Reset discards all analysis state. Call it whenever the analyzed position
// changes, before feeding any lines for the new position.
func (a *Aggregator) Reset() {
	a.depth = 0
	a.live = make(map[string]MoveAnalysis)
	a.archive = make(map[int]map[string]MoveAnalysis)
}

// SetSideToMove records whether black is to move in the analyzed position.
// It only affects ParseEvaluation's perspective normalization.
func (a *Aggregator) SetSideToMove(blackToMove bool) {
	a.blackToMove = blackToMove
}

// OnUpdate registers fn to be called with a fresh snapshot after every
// state-changing line. Pass nil to unregister.
func (a *Aggregator) OnUpdate(fn func(Snapshot)) {
	a.onUpdate = fn
}

// IngestLine folds one engine line into the aggregator and reports whether
// it changed any state. Lines without a depth field are ignored. Malformed
// fields contribute nothing; they never produce an error.
func (a *Aggregator) IngestLine(line string) bool {
	l, ok := ParseLine(line)
	if !ok {
		return false
	}

	if l.Depth > a.depth {
		if a.depth > 0 && len(a.live) > 0 {
			a.archive[a.depth] = a.live
		}
		a.live = make(map[string]MoveAnalysis)
		a.depth = l.Depth
	}
	// a shallower depth can still carry move data for a lower-rank line
	// reported out of order; it is processed without touching a.depth

	haveScore := l.CP != nil || l.Mate != nil
	if !haveScore {
		return false
	}
	score := lineScore(l)

	var changed bool

	if l.CurrMove != "" {
		prev, exists := a.live[l.CurrMove]
		if !exists || prev.PV == nil {
			a.live[l.CurrMove] = MoveAnalysis{
				Move:     l.CurrMove,
				Score:    score,
				Depth:    l.Depth,
				Rank:     l.MultiPV,
				Nodes:    l.Nodes,
				SelDepth: l.SelDepth,
				TimeMS:   l.TimeMS,
			}
			changed = true
		}
	}

	if len(l.PV) > 0 && moveRegexp.MatchString(l.PV[0]) {
		// a full line always overwrites, even a same-depth currmove entry
		a.live[l.PV[0]] = MoveAnalysis{
			Move:     l.PV[0],
			Score:    score,
			Depth:    l.Depth,
			PV:       l.PV,
			Rank:     l.MultiPV,
			Nodes:    l.Nodes,
			SelDepth: l.SelDepth,
			TimeMS:   l.TimeMS,
		}
		changed = true
	}

	if changed && a.onUpdate != nil {
		a.onUpdate(a.Snapshot(false))
	}

	return changed
}

// Snapshot consolidates live and archived state into an immutable view.
// Live entries win; a move absent from live falls back to its deepest
// archived entry, so no candidate is lost across a depth transition.
func (a *Aggregator) Snapshot(isComplete bool) Snapshot {
	moves := make(map[string]MoveAnalysis, len(a.live))
	for m, ma := range a.live {
		moves[m] = ma
	}

	for _, archived := range a.archive {
		for m, ma := range archived {
			if _, ok := a.live[m]; ok {
				continue
			}
			if prev, ok := moves[m]; ok && prev.Depth >= ma.Depth {
				continue
			}
			moves[m] = ma
		}
	}

	var best string
	var bestScore, bestRank int
	for m, ma := range moves {
		cs := ma.Score.comparison()
		if best == "" || cs > bestScore || (cs == bestScore && ma.Rank < bestRank) {
			best = m
			bestScore = cs
			bestRank = ma.Rank
		}
	}

	return Snapshot{
		Depth:      a.depth,
		Moves:      moves,
		BestMove:   best,
		IsComplete: isComplete,
		Timestamp:  time.Now(),
	}
}

// HandleBestMove finalizes the search when the terminal "bestmove" line
// arrives and returns the completed snapshot. The move declared on the line
// itself is informational; the snapshot's BestMove is recomputed from the
// info lines seen so far (use ParseBestMove if the declared move is wanted).
func (a *Aggregator) HandleBestMove(line string) Snapshot {
	if a.depth > 0 && len(a.live) > 0 {
		a.archive[a.depth] = a.live
		a.live = make(map[string]MoveAnalysis)
	}
	return a.Snapshot(true)
}

func lineScore(l Line) Score {
	if l.Mate != nil {
		return Score{Kind: MateIn, Value: *l.Mate}
	}
	return Score{Kind: Centipawn, Value: *l.CP}
}
