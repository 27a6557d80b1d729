package analysis

import "fmt"

// Evaluation scores are normalized to white's perspective. Non-zero mate
// distances map into ±(1000-|m|) so closer mates score higher; a checkmate
// already on the board uses the mateNowScore sentinel, above every other
// magnitude, with "#" as its display.
const mateNowScore = 1100

// Evaluation is a single displayable figure derived from one engine line,
// for consumers like an eval bar that don't care about per-move bookkeeping.
type Evaluation struct {
	Score      float64 `json:"score"`
	Display    string  `json:"display"`
	ForcedMate bool    `json:"forced_mate,omitempty"`
}

// ParseEvaluation extracts a perspective-normalized evaluation from one
// engine line. It reports false when the line carries no score. It never
// mutates aggregator state.
func (a *Aggregator) ParseEvaluation(line string) (Evaluation, bool) {
	l, _ := ParseLine(line)

	switch {
	case l.Mate != nil:
		m := *l.Mate
		if a.blackToMove {
			m = -m
		}

		if m == 0 {
			// checkmate is on the board: the side to move has lost
			score := float64(mateNowScore)
			if !a.blackToMove {
				score = -score
			}
			return Evaluation{Score: score, Display: "#", ForcedMate: true}, true
		}

		if m > 0 {
			return Evaluation{
				Score:      float64(1000 - m),
				Display:    fmt.Sprintf("+M%d", m),
				ForcedMate: true,
			}, true
		}
		return Evaluation{
			Score:      float64(-1000 - m),
			Display:    fmt.Sprintf("-M%d", -m),
			ForcedMate: true,
		}, true

	case l.CP != nil:
		pawns := float64(*l.CP) / 100
		if a.blackToMove {
			pawns = -pawns
		}

		s := fmt.Sprintf("%+.2f", pawns)
		if s == "+0.00" || s == "-0.00" {
			s = "0.00"
		}

		return Evaluation{Score: pawns, Display: s}, true
	}

	return Evaluation{}, false
}
