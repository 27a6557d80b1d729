package analysis

import (
	"regexp"
	"strconv"
	"strings"
)

var moveRegexp = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbnQRBN]?$`)

// Line holds the fields of a single engine info line. CP and Mate are
// pointers because 0 is a meaningful value for both.
type Line struct {
	Depth    int
	SelDepth int
	MultiPV  int
	TimeMS   int
	Nodes    int
	NPS      int
	TBHits   int
	CurrMove string
	CP       *int
	Mate     *int
	PV       []string

	UpperBound bool
	LowerBound bool
}

// ParseLine splits the line into fields once and extracts everything in a
// single pass. The second return value reports whether a depth field was
// present; lines without one are not analysis-info lines.
func ParseLine(s string) (Line, bool) {
	fields := strings.Fields(s)
	l := Line{MultiPV: 1}

	hasDepth := false

	for i := 0; i < len(fields); i++ {
		inc := 1
		switch fields[i] {
		case "depth":
			if n, ok := atoiAt(fields, i+1); ok {
				l.Depth = n
				hasDepth = true
			}
		case "seldepth":
			if n, ok := atoiAt(fields, i+1); ok {
				l.SelDepth = n
			}
		case "multipv":
			if n, ok := atoiAt(fields, i+1); ok {
				l.MultiPV = n
			}
		case "time":
			if n, ok := atoiAt(fields, i+1); ok {
				l.TimeMS = n
			}
		case "nodes":
			if n, ok := atoiAt(fields, i+1); ok {
				l.Nodes = n
			}
		case "nps":
			if n, ok := atoiAt(fields, i+1); ok {
				l.NPS = n
			}
		case "tbhits":
			if n, ok := atoiAt(fields, i+1); ok {
				l.TBHits = n
			}
		case "currmove":
			if i+1 < len(fields) {
				l.CurrMove = fields[i+1]
			}
		case "currmovenumber", "hashfull":
			// value present but unused
		case "score":
			if i+2 < len(fields) {
				if n, ok := atoiAt(fields, i+2); ok {
					switch fields[i+1] {
					case "cp":
						l.CP = &n
						inc = 2
					case "mate":
						l.Mate = &n
						inc = 2
					}
				}
			}
		case "upperbound":
			l.UpperBound = true
			inc = 0
		case "lowerbound":
			l.LowerBound = true
			inc = 0
		case "pv":
			if i+1 < len(fields) {
				l.PV = append([]string(nil), fields[i+1:]...)
			}
			return l, hasDepth
		case "string":
			// free-form text through end of line
			return l, hasDepth
		default:
			// unknown token; skip it, not whatever follows
			inc = 0
		}

		i += inc
	}

	return l, hasDepth
}

// ParseBestMove extracts the declared move (and ponder move, if any) from a
// terminal "bestmove" line.
func ParseBestMove(s string) (move string, ponder string, ok bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 || fields[0] != "bestmove" {
		return "", "", false
	}

	move = fields[1]
	for i := 2; i+1 < len(fields); i++ {
		if fields[i] == "ponder" {
			ponder = fields[i+1]
			break
		}
	}

	return move, ponder, true
}

func atoiAt(fields []string, i int) (int, bool) {
	if i >= len(fields) {
		return 0, false
	}
	n, err := strconv.Atoi(fields[i])
	if err != nil {
		return 0, false
	}
	return n, true
}
