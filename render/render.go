// Package render draws terminal views of analysis snapshots: an evaluation
// bar and a ranked move table.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/notnil/chess"

	"kibitzer-analysis/analysis"
)

const barWidth = 40

var (
	whiteBar = color.New(color.BgWhite, color.FgBlack)
	blackBar = color.New(color.BgBlack, color.FgWhite)
	bold     = color.New(color.Bold)
)

// rawWinningChances maps a centipawn value onto [-1, 1].
// 1 is infinitely winning for white, -1 infinitely losing.
func rawWinningChances(cp float64) float64 {
	return 2/(1+math.Exp(-0.004*cp)) - 1
}

func winningChances(eval analysis.Evaluation) float64 {
	if eval.ForcedMate {
		if eval.Score > 0 {
			return 1
		}
		return -1
	}
	cp := math.Min(math.Max(-1000, eval.Score*100), 1000)
	return rawWinningChances(cp)
}

// Bar renders a horizontal eval bar, white's share on the left.
func Bar(eval analysis.Evaluation) string {
	chances := winningChances(eval)
	fill := int(math.Round((chances + 1) / 2 * barWidth))
	if fill < 0 {
		fill = 0
	} else if fill > barWidth {
		fill = barWidth
	}

	var sb strings.Builder
	sb.WriteString(whiteBar.Sprint(strings.Repeat(" ", fill)))
	sb.WriteString(blackBar.Sprint(strings.Repeat(" ", barWidth-fill)))
	sb.WriteString("  ")
	sb.WriteString(bold.Sprint(eval.Display))
	return sb.String()
}

// MoveTable renders the snapshot's ranked lines, one row per candidate move.
// fenPos is used to convert UCI moves to SAN; moves that fail conversion
// (possible for stale archived entries) fall back to raw UCI.
func MoveTable(snap analysis.Snapshot, fenPos string) string {
	var sb strings.Builder

	status := "searching"
	if snap.IsComplete {
		status = "done"
	}
	fmt.Fprintf(&sb, "depth %d (%s)\n", snap.Depth, status)

	for _, ma := range snap.Ranked() {
		marker := "  "
		if ma.Move == snap.BestMove {
			marker = bold.Sprint("* ")
		}

		san := uciToSAN(fenPos, ma.Move)
		row := fmt.Sprintf("%s%-7s %7s  d%-3d", marker, san, ma.Score, ma.Depth)

		if ma.Nodes > 0 {
			row += fmt.Sprintf("  %12s nodes", humanize.Comma(int64(ma.Nodes)))
		}
		if len(ma.PV) > 1 {
			row += "  " + pvPreview(fenPos, ma.PV)
		}

		sb.WriteString(row)
		sb.WriteByte('\n')
	}

	return sb.String()
}

func uciToSAN(fenPos, uciMove string) string {
	game, err := gameFromFEN(fenPos)
	if err != nil {
		return uciMove
	}

	pos := game.Position()
	move, err := chess.UCINotation{}.Decode(pos, uciMove)
	if err != nil {
		return uciMove
	}

	return chess.AlgebraicNotation{}.Encode(pos, move)
}

// pvPreview converts the first few PV moves to SAN, playing them out on a
// scratch game.
func pvPreview(fenPos string, pv []string) string {
	const maxMoves = 6

	game, err := gameFromFEN(fenPos)
	if err != nil {
		return strings.Join(pv, " ")
	}

	var sans []string
	for _, uciMove := range pv {
		if len(sans) == maxMoves {
			break
		}

		pos := game.Position()
		move, err := chess.UCINotation{}.Decode(pos, uciMove)
		if err != nil {
			sans = append(sans, uciMove)
			break
		}

		sans = append(sans, chess.AlgebraicNotation{}.Encode(pos, move))
		if err := game.Move(move); err != nil {
			break
		}
	}

	if len(sans) < len(pv) {
		sans = append(sans, "...")
	}

	return strings.Join(sans, " ")
}

func gameFromFEN(fenPos string) (*chess.Game, error) {
	if strings.TrimSpace(fenPos) == "" || fenPos == "startpos" {
		return chess.NewGame(), nil
	}

	opt, err := chess.FEN(fenPos)
	if err != nil {
		return nil, err
	}
	return chess.NewGame(opt), nil
}
