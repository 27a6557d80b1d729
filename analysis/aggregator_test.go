package analysis_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kibitzer-analysis/analysis"
)

func TestIngestLine_IgnoresLinesWithoutDepth(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	assert.False(t, a.IngestLine("readyok"))
	assert.False(t, a.IngestLine("bestmove e2e4 ponder e7e5"))
	assert.False(t, a.IngestLine("info nodes 100 nps 50000"))

	snap := a.Snapshot(false)
	assert.Equal(t, 0, snap.Depth)
	assert.Empty(t, snap.Moves)
}

func TestIngestLine_MultiPV(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	require.True(t, a.IngestLine("info depth 3 multipv 1 score cp 30 nodes 589 pv e2e4 e7e5"))
	require.True(t, a.IngestLine("info depth 3 multipv 2 score cp 25 pv d2d4 d7d5"))

	snap := a.HandleBestMove("bestmove e2e4")

	require.Len(t, snap.Moves, 2)
	assert.Equal(t, "e2e4", snap.BestMove)
	assert.Equal(t, 3, snap.Depth)
	assert.True(t, snap.IsComplete)

	e2e4 := snap.Moves["e2e4"]
	assert.Equal(t, []string{"e2e4", "e7e5"}, e2e4.PV)
	assert.Equal(t, 1, e2e4.Rank)
	assert.Equal(t, 589, e2e4.Nodes)
	assert.Equal(t, analysis.Score{Kind: analysis.Centipawn, Value: 30}, e2e4.Score)

	d2d4 := snap.Moves["d2d4"]
	assert.Equal(t, 2, d2d4.Rank)
}

func TestIngestLine_DepthTransitionKeepsArchivedMoves(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	require.True(t, a.IngestLine("info depth 5 currmove e2e4 score cp 10"))
	require.True(t, a.IngestLine("info depth 5 currmove b1c3 score cp -5"))
	require.True(t, a.IngestLine("info depth 6 currmove e2e4 score cp 12"))

	snap := a.Snapshot(false)

	require.Len(t, snap.Moves, 2)
	assert.Equal(t, 6, snap.Depth)

	// live entry wins for the re-reported move
	assert.Equal(t, 6, snap.Moves["e2e4"].Depth)
	assert.Equal(t, 12, snap.Moves["e2e4"].Score.Value)

	// the move not yet re-reported at depth 6 surfaces at its depth-5 figures
	assert.Equal(t, 5, snap.Moves["b1c3"].Depth)
	assert.Equal(t, -5, snap.Moves["b1c3"].Score.Value)
}

func TestIngestLine_PVOverridesCandidateButNotViceVersa(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	require.True(t, a.IngestLine("info depth 8 currmove e2e4 score cp 10"))
	require.True(t, a.IngestLine("info depth 8 score cp 20 pv e2e4 e7e5 g1f3"))

	snap := a.Snapshot(false)
	require.Len(t, snap.Moves["e2e4"].PV, 3)
	assert.Equal(t, 20, snap.Moves["e2e4"].Score.Value)

	// a later bare currmove report must not clobber the full line
	assert.False(t, a.IngestLine("info depth 8 currmove e2e4 score cp 5"))

	snap = a.Snapshot(false)
	assert.Equal(t, 20, snap.Moves["e2e4"].Score.Value)
	assert.Len(t, snap.Moves["e2e4"].PV, 3)
}

func TestIngestLine_ShallowerDepthStillProcessed(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	require.True(t, a.IngestLine("info depth 10 multipv 1 score cp 40 pv e2e4 c7c5"))
	// lower-rank line for the previous depth arrives out of order
	require.True(t, a.IngestLine("info depth 9 multipv 2 score cp 15 pv d2d4 g8f6"))

	snap := a.Snapshot(false)
	assert.Equal(t, 10, snap.Depth)
	require.Len(t, snap.Moves, 2)
	assert.Equal(t, 9, snap.Moves["d2d4"].Depth)
}

func TestIngestLine_RejectsMalformedPVMove(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	assert.False(t, a.IngestLine("info depth 4 score cp 10 pv 0000"))
	assert.False(t, a.IngestLine("info depth 4 score cp 10 pv e9e4 e7e5"))
	assert.True(t, a.IngestLine("info depth 4 score cp 10 pv e7e8q a8b8"))

	snap := a.Snapshot(false)
	require.Len(t, snap.Moves, 1)
	assert.Contains(t, snap.Moves, "e7e8q")
}

func TestSnapshot_BestMoveOrdering(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	require.True(t, a.IngestLine("info depth 12 multipv 1 score mate 1 pv d8h4"))
	require.True(t, a.IngestLine("info depth 12 multipv 2 score mate 5 pv d8g5 g2g3"))
	require.True(t, a.IngestLine("info depth 12 multipv 3 score cp 900 pv d8d2 e1d2"))
	require.True(t, a.IngestLine("info depth 12 multipv 4 score cp 0 pv a7a6 a2a3"))
	require.True(t, a.IngestLine("info depth 12 multipv 5 score mate -5 pv h7h6 f3g5"))
	require.True(t, a.IngestLine("info depth 12 multipv 6 score mate -1 pv f7f6 d1h5"))

	snap := a.Snapshot(false)
	assert.Equal(t, "d8h4", snap.BestMove)

	// remove the front-runner each round and re-check the ranking tail
	order := []string{"d8h4", "d8g5", "d8d2", "a7a6", "h7h6", "f7f6"}
	for i := 1; i < len(order); i++ {
		a.Reset()
		rank := 1
		lines := map[string]string{
			"d8h4": "info depth 12 multipv %d score mate 1 pv d8h4",
			"d8g5": "info depth 12 multipv %d score mate 5 pv d8g5 g2g3",
			"d8d2": "info depth 12 multipv %d score cp 900 pv d8d2 e1d2",
			"a7a6": "info depth 12 multipv %d score cp 0 pv a7a6 a2a3",
			"h7h6": "info depth 12 multipv %d score mate -5 pv h7h6 f3g5",
			"f7f6": "info depth 12 multipv %d score mate -1 pv f7f6 d1h5",
		}
		for _, move := range order[i:] {
			require.True(t, a.IngestLine(fmt.Sprintf(lines[move], rank)))
			rank++
		}
		assert.Equal(t, order[i], a.Snapshot(false).BestMove, "after removing top %d", i)
	}
}

func TestSnapshot_RankBreaksScoreTies(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	require.True(t, a.IngestLine("info depth 7 multipv 2 score cp 50 pv d2d4 d7d5"))
	require.True(t, a.IngestLine("info depth 7 multipv 1 score cp 50 pv e2e4 e7e5"))

	assert.Equal(t, "e2e4", a.Snapshot(false).BestMove)
}

func TestOnUpdate_FiresOnStateChangesOnly(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	var got []analysis.Snapshot
	a.OnUpdate(func(s analysis.Snapshot) {
		got = append(got, s)
	})

	a.IngestLine("info depth 2 score cp 10 pv e2e4")
	a.IngestLine("readyok")
	a.IngestLine("info depth 2 nodes 100") // no score, no move

	require.Len(t, got, 1)
	assert.False(t, got[0].IsComplete)
	assert.Equal(t, "e2e4", got[0].BestMove)
}

func TestReset_ClearsEverything(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	require.True(t, a.IngestLine("info depth 5 score cp 10 pv e2e4"))
	require.True(t, a.IngestLine("info depth 6 score cp 12 pv e2e4"))

	a.Reset()

	snap := a.Snapshot(false)
	assert.Equal(t, 0, snap.Depth)
	assert.Empty(t, snap.Moves)
	assert.Equal(t, "", snap.BestMove)
}

func TestHandleBestMove_ArchivesFinalDepth(t *testing.T) {
	t.Parallel()

	a := analysis.New()

	require.True(t, a.IngestLine("info depth 9 score cp 33 pv g1f3 d7d5"))
	snap := a.HandleBestMove("bestmove g1f3 ponder d7d5")

	assert.True(t, snap.IsComplete)
	assert.Equal(t, 9, snap.Depth)
	require.Contains(t, snap.Moves, "g1f3")
	assert.Equal(t, "g1f3", snap.BestMove)
}
