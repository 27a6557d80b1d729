package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kibitzer-analysis/analysis"
	"kibitzer-analysis/engine"
	"kibitzer-analysis/record"
	"kibitzer-analysis/render"
)

const redrawInterval = 250 * time.Millisecond

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kibitzer",
		Short:         "Live UCI engine analysis in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "kibitzer.yaml", "config file")

	root.AddCommand(watchCommand())
	root.AddCommand(parseCommand())

	return root
}

func watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Spawn the engine and watch it analyze a position",
		RunE:  runWatch,
	}

	cmd.Flags().String("fen", "startpos", "position to analyze")
	cmd.Flags().Int("depth", 0, "search depth (0 = config value)")
	cmd.Flags().Int("multipv", 0, "number of ranked lines (0 = config value)")
	cmd.Flags().String("engine", "", "engine binary (overrides config)")
	cmd.Flags().String("record", "", "append the session to this YAML file")

	return cmd
}

func parseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Aggregate an existing UCI log from stdin",
		RunE:  runParse,
	}

	cmd.Flags().String("fen", "startpos", "position the log belongs to (for SAN display)")
	cmd.Flags().Bool("black", false, "black to move in the analyzed position")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	fenPos, _ := cmd.Flags().GetString("fen")
	if v, _ := cmd.Flags().GetInt("depth"); v > 0 {
		cfg.Depth = v
	}
	if v, _ := cmd.Flags().GetInt("multipv"); v > 0 {
		cfg.Engine.MultiPV = v
	}
	if v, _ := cmd.Flags().GetString("engine"); v != "" {
		cfg.Engine.Path = v
	}
	if v, _ := cmd.Flags().GetString("record"); v != "" {
		cfg.RecordFile = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	eng := engine.New(cfg.Engine, log)
	if err := eng.Start(ctx); err != nil {
		return err
	}

	agg := analysis.New()
	agg.SetSideToMove(blackToMove(fenPos))

	var rec *record.File
	var sess *record.Session
	if cfg.RecordFile != "" {
		rec, err = record.Load(cfg.RecordFile)
		if err != nil {
			return err
		}
		sess = rec.StartSession(fenPos, cfg.Engine.Path)
	}

	var lastEval analysis.Evaluation
	lastDraw := time.Time{}
	agg.OnUpdate(func(snap analysis.Snapshot) {
		if time.Since(lastDraw) < redrawInterval {
			return
		}
		lastDraw = time.Now()
		draw(snap, lastEval, fenPos)
	})

	eng.Analyze(fenPos, cfg.Depth)

	for {
		select {
		case <-ctx.Done():
			eng.Stop()
			eng.Quit()
			return nil

		case line, ok := <-eng.Lines():
			if !ok {
				return fmt.Errorf("engine exited before bestmove")
			}

			if strings.HasPrefix(line, "bestmove") {
				snap := agg.HandleBestMove(line)

				// the declared move is informational; the consolidated
				// pick wins, but a disagreement is worth surfacing
				if declared, _, ok := analysis.ParseBestMove(line); ok && declared != snap.BestMove {
					log.Warn("engine bestmove differs from consolidated pick",
						"engine", declared, "consolidated", snap.BestMove)
				}

				draw(snap, lastEval, fenPos)

				if sess != nil {
					sess.Finish(snap)
					if err := rec.Save(); err != nil {
						return err
					}
				}

				eng.Quit()
				return nil
			}

			l, hasDepth := analysis.ParseLine(line)
			if hasDepth && l.MultiPV == 1 {
				if ev, found := agg.ParseEvaluation(line); found {
					lastEval = ev
				}
			}
			if agg.IngestLine(line) && sess != nil {
				sess.Log(l)
			}
		}
	}
}

func runParse(cmd *cobra.Command, _ []string) error {
	fenPos, _ := cmd.Flags().GetString("fen")
	black, _ := cmd.Flags().GetBool("black")

	agg := analysis.New()
	agg.SetSideToMove(black || blackToMove(fenPos))

	var lastEval analysis.Evaluation
	var final *analysis.Snapshot

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "bestmove") {
			snap := agg.HandleBestMove(line)
			final = &snap
			break
		}

		if l, ok := analysis.ParseLine(line); ok && l.MultiPV == 1 {
			if ev, found := agg.ParseEvaluation(line); found {
				lastEval = ev
			}
		}
		agg.IngestLine(line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if final == nil {
		snap := agg.Snapshot(false)
		final = &snap
	}

	draw(*final, lastEval, fenPos)
	return nil
}

func draw(snap analysis.Snapshot, eval analysis.Evaluation, fenPos string) {
	fmt.Println(render.Bar(eval))
	fmt.Print(render.MoveTable(snap, fenPos))
	fmt.Println()
}

// blackToMove reads the active-color field of a FEN string; "startpos" and
// anything malformed default to white.
func blackToMove(fenPos string) bool {
	fields := strings.Fields(fenPos)
	return len(fields) >= 2 && fields[1] == "b"
}
