// Package record appends analysis sessions to a YAML file for later review.
// The aggregator itself holds no state across positions; this is the only
// place anything is written to disk.
package record

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kibitzer-analysis/analysis"
)

type File struct {
	Sessions []*Session

	filename string
}

// Session is one analyzed position: the raw engine output that was fed to
// the aggregator plus the consolidated result.
type Session struct {
	FEN      string    `yaml:"fen"`
	EngineID string    `yaml:"engine,omitempty"`
	TS       int64     `yaml:"ts"`
	Lines    []LogLine `yaml:"log,omitempty"`
	Result   *Result   `yaml:"result,omitempty"`
}

// LogLine is one info line in field form, kept flow-style to stay readable.
type LogLine struct {
	Depth    int    `yaml:"depth"`
	SelDepth int    `yaml:"seldepth,omitempty"`
	MultiPV  int    `yaml:"multipv,omitempty"`
	CP       int    `yaml:"cp"`
	Mate     int    `yaml:"mate,omitempty"`
	Nodes    int    `yaml:"nodes,omitempty"`
	Time     int    `yaml:"time,omitempty"`
	PV       string `yaml:"pv,omitempty"`
}

type Result struct {
	BestMove string `yaml:"best_move"`
	Depth    int    `yaml:"depth"`
	Score    string `yaml:"score,omitempty"`
}

func Load(filename string) (*File, error) {
	f := File{filename: filename}

	b, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return &f, nil
		}
		return nil, fmt.Errorf("'%s': %w", filename, err)
	}

	if err := yaml.Unmarshal(b, &f.Sessions); err != nil {
		return nil, fmt.Errorf("'%s': %w", filename, err)
	}

	return &f, nil
}

// StartSession begins recording a new position. The returned session is
// owned by the file; call Save to flush.
func (f *File) StartSession(fenPos, engineID string) *Session {
	s := &Session{
		FEN:      fenPos,
		EngineID: engineID,
		TS:       time.Now().Unix(),
	}
	f.Sessions = append(f.Sessions, s)
	return s
}

func (f *File) Save() error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(f.Sessions); err != nil {
		return fmt.Errorf("'%s': %w", f.filename, err)
	}

	if err := os.WriteFile(f.filename, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write file '%s': %w", f.filename, err)
	}

	return nil
}

// Log records one parsed info line.
func (s *Session) Log(l analysis.Line) {
	line := LogLine{
		Depth:    l.Depth,
		SelDepth: l.SelDepth,
		MultiPV:  l.MultiPV,
		Nodes:    l.Nodes,
		Time:     l.TimeMS,
		PV:       strings.Join(l.PV, " "),
	}

	if l.Mate != nil {
		line.Mate = *l.Mate
	}
	if l.CP != nil {
		line.CP = *l.CP
	}

	s.Lines = append(s.Lines, line)
}

// Finish stores the completed snapshot's outcome on the session.
func (s *Session) Finish(snap analysis.Snapshot) {
	res := Result{
		BestMove: snap.BestMove,
		Depth:    snap.Depth,
	}
	if best, ok := snap.Moves[snap.BestMove]; ok {
		res.Score = best.Score.String()
	}
	s.Result = &res
}
