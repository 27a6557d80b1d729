// Package engine runs a UCI chess engine as a child process and exposes its
// output as a single serial stream of lines.
package engine

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"
)

type Config struct {
	Path    string `yaml:"path"`
	Dir     string `yaml:"dir,omitempty"`
	Threads int    `yaml:"threads,omitempty"`
	HashMB  int    `yaml:"hash_mb,omitempty"`
	MultiPV int    `yaml:"multipv,omitempty"`
}

// Engine is a handle to a running UCI engine process. All output lines are
// delivered on the single channel returned by Lines, in arrival order; the
// consumer is expected to read them from one goroutine.
type Engine struct {
	cfg    Config
	log    *slog.Logger
	cmd    *exec.Cmd
	input  chan string
	output chan string

	started int64
}

func New(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		log:    log,
		input:  make(chan string, 512),
		output: make(chan string, 512),
	}
}

// Lines returns the engine's stdout, one line per receive. The channel is
// closed when the process exits.
func (e *Engine) Lines() <-chan string {
	return e.output
}

// Start launches the engine process and completes the uci/isready handshake,
// applying Threads, Hash and MultiPV options. It is a no-op if the engine
// was already started.
func (e *Engine) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt64(&e.started, 0, 1) {
		return nil
	}

	cmd := exec.CommandContext(ctx, e.cfg.Path)
	if e.cfg.Dir != "" {
		cmd.Dir = e.cfg.Dir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.cfg.Path, err)
	}
	e.cmd = cmd

	go func() {
		for {
			select {
			case line := <-e.input:
				if _, err := stdin.Write([]byte(line + "\n")); err != nil {
					e.log.Error("engine stdin write", "err", err)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		r := bufio.NewScanner(stderr)
		for r.Scan() {
			e.log.Warn("engine stderr", "line", r.Text())
		}
	}()

	go func() {
		defer close(e.output)
		r := bufio.NewScanner(stdout)
		r.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for r.Scan() {
			select {
			case e.output <- r.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := r.Err(); err != nil {
			e.log.Error("engine stdout", "err", err)
		}
	}()

	go func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			e.log.Error("engine exited", "err", err)
		}
	}()

	return e.handshake(ctx)
}

func (e *Engine) handshake(ctx context.Context) error {
	e.input <- "uci"
	if err := e.waitFor(ctx, "uciok"); err != nil {
		return err
	}

	if e.cfg.Threads > 0 {
		e.input <- fmt.Sprintf("setoption name Threads value %d", e.cfg.Threads)
	}
	if e.cfg.HashMB > 0 {
		e.input <- fmt.Sprintf("setoption name Hash value %d", e.cfg.HashMB)
	}
	if e.cfg.MultiPV > 1 {
		e.input <- fmt.Sprintf("setoption name MultiPV value %d", e.cfg.MultiPV)
	}
	e.input <- "ucinewgame"

	e.input <- "isready"
	return e.waitFor(ctx, "readyok")
}

func (e *Engine) waitFor(ctx context.Context, token string) error {
	for {
		select {
		case line, ok := <-e.output:
			if !ok {
				return fmt.Errorf("engine closed before %q", token)
			}
			if line == token {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Analyze points the engine at a position and starts an infinite or
// depth-limited search. Results stream out on Lines.
func (e *Engine) Analyze(fen string, depth int) {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		e.input <- "position startpos"
	} else {
		e.input <- "position fen " + fen
	}

	if depth > 0 {
		e.input <- fmt.Sprintf("go depth %d", depth)
	} else {
		e.input <- "go infinite"
	}
}

// Stop asks the engine to end the current search; a bestmove line follows.
func (e *Engine) Stop() {
	e.input <- "stop"
}

// Quit asks the engine process to exit.
func (e *Engine) Quit() {
	e.input <- "quit"
}
