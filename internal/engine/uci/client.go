// Package uci drives one external UCI engine process over its line
// protocol. A Client lives as long as the AI game it serves.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	handshakeTimeout = 4 * time.Second
	readyTimeout     = 4 * time.Second
	quitGracePeriod  = 2 * time.Second
)

// ErrNoMove is returned when the engine reports "bestmove (none)" or a
// resignation token instead of a playable move.
var ErrNoMove = errors.New("engine returned no move")

// Config is the engine tuning applied during the handshake, derived from
// the game's difficulty profile.
type Config struct {
	SkillLevel int
	Elo        int
	Threads    int
	HashMB     int
}

// Info is the last search metadata observed before bestmove. Informational
// only; nothing downstream depends on it.
type Info struct {
	Depth   int
	ScoreCP int
	Mate    int
}

type Client struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// lines is fed by a single reader goroutine for the life of the
	// process, so timed-out waits never race a later read.
	lines chan string

	mu     sync.Mutex // guards stdin writes
	search sync.Mutex // one search at a time
}

// NewClient spawns the engine binary and completes the uci/isready
// handshake with the given configuration.
func NewClient(ctx context.Context, binaryPath string, cfg Config) (*Client, error) {
	if strings.TrimSpace(binaryPath) == "" {
		return nil, errors.New("engine binary path required")
	}
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	c := &Client{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, 64),
	}
	go c.readLoop(stdoutPipe)

	if err := c.initialize(ctx, cfg); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		c.lines <- strings.TrimSpace(scanner.Text())
	}
	close(c.lines)
}

func (c *Client) initialize(ctx context.Context, cfg Config) error {
	initCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	if err := c.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := c.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = 1
	}
	hash := cfg.HashMB
	if hash <= 0 {
		hash = 16
	}
	options := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threads),
		fmt.Sprintf("setoption name Hash value %d\n", hash),
		fmt.Sprintf("setoption name Skill Level value %d\n", cfg.SkillLevel),
		"setoption name MultiPV value 1\n",
		"setoption name UCI_LimitStrength value true\n",
		fmt.Sprintf("setoption name UCI_Elo value %d\n", cfg.Elo),
	}
	for _, opt := range options {
		if err := c.send(opt); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}

	if err := c.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := c.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// newGame resets the engine and syncs on readyok. The sync also drains any
// leftover output from a previously timed-out search (the stop command
// makes the engine flush a stale bestmove, which readyok trails).
func (c *Client) newGame(ctx context.Context) error {
	if err := c.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}
	if err := c.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := c.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// Search asks for the best move from the given position. It blocks until
// bestmove arrives or ctx expires; on expiry a stop command is issued so
// the engine winds down, and ctx.Err() is returned. The caller bounds ctx
// with the profile's budget.
func (c *Client) Search(ctx context.Context, fen string, moves []string, depth, movetimeMillis int) (string, Info, error) {
	c.search.Lock()
	defer c.search.Unlock()

	if err := c.newGame(ctx); err != nil {
		return "", Info{}, err
	}
	if err := c.send(positionCommand(fen, moves)); err != nil {
		return "", Info{}, fmt.Errorf("send position: %w", err)
	}
	if err := c.send(goCommand(depth, movetimeMillis)); err != nil {
		return "", Info{}, fmt.Errorf("send go: %w", err)
	}

	var last Info
	for {
		line, err := c.readLine(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				_ = c.send("stop\n")
			}
			return "", last, err
		}
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if info, ok := parseInfo(line); ok {
				last = info
			}
		case strings.HasPrefix(line, "bestmove"):
			token := bestMoveToken(line)
			if token == "" {
				return "", last, ErrNoMove
			}
			return token, last, nil
		}
	}
}

// Close asks the engine to quit and kills it if it lingers past the grace
// window.
func (c *Client) Close() error {
	_ = c.send("quit\n")
	c.mu.Lock()
	if c.stdin != nil {
		c.stdin.Close()
		c.stdin = nil
	}
	c.mu.Unlock()

	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(quitGracePeriod):
		_ = c.cmd.Process.Kill()
		return <-done
	}
}

func (c *Client) send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stdin == nil {
		return errors.New("engine stdin closed")
	}
	_, err := io.WriteString(c.stdin, msg)
	return err
}

func (c *Client) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := c.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (c *Client) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

func positionCommand(fen string, moves []string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(fen)
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	sb.WriteString("\n")
	return sb.String()
}

func goCommand(depth, movetimeMillis int) string {
	args := []string{"go"}
	if depth > 0 {
		args = append(args, "depth", strconv.Itoa(depth))
	}
	if movetimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(movetimeMillis))
	}
	return strings.Join(args, " ") + "\n"
}

// bestMoveToken extracts the move from a bestmove line. "(none)" and
// resignation sentinels map to "", which callers treat as failure.
func bestMoveToken(line string) string {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return ""
	}
	token := strings.ToLower(parts[1])
	switch token {
	case "(none)", "none", "resign", "0000":
		return ""
	}
	return token
}

func parseInfo(line string) (Info, bool) {
	parts := strings.Fields(line)
	var (
		info Info
		seen bool
	)
	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					info.Depth = v
					seen = true
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				val, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						info.ScoreCP = val
						seen = true
					case "mate":
						info.Mate = val
						seen = true
					}
				}
				i += 2
			}
		}
	}
	return info, seen
}
