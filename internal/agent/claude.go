package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grindloop/grind/internal/events"
	"github.com/grindloop/grind/internal/stream"
)

// stderrTailLimit caps how much stderr is retained for error reporting.
const stderrTailLimit = 8 * 1024

// ClaudeInvoker spawns the Claude Code CLI in single-shot stream-json mode.
type ClaudeInvoker struct {
	// Command is the agent binary (default "claude").
	Command string
	// Model overrides the agent's default model when set.
	Model string
	// Timeout bounds one invocation (default 30 minutes).
	Timeout time.Duration
}

// NewClaudeInvoker creates an invoker with defaults filled in.
func NewClaudeInvoker() *ClaudeInvoker {
	return &ClaudeInvoker{
		Command: "claude",
		Timeout: 30 * time.Minute,
	}
}

// Invoke runs one agent turn. The handler is called synchronously from the
// stdout-reading control flow, so callers need no locking around the state
// they mutate in it. An error return means the process could not run or
// terminated abnormally at the transport level; an agent that completes its
// turn but reports failure yields (Result{Success: false}, nil).
func (c *ClaudeInvoker) Invoke(ctx context.Context, prompt, workDir string, handler events.Handler) (*Result, error) {
	command := c.Command
	if command == "" {
		command = "claude"
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-p", prompt,
		"--output-format", "stream-json",
		"--verbose",
		"--dangerously-skip-permissions",
	}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = workDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting agent %q: %w", command, err)
	}

	result := &Result{}
	sawResult := false

	// Wrap the caller's handler to peel off the terminal result record for
	// the invocation summary before passing everything through.
	observe := func(ev events.Event) {
		if ev.Kind == events.KindResult {
			sawResult = true
			result.Success = !ev.IsError
			result.CostUSD = ev.CostUSD
			result.Usage = ev.Usage
		}
		handler(ev)
	}

	correlator := events.NewCorrelator()
	normalizer := events.NewNormalizer(correlator, observe)
	decoder := stream.NewDecoder(
		func(r stream.Record) { normalizer.Process(r) },
		func(err error) {
			// Recoverable: drop the line, keep decoding.
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		},
	)

	var stderrTail strings.Builder
	g := new(errgroup.Group)
	g.Go(func() error {
		buf := make([]byte, 32*1024)
		for {
			n, readErr := stderr.Read(buf)
			if n > 0 && stderrTail.Len() < stderrTailLimit {
				stderrTail.Write(buf[:n])
			}
			if readErr != nil {
				if readErr == io.EOF {
					return nil
				}
				return readErr
			}
		}
	})

	// Stdout is consumed on the invoking control flow so the event handler
	// stays synchronous and sequential.
	buf := make([]byte, 32*1024)
	for {
		n, readErr := stdout.Read(buf)
		if n > 0 {
			decoder.Write(string(buf[:n]))
		}
		if readErr != nil {
			if readErr != io.EOF {
				_ = cmd.Process.Kill()
				_ = cmd.Wait()
				return nil, fmt.Errorf("reading agent output: %w", readErr)
			}
			break
		}
	}
	decoder.Flush()

	_ = g.Wait()
	waitErr := cmd.Wait()
	result.Duration = time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("agent invocation aborted: %w", ctxErr)
	}
	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("waiting for agent: %w", waitErr)
		}
		// Nonzero exit with a parsed result record is a soft failure; the
		// agent completed its turn and told us it failed.
		result.Success = false
		if result.ErrorMessage == "" {
			result.ErrorMessage = strings.TrimSpace(stderrTail.String())
		}
		if result.ErrorMessage == "" {
			result.ErrorMessage = waitErr.Error()
		}
		if !sawResult {
			// Exited without ever emitting a terminal record: treat as a
			// transport-level failure, not an agent turn.
			return nil, fmt.Errorf("agent exited without a result record: %s", result.ErrorMessage)
		}
		return result, nil
	}
	if !result.Success {
		result.ErrorMessage = strings.TrimSpace(stderrTail.String())
	}
	return result, nil
}
