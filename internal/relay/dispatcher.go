package relay

import (
	"bufio"
	"errors"
	"io"
	"os/exec"
	"strconv"

	configpkg "github.com/tacmesh/meshrelay/internal/relay/config"
	idspkg "github.com/tacmesh/meshrelay/internal/relay/ids"
	loggingpkg "github.com/tacmesh/meshrelay/internal/relay/logging"
)

// Dispatcher delivers canonical event text to the mesh transport.
// Implementations are best-effort: every failure is logged internally
// and never surfaces to the caller.
type Dispatcher interface {
	Dispatch(text string)
}

// CommandFactory builds the sender invocation. Swappable for tests.
var CommandFactory = exec.Command

// ProcessDispatcher launches the configured sender executable once per
// dispatch, writes the canonical text to its stdin, drains its combined
// stdout/stderr line by line, and waits for it to exit. The whole
// sequence is untimed: a hung sender blocks the dispatching goroutine
// until the process ends.
type ProcessDispatcher struct {
	conf   *configpkg.Config
	logger loggingpkg.ServiceLogger
}

// NewProcessDispatcher constructs a dispatcher for the given config.
func NewProcessDispatcher(conf *configpkg.Config, logger loggingpkg.ServiceLogger) *ProcessDispatcher {
	return &ProcessDispatcher{conf: conf, logger: logger}
}

// Dispatch runs one sender invocation. Launch and pipe failures are
// logged at error level; a non-zero exit is a degraded delivery and is
// logged as a warning only.
func (d *ProcessDispatcher) Dispatch(text string) {
	dispatchID := idspkg.New()
	log := d.logger.With(loggingpkg.LogFields{"dispatch_id": dispatchID})

	cmd := CommandFactory(d.conf.SenderPath, d.args()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Error("failed to open sender stdin", err, nil)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Error("failed to open sender stdout", err, nil)
		return
	}
	// Merge diagnostics into one stream, matching the sender's contract.
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		log.Error("failed to launch mesh sender", err, loggingpkg.LogFields{
			"sender": d.conf.SenderPath,
		})
		return
	}

	if _, err := io.WriteString(stdin, text); err != nil {
		log.Error("failed to write event to sender stdin", err, nil)
	}
	if err := stdin.Close(); err != nil {
		log.Error("failed to close sender stdin", err, nil)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		log.Debug("mesh sender output", loggingpkg.LogFields{"line": scanner.Text()})
	}
	if err := scanner.Err(); err != nil {
		log.Error("failed to read sender output", err, nil)
	}

	err = cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		log.Warn("mesh sender exited with non-zero status", loggingpkg.LogFields{
			"exit_code": exitErr.ExitCode(),
		})
	default:
		log.Error("failed waiting for mesh sender", err, nil)
	}
}

// args builds the sender's command line from the mesh settings. TCP
// substitutes --host for --port; the channel index is always passed.
func (d *ProcessDispatcher) args() []string {
	args := []string{"--interface", d.conf.Interface}
	if d.conf.Interface == configpkg.InterfaceTCP {
		args = append(args, "--host", d.conf.Host)
	} else {
		args = append(args, "--port", d.conf.Port)
	}
	return append(args, "--channel", strconv.Itoa(d.conf.Channel))
}
