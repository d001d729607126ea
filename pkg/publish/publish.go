// Package publish hands a completed mirror root to the external tools that
// consume it: a channel indexer, a remote-sync utility, or anything else an
// operator configures. The core never reimplements indexing or transfer; it
// only invokes.
package publish

import (
	"context"
	"os/exec"
	"strings"
	"sync"

	"github.com/glorpus-work/chanmirror/internal/logger"
	"github.com/glorpus-work/chanmirror/pkg/errors"
)

// Publisher receives the mirror root after a successful run.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, root string) error
}

// ExecPublisher runs a configured external command with the mirror root
// appended as the final argument. The root is passed exactly as given;
// trailing path separators matter to some sync tools and are the operator's
// call to make in the configuration.
type ExecPublisher struct {
	name    string
	command string
	args    []string
}

// NewExecPublisher creates a publisher that shells out to command.
func NewExecPublisher(name, command string, args ...string) *ExecPublisher {
	return &ExecPublisher{name: name, command: command, args: args}
}

// Name returns the configured publisher name.
func (p *ExecPublisher) Name() string { return p.name }

// Publish runs the external command against root.
func (p *ExecPublisher) Publish(ctx context.Context, root string) error {
	args := make([]string, 0, len(p.args)+1)
	args = append(args, p.args...)
	args = append(args, root)

	logger.Info("running publisher", logger.Fields{"publisher": p.name, "command": p.command})
	cmd := exec.CommandContext(ctx, p.command, args...)
	out, err := cmd.CombinedOutput()
	if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
		logger.Debug("publisher output", logger.Fields{"publisher": p.name, "output": trimmed})
	}
	if err != nil {
		return errors.Wrapf(errors.ErrPublisherFailed, "%s (%s): %v", p.name, p.command, err)
	}
	return nil
}

// Recorder is a Publisher test double that records Publish calls.
type Recorder struct {
	name string
	mu   sync.Mutex
	// Roots collects the root passed to each Publish call, in order.
	Roots []string
	// Err, if set, is returned from every Publish call.
	Err error
}

// NewRecorder creates a recording publisher.
func NewRecorder(name string) *Recorder {
	return &Recorder{name: name}
}

// Name returns the recorder's name.
func (r *Recorder) Name() string { return r.name }

// Publish records the call.
func (r *Recorder) Publish(_ context.Context, root string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Roots = append(r.Roots, root)
	return r.Err
}

// All runs each publisher in order and stops at the first failure. Publishers
// ordinarily depend on each other (index before sync), so continuing past a
// failed one would publish an inconsistent mirror.
func All(ctx context.Context, publishers []Publisher, root string) error {
	for _, p := range publishers {
		if err := p.Publish(ctx, root); err != nil {
			return err
		}
		logger.Success("publisher finished", logger.Fields{"publisher": p.Name()})
	}
	return nil
}
