// Package hook runs operator-supplied Tengo scripts around the publish step,
// e.g. to announce a refreshed mirror or gate syncing on an external check.
package hook

import (
	"os"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/glorpus-work/chanmirror/pkg/errors"
)

// Type identifies when a hook runs.
type Type string

// Supported hook types.
const (
	PrePublish  Type = "pre-publish"
	PostPublish Type = "post-publish"
)

// Context carries run information into hook scripts.
type Context struct {
	Root      string // mirror root the publishers receive
	Total     int    // records in the run
	Completed int    // freshly downloaded records
	Failed    int    // failed records
}

// Executor compiles and runs Tengo scripts per hook type.
type Executor struct {
	scripts map[Type]string
	mutex   sync.RWMutex
}

// NewExecutor creates an empty executor; hooks are optional, so an executor
// with no scripts is valid and every Execute call is a no-op.
func NewExecutor() *Executor {
	return &Executor{scripts: make(map[Type]string)}
}

// AddScript registers or replaces the script for a hook type.
func (e *Executor) AddScript(hookType Type, script string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scripts[hookType] = script
}

// AddScriptFile loads a script from disk and registers it.
func (e *Executor) AddScriptFile(hookType Type, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrHookLoad, "%s: %v", path, err)
	}
	e.AddScript(hookType, string(content))
	return nil
}

// HasScript checks if a script exists for the specified hook type.
func (e *Executor) HasScript(hookType Type) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, exists := e.scripts[hookType]
	return exists
}

// Execute runs the script registered for hookType with the given context.
// Returns nil when no script is registered.
func (e *Executor) Execute(hookType Type, ctx Context) error {
	e.mutex.RLock()
	script, exists := e.scripts[hookType]
	e.mutex.RUnlock()
	if !exists {
		return nil
	}

	instance := tengo.NewScript([]byte(script))
	instance.SetImports(stdlib.GetModuleMap("fmt", "os", "text", "times"))

	_ = instance.Add("root", ctx.Root)
	_ = instance.Add("total", ctx.Total)
	_ = instance.Add("completed", ctx.Completed)
	_ = instance.Add("failed", ctx.Failed)

	compiled, err := instance.Run()
	if err != nil {
		return errors.Wrapf(errors.ErrHookExecution, "%s: %v", hookType, err)
	}

	// A script signals failure by assigning to the err global.
	errVar := compiled.Get("err")
	if errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return errors.Wrap(errors.ErrHookScript, v.Error())
		case string:
			if v != "" {
				return errors.Wrap(errors.ErrHookScript, v)
			}
		}
	}
	return nil
}
