package main

import (
	"sync"

	"github.com/spf13/cobra"
)

// commandExecutionContext describes the command being run, for error output
// emitted after cobra has returned.
type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
}

var (
	execCtxMu sync.Mutex
	execCtx   commandExecutionContext
)

// Interactive commands print plain output; long-running and operational ones log JSON.
var plainOutputCommands = map[string]bool{
	"bootstrap-admin": true,
}

func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	return !plainOutputCommands[cmd.Name()]
}

func setCommandExecutionContext(ctx commandExecutionContext) {
	execCtxMu.Lock()
	defer execCtxMu.Unlock()
	execCtx = ctx
}

func currentCommandExecutionContext() commandExecutionContext {
	execCtxMu.Lock()
	defer execCtxMu.Unlock()
	return execCtx
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(commandExecutionContext{})
}
