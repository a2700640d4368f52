// Package security decides what happens to a resolved command.
//
// A command starts in one of two states. Commands the resolver marked safe,
// for queries that did not ask for an explanation, auto-execute. Everything
// else waits for the explainer:
//
//   - a [DANGER] explanation leads to DangerConfirm, where Enter only copies
//     the command to the clipboard
//   - any other explanation, or an explainer failure, leads to Confirm, where
//     Enter executes
//
// Ctrl-C or Esc cancels from any waiting state. The built-in dangerous
// command list can only downgrade a resolver's safe verdict, never upgrade it.
package security
