// Package tui is the terminal front end of nt.
//
// Model is a bubbletea program over one engine session: a status bar, a send
// pane and a receive pane side by side (or stacked), an input line and a
// localized key-hint bar. Inbound messages are pulled from the session's
// bridge one at a time by a command, so the UI never blocks a handler.
//
// RunPlain is the line-oriented alternative for scripts and pipes.
package tui
