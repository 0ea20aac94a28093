// Package logging assembles structured slog loggers and formatting helpers used
// across ariacut.
//
// It owns the console and JSON handlers, output routing, per-edition log
// files and retention, and context-aware helpers so stage code automatically
// tags log lines with edition IDs, stage names and correlation IDs. NewNop
// gives tests and pure engine code a logger that cannot fail.
package logging
