// Package logging bootstraps the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

// Init installs a JSON slog handler at the given level as the process
// default logger, matching the teacher's stdout JSON logging convention.
func Init(level slog.Level) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// ForSession returns a logger scoped to one connection, so every log line
// during a call is attributable to its session without repeating the
// attribute at every call site.
func ForSession(sessionID, agentID string) *slog.Logger {
	return slog.Default().With("session_id", sessionID, "agent_id", agentID)
}
