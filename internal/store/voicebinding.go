// Package store wraps the PostgreSQL lookup that binds a connecting agent
// to its configured TTS voice, mirroring the trace package's pgx/stdlib
// access pattern.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
)

// ErrNoBinding is returned when an agent has no configured voice; callers
// fall back to the free Edge-TTS synthesizer.
var ErrNoBinding = errors.New("store: no voice binding for agent")

// VoiceBinding is the resolved agent→voice row.
type VoiceBinding struct {
	AgentID      string
	AgentName    string
	SystemPrompt string
	LLMModel     string
	VoiceID      string
	VoiceName    string
	Engine       string
	VoiceCode    string
	SampleRate   int
}

// Store resolves agent→voice bindings from PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to a PostgreSQL database at connStr.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LookupVoice resolves the agent's bound voice via the agents/tts_voice
// join. Returns ErrNoBinding if the agent has no voice configured, so the
// caller can fall back to the free Edge-TTS provider.
func (s *Store) LookupVoice(ctx context.Context, agentID string) (*VoiceBinding, error) {
	var b VoiceBinding
	err := s.db.QueryRowContext(ctx, `
		SELECT agents.id, agents.name, agents.system_prompt, agents.llm_model,
		       tts_voice.id, tts_voice.name, tts_voice.engine, tts_voice.voice_code, tts_voice.sample_rate
		FROM agents
		JOIN tts_voice ON agents.tts_voice_id = tts_voice.id
		WHERE agents.id = $1
	`, agentID).Scan(
		&b.AgentID, &b.AgentName, &b.SystemPrompt, &b.LLMModel,
		&b.VoiceID, &b.VoiceName, &b.Engine, &b.VoiceCode, &b.SampleRate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoBinding
	}
	if err != nil {
		return nil, fmt.Errorf("lookup voice: %w", err)
	}
	return &b, nil
}
