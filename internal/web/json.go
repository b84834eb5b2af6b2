package web

import (
	"time"

	"github.com/sweeney/microwave/internal/history"
)

// errorJSON is the body of every non-2xx API response.
type errorJSON struct {
	Error string `json:"error"`
}

// HistoryJSON is the JSON representation of recorded sessions.
type HistoryJSON struct {
	Sessions []SessionJSON `json:"sessions"`
}

// SessionJSON is one recorded session.
type SessionJSON struct {
	ID             string `json:"id"`
	Power          int    `json:"power"`
	DurationS      int    `json:"duration_s"`
	RemainingS     int    `json:"remaining_s"`
	ElapsedSeconds int64  `json:"elapsed_s"`
	Outcome        string `json:"outcome"`
	StartedAt      string `json:"started_at"`
	EndedAt        string `json:"ended_at"`
}

// FormatHistory converts store entries to their JSON form.
func FormatHistory(entries []history.Entry) HistoryJSON {
	out := HistoryJSON{Sessions: make([]SessionJSON, 0, len(entries))}
	for _, e := range entries {
		out.Sessions = append(out.Sessions, SessionJSON{
			ID:             e.ID,
			Power:          e.Power,
			DurationS:      e.Duration,
			RemainingS:     e.Remaining,
			ElapsedSeconds: int64(e.Elapsed().Seconds()),
			Outcome:        string(e.Outcome),
			StartedAt:      e.StartedAt.UTC().Format(time.RFC3339),
			EndedAt:        e.EndedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
