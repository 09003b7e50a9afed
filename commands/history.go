package commands

import (
	"context"
	"fmt"

	"github.com/mobile-next/edgenav/gesture"
	"github.com/mobile-next/edgenav/journal"
)

// HistoryRequest filters the resolution journal.
type HistoryRequest struct {
	DeviceID string `json:"deviceId,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// HistoryResponse lists journal entries, newest first.
type HistoryResponse struct {
	Entries []journal.Entry         `json:"entries"`
	Counts  map[gesture.Outcome]int `json:"counts"`
}

var validOutcomes = map[gesture.Outcome]bool{
	gesture.OutcomeBack:    true,
	gesture.OutcomeHome:    true,
	gesture.OutcomeRecents: true,
	gesture.OutcomeLastApp: true,
}

// HistoryCommand reads the journal of the running engine, or opens the
// configured journal file when nothing is running.
func HistoryCommand(ctx context.Context, req HistoryRequest) *CommandResponse {
	outcome := gesture.Outcome(req.Outcome)
	if outcome != "" && !validOutcomes[outcome] {
		return NewErrorResponse(fmt.Errorf("unknown outcome '%s', must be one of back, home, recents, last_app", req.Outcome))
	}

	var store *journal.Store
	if e := GetEngine(); e != nil && e.Journal() != nil {
		store = e.Journal()
	} else {
		cfg := GetConfig()
		if !cfg.Journal.Enabled {
			return NewErrorResponse(fmt.Errorf("journal is disabled in configuration"))
		}
		opened, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return NewErrorResponse(err)
		}
		defer func() { _ = opened.Close() }()
		store = opened
	}

	entries, err := store.Recent(ctx, journal.Query{
		DeviceID: req.DeviceID,
		Outcome:  outcome,
		Limit:    req.Limit,
	})
	if err != nil {
		return NewErrorResponse(err)
	}

	counts, err := store.Counts(ctx, req.DeviceID)
	if err != nil {
		return NewErrorResponse(err)
	}

	if entries == nil {
		entries = []journal.Entry{}
	}
	return NewSuccessResponse(HistoryResponse{Entries: entries, Counts: counts})
}
