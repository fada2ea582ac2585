package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Jitera-Sales/wire-sync/internal/backend"
	"github.com/Jitera-Sales/wire-sync/internal/repositories"
)

// RepositorySet bundles the repositories of one sync run. A set is built per
// run because the federation flag is fixed at repository construction.
type RepositorySet struct {
	Connections   repositories.ConnectionsRepository
	Conversations repositories.ConversationsRepository
	Teams         repositories.TeamsRepository
}

// RepositoryFactory builds the repositories for the given federation mode.
type RepositoryFactory func(federated bool) RepositorySet

// RunStats summarizes one sync run.
type RunStats struct {
	SlowSync      bool                    `json:"slow_sync"`
	Connections   repositories.PullResult `json:"connections"`
	Conversations repositories.PullResult `json:"conversations"`
	Teams         repositories.PullResult `json:"teams"`
	EventsApplied int                     `json:"events_applied"`
	EventsSkipped int                     `json:"events_skipped"`
	Cursor        string                  `json:"cursor,omitempty"`
	FinishedAt    time.Time               `json:"finished_at"`
}

// Coordinator drives a full sync run: establish the baseline, pull state in
// bulk, then drain the event stream in order.
type Coordinator struct {
	backendInfo  repositories.BackendInfoRepository
	cursor       repositories.CursorRepository
	events       backend.UpdateEventsAPI
	newRepos     RepositoryFactory
	selfClientID string
	logger       *slog.Logger

	mu        sync.Mutex
	lastStats *RunStats
}

func NewCoordinator(
	backendInfo repositories.BackendInfoRepository,
	cursor repositories.CursorRepository,
	events backend.UpdateEventsAPI,
	newRepos RepositoryFactory,
	selfClientID string,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		backendInfo:  backendInfo,
		cursor:       cursor,
		events:       events,
		newRepos:     newRepos,
		selfClientID: selfClientID,
		logger:       logger,
	}
}

// LastStats returns the stats of the most recent completed run, or nil before
// the first one.
func (c *Coordinator) LastStats() *RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStats
}

// Run performs one sync run. Without a persisted cursor it slow-syncs: mark
// the newest event as baseline, bulk-pull every state family, then drain from
// the baseline. With a cursor it only drains. Interrupting a run is safe at
// any point; the next run resumes from the last committed cursor.
func (c *Coordinator) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	info, err := c.backendInfo.GetBackendInfo(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to resolve backend info: %w", err)
	}
	repos := c.newRepos(info.FederationEnabled)

	since, err := c.cursor.LastEventCursor(ctx)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		stats.SlowSync = true
	case err != nil:
		return stats, fmt.Errorf("failed to read event cursor: %w", err)
	}

	if stats.SlowSync {
		since, err = c.slowSync(ctx, repos, &stats)
		if err != nil {
			return stats, err
		}
	}

	if err := c.drainEvents(ctx, repos, since, &stats); err != nil {
		return stats, err
	}

	stats.FinishedAt = time.Now()
	c.mu.Lock()
	c.lastStats = &stats
	c.mu.Unlock()

	c.logger.Info("sync run complete",
		"slow_sync", stats.SlowSync,
		"events_applied", stats.EventsApplied,
		"events_skipped", stats.EventsSkipped,
		"cursor", stats.Cursor)
	return stats, nil
}

// slowSync establishes the event baseline, then pulls the three state
// families concurrently. The baseline cursor is committed only after every
// pull succeeds: the pulled snapshots cover everything the skipped events
// would have said.
func (c *Coordinator) slowSync(ctx context.Context, repos RepositorySet, stats *RunStats) (string, error) {
	c.logger.Info("starting slow sync")

	baseline := ""
	last, err := c.events.GetLastEventEnvelope(ctx, c.selfClientID)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		// Empty event log: drain from the beginning.
	case err != nil:
		return "", fmt.Errorf("failed to fetch baseline event: %w", err)
	default:
		baseline = last.Cursor
	}

	g, gctx := errgroup.WithContext(ctx)
	var connections, conversations, teams repositories.PullResult
	g.Go(func() error {
		var err error
		connections, err = repos.Connections.PullConnections(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		conversations, err = repos.Conversations.PullConversations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		teams, err = repos.Teams.PullTeams(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("slow sync pull failed: %w", err)
	}
	stats.Connections = connections
	stats.Conversations = conversations
	stats.Teams = teams

	if baseline != "" {
		if err := c.cursor.StoreEventCursor(ctx, baseline); err != nil {
			return "", fmt.Errorf("failed to store baseline cursor: %w", err)
		}
		stats.Cursor = baseline
	}
	return baseline, nil
}

// drainEvents applies the stream strictly in order. The cursor is committed
// once all envelopes sharing it have been applied, never earlier, so a crash
// replays at most the events of one cursor.
func (c *Coordinator) drainEvents(ctx context.Context, repos RepositorySet, since string, stats *RunStats) error {
	processor := NewEventProcessor(repos.Connections, repos.Conversations, repos.Teams, c.logger)

	commit := func(cursor string) error {
		if err := c.cursor.StoreEventCursor(ctx, cursor); err != nil {
			return fmt.Errorf("failed to store event cursor: %w", err)
		}
		stats.Cursor = cursor
		return nil
	}

	applied := "" // cursor whose envelopes are applied but not yet committed
	pager := c.events.GetEventsSince(c.selfClientID, since)
	for pager.More() {
		envelopes, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch event page: %w", err)
		}

		for _, envelope := range envelopes {
			if applied != "" && envelope.Cursor != applied {
				if err := commit(applied); err != nil {
					return err
				}
			}

			ok, err := processor.Process(ctx, envelope)
			if err != nil {
				return fmt.Errorf("failed to process event at cursor %s: %w", envelope.Cursor, err)
			}
			if ok {
				stats.EventsApplied++
			} else {
				stats.EventsSkipped++
			}
			applied = envelope.Cursor
		}
	}

	if applied != "" {
		return commit(applied)
	}
	return nil
}
