package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"tubewatch/types"
)

// ErrRefreshRunning is returned when a refresh is requested while one is in progress
var ErrRefreshRunning = errors.New("refresh already running")

// Refresher periodically lists every followed channel and announces new uploads
type Refresher struct {
	catalog  Catalog
	lister   ChannelLister
	hub      Broadcaster
	limiter  *rate.Limiter
	interval time.Duration
	logger   *log.Logger
	running  atomic.Bool
}

// RefresherConfig wires a Refresher
type RefresherConfig struct {
	Catalog   Catalog
	Lister    ChannelLister
	Hub       Broadcaster
	Interval  time.Duration
	PerMinute int
	Logger    *log.Logger
}

// NewRefresher creates a channel refresher
func NewRefresher(cfg RefresherConfig) *Refresher {
	perMinute := cfg.PerMinute
	if perMinute < 1 {
		perMinute = 30
	}
	return &Refresher{
		catalog:  cfg.Catalog,
		lister:   cfg.Lister,
		hub:      cfg.Hub,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Run refreshes every interval until ctx is cancelled. A zero interval disables it.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshAll(ctx); err != nil && !errors.Is(err, ErrRefreshRunning) && ctx.Err() == nil {
				r.logger.Error("scheduled refresh failed", "err", err)
			}
		}
	}
}

// Refreshing reports whether a full refresh is in progress
func (r *Refresher) Refreshing() bool {
	return r.running.Load()
}

// RefreshAll refreshes every followed channel. Per-channel failures are
// reported on the push channel and do not stop the others.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRefreshRunning
	}
	defer r.running.Store(false)

	channels, err := r.catalog.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	r.logger.Info("refreshing channels", "count", len(channels))
	for _, ch := range channels {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := r.RefreshChannel(ctx, ch.Name); err != nil {
			r.logger.Warn("channel refresh failed", "channel", ch.Name, "err", err)
		}
	}
	return nil
}

// RefreshChannel lists one channel, stores its videos and broadcasts those new to the catalog
func (r *Refresher) RefreshChannel(ctx context.Context, name string) ([]types.Video, error) {
	videos, err := r.lister.ChannelVideos(ctx, name)
	if err != nil {
		r.hub.Broadcast(types.LogLineEvent(fmt.Sprintf("Error updating %s: %s", name, err)))
		return nil, err
	}

	added, err := r.catalog.UpsertVideos(ctx, videos)
	if err != nil {
		r.hub.Broadcast(types.LogLineEvent(fmt.Sprintf("Error updating %s: %s", name, err)))
		return nil, err
	}

	if len(added) > 0 {
		r.hub.Broadcast(types.NewVideosEvent(name, added))
		r.hub.Broadcast(types.LogLineEvent(fmt.Sprintf("Found %d new videos for channel %s", len(added), name)))
	} else {
		r.hub.Broadcast(types.LogLineEvent("No new videos for channel " + name))
	}
	return added, nil
}
