// Package dashboard aggregates the statistics shown on the landing view.
package dashboard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const summaryKey = "summary"

// API is what the dashboard reads.
type API interface {
	DocumentStats(ctx context.Context) (*models.DocumentStats, error)
	ChatStats(ctx context.Context) (*models.ChatStats, error)
}

// Summary combines document and chat statistics
type Summary struct {
	Documents models.DocumentStats
	Chat      models.ChatStats
	FetchedAt time.Time
}

// IndexedPercent is the share of documents the server has finished processing.
func (s Summary) IndexedPercent() float64 {
	return Percent(s.Documents.ProcessedDocuments, s.Documents.TotalDocuments)
}

// MessagesPerConversation is the average conversation length
func (s Summary) MessagesPerConversation() float64 {
	if s.Chat.TotalConversations == 0 {
		return 0
	}
	return float64(s.Chat.TotalMessages) / float64(s.Chat.TotalConversations)
}

// Percent returns part/total*100, or 0 for an empty total.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(part) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}

// FormatPercent renders a percentage the way the dashboard shows it
func FormatPercent(p float64) string {
	if p == 0 || p == 100 {
		return fmt.Sprintf("%.0f%%", p)
	}
	return fmt.Sprintf("%.1f%%", p)
}

// Service fetches and caches the summary.
type Service struct {
	api   API
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
	// version changes on Invalidate so a fetch that started earlier is not cached
	version atomic.Uint64
}

// New creates a service that keeps a summary for ttl. A zero ttl disables caching.
func New(api API, ttl time.Duration) *Service {
	cleanup := ttl * 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Service{
		api:   api,
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Summary returns the cached summary or fetches both stats concurrently.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	if v, ok := s.cache.Get(summaryKey); ok {
		cached := v.(Summary)
		return &cached, nil
	}

	version := s.version.Load()
	var docs *models.DocumentStats
	var chat *models.ChatStats

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		docs, err = s.api.DocumentStats(egCtx)
		if err != nil {
			return fmt.Errorf("document stats: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		chat, err = s.api.ChatStats(egCtx)
		if err != nil {
			return fmt.Errorf("chat stats: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	summary := Summary{Documents: *docs, Chat: *chat, FetchedAt: s.now()}
	// go-cache treats a zero expiration as "never", so skip it entirely
	if s.ttl > 0 && s.version.Load() == version {
		s.cache.Set(summaryKey, summary, s.ttl)
	}
	return &summary, nil
}

// Invalidate drops the cached summary. Call after uploads, deletes and
// whenever the signed-in user changes.
func (s *Service) Invalidate() {
	s.version.Add(1)
	s.cache.Delete(summaryKey)
}
