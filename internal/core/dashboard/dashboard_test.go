package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	docCalls  atomic.Int32
	chatCalls atomic.Int32
	docErr    error
}

func (f *fakeStats) DocumentStats(ctx context.Context) (*models.DocumentStats, error) {
	f.docCalls.Add(1)
	if f.docErr != nil {
		return nil, f.docErr
	}
	return &models.DocumentStats{TotalDocuments: 8, ProcessedDocuments: 6, TotalChunks: 120, TotalSize: 4096}, nil
}

func (f *fakeStats) ChatStats(ctx context.Context) (*models.ChatStats, error) {
	f.chatCalls.Add(1)
	return &models.ChatStats{TotalConversations: 4, TotalMessages: 18}, nil
}

func TestSummary_FetchesAndCaches(t *testing.T) {
	fake := &fakeStats{}
	svc := New(fake, time.Minute)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, s.Documents.TotalDocuments)
	assert.Equal(t, 4, s.Chat.TotalConversations)
	assert.InDelta(t, 75.0, s.IndexedPercent(), 0.001)
	assert.InDelta(t, 4.5, s.MessagesPerConversation(), 0.001)

	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.docCalls.Load(), "second call served from cache")

	svc.Invalidate()
	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.docCalls.Load())
	assert.Equal(t, int32(2), fake.chatCalls.Load())
}

func TestSummary_ErrorNotCached(t *testing.T) {
	fake := &fakeStats{docErr: errors.New("down")}
	svc := New(fake, time.Minute)

	_, err := svc.Summary(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document stats")

	fake.docErr = nil
	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, s.Documents.TotalDocuments)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(3, 0))
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.Equal(t, 100.0, Percent(5, 4))

	assert.Equal(t, "0%", FormatPercent(0))
	assert.Equal(t, "100%", FormatPercent(100))
	assert.Equal(t, "66.7%", FormatPercent(Percent(2, 3)))
}

func TestSummary_ZeroTTLDisablesCache(t *testing.T) {
	fake := &fakeStats{}
	svc := New(fake, 0)
	for i := 0; i < 3; i++ {
		_, err := svc.Summary(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), fake.docCalls.Load())
}

type blockingStats struct {
	fakeStats
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStats) DocumentStats(ctx context.Context) (*models.DocumentStats, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.fakeStats.DocumentStats(ctx)
}

func TestSummary_InvalidateDuringFetchSkipsCache(t *testing.T) {
	fake := &blockingStats{entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := New(fake, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Summary(context.Background())
		done <- err
	}()
	<-fake.entered
	svc.Invalidate()
	close(fake.release)
	require.NoError(t, <-done)

	fake.entered = make(chan struct{}, 1)
	_, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.docCalls.Load(), "result fetched before Invalidate must not be served")
}
