package warmup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeModelAPI struct {
	mu          sync.Mutex
	checks      int
	preloads    int
	loadedAfter int
	statusErr   error
}

func (f *fakeModelAPI) ModelStatus(ctx context.Context) (*models.ModelStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &models.ModelStatus{
		Loaded:    f.preloads > 0 && f.checks > f.loadedAfter,
		Loading:   f.preloads > 0,
		ModelName: "tiny",
	}, nil
}

func (f *fakeModelAPI) PreloadModel(ctx context.Context) (*models.ModelStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preloads++
	return &models.ModelStatus{Loading: true}, nil
}

func TestStart_PreloadsOnceAndStopsWhenLoaded(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &fakeModelAPI{loadedAfter: 3}
	var mu sync.Mutex
	var seen []bool
	task := Start(context.Background(), fake, time.Millisecond, func(s *models.ModelStatus, err error) {
		mu.Lock()
		defer mu.Unlock()
		if s != nil {
			seen = append(seen, s.Loaded)
		}
	}, nil)

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		task.Stop()
		t.Fatal("warmup never finished")
	}

	assert.True(t, task.Completed())
	assert.Equal(t, 1, fake.preloads)
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.True(t, seen[len(seen)-1])
}

func TestWait_TimesOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &fakeModelAPI{statusErr: errors.New("offline")}
	loaded, err := Wait(context.Background(), fake, time.Millisecond, 20*time.Millisecond, nil, nil)
	assert.False(t, loaded)
	assert.Error(t, err)
	assert.Zero(t, fake.preloads)
}

func TestWait_AlreadyLoaded(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := &fakeModelAPI{preloads: 1}
	loaded, err := Wait(context.Background(), fake, time.Hour, time.Second, nil, nil)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, 1, fake.preloads, "no preload when already loaded")
}
