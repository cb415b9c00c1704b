package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-backend/pkg/models"
)

func result(ticID string) *models.AnalysisResult {
	return &models.AnalysisResult{
		Id:     uuid.New(),
		Target: models.AnalysisTarget{TicID: ticID},
		Status: models.StatusCompleted,
	}
}

func TestRecentNewestFirst(t *testing.T) {
	recent := NewRecent(10)

	first := result("1")
	second := result("2")
	recent.Add(first)
	recent.Add(second)

	entries := recent.List()
	require.Len(t, entries, 2)
	assert.Equal(t, second.Id, entries[0].Id)
	assert.Equal(t, first.Id, entries[1].Id)
}

func TestRecentEvictsOldest(t *testing.T) {
	recent := NewRecent(3)

	for i := 0; i < 5; i++ {
		recent.Add(result(fmt.Sprintf("%d", i)))
	}

	entries := recent.List()
	require.Len(t, entries, 3)
	assert.Equal(t, "4", entries[0].Target.TicID)
	assert.Equal(t, "2", entries[2].Target.TicID)
}

func TestRecentGet(t *testing.T) {
	recent := NewRecent(10)

	stored := result("1")
	recent.Add(stored)

	found, ok := recent.Get(stored.Id)
	require.True(t, ok)
	assert.Equal(t, stored, found)

	_, ok = recent.Get(uuid.New())
	assert.False(t, ok)
}

func TestRecentEmpty(t *testing.T) {
	recent := NewRecent(10)

	assert.Empty(t, recent.List())

	_, ok := recent.Get(uuid.New())
	assert.False(t, ok)
}

func TestRecentConcurrentAccess(t *testing.T) {
	recent := NewRecent(50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recent.Add(result(fmt.Sprintf("%d", i)))
			recent.List()
		}(i)
	}
	wg.Wait()

	assert.Len(t, recent.List(), 20)
}
