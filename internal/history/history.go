package history

import (
	"sync"

	"github.com/google/uuid"

	"transit-backend/pkg/models"
)

// Recent is a bounded in-memory list of completed analyses, newest first.
// Entries are full snapshots; results are immutable after construction so no
// copying is needed on read. This is the only history the service keeps.
type Recent struct {
	lock    sync.Mutex
	entries []*models.AnalysisResult
	maxSize int
}

func NewRecent(maxSize int) *Recent {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Recent{entries: make([]*models.AnalysisResult, 0, maxSize), maxSize: maxSize}
}

func (r *Recent) Add(result *models.AnalysisResult) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.entries = append([]*models.AnalysisResult{result}, r.entries...)
	if len(r.entries) > r.maxSize {
		r.entries = r.entries[:r.maxSize]
	}
}

func (r *Recent) List() []*models.AnalysisResult {
	r.lock.Lock()
	defer r.lock.Unlock()

	out := make([]*models.AnalysisResult, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Recent) Get(id uuid.UUID) (*models.AnalysisResult, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, entry := range r.entries {
		if entry.Id == id {
			return entry, true
		}
	}
	return nil, false
}
