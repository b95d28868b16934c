package progress

import (
	"sort"
	"sync"
	"time"

	"podsync-backend/internal/models"
)

// Key identifies one table entry: the subject being moved plus its
// destination. Downloads use an empty target.
type Key struct {
	SubjectID string
	TargetID  string
}

// Table is the shared progress map for every in-flight and finished
// operation. Each engine owns the entries it creates; nothing is evicted
// automatically. The lock is held only to read or mutate entries, never
// across network or disk I/O, so pollers stay responsive regardless of
// transfer speed.
type Table struct {
	mu      sync.RWMutex
	entries map[Key]*models.TransferProgress
}

// NewTable creates an empty progress table. Engines share one instance per
// process; tests create their own so cases stay isolated.
func NewTable() *Table {
	return &Table{entries: make(map[Key]*models.TransferProgress)}
}

// Register creates a pending entry, replacing any previous entry for the
// same key (a replaced entry belongs to a finished earlier attempt).
// totalBytes may be 0 when the size is not yet known.
func (t *Table) Register(subjectID, targetID string, totalBytes uint64) {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[Key{subjectID, targetID}] = &models.TransferProgress{
		SubjectID:  subjectID,
		TargetID:   targetID,
		TotalBytes: totalBytes,
		ETASeconds: -1,
		Status:     models.StatusPending(),
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkInProgress moves a pending entry to in-progress. Any other state is
// left untouched so transitions stay monotonic.
func (t *Table) MarkInProgress(subjectID, targetID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[Key{subjectID, targetID}]
	if !ok || entry.Status.State() != models.StatePending {
		return
	}
	entry.Status = models.StatusInProgress()
	entry.UpdatedAt = time.Now()
}

// UpdateBytes records counters after a chunk. Percentage is derived here so
// it is always consistent with the counters: 0 while the total is unknown,
// capped at 100 otherwise. etaSeconds is -1 when not computable. Updates
// against a terminal entry are dropped.
func (t *Table) UpdateBytes(subjectID, targetID string, transferred, total uint64, speedBPS float64, etaSeconds int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[Key{subjectID, targetID}]
	if !ok || entry.Status.IsTerminal() {
		return
	}
	entry.TransferredBytes = transferred
	entry.TotalBytes = total
	entry.Percentage = percentage(transferred, total)
	entry.SpeedBPS = speedBPS
	entry.ETASeconds = etaSeconds
	entry.UpdatedAt = time.Now()
}

// MarkCompleted finalizes an entry. With a known total the counters snap to
// 100%; with an unknown total the percentage stays 0.
func (t *Table) MarkCompleted(subjectID, targetID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[Key{subjectID, targetID}]
	if !ok || entry.Status.IsTerminal() {
		return
	}
	if entry.TotalBytes > 0 {
		entry.TransferredBytes = entry.TotalBytes
		entry.Percentage = 100
	}
	entry.ETASeconds = -1
	entry.Status = models.StatusCompleted()
	entry.UpdatedAt = time.Now()
}

// MarkFailed records a terminal failure with a human-readable reason.
// Engines call this before returning their error so a concurrent poller
// observes the failure even if it never sees the return value.
func (t *Table) MarkFailed(subjectID, targetID, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[Key{subjectID, targetID}]
	if !ok || entry.Status.IsTerminal() {
		return
	}
	entry.ETASeconds = -1
	entry.Status = models.StatusFailed(reason)
	entry.UpdatedAt = time.Now()
}

// MarkCancelled records a terminal cancellation.
func (t *Table) MarkCancelled(subjectID, targetID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[Key{subjectID, targetID}]
	if !ok || entry.Status.IsTerminal() {
		return
	}
	entry.ETASeconds = -1
	entry.Status = models.StatusCancelled()
	entry.UpdatedAt = time.Now()
}

// Get returns a copy of one entry, so callers never alias live state.
func (t *Table) Get(subjectID, targetID string) (models.TransferProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.entries[Key{subjectID, targetID}]
	if !ok {
		return models.TransferProgress{}, false
	}
	return *entry, true
}

// Remove drops an entry. Callers use this when a subject's local file is
// deleted and the old record would otherwise linger forever.
func (t *Table) Remove(subjectID, targetID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, Key{subjectID, targetID})
}

// Snapshot returns copies of all entries in a stable order.
func (t *Table) Snapshot() []models.TransferProgress {
	t.mu.RLock()
	out := make([]models.TransferProgress, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, *entry)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SubjectID != out[j].SubjectID {
			return out[i].SubjectID < out[j].SubjectID
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out
}

func percentage(transferred, total uint64) float64 {
	if total == 0 {
		return 0
	}
	pct := float64(transferred) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
