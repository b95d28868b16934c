package progress

import (
	"fmt"
	"sync"
	"testing"

	"podsync-backend/internal/models"
)

func TestRegisterAndGet(t *testing.T) {
	table := NewTable()
	table.Register("42", "/mnt/player", 1000)

	entry, ok := table.Get("42", "/mnt/player")
	if !ok {
		t.Fatal("Expected entry to exist after Register")
	}
	if entry.Status.State() != models.StatePending {
		t.Errorf("Expected state pending, got %s", entry.Status.State())
	}
	if entry.TotalBytes != 1000 {
		t.Errorf("Expected total 1000, got %d", entry.TotalBytes)
	}
	if entry.ETASeconds != -1 {
		t.Errorf("Expected eta -1 before any update, got %d", entry.ETASeconds)
	}

	// Different target is a different entry
	if _, ok := table.Get("42", ""); ok {
		t.Error("Expected no entry for empty target")
	}
}

func TestUpdateBytesDerivesPercentage(t *testing.T) {
	table := NewTable()
	table.Register("ep", "", 0)
	table.MarkInProgress("ep", "")

	table.UpdateBytes("ep", "", 250, 1000, 500, 1)
	entry, _ := table.Get("ep", "")
	if entry.Percentage != 25 {
		t.Errorf("Expected 25%%, got %f", entry.Percentage)
	}
	if entry.SpeedBPS != 500 {
		t.Errorf("Expected speed 500, got %f", entry.SpeedBPS)
	}

	// Unknown total keeps percentage at zero
	table.Register("ep2", "", 0)
	table.UpdateBytes("ep2", "", 4096, 0, 100, -1)
	entry, _ = table.Get("ep2", "")
	if entry.Percentage != 0 {
		t.Errorf("Expected 0%% with unknown total, got %f", entry.Percentage)
	}

	// Percentage is capped even if counters overshoot
	table.UpdateBytes("ep", "", 2000, 1000, 500, 0)
	entry, _ = table.Get("ep", "")
	if entry.Percentage != 100 {
		t.Errorf("Expected percentage capped at 100, got %f", entry.Percentage)
	}
}

func TestMarkInProgressOnlyFromPending(t *testing.T) {
	table := NewTable()
	table.Register("ep", "", 10)
	table.MarkCompleted("ep", "")

	table.MarkInProgress("ep", "")
	entry, _ := table.Get("ep", "")
	if entry.Status.State() != models.StateCompleted {
		t.Errorf("Expected completed to stay completed, got %s", entry.Status.State())
	}
}

func TestCompletedSnapsToTotal(t *testing.T) {
	table := NewTable()
	table.Register("ep", "", 1000)
	table.MarkInProgress("ep", "")
	table.UpdateBytes("ep", "", 999, 1000, 100, 0)
	table.MarkCompleted("ep", "")

	entry, _ := table.Get("ep", "")
	if entry.TransferredBytes != 1000 {
		t.Errorf("Expected transferred to snap to total, got %d", entry.TransferredBytes)
	}
	if entry.Percentage != 100 {
		t.Errorf("Expected 100%%, got %f", entry.Percentage)
	}

	// With an unknown total the percentage stays 0 even at completion
	table.Register("ep2", "", 0)
	table.UpdateBytes("ep2", "", 512, 0, 100, -1)
	table.MarkCompleted("ep2", "")
	entry, _ = table.Get("ep2", "")
	if entry.Percentage != 0 {
		t.Errorf("Expected 0%% for unknown total, got %f", entry.Percentage)
	}
	if entry.Status.State() != models.StateCompleted {
		t.Errorf("Expected completed, got %s", entry.Status.State())
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	table := NewTable()
	table.Register("ep", "", 100)
	table.MarkFailed("ep", "", "connection reset")

	entry, _ := table.Get("ep", "")
	if entry.Status.State() != models.StateFailed {
		t.Fatalf("Expected failed, got %s", entry.Status.State())
	}
	if entry.Status.FailureReason() != "connection reset" {
		t.Errorf("Expected failure reason to be kept, got %q", entry.Status.FailureReason())
	}

	// No transition leaves a terminal state
	table.MarkCompleted("ep", "")
	table.MarkCancelled("ep", "")
	table.UpdateBytes("ep", "", 50, 100, 10, 0)

	entry, _ = table.Get("ep", "")
	if entry.Status.State() != models.StateFailed {
		t.Errorf("Expected failed to stay failed, got %s", entry.Status.State())
	}
	if entry.TransferredBytes != 0 {
		t.Errorf("Expected counters frozen after failure, got %d", entry.TransferredBytes)
	}
}

func TestRemove(t *testing.T) {
	table := NewTable()
	table.Register("ep", "", 10)
	table.Remove("ep", "")

	if _, ok := table.Get("ep", ""); ok {
		t.Error("Expected entry to be gone after Remove")
	}

	// Removing a missing entry is a no-op
	table.Remove("ghost", "")
}

func TestSnapshotStableOrder(t *testing.T) {
	table := NewTable()
	table.Register("b", "", 1)
	table.Register("a", "/mnt/y", 1)
	table.Register("a", "/mnt/x", 1)

	snap := table.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(snap))
	}
	if snap[0].SubjectID != "a" || snap[0].TargetID != "/mnt/x" {
		t.Errorf("Expected (a,/mnt/x) first, got (%s,%s)", snap[0].SubjectID, snap[0].TargetID)
	}
	if snap[2].SubjectID != "b" {
		t.Errorf("Expected b last, got %s", snap[2].SubjectID)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		subject := fmt.Sprintf("ep-%d", i)
		table.Register(subject, "", 1000)
		table.MarkInProgress(subject, "")

		wg.Add(2)
		go func(subject string) {
			defer wg.Done()
			for n := uint64(1); n <= 1000; n += 100 {
				table.UpdateBytes(subject, "", n, 1000, float64(n), -1)
			}
			table.MarkCompleted(subject, "")
		}(subject)
		go func(subject string) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				table.Get(subject, "")
				table.Snapshot()
			}
		}(subject)
	}

	wg.Wait()

	for i := 0; i < 8; i++ {
		entry, ok := table.Get(fmt.Sprintf("ep-%d", i), "")
		if !ok {
			t.Fatalf("Expected entry ep-%d to exist", i)
		}
		if entry.Status.State() != models.StateCompleted {
			t.Errorf("Expected ep-%d completed, got %s", i, entry.Status.State())
		}
	}
}
