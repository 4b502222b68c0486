package repositories

import (
	"errors"
	"testing"

	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/shared"
	tu "github.com/desertthunder/wkmcp/internal/testing"
)

func TestSyncLogRepository(t *testing.T) {
	t.Run("CreateStartsInProgress", func(t *testing.T) {
		db := tu.OpenDatabase(t)
		user := seedUser(t, NewUserRepository(db), "wk-1", "crabigator")
		repo := NewSyncLogRepository(db)

		entry := &models.SyncLog{UserID: user.ID, SyncType: models.SyncManual}
		if err := repo.Create(entry); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		if entry.ID == 0 {
			t.Fatal("create should fill in the generated id")
		}
		if entry.Status != models.SyncInProgress {
			t.Errorf("new log should be in_progress, got %v", entry.Status)
		}
		if entry.StartedAt.IsZero() {
			t.Error("create should stamp started_at")
		}
	})

	t.Run("CompleteSuccess", func(t *testing.T) {
		db := tu.OpenDatabase(t)
		user := seedUser(t, NewUserRepository(db), "wk-1", "crabigator")
		repo := NewSyncLogRepository(db)

		entry := &models.SyncLog{UserID: user.ID, SyncType: models.SyncFull}
		if err := repo.Create(entry); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		if err := repo.Complete(entry.ID, models.SyncSuccess, 42, nil); err != nil {
			t.Fatalf("complete failed: %v", err)
		}

		got, err := repo.Get(entry.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Status != models.SyncSuccess || got.RecordsUpdated != 42 {
			t.Errorf("unexpected finalized log: %+v", got)
		}
		if got.CompletedAt == nil {
			t.Error("complete should stamp completed_at")
		}
		if got.ErrorMessage != nil {
			t.Errorf("success should carry no error message, got %q", *got.ErrorMessage)
		}
	})

	t.Run("CompleteError", func(t *testing.T) {
		db := tu.OpenDatabase(t)
		user := seedUser(t, NewUserRepository(db), "wk-1", "crabigator")
		repo := NewSyncLogRepository(db)

		entry := &models.SyncLog{UserID: user.ID, SyncType: models.SyncIncremental}
		if err := repo.Create(entry); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		msg := "upstream unavailable"
		if err := repo.Complete(entry.ID, models.SyncError, 0, &msg); err != nil {
			t.Fatalf("complete failed: %v", err)
		}

		got, err := repo.Get(entry.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Status != models.SyncError {
			t.Errorf("expected error status, got %v", got.Status)
		}
		if got.ErrorMessage == nil || *got.ErrorMessage != msg {
			t.Error("error message should persist")
		}
	})

	t.Run("CompleteMissingLog", func(t *testing.T) {
		db := tu.OpenDatabase(t)
		repo := NewSyncLogRepository(db)

		err := repo.Complete(404, models.SyncSuccess, 0, nil)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListRecent", func(t *testing.T) {
		db := tu.OpenDatabase(t)
		user := seedUser(t, NewUserRepository(db), "wk-1", "crabigator")
		repo := NewSyncLogRepository(db)

		for i := 0; i < 5; i++ {
			entry := &models.SyncLog{UserID: user.ID, SyncType: models.SyncIncremental}
			if err := repo.Create(entry); err != nil {
				t.Fatalf("create failed: %v", err)
			}
		}

		recent, err := repo.ListRecent(user.ID, 3)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(recent) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(recent))
		}
		if recent[0].ID < recent[1].ID {
			t.Error("most recent attempt should come first")
		}
	})
}
