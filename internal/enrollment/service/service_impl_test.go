package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lokapasar/lokapasar/internal/enrollment/domain"
	"github.com/lokapasar/lokapasar/internal/enrollment/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const enrollmentsSchema = `
CREATE TABLE IF NOT EXISTS enrollments (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL,
	item_id INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'preview',
	progress INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (user_id, item_id)
)`

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error
	if err := db.Exec(enrollmentsSchema).Error; err != nil {
		t.Fatalf("prepare schema: %v", err)
	}

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: mustNode(t),
		Repo:  repository.Provide(),
	})
	return svc, db
}

func countEnrollments(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM enrollments`).Scan(&count).Error; err != nil {
		t.Fatalf("count enrollments: %v", err)
	}
	return count
}

func TestGrantIdempotent(t *testing.T) {
	svc, db := setupService(t)
	node := mustNode(t)
	userID := node.Generate()
	itemID := node.Generate()

	first, err := svc.Grant(context.Background(), userID, itemID)
	if err != nil {
		t.Fatalf("first grant: %v", err)
	}
	second, err := svc.Grant(context.Background(), userID, itemID)
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected grants to converge on one row, got %s vs %s", first.ID, second.ID)
	}
	if second.Status != domain.StatusPurchased {
		t.Fatalf("expected purchased, got %s", second.Status)
	}
	if count := countEnrollments(t, db); count != 1 {
		t.Fatalf("expected 1 enrollment, got %d", count)
	}
}

func TestGrantUpgradesPreview(t *testing.T) {
	svc, db := setupService(t)
	node := mustNode(t)
	userID := node.Generate()
	itemID := node.Generate()

	preview, err := svc.EnsurePreview(context.Background(), userID, itemID)
	if err != nil {
		t.Fatalf("ensure preview: %v", err)
	}
	if preview.Status != domain.StatusPreview {
		t.Fatalf("expected preview, got %s", preview.Status)
	}

	granted, err := svc.Grant(context.Background(), userID, itemID)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if granted.ID != preview.ID {
		t.Fatalf("expected upgrade in place, got a new row")
	}
	if granted.Status != domain.StatusPurchased {
		t.Fatalf("expected purchased after upgrade, got %s", granted.Status)
	}
	if count := countEnrollments(t, db); count != 1 {
		t.Fatalf("expected 1 enrollment, got %d", count)
	}
}

func TestGrantDoesNotDowngradeCompleted(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)
	userID := node.Generate()
	itemID := node.Generate()

	granted, err := svc.Grant(context.Background(), userID, itemID)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.repo.UpdateStatus(context.Background(), svc.db, granted.ID, domain.StatusPurchased, domain.StatusCompleted); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	again, err := svc.Grant(context.Background(), userID, itemID)
	if err != nil {
		t.Fatalf("re-grant: %v", err)
	}
	if again.Status != domain.StatusCompleted {
		t.Fatalf("expected completed to survive a re-grant, got %s", again.Status)
	}
}

func TestGrantConcurrent(t *testing.T) {
	svc, db := setupService(t)
	node := mustNode(t)
	userID := node.Generate()
	itemID := node.Generate()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Grant(context.Background(), userID, itemID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent grant: %v", err)
		}
	}
	if count := countEnrollments(t, db); count != 1 {
		t.Fatalf("expected 1 enrollment after concurrent grants, got %d", count)
	}
}

func TestEnsurePreviewLeavesPurchased(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)
	userID := node.Generate()
	itemID := node.Generate()

	if _, err := svc.Grant(context.Background(), userID, itemID); err != nil {
		t.Fatalf("grant: %v", err)
	}

	got, err := svc.EnsurePreview(context.Background(), userID, itemID)
	if err != nil {
		t.Fatalf("ensure preview: %v", err)
	}
	if got.Status != domain.StatusPurchased {
		t.Fatalf("expected purchased to survive a preview request, got %s", got.Status)
	}
}

func TestFindMissingEnrollment(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)

	_, err := svc.Find(context.Background(), node.Generate(), node.Generate())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
