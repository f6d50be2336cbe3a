package idempotency_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/service/idempotency"
	"github.com/Selbihan/Codifya-ERP-sub000/internal/storage/memory"
)

func TestCleanupWorker_RemovesExpired(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	if _, err := repo.CreateProcessing("expired", "hash", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := repo.CreateProcessing("alive", "hash", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	worker := idempotency.NewCleanupWorker(repo, nil, time.Hour, 10)

	// Начальная очистка выполняется до первого тика.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for {
		if _, err := repo.Get("expired"); errors.Is(err, domain.ErrIdempotencyNotFound) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expired record was not cleaned up")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	if _, err := repo.Get("alive"); err != nil {
		t.Fatalf("live record must survive cleanup: %v", err)
	}
}
