package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/trading-simulator/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubActivityRepo struct {
	mu       sync.Mutex
	inserted []domain.Activity
	failKind domain.ActivityKind
	done     chan struct{}
	want     int
}

func (r *stubActivityRepo) Insert(_ context.Context, a *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if len(r.inserted) == r.want {
			select {
			case <-r.done:
			default:
				close(r.done)
			}
		}
	}()
	if a.Kind == r.failKind {
		r.want--
		return errors.New("mongo unavailable")
	}
	r.inserted = append(r.inserted, *a)
	return nil
}

func (r *stubActivityRepo) ListByUser(context.Context, int64, int) ([]domain.Activity, error) {
	return nil, nil
}

func (r *stubActivityRepo) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for activity writes")
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestDispatcher_PreservesPerUserOrder(t *testing.T) {
	repo := &stubActivityRepo{done: make(chan struct{}), want: 6}
	d := NewDispatcher(3, repo, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	kinds := []domain.ActivityKind{domain.ActivityLogin, domain.ActivityBuy, domain.ActivitySell}
	for _, k := range kinds {
		d.Record(domain.Activity{UserID: 1, Kind: k})
		d.Record(domain.Activity{UserID: 2, Kind: k})
	}
	repo.wait(t)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	var user1 []domain.ActivityKind
	for _, a := range repo.inserted {
		if a.UserID == 1 {
			user1 = append(user1, a.Kind)
		}
	}
	if len(user1) != 3 || user1[0] != domain.ActivityLogin || user1[1] != domain.ActivityBuy || user1[2] != domain.ActivitySell {
		t.Fatalf("expected user 1 entries in order, got %v", user1)
	}
}

func TestDispatcher_WriteFailureIsNonFatal(t *testing.T) {
	repo := &stubActivityRepo{done: make(chan struct{}), want: 2, failKind: domain.ActivityLogout}
	d := NewDispatcher(1, repo, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Record(domain.Activity{UserID: 1, Kind: domain.ActivityLogout})
	d.Record(domain.Activity{UserID: 1, Kind: domain.ActivityLogin})
	repo.wait(t)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.inserted) != 1 || repo.inserted[0].Kind != domain.ActivityLogin {
		t.Fatalf("expected worker to continue after a failed write, got %+v", repo.inserted)
	}
}

func TestDispatcher_RecordNeverBlocks(t *testing.T) {
	repo := &stubActivityRepo{done: make(chan struct{})}
	d := NewDispatcher(1, repo, zerolog.Nop()) // not started: nothing drains

	finished := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+10; i++ {
			d.Record(domain.Activity{UserID: 1, Kind: domain.ActivityBuy})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("Record blocked on a full queue")
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(4, &stubActivityRepo{}, zerolog.Nop())
	for _, id := range []int64{0, 1, 7, 1 << 40, -3} {
		first := d.shardIndex(id)
		if first < 0 || first >= 4 {
			t.Fatalf("shard %d out of range for user %d", first, id)
		}
		if d.shardIndex(id) != first {
			t.Fatalf("shard index not deterministic for user %d", id)
		}
	}
}
