package user

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type repoStub struct {
	findByEmail func(ctx context.Context, email string) (*User, error)
	create      func(ctx context.Context, u User) error
}

func (s *repoStub) FindByEmail(ctx context.Context, email string) (*User, error) {
	if s.findByEmail == nil {
		return nil, nil
	}
	return s.findByEmail(ctx, email)
}

func (s *repoStub) Create(ctx context.Context, u User) error {
	if s.create == nil {
		return nil
	}
	return s.create(ctx, u)
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	t1 := time.Date(2024, 8, 23, 10, 0, 0, 0, time.UTC)

	first, err := svc.GetOrCreate(ctx, "Jane", "jane@x.com", t1)
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	second, err := svc.GetOrCreate(ctx, "Jane", "jane@x.com", t1.Add(time.Hour))
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected identical ids, got %s and %s", first.ID, second.ID)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected exactly one row, got %d", repo.Len())
	}
}

func TestGetOrCreateLeavesExistingRowUntouched(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	created := time.Date(2024, 8, 23, 10, 0, 0, 0, time.UTC)

	if _, err := svc.GetOrCreate(ctx, "Jane", "jane@x.com", created); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	// A later login with a new display name must not refresh the record.
	again, err := svc.GetOrCreate(ctx, "Jane Renamed", "jane@x.com", created.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if again.Name != "Jane" {
		t.Fatalf("expected stored name to survive, got %q", again.Name)
	}
	if !again.CreatedAt.Equal(created) {
		t.Fatalf("expected creation date to survive, got %v", again.CreatedAt)
	}
}

func TestGetOrCreateNewUserHasNoPassword(t *testing.T) {
	svc := NewService(NewInMemoryRepository())

	u, err := svc.GetOrCreate(context.Background(), "Jane", "jane@x.com", time.Now())
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if u.PasswordHash != "" {
		t.Fatalf("SSO-created account must have an empty password hash, got %q", u.PasswordHash)
	}
	if u.ID == uuid.Nil {
		t.Fatal("expected a generated id")
	}
}

func TestGetOrCreateRecoversFromDuplicateInsert(t *testing.T) {
	winner := &User{ID: uuid.New(), Name: "Jane", Email: "jane@x.com", CreatedAt: time.Now()}

	var lookups int
	repo := &repoStub{
		findByEmail: func(ctx context.Context, email string) (*User, error) {
			lookups++
			if lookups == 1 {
				// First read misses: the concurrent insert has not landed yet.
				return nil, nil
			}
			return winner, nil
		},
		create: func(ctx context.Context, u User) error {
			return ErrEmailTaken
		},
	}

	got, err := NewService(repo).GetOrCreate(context.Background(), "Jane", "jane@x.com", time.Now())
	if err != nil {
		t.Fatalf("expected duplicate insert to be recovered, got %v", err)
	}
	if got.ID != winner.ID {
		t.Fatalf("expected the winning row, got %s", got.ID)
	}
}

func TestGetOrCreatePropagatesRepositoryErrors(t *testing.T) {
	dbDown := errors.New("db down")
	repo := &repoStub{
		findByEmail: func(ctx context.Context, email string) (*User, error) {
			return nil, dbDown
		},
	}

	if _, err := NewService(repo).GetOrCreate(context.Background(), "Jane", "jane@x.com", time.Now()); !errors.Is(err, dbDown) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestGetOrCreateConcurrentSameEmail(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	const n = 32
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := svc.GetOrCreate(ctx, "Jane", "jane@x.com", time.Now())
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = u.ID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if repo.Len() != 1 {
		t.Fatalf("expected exactly one row, got %d", repo.Len())
	}
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("call %d returned a different id: %s vs %s", i, ids[i], ids[0])
		}
	}
}
