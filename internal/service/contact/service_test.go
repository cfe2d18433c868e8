package contact

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"storefront/internal/domain"
)

type memoryRepo struct {
	seq  int
	rows map[string]domain.Contact
}

func newMemoryRepo() *memoryRepo { return &memoryRepo{rows: make(map[string]domain.Contact)} }

func (r *memoryRepo) emailUsed(email, exceptID string) bool {
	for id, c := range r.rows {
		if id != exceptID && c.Email == email {
			return true
		}
	}
	return false
}

func (r *memoryRepo) List(_ context.Context, userID string) ([]domain.Contact, error) {
	var out []domain.Contact
	for _, c := range r.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, userID, id string) (*domain.Contact, error) {
	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *memoryRepo) Create(_ context.Context, c domain.Contact) (*domain.Contact, error) {
	if r.emailUsed(c.Email, "") {
		return nil, domain.ErrAlreadyExists
	}
	r.seq++
	c.ID = strconv.Itoa(r.seq)
	r.rows[c.ID] = c
	return &c, nil
}

func (r *memoryRepo) Update(_ context.Context, c domain.Contact) (*domain.Contact, error) {
	cur, ok := r.rows[c.ID]
	if !ok || cur.UserID != c.UserID {
		return nil, domain.ErrNotFound
	}
	if r.emailUsed(c.Email, c.ID) {
		return nil, domain.ErrAlreadyExists
	}
	r.rows[c.ID] = c
	return &c, nil
}

func (r *memoryRepo) Delete(_ context.Context, userID, id string) error {
	c, ok := r.rows[id]
	if !ok || c.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func TestCreate_EmailUniqueAcrossUsers(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, "alice", Input{Phone: "1", Email: "Shared@example.com", Address: "a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Create(ctx, "bob", Input{Phone: "2", Email: "shared@example.com", Address: "b"})
	var cerr *domain.ConflictError
	if !errors.As(err, &cerr) || cerr.Field != "email" {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("conflict should match ErrAlreadyExists")
	}
	if len(repo.rows) != 1 || repo.rows[first.ID].Phone != "1" {
		t.Fatalf("existing record changed: %+v", repo.rows)
	}
}

func TestUpdate_ForeignRecordIsNotFound(t *testing.T) {
	svc := New(newMemoryRepo())
	ctx := context.Background()
	c, err := svc.Create(ctx, "alice", Input{Phone: "1", Email: "a@example.com", Address: "a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Update(ctx, "bob", c.ID, Input{Phone: "9"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, "bob", c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, "bob", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing id, got %v", err)
	}
}

func TestUpdate_KeepsUnsetFieldsAndChecksEmail(t *testing.T) {
	svc := New(newMemoryRepo())
	ctx := context.Background()
	a, _ := svc.Create(ctx, "alice", Input{Phone: "1", Email: "a@example.com", Address: "a"})
	if _, err := svc.Create(ctx, "bob", Input{Phone: "2", Email: "b@example.com", Address: "b"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, "alice", a.ID, Input{Phone: "5"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "5" || updated.Email != "a@example.com" || updated.Address != "a" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := svc.Update(ctx, "alice", a.ID, Input{Email: "b@example.com"}); domain.Kind(err) != domain.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.Update(ctx, "alice", a.ID, Input{Email: "a@example.com"}); err != nil {
		t.Fatalf("keeping own email should succeed: %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := New(newMemoryRepo())
	cases := []struct {
		in    Input
		field string
	}{
		{Input{Email: "a@example.com", Address: "a"}, "phone"},
		{Input{Phone: "1", Address: "a"}, "email"},
		{Input{Phone: "1", Email: "not-an-email", Address: "a"}, "email"},
		{Input{Phone: "1", Email: "a@example.com"}, "address"},
	}
	for _, tc := range cases {
		_, err := svc.Create(context.Background(), "u", tc.in)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Fatalf("expected %s validation error, got %v", tc.field, err)
		}
	}
}
