package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/user"
)

type fakeUserStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*user.User
	now     func() time.Time
	failGet error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[uuid.UUID]*user.User{}, now: time.Now}
}

func (f *fakeUserStore) Create(_ context.Context, nu user.NewUser) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == nu.Email {
			return nil, user.ErrDuplicateEmail
		}
	}
	now := f.now()
	token := nu.VerificationToken
	u := &user.User{
		ID:                      uuid.New(),
		Email:                   nu.Email,
		PasswordHash:            nu.PasswordHash,
		Role:                    nu.Role,
		EmailVerificationToken:  &token,
		EmailVerificationSentAt: &now,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	f.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	email = user.NormalizeEmail(email)
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUserStore) GetByVerificationToken(_ context.Context, token string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.EmailVerificationToken != nil && *u.EmailVerificationToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserStore) MarkEmailAsVerified(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	u.EmailVerified = true
	u.EmailVerificationToken = nil
	return nil
}

func (f *fakeUserStore) UpdateVerificationToken(_ context.Context, id uuid.UUID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	now := f.now()
	u.EmailVerificationToken = &token
	u.EmailVerificationSentAt = &now
	return nil
}

type fakeResetStore struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{tokens: map[string]uuid.UUID{}}
}

func (f *fakeResetStore) StorePasswordResetToken(_ context.Context, userID uuid.UUID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = userID
	return nil
}

func (f *fakeResetStore) GetPasswordResetToken(_ context.Context, token string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[token]
	if !ok {
		return uuid.Nil, ErrPasswordResetTokenNotFound
	}
	return id, nil
}

func (f *fakeResetStore) DeletePasswordResetToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

type sentMail struct {
	kind, to, token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) SendVerificationEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{"verify", to, token})
	return nil
}

func (f *fakeMailer) SendPasswordResetEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{"reset", to, token})
	return nil
}

func (f *fakeMailer) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMail{}
	}
	return f.sent[len(f.sent)-1]
}
