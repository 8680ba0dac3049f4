package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/dbx"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	eventsrepo "github.com/dmitrijs2005/timeline/internal/server/repositories/events"
	mediarepo "github.com/dmitrijs2005/timeline/internal/server/repositories/media"
	refreshtokensrepo "github.com/dmitrijs2005/timeline/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/timeline/internal/server/repositories/users"
	"github.com/google/uuid"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.User
	createErr error
	getErr    error
	updateErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) count(email string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.byID {
		if u.Email == email {
			n++
		}
	}
	return n
}

// put stores u as-is and returns its id.
func (f *fakeUsersRepo) put(u models.User) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	f.byID[u.ID] = &u
	return u.ID
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	mu        sync.Mutex
	tokens    map[string]*models.RefreshToken
	createErr error
	findErr   error
	delErr    error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, TokenHash: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, t := range f.tokens {
		if t.UserID == userID && t.Expires.Before(time.Now()) {
			delete(f.tokens, k)
		}
	}
	return nil
}

// --- events ---

type fakeEventsRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.Event
	media   *fakeMediaRepo
	listErr error
	getErr  error
}

func (f *fakeEventsRepo) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	cp.MediaIDs = []string{}
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeEventsRepo) withMedia(e *models.Event) *models.Event {
	cp := *e
	cp.MediaIDs = []string{}
	if f.media != nil {
		for _, m := range f.media.list(e.ID) {
			cp.MediaIDs = append(cp.MediaIDs, m.ID)
		}
	}
	return &cp
}

func (f *fakeEventsRepo) GetByID(ctx context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return f.withMedia(e), nil
}

func (f *fakeEventsRepo) ListByUser(ctx context.Context, userID string) ([]*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []*models.Event{}
	for _, e := range f.byID {
		if e.UserID == userID {
			out = append(out, f.withMedia(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeEventsRepo) Update(ctx context.Context, e *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[e.ID]
	if !ok {
		return common.ErrorNotFound
	}
	stored.Title, stored.Description, stored.Date = e.Title, e.Description, e.Date
	stored.UpdatedAt = time.Now()
	e.UpdatedAt = stored.UpdatedAt
	return nil
}

func (f *fakeEventsRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	if f.media != nil {
		f.media.deleteByEvent(id)
	}
	return nil
}

// --- media ---

type fakeMediaRepo struct {
	mu        sync.Mutex
	items     []*models.Media
	listCalls int
	listErr   error
	createErr error
}

func (f *fakeMediaRepo) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	cp := *m
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	f.items = append(f.items, &cp)
	out := cp
	return &out, nil
}

func (f *fakeMediaRepo) GetByID(ctx context.Context, id string) (*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.items {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeMediaRepo) list(eventID string) []*models.Media {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Media{}
	for _, m := range f.items {
		if m.EventID == eventID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out
}

func (f *fakeMediaRepo) ListByEvent(ctx context.Context, eventID string) ([]*models.Media, error) {
	f.mu.Lock()
	f.listCalls++
	err := f.listErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.list(eventID), nil
}

func (f *fakeMediaRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.items {
		if m.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeMediaRepo) deleteByEvent(eventID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	for _, m := range f.items {
		if m.EventID != eventID {
			kept = append(kept, m)
		}
	}
	f.items = kept
}

// --- manager ---

type fakeRepoManager struct {
	users   *fakeUsersRepo
	refresh *fakeRefreshRepo
	events  *fakeEventsRepo
	media   *fakeMediaRepo
}

func newFakeRepoManager() *fakeRepoManager {
	media := &fakeMediaRepo{}
	return &fakeRepoManager{
		users:   newFakeUsersRepo(),
		refresh: newFakeRefreshRepo(),
		events:  &fakeEventsRepo{byID: map[string]*models.Event{}, media: media},
		media:   media,
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.users }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.refresh }
func (m *fakeRepoManager) Events(db dbx.DBTX) eventsrepo.Repository               { return m.events }
func (m *fakeRepoManager) Media(db dbx.DBTX) mediarepo.Repository                 { return m.media }

// --- blobs ---

type fakeBlobs struct {
	mu         sync.Mutex
	objects    map[string][]byte
	putErr     error
	presignErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (f *fakeBlobs) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if f.putErr != nil {
		return f.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = buf.Bytes()
	return nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobs) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fmt.Sprintf("https://s3.test/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func (f *fakeBlobs) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}
