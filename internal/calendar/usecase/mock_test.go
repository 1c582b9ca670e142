package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"calsync/internal/calendar/domain"

	"golang.org/x/oauth2"
)

// fakeDirectory serves users in fixed pages keyed by page token.
type fakeDirectory struct {
	mu        sync.Mutex
	pages     map[string][]domain.User
	next      map[string]string
	failOn    map[string]error
	calls     []string
	pageSizes []int
}

func newFakeDirectory(pages ...[]domain.User) *fakeDirectory {
	d := &fakeDirectory{
		pages:  make(map[string][]domain.User),
		next:   make(map[string]string),
		failOn: make(map[string]error),
	}
	token := ""
	for i, page := range pages {
		d.pages[token] = page
		if i < len(pages)-1 {
			nextToken := "page-" + string(rune('a'+i))
			d.next[token] = nextToken
			token = nextToken
		}
	}
	return d
}

func (d *fakeDirectory) ListUsers(_ context.Context, pageSize int, pageToken string) ([]domain.User, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, pageToken)
	d.pageSizes = append(d.pageSizes, pageSize)
	if err := d.failOn[pageToken]; err != nil {
		return nil, "", err
	}
	return d.pages[pageToken], d.next[pageToken], nil
}

// fakeUserRepository keeps documents and calendar fields in memory.
type fakeUserRepository struct {
	mu            sync.Mutex
	docs          map[string]*domain.UserDocument
	calendars     map[string]map[string][]domain.Event
	refreshTokens map[string]string
	failWrite     map[string]bool
	writes        int
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{
		docs:          make(map[string]*domain.UserDocument),
		calendars:     make(map[string]map[string][]domain.Event),
		refreshTokens: make(map[string]string),
		failWrite:     make(map[string]bool),
	}
}

func (r *fakeUserRepository) addUser(id, email string, creds map[domain.Provider]string) {
	doc := &domain.UserDocument{ID: id, Email: email, Credentials: make(map[domain.Provider]*domain.Credential)}
	for provider, token := range creds {
		doc.Credentials[provider] = &domain.Credential{RefreshToken: token, FieldPath: string(provider) + ".refresh_token"}
	}
	r.docs[id] = doc
}

func (r *fakeUserRepository) FindByID(_ context.Context, userID string) (*domain.UserDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[userID]
	if !ok {
		return nil, &domain.PersistenceError{UserID: userID, Op: "read", Err: domain.ErrUserDocumentNotFound}
	}
	return doc, nil
}

func (r *fakeUserRepository) UpdateCalendar(_ context.Context, userID string, provider domain.Provider, events []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite[userID] {
		return &domain.PersistenceError{UserID: userID, Op: "write", Err: errors.New("deadline exceeded")}
	}
	if r.calendars[userID] == nil {
		r.calendars[userID] = make(map[string][]domain.Event)
	}
	r.calendars[userID][provider.CalendarField()] = events
	r.writes++
	return nil
}

func (r *fakeUserRepository) UpdateRefreshToken(_ context.Context, userID string, cred *domain.Credential, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if refreshToken == "" {
		return nil
	}
	r.refreshTokens[userID+"/"+cred.FieldPath] = refreshToken
	return nil
}

func (r *fakeUserRepository) calendar(userID string, provider domain.Provider) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calendars[userID][provider.CalendarField()]
}

// fakeLeases is a single in-memory lease with an expiry.
type fakeLeases struct {
	mu        sync.Mutex
	holder    string
	expiresAt time.Time
	acquired  int
	renewed   int
	released  int
}

func (l *fakeLeases) Acquire(_ context.Context, _, holder string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if l.holder != "" && l.holder != holder && now.Before(l.expiresAt) {
		return domain.ErrRunInProgress
	}
	if l.holder == holder {
		l.renewed++
	} else {
		l.acquired++
	}
	l.holder = holder
	l.expiresAt = now.Add(ttl)
	return nil
}

func (l *fakeLeases) state() (holder string, renewed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder, l.renewed
}

func (l *fakeLeases) Release(_ context.Context, _, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder == holder {
		l.holder = ""
		l.released++
	}
	return nil
}

// stubRefresher maps refresh tokens to access tokens; unknown tokens fail.
type stubRefresher struct {
	access  map[string]string
	rotated map[string]string
}

func (s *stubRefresher) Refresh(_ context.Context, provider domain.Provider, cred *domain.Credential) (*oauth2.Token, error) {
	access, ok := s.access[cred.RefreshToken]
	if !ok {
		return nil, &domain.AuthRefreshError{Provider: provider, StatusCode: 400, Err: errors.New("invalid_grant")}
	}
	refresh := cred.RefreshToken
	if rotated, ok := s.rotated[cred.RefreshToken]; ok {
		refresh = rotated
	}
	return &oauth2.Token{AccessToken: access, RefreshToken: refresh}, nil
}

// blockingFetcher holds every fetch until release is closed.
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingFetcher) FetchEvents(ctx context.Context, _ domain.Provider, _ string) ([]domain.Event, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return []domain.Event{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// stubFetcher returns canned events per access token.
type stubFetcher struct {
	mu     sync.Mutex
	events map[string][]domain.Event
	calls  int
}

func (s *stubFetcher) FetchEvents(_ context.Context, provider domain.Provider, accessToken string) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	events, ok := s.events[accessToken]
	if !ok {
		return nil, &domain.CalendarFetchError{Provider: provider, StatusCode: 401, Err: errors.New("unauthorised")}
	}
	return events, nil
}
