package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/domain"
)

// fakeTokenStore is an in-memory domain.TokenStore for service tests.
type fakeTokenStore struct {
	mu     sync.Mutex
	rows   map[string]domain.TrackedToken
	nextID int64

	upserts []upsertCall
}

type upsertCall struct {
	symbol     string
	listed     bool
	verifiedAt time.Time
}

func newFakeTokenStore(rows ...domain.TrackedToken) *fakeTokenStore {
	s := &fakeTokenStore{rows: make(map[string]domain.TrackedToken)}
	for _, r := range rows {
		s.nextID++
		r.ID = s.nextID
		s.rows[r.Symbol] = r
	}
	return s
}

func (s *fakeTokenStore) ListTracked(ctx context.Context) ([]domain.TrackedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TrackedToken
	for _, r := range s.rows {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeTokenStore) ListAll(ctx context.Context) ([]domain.TrackedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TrackedToken, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out, nil
}

func (s *fakeTokenStore) GetBySymbol(ctx context.Context, symbol string) (domain.TrackedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[symbol]; ok {
		return r, nil
	}
	for k, r := range s.rows {
		if strings.EqualFold(k, symbol) {
			return r, nil
		}
	}
	for k, r := range s.rows {
		if strings.Contains(strings.ToUpper(k), strings.ToUpper(symbol)) {
			return r, nil
		}
	}
	return domain.TrackedToken{}, domain.ErrNotFound
}

func (s *fakeTokenStore) UpsertVerification(ctx context.Context, symbol string, listed bool, verifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, upsertCall{symbol: symbol, listed: listed, verifiedAt: verifiedAt})
	r, ok := s.rows[symbol]
	if !ok {
		s.nextID++
		r = domain.TrackedToken{ID: s.nextID, Symbol: symbol}
	}
	l := listed
	at := verifiedAt
	r.FuturesListed = &l
	r.FuturesCheckedAt = &at
	s.rows[symbol] = r
	return nil
}

func (s *fakeTokenStore) Create(ctx context.Context, t domain.TrackedToken) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[t.Symbol]; ok && r.IsActive {
		return 0, domain.ErrAlreadyExists
	}
	s.nextID++
	t.ID = s.nextID
	t.IsActive = true
	s.rows[t.Symbol] = t
	return t.ID, nil
}

func (s *fakeTokenStore) Deactivate(ctx context.Context, symbol string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[symbol]
	if !ok || !r.IsActive {
		return 0, domain.ErrNotFound
	}
	r.IsActive = false
	s.rows[symbol] = r
	return r.ID, nil
}

func (s *fakeTokenStore) SetPriority(ctx context.Context, symbol string, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[symbol]
	if !ok || !r.IsActive {
		return domain.ErrNotFound
	}
	r.Priority = priority
	s.rows[symbol] = r
	return nil
}

func (s *fakeTokenStore) SetNotes(ctx context.Context, symbol, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[symbol]
	if !ok || !r.IsActive {
		return domain.ErrNotFound
	}
	r.Notes = notes
	s.rows[symbol] = r
	return nil
}

func (s *fakeTokenStore) Search(ctx context.Context, query string, limit int) ([]domain.TrackedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TrackedToken
	for _, r := range s.rows {
		if !r.IsActive {
			continue
		}
		if strings.Contains(strings.ToUpper(r.Symbol), strings.ToUpper(query)) ||
			strings.Contains(strings.ToUpper(r.Name), strings.ToUpper(query)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeTokenStore) upsertCalls() []upsertCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]upsertCall, len(s.upserts))
	copy(out, s.upserts)
	return out
}

// fakeListings answers CheckListing from a map and records every call.
type fakeListings struct {
	mu    sync.Mutex
	infos map[string]domain.ListingInfo
	errs  map[string]error
	calls []string
}

func newFakeListings() *fakeListings {
	return &fakeListings{
		infos: make(map[string]domain.ListingInfo),
		errs:  make(map[string]error),
	}
}

func (f *fakeListings) CheckListing(ctx context.Context, symbol string) (domain.ListingInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol)
	if err, ok := f.errs[symbol]; ok {
		return domain.ListingInfo{}, err
	}
	if info, ok := f.infos[symbol]; ok {
		return info, nil
	}
	return domain.ListingInfo{Available: false, Status: domain.ListingStatusNotFound, BaseAsset: symbol}, nil
}

func (f *fakeListings) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeUniverse serves a fixed universe snapshot.
type fakeUniverse struct {
	tokens []domain.UniverseToken
	err    error
}

func (f *fakeUniverse) FetchUniverse(ctx context.Context) ([]domain.UniverseToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }

func availableListing(contract string) domain.ListingInfo {
	return domain.ListingInfo{
		Available:      true,
		ContractSymbol: contract,
		Status:         "TRADING",
		ContractType:   "PERPETUAL",
	}
}
