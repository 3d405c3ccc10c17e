package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terrabuild/terrafusion/backend/pkg/redis"
)

// Matrix is a working cost matrix inside a valuation session.
type Matrix struct {
	MatrixID       string    `json:"matrix_id"`
	BuildingType   string    `json:"building_type"`
	Region         string    `json:"region"`
	QualityClasses []string  `json:"quality_classes"`
	Values         []float64 `json:"values"`
	Comments       string    `json:"comments,omitempty"`
}

// Insight is an analyst annotation attached to a session
type Insight struct {
	InsightID  string    `json:"insight_id"`
	Type       string    `json:"type"` // info, warning
	Message    string    `json:"message"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// Metadata carries session lifecycle timestamps
type Metadata struct {
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// Session is a saved valuation working state
type Session struct {
	ID         string    `json:"session_id"`
	MatrixData []Matrix  `json:"matrix_data"`
	Insights   []Insight `json:"insights,omitempty"`
	Metadata   Metadata  `json:"metadata"`
}

// Store errors
var (
	ErrNotFound = fmt.Errorf("session not found")
	ErrDisabled = fmt.Errorf("session storage is disabled")
)

// Store keeps valuation sessions in Redis with a TTL.
type Store struct {
	client *redis.Client
	cache  *redis.Cache
	ttl    time.Duration
}

// NewStore creates a new session store
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		cache:  redis.NewCache(client, "session"),
		ttl:    ttl,
	}
}

// Enabled reports whether the underlying storage is available
func (s *Store) Enabled() bool {
	return s.client.Enabled()
}

// NewID generates a dated session identifier
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s", now.Format("20060102"), suffix)
}

// Create stores a new session and returns its generated id
func (s *Store) Create(ctx context.Context, session *Session) error {
	if !s.Enabled() {
		return ErrDisabled
	}

	now := time.Now()
	if session.ID == "" {
		session.ID = NewID(now)
	}
	session.Metadata.CreatedAt = now
	session.Metadata.LastUpdated = now

	if err := s.cache.Set(ctx, session.ID, session, s.ttl); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// Get retrieves a session by id
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	var session Session
	found, err := s.cache.Get(ctx, id, &session)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	return &session, nil
}

// Update replaces an existing session, refreshing its timestamps and TTL
func (s *Store) Update(ctx context.Context, session *Session) error {
	existing, err := s.Get(ctx, session.ID)
	if err != nil {
		return err
	}

	session.Metadata.CreatedAt = existing.Metadata.CreatedAt
	session.Metadata.LastUpdated = time.Now()

	if err := s.cache.Set(ctx, session.ID, session, s.ttl); err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	return nil
}

// Delete removes a session
func (s *Store) Delete(ctx context.Context, id string) error {
	if !s.Enabled() {
		return ErrDisabled
	}

	if err := s.cache.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
