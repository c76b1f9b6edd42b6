package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ruizrica/spriteforge/internal/cost"
	"github.com/ruizrica/spriteforge/pkg/models"
)

var (
	ErrNoSession       = errors.New("no active session")
	ErrSessionNotFound = errors.New("session not found")
)

// Manager owns the active session row and is the durable sink for the
// usage ledger and the generation audit log. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	store    *Store
	current  *Session
	provider models.ProviderType
	model    string
}

func NewManager(store *Store, provider models.ProviderType, model string) *Manager {
	if provider == "" {
		provider = models.ProviderGemini
	}
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	return &Manager{
		store:    store,
		provider: provider,
		model:    model,
	}
}

func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) HasSession() bool {
	return m.Current() != nil
}

func (m *Manager) StartNew(ctx context.Context, name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx, name)
}

func (m *Manager) startLocked(ctx context.Context, name string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Provider:  string(m.provider),
		Model:     m.model,
	}

	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.current = sess
	return sess, nil
}

func (m *Manager) Load(ctx context.Context, id string) error {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
	return nil
}

func (m *Manager) EnsureSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current, nil
	}
	return m.startLocked(ctx, "")
}

func (m *Manager) ListSessions(ctx context.Context) ([]*Session, error) {
	return m.store.ListSessions(ctx)
}

func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.current != nil && m.current.ID == id {
		m.current = nil
	}
	m.mu.Unlock()
	return m.store.DeleteSession(ctx, id)
}

func (m *Manager) RenameSession(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoSession
	}
	m.current.Name = name
	m.current.UpdatedAt = time.Now()
	return m.store.UpdateSession(ctx, m.current)
}

func (m *Manager) SetModel(provider models.ProviderType, model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = provider
	m.model = model
	if m.current != nil {
		m.current.Provider = string(provider)
		m.current.Model = model
	}
}

func (m *Manager) GetModel() (models.ProviderType, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return models.ProviderType(m.current.Provider), m.current.Model
	}
	return m.provider, m.model
}

// LogGeneration appends an audit row to the active session, starting one
// if needed.
func (m *Manager) LogGeneration(ctx context.Context, g *Generation) error {
	sess, err := m.EnsureSession(ctx)
	if err != nil {
		return err
	}

	g.ID = uuid.New().String()
	g.SessionID = sess.ID
	if g.Timestamp.IsZero() {
		g.Timestamp = time.Now()
	}
	if g.Model == "" {
		_, g.Model = m.GetModel()
	}

	if err := m.store.CreateGeneration(ctx, g); err != nil {
		return fmt.Errorf("failed to log generation: %w", err)
	}
	return nil
}

func (m *Manager) History(ctx context.Context) ([]*Generation, error) {
	sess := m.Current()
	if sess == nil {
		return nil, nil
	}
	return m.store.ListGenerations(ctx, sess.ID)
}

func (m *Manager) GenerationCount(ctx context.Context) (int, error) {
	sess := m.Current()
	if sess == nil {
		return 0, nil
	}
	return m.store.CountGenerations(ctx, sess.ID)
}

// LogCost persists one usage ledger record.
func (m *Manager) LogCost(ctx context.Context, rec cost.Record) error {
	sess, err := m.EnsureSession(ctx)
	if err != nil {
		return err
	}

	return m.store.LogCost(ctx, &CostEntry{
		SessionID:    sess.ID,
		Provider:     string(rec.SizeClass.Provider),
		Model:        rec.SizeClass.Model,
		Size:         rec.SizeClass.Size,
		Quality:      rec.SizeClass.Quality,
		PromptLength: rec.PromptLength,
		Cost:         rec.Cost,
		ImageCount:   1,
		Timestamp:    rec.Timestamp,
	})
}

func (m *Manager) GetCostByDateRange(ctx context.Context, start, end time.Time) (*CostSummary, error) {
	return m.store.GetCostByDateRange(ctx, start, end)
}

func (m *Manager) GetCostByProvider(ctx context.Context) ([]ProviderCostSummary, error) {
	return m.store.GetCostByProvider(ctx)
}

func (m *Manager) GetTotalCost(ctx context.Context) (*CostSummary, error) {
	return m.store.GetTotalCost(ctx)
}

func (m *Manager) GetSessionCost(ctx context.Context) (*CostSummary, error) {
	sess := m.Current()
	if sess == nil {
		return &CostSummary{}, nil
	}
	return m.store.GetSessionCost(ctx, sess.ID)
}

var _ cost.Sink = (*Manager)(nil)
