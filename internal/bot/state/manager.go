package state

import (
	"context"
	"sync"
)

// Chat states
const (
	None                = "none"
	WaitingForSugar     = "waiting_for_sugar"
	WaitingForGlucose   = "waiting_for_glucose"
	WaitingForFood      = "waiting_for_food_query"
	WaitingForMealPhoto = "waiting_for_meal_photo"
)

// StateManager tracks where each chat is in a multi-step dialog
type StateManager interface {
	GetState(ctx context.Context, chatID int64) string
	SetState(ctx context.Context, chatID int64, state string)
	ClearState(ctx context.Context, chatID int64)
}

// Manager keeps chat states in memory
type Manager struct {
	states map[int64]string
	mu     sync.RWMutex
}

// NewManager creates a new state manager
func NewManager() *Manager {
	return &Manager{states: make(map[int64]string)}
}

// SetState sets the state for a chat
func (m *Manager) SetState(_ context.Context, chatID int64, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[chatID] = state
}

// GetState gets the state for a chat
func (m *Manager) GetState(_ context.Context, chatID int64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, exists := m.states[chatID]
	if !exists {
		return None
	}
	return state
}

// ClearState clears the state for a chat
func (m *Manager) ClearState(_ context.Context, chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
}
