package agent

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

var (
	// ErrAgentNotFound is returned for an unknown agent id.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrAgentExists is returned when creating an agent with a taken id.
	ErrAgentExists = errors.New("agent with this id already exists")
)

// Agent is a named, reusable tool chain.
type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tools       []string  `json:"tools"`
	CreatedAt   time.Time `json:"created_at"`
}

// Catalog keeps agents in memory for the life of the process.
type Catalog struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{agents: make(map[string]Agent)}
}

// Create stores a. An empty ID is assigned a UUID.
func (c *Catalog) Create(a Agent) (Agent, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Tools == nil {
		a.Tools = []string{}
	}
	a.Tools = slices.Clone(a.Tools)
	a.CreatedAt = time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.agents[a.ID]; ok {
		return Agent{}, errors.Wrapf(ErrAgentExists, "%s", a.ID)
	}
	c.agents[a.ID] = a
	return a, nil
}

// Get returns the agent with id.
func (c *Catalog) Get(id string) (Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.agents[id]
	if !ok {
		return Agent{}, errors.Wrapf(ErrAgentNotFound, "%s", id)
	}
	return a, nil
}

// List returns all agents, oldest first.
func (c *Catalog) List() []Agent {
	c.mu.RLock()
	out := make([]Agent, 0, len(c.agents))
	for _, a := range c.agents {
		out = append(out, a)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
