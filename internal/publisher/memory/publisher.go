// Package memory records run summaries in process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/guestpost-catalog/internal/publisher"
)

// Publisher keeps every published summary for inspection.
type Publisher struct {
	mu        sync.RWMutex
	summaries []publisher.RunSummary
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records summary and returns a sequential id.
func (p *Publisher) Publish(_ context.Context, summary publisher.RunSummary) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
	return fmt.Sprintf("memory-%d", len(p.summaries)), nil
}

// Summaries returns a copy of the recorded summaries.
func (p *Publisher) Summaries() []publisher.RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]publisher.RunSummary(nil), p.summaries...)
}
