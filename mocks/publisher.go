package mocks

import (
	"context"
	"sync"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Publisher records emitted notifications
type Publisher struct {
	mu        sync.Mutex
	Removals  []*models.Notification
	Creations []*models.Notification
	Journals  []*models.JournalEntry
	Err       error
}

func (p *Publisher) PublishRemoval(ctx context.Context, notification *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Removals = append(p.Removals, notification)
	return nil
}

func (p *Publisher) PublishCreation(ctx context.Context, notification *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Creations = append(p.Creations, notification)
	return nil
}

func (p *Publisher) PublishJournal(ctx context.Context, entry *models.JournalEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Journals = append(p.Journals, entry)
	return nil
}

// Total is the number of emitted messages of every kind
func (p *Publisher) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Removals) + len(p.Creations) + len(p.Journals)
}
