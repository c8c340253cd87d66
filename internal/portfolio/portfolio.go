// Package portfolio implements the in-memory Portfolio collection (by-id
// and by-name indexed document set) and the versioned, atomically-persisted
// wallet database file.
package portfolio

import (
	"sync"

	"github.com/systmms/secwallet/internal/document"
	"github.com/systmms/secwallet/internal/secwerrors"
)

// Portfolio is a named collection of documents, indexed by id and by name.
type Portfolio struct {
	mu      sync.RWMutex
	name    string
	version int
	byID    map[string]*document.Document
	byName  map[string]string // name -> id
}

// New creates an empty portfolio.
func New(name string) *Portfolio {
	return &Portfolio{
		name:    name,
		version: 1,
		byID:    make(map[string]*document.Document),
		byName:  make(map[string]string),
	}
}

// Name returns the portfolio's name.
func (p *Portfolio) Name() string {
	return p.name
}

// Add inserts a new document. Fails if id or name already exist.
func (p *Portfolio) Add(doc *document.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byID[doc.ID]; exists {
		return secwerrors.New(secwerrors.SWSGeneric, "document id already exists")
	}
	if _, exists := p.byName[doc.Name]; exists {
		return secwerrors.NameAlreadyExists(doc.Name)
	}

	p.byID[doc.ID] = doc
	p.byName[doc.Name] = doc.ID
	return nil
}

// Replace overwrites an existing document in place, keeping the id fixed.
// If the name changed and collides with another document, the update is
// rejected. doc.Version is set to one past the document it replaces,
// regardless of what the caller supplied.
func (p *Portfolio) Replace(doc *document.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, ok := p.byID[doc.ID]
	if !ok {
		return secwerrors.DocumentDoesNotExist(doc.ID)
	}

	if existing.Name != doc.Name {
		if _, collide := p.byName[doc.Name]; collide {
			return secwerrors.NameAlreadyExists(doc.Name)
		}
		delete(p.byName, existing.Name)
		p.byName[doc.Name] = doc.ID
	}

	doc.Version = existing.Version + 1
	p.byID[doc.ID] = doc
	return nil
}

// HasTag reports whether any document in the portfolio carries tag.
func (p *Portfolio) HasTag(tag string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, d := range p.byID {
		for _, t := range d.Tags {
			if t == tag {
				return true
			}
		}
	}
	return false
}

// Remove deletes a document by id.
func (p *Portfolio) Remove(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, ok := p.byID[id]
	if !ok {
		return secwerrors.DocumentDoesNotExist(id)
	}
	delete(p.byID, id)
	delete(p.byName, doc.Name)
	return nil
}

// GetByID returns the document with the given id.
func (p *Portfolio) GetByID(id string) (*document.Document, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	doc, ok := p.byID[id]
	if !ok {
		return nil, secwerrors.DocumentDoesNotExist(id)
	}
	return doc, nil
}

// GetByName returns the document with the given name.
func (p *Portfolio) GetByName(name string) (*document.Document, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byName[name]
	if !ok {
		return nil, secwerrors.NameDoesNotExist(name)
	}
	return p.byID[id], nil
}

// List returns every document in the portfolio, in no particular order.
func (p *Portfolio) List() []*document.Document {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*document.Document, 0, len(p.byID))
	for _, d := range p.byID {
		out = append(out, d)
	}
	return out
}
