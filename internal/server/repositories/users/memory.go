package users

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps credentials in process memory. The email index is
// checked and written under the same lock, so duplicates cannot race in.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]models.Credential
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]models.Credential),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, c *models.Credential) (*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[c.Email]; taken {
		return nil, common.ErrEmailTaken
	}

	stored := *c
	stored.ID = uuid.NewString()
	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID

	return &stored, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := r.byID[id]
	return &c, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, upd models.CredentialUpdate) (*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}

	if upd.Email != nil && *upd.Email != c.Email {
		if _, taken := r.byEmail[*upd.Email]; taken {
			return nil, common.ErrEmailTaken
		}
		delete(r.byEmail, c.Email)
		c.Email = *upd.Email
		r.byEmail[c.Email] = id
	}
	if upd.PasswordHash != nil {
		c.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		c.Role = *upd.Role
	}

	r.byID[id] = c
	return &c, nil
}

func (r *MemoryRepository) DeleteByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	delete(r.byID, id)
	delete(r.byEmail, c.Email)
	return true, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Credential, 0, len(r.byID))
	for _, c := range r.byID {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}
