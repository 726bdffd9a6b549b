package session

import (
	"sync"

	"github.com/cobasjano/JC-sistema-sub001/internal/application/offline"
)

// Holder keeps the operator logged in on the terminal.
type Holder struct {
	mu   sync.RWMutex
	user *offline.SessionUser
}

var _ offline.SessionProvider = (*Holder)(nil)

// NewHolder starts with user logged in, or logged out when user has no id.
func NewHolder(user offline.SessionUser) *Holder {
	h := &Holder{}
	if user.UserID != "" {
		h.Login(user)
	}
	return h
}

func (h *Holder) Current() (offline.SessionUser, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.user == nil {
		return offline.SessionUser{}, false
	}
	return *h.user, true
}

func (h *Holder) Login(user offline.SessionUser) {
	h.mu.Lock()
	h.user = &user
	h.mu.Unlock()
}

func (h *Holder) Logout() {
	h.mu.Lock()
	h.user = nil
	h.mu.Unlock()
}
