package engine

import (
	"context"
	"fmt"
	"sync"

	"memepad-engine/internal/domain"
)

// ErrChainNotSupported is returned for chains without a working engine.
var ErrChainNotSupported = fmt.Errorf("chain not supported")

// Registry maps chains to their Service. Replaces any global per-chain
// singletons: callers resolve the chain explicitly.
type Registry struct {
	mu       sync.RWMutex
	services map[domain.Chain]Service
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[domain.Chain]Service)}
}

// Register installs a chain's service.
func (r *Registry) Register(chain domain.Chain, s Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[chain] = s
}

// Get resolves the service for a chain.
func (r *Registry) Get(chain domain.Chain) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.services[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotSupported, chain)
	}
	return s, nil
}

// Chains returns the registered chains.
func (r *Registry) Chains() []domain.Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chains := make([]domain.Chain, 0, len(r.services))
	for c := range r.services {
		chains = append(chains, c)
	}
	return chains
}

// unsupportedService rejects every operation. Registered for chains
// the engine knows about but cannot trade on yet.
type unsupportedService struct {
	chain domain.Chain
}

var _ Service = (*unsupportedService)(nil)

// NewUnsupportedService creates a placeholder service for a chain.
func NewUnsupportedService(chain domain.Chain) Service {
	return &unsupportedService{chain: chain}
}

func (u *unsupportedService) err() error {
	return fmt.Errorf("%w: %s", ErrChainNotSupported, u.chain)
}

func (u *unsupportedService) CreateMemePad(context.Context, string, domain.Settings) error {
	return u.err()
}

func (u *unsupportedService) GetMemePad(context.Context, string) (*domain.MemePad, error) {
	return nil, u.err()
}

func (u *unsupportedService) UpdateSettings(context.Context, string, domain.Settings) error {
	return u.err()
}

func (u *unsupportedService) DeleteMemePad(context.Context, string) error {
	return u.err()
}

func (u *unsupportedService) ListMemePadNames(context.Context) ([]string, error) {
	return nil, u.err()
}

func (u *unsupportedService) StartPurchase(context.Context, string) error {
	return u.err()
}

func (u *unsupportedService) StopPurchase(context.Context, string) error {
	return u.err()
}
