package engine

import (
	"context"
	"fmt"

	"memepad-engine/internal/domain"
	"memepad-engine/internal/storage"
)

// Service is the per-chain management surface: memepad lifecycle plus
// purchase control.
type Service interface {
	CreateMemePad(ctx context.Context, name string, s domain.Settings) error
	GetMemePad(ctx context.Context, name string) (*domain.MemePad, error)
	UpdateSettings(ctx context.Context, name string, s domain.Settings) error
	DeleteMemePad(ctx context.Context, name string) error
	ListMemePadNames(ctx context.Context) ([]string, error)
	StartPurchase(ctx context.Context, name string) error
	StopPurchase(ctx context.Context, name string) error
}

// solanaService implements Service for the Solana chain.
type solanaService struct {
	chain    domain.Chain
	engine   *Engine
	memePads storage.MemePadStore
	groups   storage.GroupStore
}

var _ Service = (*solanaService)(nil)

// NewSolanaService wires the Solana engine into the Service surface.
func NewSolanaService(engine *Engine, memePads storage.MemePadStore, groups storage.GroupStore) Service {
	return &solanaService{
		chain:    domain.ChainSolana,
		engine:   engine,
		memePads: memePads,
		groups:   groups,
	}
}

func (s *solanaService) CreateMemePad(ctx context.Context, name string, settings domain.Settings) error {
	if name == "" {
		return fmt.Errorf("%w: memepad name is empty", storage.ErrInvalidInput)
	}
	if err := s.validateSettings(ctx, settings); err != nil {
		return err
	}

	settings.PurchaseActive = false
	return s.memePads.Create(ctx, &domain.MemePad{
		Name:     name,
		Chain:    s.chain,
		Settings: settings,
	})
}

func (s *solanaService) GetMemePad(ctx context.Context, name string) (*domain.MemePad, error) {
	return s.memePads.Get(ctx, s.chain, name)
}

func (s *solanaService) UpdateSettings(ctx context.Context, name string, settings domain.Settings) error {
	m, err := s.memePads.Get(ctx, s.chain, name)
	if err != nil {
		return err
	}
	if m.Settings.PurchaseActive {
		return fmt.Errorf("memepad %s is purchasing, stop it before editing", name)
	}
	if err := s.validateSettings(ctx, settings); err != nil {
		return err
	}

	settings.PurchaseActive = false
	return s.memePads.UpdateSettings(ctx, s.chain, name, settings)
}

func (s *solanaService) DeleteMemePad(ctx context.Context, name string) error {
	m, err := s.memePads.Get(ctx, s.chain, name)
	if err != nil {
		return err
	}
	if m.Settings.PurchaseActive {
		return fmt.Errorf("memepad %s is purchasing, stop it before deleting", name)
	}
	return s.memePads.Delete(ctx, s.chain, name)
}

func (s *solanaService) ListMemePadNames(ctx context.Context) ([]string, error) {
	return s.memePads.ListNames(ctx, s.chain)
}

func (s *solanaService) StartPurchase(ctx context.Context, name string) error {
	return s.engine.StartPurchase(ctx, name)
}

func (s *solanaService) StopPurchase(ctx context.Context, name string) error {
	return s.engine.StopPurchase(ctx, name)
}

// validateSettings checks the cross-field rules a memepad must satisfy
// before it can ever be activated.
func (s *solanaService) validateSettings(ctx context.Context, settings domain.Settings) error {
	if len(settings.NamesToBuy) != len(settings.HardNames) {
		return fmt.Errorf("%w: %d names but %d match flags",
			storage.ErrInvalidInput, len(settings.NamesToBuy), len(settings.HardNames))
	}
	switch settings.BuyingType {
	case domain.BuyingTypeRange:
		if settings.BuyingRange == nil {
			return fmt.Errorf("%w: buying range not set", storage.ErrInvalidInput)
		}
		if settings.BuyingRange.Min < 0 || settings.BuyingRange.Max < settings.BuyingRange.Min {
			return fmt.Errorf("%w: invalid buying range", storage.ErrInvalidInput)
		}
	case domain.BuyingTypePercentage:
		if settings.BuyingPercentage <= 0 || settings.BuyingPercentage > 100 {
			return fmt.Errorf("%w: invalid buying percentage", storage.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown buying type %q", storage.ErrInvalidInput, settings.BuyingType)
	}

	if settings.WalletsListName == "" {
		return fmt.Errorf("%w: wallet group not set", storage.ErrInvalidInput)
	}
	exists, err := s.groups.Exists(ctx, s.chain, settings.WalletsListName)
	if err != nil {
		return fmt.Errorf("check wallet group: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: wallet group %s does not exist", storage.ErrInvalidInput, settings.WalletsListName)
	}
	return nil
}
