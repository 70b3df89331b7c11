// Package walletsvc manages wallet groups: importing keys, listing
// balances, and streaming balance updates to UI clients.
package walletsvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"memepad-engine/internal/broadcast"
	"memepad-engine/internal/crypt"
	"memepad-engine/internal/domain"
	"memepad-engine/internal/solana"
	"memepad-engine/internal/storage"
)

// DefaultPollInterval is how often tracked balances are refreshed.
const DefaultPollInterval = 10 * time.Second

// lamportsPerSol is the lamport denomination of one SOL.
const lamportsPerSol = 1e9

// BalanceReader reads wallet balances.
type BalanceReader interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// Broadcaster pushes updates to UI clients.
type Broadcaster interface {
	Broadcast(v any)
}

// Balance pairs a wallet with its SOL balance.
type Balance struct {
	Wallet  string  `json:"wallet"`
	Balance float64 `json:"balance"`
}

// Service manages wallet groups for one chain. Keys are encrypted
// before they touch storage and never leave it decrypted.
type Service struct {
	chain    domain.Chain
	wallets  storage.WalletStore
	groups   storage.GroupStore
	cipher   *crypt.Cipher
	reader   BalanceReader
	hub      Broadcaster
	log      *logrus.Entry
	interval time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures Service.
type Option func(*Service)

// WithPollInterval sets the balance polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		s.interval = d
	}
}

// NewService creates a wallet service.
func NewService(
	chain domain.Chain,
	wallets storage.WalletStore,
	groups storage.GroupStore,
	cipher *crypt.Cipher,
	reader BalanceReader,
	hub Broadcaster,
	log *logrus.Entry,
	opts ...Option,
) *Service {
	s := &Service{
		chain:    chain,
		wallets:  wallets,
		groups:   groups,
		cipher:   cipher,
		reader:   reader,
		hub:      hub,
		log:      log,
		interval: DefaultPollInterval,
		cancels:  make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGroup adds an empty wallet group.
func (s *Service) CreateGroup(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: group name is empty", storage.ErrInvalidInput)
	}
	return s.groups.Insert(ctx, &domain.Group{Name: name, Chain: s.chain})
}

// DeleteGroup removes a group and every wallet in it.
func (s *Service) DeleteGroup(ctx context.Context, name string) error {
	wallets, err := s.wallets.ListByGroup(ctx, s.chain, name)
	if err != nil {
		return fmt.Errorf("list group wallets: %w", err)
	}
	for _, w := range wallets {
		if err := s.wallets.Delete(ctx, s.chain, w.Address, name); err != nil &&
			!errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete wallet %s: %w", w.Address, err)
		}
	}
	return s.groups.Delete(ctx, s.chain, name)
}

// ListGroups returns all group names.
func (s *Service) ListGroups(ctx context.Context) ([]string, error) {
	return s.groups.ListNames(ctx, s.chain)
}

// AddWallet imports a base58 secret key into a group. The address is
// derived from the key; the key is stored encrypted.
func (s *Service) AddWallet(ctx context.Context, group, secretKey string) (string, error) {
	exists, err := s.groups.Exists(ctx, s.chain, group)
	if err != nil {
		return "", fmt.Errorf("check group: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("%w: group %s does not exist", storage.ErrInvalidInput, group)
	}

	keypair, err := solana.KeypairFromBase58(secretKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	encrypted, err := s.cipher.Encrypt(secretKey)
	if err != nil {
		return "", fmt.Errorf("encrypt secret key: %w", err)
	}

	wallet := &domain.Wallet{
		Address:    keypair.Address(),
		PrivateKey: encrypted,
		Group:      group,
		Chain:      s.chain,
	}
	if err := s.wallets.Insert(ctx, wallet); err != nil {
		return "", err
	}
	if err := s.groups.AdjustCount(ctx, s.chain, group, 1); err != nil {
		s.log.WithError(err).Warn("adjust group count")
	}
	return wallet.Address, nil
}

// RemoveWallet deletes a wallet from a group.
func (s *Service) RemoveWallet(ctx context.Context, group, address string) error {
	if err := s.wallets.Delete(ctx, s.chain, address, group); err != nil {
		return err
	}
	if err := s.groups.AdjustCount(ctx, s.chain, group, -1); err != nil {
		s.log.WithError(err).Warn("adjust group count")
	}
	return nil
}

// ListWallets returns a group's wallets in insertion order.
func (s *Service) ListWallets(ctx context.Context, group string) ([]*domain.Wallet, error) {
	return s.wallets.ListByGroup(ctx, s.chain, group)
}

// Balances reads the current SOL balance of every wallet in a group.
func (s *Service) Balances(ctx context.Context, group string) ([]Balance, error) {
	wallets, err := s.wallets.ListByGroup(ctx, s.chain, group)
	if err != nil {
		return nil, err
	}

	balances := make([]Balance, 0, len(wallets))
	for _, w := range wallets {
		lamports, err := s.reader.GetBalance(ctx, w.Address)
		if err != nil {
			s.log.WithError(err).WithField("wallet", w.Address).Warn("balance unavailable")
			continue
		}
		balances = append(balances, Balance{
			Wallet:  w.Address,
			Balance: float64(lamports) / lamportsPerSol,
		})
	}
	return balances, nil
}

// StartTrackingBalances polls a group's balances and broadcasts each
// as a balance update until stopped.
func (s *Service) StartTrackingBalances(group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cancels[group]; exists {
		return fmt.Errorf("group %s balances are already tracked", group)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancels[group] = cancel

	s.wg.Add(1)
	go s.pollBalances(ctx, group)
	return nil
}

// StopTrackingBalances stops the group's polling loop.
func (s *Service) StopTrackingBalances(group string) error {
	s.mu.Lock()
	cancel, exists := s.cancels[group]
	delete(s.cancels, group)
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("group %s balances are not tracked", group)
	}
	cancel()
	return nil
}

// Close stops every polling loop and waits for them.
func (s *Service) Close() {
	s.mu.Lock()
	for group, cancel := range s.cancels {
		cancel()
		delete(s.cancels, group)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) pollBalances(ctx context.Context, group string) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.broadcastBalances(ctx, group)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcastBalances(ctx, group)
		}
	}
}

func (s *Service) broadcastBalances(ctx context.Context, group string) {
	balances, err := s.Balances(ctx, group)
	if err != nil {
		s.log.WithError(err).WithField("group", group).Warn("balance poll failed")
		return
	}
	for _, b := range balances {
		s.hub.Broadcast(broadcast.NewBalanceUpdate(b.Wallet, b.Balance))
	}
}
