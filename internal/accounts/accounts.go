// Package accounts manages feed subscribers: registration, login, address
// provisioning and the monthly payment check.
package accounts

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"feedgate/internal/interfaces"
	"feedgate/internal/models"
	"feedgate/internal/payments"
	"feedgate/internal/store"
	"feedgate/internal/validation"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/argon2"
)

var (
	ErrAccountExists      = errors.New("accounts: account already exists")
	ErrAccountNotFound    = errors.New("accounts: account not found")
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")
)

// HashParams are the argon2id cost settings.
type HashParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultHashParams is used when Options.Hash is zero.
var DefaultHashParams = HashParams{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
}

// Wallet is what the service needs from the wallet node.
type Wallet interface {
	interfaces.AddressMinter
	interfaces.BalanceSource
}

type Options struct {
	Store  interfaces.Store
	Wallet Wallet
	Gate   payments.Gate
	// Network, when set, is used to check every minted address.
	Network *chaincfg.Params
	Hash    HashParams
	Logger  *zerolog.Logger
}

// Overview is an account's addresses and aggregated balance.
type Overview struct {
	Name                string         `json:"name"`
	Addresses           []string       `json:"addresses"`
	Balance             btcutil.Amount `json:"balance_sat"`
	BalanceInsufficient bool           `json:"balance_insufficient"`
}

// Service is safe for concurrent use. Updates to one account are
// serialized so concurrent provisioning never loses an address.
type Service struct {
	store   interfaces.Store
	wallet  Wallet
	gate    payments.Gate
	network *chaincfg.Params
	hash    HashParams
	logger  *zerolog.Logger

	mu sync.Mutex
}

func NewService(opts Options) *Service {
	hash := opts.Hash
	if hash == (HashParams{}) {
		hash = DefaultHashParams
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Service{
		store:   opts.Store,
		wallet:  opts.Wallet,
		gate:    opts.Gate,
		network: opts.Network,
		hash:    hash,
		logger:  logger,
	}
}

// Register creates an account, gives it its first address and persists it.
// Nothing is stored if provisioning fails.
func (s *Service) Register(ctx context.Context, name, password string) (*models.Account, error) {
	if err := validation.ValidateAccountName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("accounts: generate salt: %w", err)
	}
	account := models.NewAccount(name, s.hashPassword(password, salt), salt)

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.store.Contains(ctx, key(name))
	if err != nil {
		return nil, fmt.Errorf("accounts: lookup %q: %w", name, err)
	}
	if exists {
		return nil, ErrAccountExists
	}

	addr, err := s.provision(ctx, account)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("account", name).
		Str("address", addr).
		Msg("Registered account")

	return account, nil
}

// Login returns the account when password matches.
func (s *Service) Login(ctx context.Context, name, password string) (*models.Account, error) {
	account, err := s.load(ctx, name)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	computed := s.hashPassword(password, account.Salt)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(account.PasswordHash)) != 1 {
		s.logger.Warn().Str("account", name).Msg("Failed login")
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// Overview aggregates the balance of every address the account owns.
func (s *Service) Overview(ctx context.Context, name string) (*Overview, error) {
	account, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}

	addrs := account.Addresses()
	balance, err := payments.AggregateBalance(ctx, s.wallet, addrs)
	if err != nil {
		return nil, fmt.Errorf("accounts: balance of %q: %w", name, err)
	}

	return &Overview{
		Name:                account.Name,
		Addresses:           addrs,
		Balance:             balance,
		BalanceInsufficient: !s.gate.IsEntitled(account, balance),
	}, nil
}

// NewAddress provisions another address for an existing account.
func (s *Service) NewAddress(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.load(ctx, name)
	if err != nil {
		return "", err
	}

	addr, err := s.provision(ctx, account)
	if err != nil {
		return "", err
	}
	if err := s.save(ctx, account); err != nil {
		return "", err
	}

	s.logger.Info().
		Str("account", name).
		Str("address", addr).
		Msg("Provisioned address")

	return addr, nil
}

// HasPaidForMonth reports whether the account may read the feed.
func (s *Service) HasPaidForMonth(ctx context.Context, name string) (bool, error) {
	overview, err := s.Overview(ctx, name)
	if err != nil {
		return false, err
	}
	return !overview.BalanceInsufficient, nil
}

func (s *Service) provision(ctx context.Context, account *models.Account) (string, error) {
	addr, err := payments.ProvisionAddress(ctx, s.wallet, account)
	if err != nil {
		return "", err
	}
	if s.network != nil {
		if err := validation.ValidateAddress(addr, s.network); err != nil {
			return "", fmt.Errorf("accounts: wallet minted unusable address: %w", err)
		}
	}
	return addr, nil
}

func (s *Service) load(ctx context.Context, name string) (*models.Account, error) {
	if name == "" {
		return nil, ErrAccountNotFound
	}

	data, err := s.store.Get(ctx, key(name))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: load %q: %w", name, err)
	}

	var account models.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("accounts: decode %q: %w", name, err)
	}
	return &account, nil
}

func (s *Service) save(ctx context.Context, account *models.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("accounts: encode %q: %w", account.Name, err)
	}
	if err := s.store.Put(ctx, key(account.Name), data); err != nil {
		return fmt.Errorf("accounts: save %q: %w", account.Name, err)
	}
	return nil
}

func (s *Service) hashPassword(password string, salt [16]byte) string {
	derived := argon2.IDKey([]byte(password), salt[:], s.hash.Time, s.hash.Memory, s.hash.Threads, s.hash.KeyLen)
	return hex.EncodeToString(derived)
}

func key(name string) []byte {
	return []byte("account/" + name)
}
