package interfaces

import (
	"context"

	"feedgate/internal/models"

	"github.com/btcsuite/btcd/btcutil"
)

// BalanceSource reports the spendable amount held by one address.
type BalanceSource interface {
	AddressBalance(ctx context.Context, address string) (btcutil.Amount, error)
}

// AddressMinter mints new receiving addresses.
type AddressMinter interface {
	NewAddress(ctx context.Context) (string, error)
}

// SettlementWallet is the slice of the wallet node the sweeper drives.
type SettlementWallet interface {
	ListAddresses(ctx context.Context) ([]string, error)
	ListUnspent(ctx context.Context, address string) ([]models.UTXO, error)
	CreateRawTransaction(ctx context.Context, inputs []models.UTXO, outputs map[string]btcutil.Amount) (string, error)
	SignTransaction(ctx context.Context, txHex string) (string, error)
	SendRawTransaction(ctx context.Context, signedHex string) (string, error)
}

// Wallet is the full wallet node surface.
type Wallet interface {
	BalanceSource
	AddressMinter
	SettlementWallet
}

// Store is an opaque keyed blob store.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
	Contains(ctx context.Context, key []byte) (bool, error)
	Remove(ctx context.Context, key []byte) error
	Close() error
}
