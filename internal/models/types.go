package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

// Account is a registered feed subscriber and the addresses it has been given.
type Account struct {
	Name         string
	PasswordHash string
	Salt         [16]byte

	addresses map[string]struct{}
}

// NewAccount returns an account with an empty address set.
func NewAccount(name, passwordHash string, salt [16]byte) *Account {
	return &Account{
		Name:         name,
		PasswordHash: passwordHash,
		Salt:         salt,
		addresses:    make(map[string]struct{}),
	}
}

// AddAddress inserts addr into the account's address set and returns the
// resident copy. The second result is false when addr was already owned.
func (a *Account) AddAddress(addr string) (string, bool) {
	if a.addresses == nil {
		a.addresses = make(map[string]struct{})
	}
	if _, ok := a.addresses[addr]; ok {
		return addr, false
	}
	a.addresses[addr] = struct{}{}
	return addr, true
}

// Addresses returns the owned addresses in sorted order.
func (a *Account) Addresses() []string {
	out := make([]string, 0, len(a.addresses))
	for addr := range a.addresses {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

type accountJSON struct {
	Name         string   `json:"name"`
	Addresses    []string `json:"addresses"`
	PasswordHash string   `json:"password_hash"`
	Salt         []byte   `json:"salt"`
}

func (a *Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{
		Name:         a.Name,
		Addresses:    a.Addresses(),
		PasswordHash: a.PasswordHash,
		Salt:         a.Salt[:],
	})
}

func (a *Account) UnmarshalJSON(data []byte) error {
	var raw accountJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Name = raw.Name
	a.PasswordHash = raw.PasswordHash
	copy(a.Salt[:], raw.Salt)
	a.addresses = make(map[string]struct{}, len(raw.Addresses))
	for _, addr := range raw.Addresses {
		a.addresses[addr] = struct{}{}
	}
	return nil
}

// UTXO is an unspent output reported by the wallet node.
type UTXO struct {
	TxID   string
	Vout   uint32
	Amount btcutil.Amount
}

// SettlementEvent describes the outcome of one sweep cycle.
type SettlementEvent struct {
	Cycle       uint64         `json:"cycle"`
	Outcome     string         `json:"outcome"`
	Stage       string         `json:"stage,omitempty"`
	Inputs      int            `json:"inputs"`
	Total       btcutil.Amount `json:"total_sat"`
	Fee         btcutil.Amount `json:"fee_sat"`
	Destination string         `json:"destination"`
	TxID        string         `json:"txid,omitempty"`
	Error       string         `json:"error,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
