package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"feedgate/internal/interfaces"
	"feedgate/internal/models"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

var _ interfaces.Wallet = (*Client)(nil)

// Confirmation window passed to listunspent.
const (
	minConfirmations = 1
	maxConfirmations = 9999999
)

type listUnspentEntry struct {
	TxID   string  `json:"txid"`
	Vout   *uint32 `json:"vout"`
	Amount float64 `json:"amount"`
}

// ListUnspent returns the outputs of address with a strictly positive amount.
func (c *Client) ListUnspent(ctx context.Context, address string) ([]models.UTXO, error) {
	const method = "listunspent"
	if address == "" {
		return nil, fmt.Errorf("%w: %s: empty address", ErrInvalidArgument, method)
	}

	result, err := c.Call(ctx, method, []interface{}{minConfirmations, maxConfirmations, []string{address}})
	if err != nil {
		return nil, err
	}
	if !isJSONKind(result, '[') {
		return nil, protocolError(method, "expected array of utxos, got %s", preview(result))
	}

	var entries []listUnspentEntry
	if err := json.Unmarshal(result, &entries); err != nil {
		return nil, protocolError(method, "decode utxos: %v", err)
	}

	utxos := make([]models.UTXO, 0, len(entries))
	for _, e := range entries {
		if e.Amount <= 0 {
			continue
		}
		if e.Vout == nil {
			return nil, protocolError(method, "utxo %q has no vout", e.TxID)
		}
		txid, err := parseTxID(e.TxID)
		if err != nil {
			return nil, protocolError(method, "utxo txid: %v", err)
		}
		amount, err := btcutil.NewAmount(e.Amount)
		if err != nil {
			return nil, protocolError(method, "utxo %q amount: %v", e.TxID, err)
		}
		utxos = append(utxos, models.UTXO{TxID: txid, Vout: *e.Vout, Amount: amount})
	}

	return utxos, nil
}

// ListAddresses returns every address the wallet knows under the default
// label, sorted.
func (c *Client) ListAddresses(ctx context.Context) ([]string, error) {
	const method = "getaddressesbylabel"

	result, err := c.Call(ctx, method, []interface{}{""})
	if err != nil {
		return nil, err
	}
	if !isJSONKind(result, '{') {
		return nil, protocolError(method, "expected address object, got %s", preview(result))
	}

	var byAddress map[string]json.RawMessage
	if err := json.Unmarshal(result, &byAddress); err != nil {
		return nil, protocolError(method, "decode addresses: %v", err)
	}

	addresses := make([]string, 0, len(byAddress))
	for addr := range byAddress {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	return addresses, nil
}

// NewAddress asks the wallet to mint a receiving address.
func (c *Client) NewAddress(ctx context.Context) (string, error) {
	const method = "getnewaddress"

	result, err := c.Call(ctx, method, nil)
	if err != nil {
		return "", err
	}

	var addr string
	if err := json.Unmarshal(result, &addr); err != nil || addr == "" {
		return "", protocolError(method, "expected address string, got %s", preview(result))
	}

	return addr, nil
}

// AddressBalance sums the unspent outputs of address. No outputs is zero.
func (c *Client) AddressBalance(ctx context.Context, address string) (btcutil.Amount, error) {
	utxos, err := c.ListUnspent(ctx, address)
	if err != nil {
		return 0, err
	}

	var total btcutil.Amount
	for _, u := range utxos {
		total += u.Amount
	}
	return total, nil
}

type outpoint struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}

// CreateRawTransaction builds an unsigned transaction spending inputs into
// outputs and returns its hex encoding.
func (c *Client) CreateRawTransaction(ctx context.Context, inputs []models.UTXO, outputs map[string]btcutil.Amount) (string, error) {
	const method = "createrawtransaction"
	if len(inputs) == 0 {
		return "", fmt.Errorf("%w: %s: no inputs", ErrInvalidArgument, method)
	}
	if len(outputs) == 0 {
		return "", fmt.Errorf("%w: %s: no outputs", ErrInvalidArgument, method)
	}

	ins := make([]outpoint, len(inputs))
	for i, u := range inputs {
		ins[i] = outpoint{TxID: u.TxID, Vout: u.Vout}
	}

	addrs := make([]string, 0, len(outputs))
	for addr := range outputs {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	outs := make([]map[string]json.Number, 0, len(addrs))
	for _, addr := range addrs {
		outs = append(outs, map[string]json.Number{addr: FormatBTC(outputs[addr])})
	}

	result, err := c.Call(ctx, method, []interface{}{ins, outs})
	if err != nil {
		return "", err
	}

	var txHex string
	if err := json.Unmarshal(result, &txHex); err != nil || txHex == "" {
		return "", protocolError(method, "expected transaction hex, got %s", preview(result))
	}

	return txHex, nil
}

type signResult struct {
	Hex      *string `json:"hex"`
	Complete *bool   `json:"complete"`
	Errors   []struct {
		Error string `json:"error"`
	} `json:"errors"`
}

// SignTransaction signs txHex with the wallet's keys.
func (c *Client) SignTransaction(ctx context.Context, txHex string) (string, error) {
	const method = "signrawtransactionwithwallet"
	if txHex == "" {
		return "", fmt.Errorf("%w: %s: empty transaction", ErrInvalidArgument, method)
	}

	result, err := c.Call(ctx, method, []interface{}{txHex})
	if err != nil {
		return "", err
	}

	var signed signResult
	if err := json.Unmarshal(result, &signed); err != nil || signed.Hex == nil || *signed.Hex == "" {
		return "", protocolError(method, "expected result.hex, got %s", preview(result))
	}
	if signed.Complete != nil && !*signed.Complete {
		msg := "signature incomplete"
		if len(signed.Errors) > 0 && signed.Errors[0].Error != "" {
			msg = signed.Errors[0].Error
		}
		return "", &RemoteRejected{Method: method, Message: msg}
	}

	return *signed.Hex, nil
}

// SendRawTransaction broadcasts a signed transaction. The returned txid is
// empty when the node does not echo one.
func (c *Client) SendRawTransaction(ctx context.Context, signedHex string) (string, error) {
	const method = "sendrawtransaction"
	if signedHex == "" {
		return "", fmt.Errorf("%w: %s: empty transaction", ErrInvalidArgument, method)
	}

	result, err := c.Call(ctx, method, []interface{}{signedHex})
	if err != nil {
		return "", err
	}

	var txid string
	_ = json.Unmarshal(result, &txid)

	return txid, nil
}

// FormatBTC renders an amount as a JSON number with eight decimals.
func FormatBTC(a btcutil.Amount) json.Number {
	return json.Number(strconv.FormatFloat(a.ToBTC(), 'f', 8, 64))
}

// parseTxID accepts only full 64-character hex txids. chainhash alone
// zero-pads short input.
func parseTxID(s string) (string, error) {
	if len(s) != chainhash.MaxHashStringSize {
		return "", fmt.Errorf("%q is not a %d-character hash", s, chainhash.MaxHashStringSize)
	}
	hash, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func isJSONKind(raw json.RawMessage, open byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == open
}

func preview(raw json.RawMessage) string {
	const limit = 120
	if len(raw) == 0 {
		return "nothing"
	}
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
