package rpc

import (
	"context"
	"strings"
	"testing"

	"feedgate/internal/models"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	txA = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	txB = "0e3e2357e806b6cdb1f70b54c3a3a17b6714ee1f0e68bebb44a74b1efd512098"
	txC = "9b0fc92260312ce44e74ef369f5c66bbb85848f2eddd5a7a1cde251e54ccfdd5"
)

func TestListUnspent(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"listunspent": func(params []interface{}) (interface{}, interface{}) {
			require.Len(t, params, 3)
			assert.Equal(t, float64(1), params[0])
			assert.Equal(t, float64(9999999), params[1])
			addrs, ok := params[2].([]interface{})
			require.True(t, ok)
			assert.Equal(t, []interface{}{"addrA"}, addrs)

			return []map[string]interface{}{
				{"txid": txA, "vout": 0, "amount": 0.0001},
				{"txid": txB, "vout": 1, "amount": 0.0002},
				{"txid": txC, "vout": 2, "amount": 0},
			}, nil
		},
	})
	defer server.Close()

	utxos, err := newTestClient(server.URL).ListUnspent(context.Background(), "addrA")
	require.NoError(t, err)
	assert.Equal(t, []models.UTXO{
		{TxID: txA, Vout: 0, Amount: 10000},
		{TxID: txB, Vout: 1, Amount: 20000},
	}, utxos)
}

func TestListUnspentRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name   string
		result interface{}
	}{
		{"null result", nil},
		{"object result", map[string]interface{}{"txid": "tx1"}},
		{"missing vout", []map[string]interface{}{{"txid": txA, "amount": 0.1}}},
		{"empty txid", []map[string]interface{}{{"txid": "", "vout": 0, "amount": 0.5}}},
		{"missing txid", []map[string]interface{}{{"vout": 0, "amount": 0.5}}},
		{"short txid", []map[string]interface{}{{"txid": "tx1", "vout": 0, "amount": 0.5}}},
		{"non-hex txid", []map[string]interface{}{{"txid": strings.Repeat("zz", 32), "vout": 0, "amount": 0.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := rpcTestServer(t, map[string]rpcHandler{
				"listunspent": func([]interface{}) (interface{}, interface{}) { return tt.result, nil },
			})
			defer server.Close()

			_, err := newTestClient(server.URL).ListUnspent(context.Background(), "addrA")
			assert.ErrorIs(t, err, ErrProtocol)
		})
	}
}

func TestListUnspentEmptyAddress(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	_, err := client.ListUnspent(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAddressBalance(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"listunspent": func(params []interface{}) (interface{}, interface{}) {
			if params[2].([]interface{})[0] == "empty" {
				return []interface{}{}, nil
			}
			return []map[string]interface{}{
				{"txid": txA, "vout": 0, "amount": 0.0001},
				{"txid": txB, "vout": 1, "amount": 0.0002},
			}, nil
		},
	})
	defer server.Close()

	client := newTestClient(server.URL)

	balance, err := client.AddressBalance(context.Background(), "addrA")
	require.NoError(t, err)
	assert.Equal(t, btcutil.Amount(30000), balance)
	assert.Equal(t, 0.0003, balance.ToBTC())

	balance, err = client.AddressBalance(context.Background(), "empty")
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestListAddresses(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"getaddressesbylabel": func(params []interface{}) (interface{}, interface{}) {
			assert.Equal(t, []interface{}{""}, params)
			return map[string]interface{}{
				"addrC": map[string]string{"purpose": "receive"},
				"addrA": map[string]string{"purpose": "receive"},
				"addrB": map[string]string{"purpose": "receive"},
			}, nil
		},
	})
	defer server.Close()

	addrs, err := newTestClient(server.URL).ListAddresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"addrA", "addrB", "addrC"}, addrs)
}

func TestListAddressesRejectsArray(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"getaddressesbylabel": func([]interface{}) (interface{}, interface{}) {
			return []string{"addrA"}, nil
		},
	})
	defer server.Close()

	_, err := newTestClient(server.URL).ListAddresses(context.Background())
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestNewAddress(t *testing.T) {
	tests := []struct {
		name    string
		result  interface{}
		rpcErr  interface{}
		want    string
		wantErr error
	}{
		{"minted", "bc1qexample", nil, "bc1qexample", nil},
		{"error string", nil, "wallet locked", "", ErrRejected},
		{"error object", nil, map[string]interface{}{"code": -12, "message": "keypool ran out"}, "", ErrRejected},
		{"neither", 42, nil, "", ErrProtocol},
		{"null", nil, nil, "", ErrProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := rpcTestServer(t, map[string]rpcHandler{
				"getnewaddress": func(params []interface{}) (interface{}, interface{}) {
					assert.Empty(t, params)
					return tt.result, tt.rpcErr
				},
			})
			defer server.Close()

			addr, err := newTestClient(server.URL).NewAddress(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, addr)
		})
	}
}

func TestCreateRawTransaction(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"createrawtransaction": func(params []interface{}) (interface{}, interface{}) {
			require.Len(t, params, 2)
			assert.Equal(t, []interface{}{
				map[string]interface{}{"txid": "tx1", "vout": float64(0)},
				map[string]interface{}{"txid": "tx2", "vout": float64(3)},
			}, params[0])
			assert.Equal(t, []interface{}{
				map[string]interface{}{"dest": 0.009925},
			}, params[1])
			return "0200abcd", nil
		},
	})
	defer server.Close()

	inputs := []models.UTXO{{TxID: "tx1", Vout: 0, Amount: 500000}, {TxID: "tx2", Vout: 3, Amount: 500000}}
	txHex, err := newTestClient(server.URL).CreateRawTransaction(context.Background(), inputs,
		map[string]btcutil.Amount{"dest": 992500})
	require.NoError(t, err)
	assert.Equal(t, "0200abcd", txHex)
}

func TestCreateRawTransactionErrors(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	_, err := client.CreateRawTransaction(context.Background(), nil, map[string]btcutil.Amount{"dest": 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	server := rpcTestServer(t, map[string]rpcHandler{
		"createrawtransaction": func([]interface{}) (interface{}, interface{}) {
			return nil, map[string]interface{}{"code": -8, "message": "Invalid amount"}
		},
	})
	defer server.Close()

	_, err = newTestClient(server.URL).CreateRawTransaction(context.Background(),
		[]models.UTXO{{TxID: "tx1", Amount: 1}}, map[string]btcutil.Amount{"dest": 1})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestSignTransaction(t *testing.T) {
	tests := []struct {
		name    string
		result  interface{}
		rpcErr  interface{}
		want    string
		wantErr error
	}{
		{"signed", map[string]interface{}{"hex": "signed00", "complete": true}, nil, "signed00", nil},
		{"signed without complete flag", map[string]interface{}{"hex": "signed01"}, nil, "signed01", nil},
		{"rejected", nil, "unknown input", "", ErrRejected},
		{"missing hex", map[string]interface{}{"complete": true}, nil, "", ErrProtocol},
		{"incomplete", map[string]interface{}{
			"hex": "partial", "complete": false,
			"errors": []map[string]string{{"error": "Input not found or already spent"}},
		}, nil, "", ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := rpcTestServer(t, map[string]rpcHandler{
				"signrawtransactionwithwallet": func(params []interface{}) (interface{}, interface{}) {
					assert.Equal(t, []interface{}{"raw00"}, params)
					return tt.result, tt.rpcErr
				},
			})
			defer server.Close()

			signed, err := newTestClient(server.URL).SignTransaction(context.Background(), "raw00")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, signed)
		})
	}
}

func TestSendRawTransaction(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"sendrawtransaction": func(params []interface{}) (interface{}, interface{}) {
			if params[0] == "bad" {
				return nil, map[string]interface{}{"code": -25, "message": "Missing inputs"}
			}
			return "c0ffee", nil
		},
	})
	defer server.Close()

	client := newTestClient(server.URL)

	txid, err := client.SendRawTransaction(context.Background(), "signed00")
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", txid)

	_, err = client.SendRawTransaction(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestSendRawTransactionWithoutTxID(t *testing.T) {
	server := rpcTestServer(t, map[string]rpcHandler{
		"sendrawtransaction": func([]interface{}) (interface{}, interface{}) { return nil, nil },
	})
	defer server.Close()

	txid, err := newTestClient(server.URL).SendRawTransaction(context.Background(), "signed00")
	require.NoError(t, err)
	assert.Empty(t, txid)
}

func TestFormatBTC(t *testing.T) {
	assert.Equal(t, "0.00992500", FormatBTC(992500).String())
	assert.Equal(t, "0.00020000", FormatBTC(20000).String())
	assert.Equal(t, "1.00000000", FormatBTC(btcutil.SatoshiPerBitcoin).String())
}
