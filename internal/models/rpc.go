package models

import "encoding/json"

// RPCRequest is a bitcoind JSON-RPC 1.0 request body.
type RPCRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// RPCResponse is a bitcoind JSON-RPC 1.0 response body. Error is kept raw
// because some nodes answer with a bare string instead of {code, message}.
type RPCResponse struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// RPCError is the structured error object of a bitcoind response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
