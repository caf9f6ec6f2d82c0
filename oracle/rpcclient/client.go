// Package rpcclient is a minimal Solana JSON-RPC client used by the oracle
// adapters to fetch raw account bytes. It speaks only the one method the
// adapters need (getAccountInfo, base64 encoding) rather than wrapping a
// full SDK, in the same spirit as the teacher's hand-rolled exchange HTTP
// clients (explicit http.Client timeout, zerolog sub-logger). A failed
// request is not retried, here or by the aggregator's fan-out.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kujira-labs/oracle-backend/oracle/types"
)

const defaultTimeout = 5 * time.Second

// Client is a thin JSON-RPC 2.0 client bound to a single Solana cluster
// endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   zerolog.Logger
}

func New(endpoint string, logger zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.With().Str("component", "rpcclient").Logger(),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type accountInfoValue struct {
	Data       []string `json:"data"`
	Owner      string   `json:"owner"`
	Lamports   uint64   `json:"lamports"`
	Executable bool     `json:"executable"`
}

type accountInfoResult struct {
	Value *accountInfoValue `json:"value"`
}

type rpcResponse struct {
	Result *accountInfoResult `json:"result"`
	Error  *rpcError          `json:"error"`
}

// GetAccountData fetches and base64-decodes the raw bytes backing a Solana
// account. Returns types.ErrNoCurrentValue when the account does not exist.
func (c *Client) GetAccountData(ctx context.Context, address string) ([]byte, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getAccountInfo",
		Params: []any{
			address,
			map[string]string{"encoding": "base64"},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", types.ErrRpcFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", types.ErrRpcFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRpcFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", types.ErrRpcFailure, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", types.ErrRpcFailure, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrRpcFailure, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil || rpcResp.Result.Value == nil {
		return nil, types.ErrNoCurrentValue
	}
	if len(rpcResp.Result.Value.Data) == 0 {
		return nil, types.ErrNoCurrentValue
	}

	raw, err := base64.StdEncoding.DecodeString(rpcResp.Result.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode: %v", types.ErrDecodeFailure, err)
	}

	return raw, nil
}
