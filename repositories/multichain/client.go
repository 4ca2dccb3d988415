package multichain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/faults"

	"github.com/Jeffail/gabs"
	"github.com/cenkalti/backoff"
	"github.com/labstack/gommon/log"
)

// MultiChain JSON-RPC error codes
const (
	rpcNotSubscribed  = -703
	rpcDuplicateName  = -705
	rpcEntityNotFound = -708
)

type (
	Client struct {
		Url        string
		Chain      string
		Username   string
		Password   string
		MaxRetries uint64
		Debug      bool

		HttpClient *http.Client
		// BackOff builds the retry schedule of a single call.
		BackOff func() backoff.BackOff

		id int64
	}

	rpcRequest struct {
		Method    string        `json:"method"`
		Params    []interface{} `json:"params"`
		Id        int64         `json:"id"`
		ChainName string        `json:"chain_name,omitempty"`
	}

	RpcError struct {
		Code    int
		Message string
	}
)

func (e *RpcError) Error() string {
	return fmt.Sprintf("multichain rpc error %d: %s", e.Code, e.Message)
}

func NewClient(cfg *models.Config) *Client {
	return &Client{
		Url:        cfg.MultiChain.Url,
		Chain:      cfg.MultiChain.Chain,
		Username:   cfg.MultiChain.Username,
		Password:   cfg.MultiChain.Password,
		MaxRetries: cfg.MultiChain.MaxRetries,
		Debug:      cfg.Debug,
		HttpClient: &http.Client{Timeout: 30 * time.Second},
		BackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// call invokes method and returns the "result" member of the response.
// Network failures and 5xx responses without an RPC error body are
// retried; everything else fails immediately.
func (c *Client) call(ctx context.Context, method string, params ...interface{}) (*gabs.Container, error) {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(rpcRequest{
		Method:    method,
		Params:    params,
		Id:        atomic.AddInt64(&c.id, 1),
		ChainName: c.Chain,
	})
	if err != nil {
		return nil, err
	}

	if c.Debug {
		log.Debugf("multichain %s", payload)
	}

	var result *gabs.Container
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.Username != "" {
			req.SetBasicAuth(c.Username, c.Password)
		}

		res, err := c.HttpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%w: %v", faults.ErrLedgerUnavailable, err)
		}
		defer res.Body.Close()

		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			return backoff.Permanent(fmt.Errorf("%w: %s returned %d", faults.ErrLedgerRejected, method, res.StatusCode))
		}

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("%w: %v", faults.ErrLedgerUnavailable, err)
		}

		parsed, err := gabs.ParseJSON(body)
		if err != nil {
			if res.StatusCode >= 500 {
				return fmt.Errorf("%w: %s returned %d", faults.ErrLedgerUnavailable, method, res.StatusCode)
			}
			return backoff.Permanent(fmt.Errorf("%w: %v", faults.ErrMalformedResponse, err))
		}

		// multichain answers rpc errors with a 500 and an error body
		if rpcErr := parsed.Path("error"); rpcErr.Data() != nil {
			code, _ := rpcErr.Path("code").Data().(float64)
			message, _ := rpcErr.Path("message").Data().(string)
			return backoff.Permanent(&RpcError{Code: int(code), Message: message})
		}
		if res.StatusCode >= 500 {
			return fmt.Errorf("%w: %s returned %d", faults.ErrLedgerUnavailable, method, res.StatusCode)
		}

		result = parsed.Path("result")
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.BackOff(), c.MaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return result, nil
}

func rpcCode(err error) int {
	var rpcErr *RpcError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}

// mapError converts an rpc failure into a ledger fault.
func mapError(err error, action string) error {
	var rpcErr *RpcError
	if errors.As(err, &rpcErr) {
		if rpcErr.Code == rpcEntityNotFound {
			return fmt.Errorf("%w: %s: %s", faults.ErrStreamNotFound, action, rpcErr.Message)
		}
		return fmt.Errorf("%w: %s: %v", faults.ErrLedgerRejected, action, rpcErr)
	}
	if faults.IsErrInvalid(err) || faults.IsErrTransient(err) || faults.IsErrMalformed(err) || faults.IsErrNotFound(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", faults.ErrLedgerUnavailable, action, err)
}
