package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"attesto/pkg/platform/sentinel"
)

// HTTPGateway talks to the anchor ledger's REST gateway. It implements
// Client, Directory, and Provisioner so one endpoint serves all three roles
// in production.
type HTTPGateway struct {
	baseURL string
	http    *http.Client
}

func NewHTTPGateway(endpoint string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		baseURL: endpoint,
		http:    &http.Client{Timeout: timeout},
	}
}

type anchorRequest struct {
	IdentityKey string `json:"identity_key"`
	RecordID    string `json:"record_id"`
	RecordHash  string `json:"record_hash,omitempty"`
}

type receiptResponse struct {
	TxID        string    `json:"tx_id"`
	CommittedAt time.Time `json:"committed_at"`
}

func (g *HTTPGateway) Anchor(ctx context.Context, identityKey, recordID, recordHash string) (Receipt, error) {
	return g.post(ctx, "/anchors", anchorRequest{
		IdentityKey: identityKey,
		RecordID:    recordID,
		RecordHash:  recordHash,
	})
}

func (g *HTTPGateway) Unanchor(ctx context.Context, identityKey, recordID string) (Receipt, error) {
	return g.post(ctx, "/unanchors", anchorRequest{
		IdentityKey: identityKey,
		RecordID:    recordID,
	})
}

type identityResponse struct {
	Key string `json:"key"`
}

// LedgerKey resolves the actor's identity key from the gateway's directory.
func (g *HTTPGateway) LedgerKey(ctx context.Context, actorID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/identities/"+url.PathEscape(actorID), nil)
	if err != nil {
		return "", fmt.Errorf("build identity request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger directory: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", sentinel.ErrNotFound
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("ledger directory status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("ledger directory status %d", resp.StatusCode)
	}

	var body identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode identity response: %w", err)
	}
	return body.Key, nil
}

// EnsureIdentity asks the gateway to provision a ledger identity for the
// actor, returning the existing key when one is already registered.
func (g *HTTPGateway) EnsureIdentity(ctx context.Context, actorID string) (string, error) {
	payload, err := json.Marshal(map[string]string{"actor_id": actorID})
	if err != nil {
		return "", fmt.Errorf("encode identity request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/identities", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger provisioning: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("ledger provisioning status %d", resp.StatusCode)
	}

	var body identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode identity response: %w", err)
	}
	return body.Key, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, reqBody anchorRequest) (Receipt, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode anchor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, fmt.Errorf("build anchor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("ledger call: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Receipt{}, fmt.Errorf("ledger status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Receipt{}, fmt.Errorf("ledger status %d", resp.StatusCode)
	}

	var body receiptResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Receipt{}, fmt.Errorf("decode ledger receipt: %w", err)
	}
	return Receipt{TxID: body.TxID, CommittedAt: body.CommittedAt}, nil
}
