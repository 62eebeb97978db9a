// AngelaMos | 2026
// client.go

// Package synapse implements the shared-secret registration handshake
// against a homeserver's /_synapse/admin/v1/register endpoint: fetch a
// single-use nonce, sign the registration parameters with HMAC-SHA1, and
// submit them.
package synapse

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/angelamos/gatekeeper/internal/config"
	"github.com/angelamos/gatekeeper/internal/core"
)

const registerPath = "/_synapse/admin/v1/register"

type Client struct {
	httpClient   *http.Client
	baseURL      string
	sharedSecret string
	logger       *slog.Logger
}

func NewClient(cfg config.HomeserverConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		sharedSecret: cfg.SharedSecret,
		logger:       logger,
	}
}

// Account is the credential set the homeserver returns for a freshly
// registered user.
type Account struct {
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
	HomeServer  string `json:"home_server"`
	UserID      string `json:"user_id"`
}

// RejectedError carries a 400 response from the homeserver verbatim,
// typically "User ID already taken". It is actionable by the end user and
// may be surfaced as-is.
type RejectedError struct {
	Errcode string `json:"errcode"`
	Message string `json:"error"`
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("homeserver rejected registration: %s (%s)",
		e.Message, e.Errcode)
}

type registerRequest struct {
	Nonce    string `json:"nonce"`
	Username string `json:"username"`
	Password string `json:"password"`
	MAC      string `json:"mac"`
	Admin    bool   `json:"admin"`
	UserType string `json:"user_type,omitempty"`
}

type nonceResponse struct {
	Nonce string `json:"nonce"`
}

// RegisterAccount creates an account for the given local part. The
// password never appears in logs or error text.
func (c *Client) RegisterAccount(
	ctx context.Context,
	localpart, password string,
	admin bool,
) (*Account, error) {
	nonce, err := c.nonce(ctx)
	if err != nil {
		return nil, err
	}

	payload := registerRequest{
		Nonce:    nonce,
		Username: localpart,
		Password: password,
		MAC:      computeMAC(c.sharedSecret, nonce, localpart, password, admin),
		Admin:    admin,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal register request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+registerPath,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(
			"post registration: %w: %w", core.ErrUpstreamUnreachable, err,
		)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close

	return c.decodeRegisterResponse(resp)
}

func (c *Client) decodeRegisterResponse(resp *http.Response) (*Account, error) {
	switch resp.StatusCode {
	case http.StatusOK:
		var account Account
		if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
			return nil, fmt.Errorf("decode register response: %w", err)
		}
		return &account, nil

	case http.StatusBadRequest:
		rejected := &RejectedError{}
		if err := json.NewDecoder(resp.Body).Decode(rejected); err != nil {
			rejected.Errcode = "M_UNKNOWN"
			rejected.Message = "registration rejected"
		}
		return nil, rejected

	case http.StatusForbidden:
		c.logger.Error(
			"homeserver refused registration, " +
				"wrong shared secret or registration disabled",
		)
		return nil, fmt.Errorf("register: %w", core.ErrUpstreamConfig)

	case http.StatusNotFound:
		c.logger.Error("no registration endpoint found",
			"url", c.baseURL+registerPath,
		)
		return nil, fmt.Errorf("register: %w", core.ErrUpstreamConfig)

	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("unexpected homeserver response",
			"status", resp.StatusCode,
			"body", string(detail),
		)
		return nil, fmt.Errorf(
			"register: status %d: %w",
			resp.StatusCode,
			core.ErrUpstreamFailure,
		)
	}
}

func (c *Client) nonce(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+registerPath,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("build nonce request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf(
			"fetch nonce: %w: %w", core.ErrUpstreamUnreachable, err,
		)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Error("no registration endpoint found",
			"url", c.baseURL+registerPath,
		)
		return "", fmt.Errorf("fetch nonce: %w", core.ErrUpstreamConfig)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"fetch nonce: status %d: %w",
			resp.StatusCode,
			core.ErrUpstreamFailure,
		)
	}

	var nr nonceResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return "", fmt.Errorf("decode nonce response: %w", err)
	}
	if nr.Nonce == "" {
		return "", fmt.Errorf("fetch nonce: %w", core.ErrUpstreamFailure)
	}

	return nr.Nonce, nil
}

// computeMAC signs nonce, localpart, password and the admin flag with the
// registration shared secret, NUL-separated, exactly as the homeserver's
// own register_new_matrix_user script does.
func computeMAC(secret, nonce, localpart, password string, admin bool) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(nonce))
	mac.Write([]byte{0})
	mac.Write([]byte(localpart))
	mac.Write([]byte{0})
	mac.Write([]byte(password))
	mac.Write([]byte{0})
	if admin {
		mac.Write([]byte("admin"))
	} else {
		mac.Write([]byte("notadmin"))
	}
	return hex.EncodeToString(mac.Sum(nil))
}
