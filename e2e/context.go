package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	jwttoken "warden/internal/jwt_token"
	"warden/pkg/domain"
)

// TestContext holds the state of one scenario: the server under test, the
// current caller and the last response.
type TestContext struct {
	server *httptest.Server
	jwt    *jwttoken.JWTService

	accessToken  string
	walletID     string
	lastStatus   int
	lastBody     []byte
	lastDecoded  map[string]any
	lastDecodeOK bool
}

// Start boots a fresh server for the scenario.
func (tc *TestContext) Start() error {
	server, jwt, err := NewServer()
	if err != nil {
		return err
	}
	*tc = TestContext{server: server, jwt: jwt}
	return nil
}

func (tc *TestContext) Stop() {
	if tc.server != nil {
		tc.server.Close()
	}
}

// TokenFor mints a bearer token for principal.
func (tc *TestContext) TokenFor(principal string) (string, error) {
	return tc.jwt.Issue(domain.Principal(principal), time.Hour)
}

func (tc *TestContext) SetAccessToken(token string) { tc.accessToken = token }

func (tc *TestContext) GetAccessToken() string { return tc.accessToken }

func (tc *TestContext) WalletID() string { return tc.walletID }

func (tc *TestContext) SetWalletID(id string) { tc.walletID = id }

// POST sends body as JSON with the current caller's token.
func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, tc.authHeaders(tc.accessToken))
}

// GET sends a request with the given headers only.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

// AdminPOST sends body with the operator token instead of a bearer token.
func (tc *TestContext) AdminPOST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, map[string]string{"X-Admin-Token": adminToken})
}

func (tc *TestContext) AdminGET(path string) error {
	return tc.GET(path, map[string]string{"X-Admin-Token": adminToken})
}

func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if !tc.lastDecodeOK {
		return nil, fmt.Errorf("last response is not a JSON object: %s", tc.lastBody)
	}
	v, ok := tc.lastDecoded[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) ResponseContains(field string) bool {
	_, err := tc.GetResponseField(field)
	return err == nil
}

func (tc *TestContext) authHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.server.URL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.server.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastDecoded = nil
	dec := json.NewDecoder(bytes.NewReader(tc.lastBody))
	dec.UseNumber()
	tc.lastDecodeOK = dec.Decode(&tc.lastDecoded) == nil
	return nil
}
