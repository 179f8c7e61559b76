package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	jwttoken "audittrail/internal/jwt_token"
	id "audittrail/pkg/domain"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	Signer           *jwttoken.JWTService
	LastResponse     *http.Response
	LastResponseBody []byte

	// actors maps scenario names to the user each token is minted for.
	actors      map[string]id.UserID
	actor       string
	accessToken string

	TenantID string
	ClientID string
}

// NewTestContext creates a new test context
func NewTestContext(baseURL string, signer *jwttoken.JWTService) *TestContext {
	return &TestContext{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Signer: signer,
		actors: make(map[string]id.UserID),
	}
}

// SignIn mints a token for the named actor. The same name maps to the same
// user for the rest of the scenario.
func (tc *TestContext) SignIn(name string) error {
	user, ok := tc.actors[name]
	if !ok {
		user = id.UserID(uuid.New())
		tc.actors[name] = user
	}
	token, err := tc.Signer.GenerateAccessToken(context.Background(), user)
	if err != nil {
		return fmt.Errorf("failed to mint token for %s: %w", name, err)
	}
	tc.actor = name
	tc.accessToken = token
	return nil
}

// SignOut drops the bearer token.
func (tc *TestContext) SignOut() {
	tc.actor = ""
	tc.accessToken = ""
}

// ActorID returns the user ID behind an actor name.
func (tc *TestContext) ActorID(name string) (string, error) {
	user, ok := tc.actors[name]
	if !ok {
		return "", fmt.Errorf("unknown actor %q", name)
	}
	return user.String(), nil
}

// Do sends an authenticated request when signed in and stores the response.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	return nil
}

// GetResponseField extracts a field from the JSON response
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}

	return value, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	return strings.Contains(string(tc.LastResponseBody), text)
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) GetTenantID() string         { return tc.TenantID }
func (tc *TestContext) SetTenantID(tenantID string) { tc.TenantID = tenantID }
func (tc *TestContext) GetClientID() string         { return tc.ClientID }
func (tc *TestContext) SetClientID(clientID string) { tc.ClientID = clientID }
