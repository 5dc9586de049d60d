// Package testutil provides fixtures and assertions shared by the HTTP and
// JSON-RPC test suites.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/solutionbase/internal/models"
)

// FixtureTime is the creation time of the first fixture solution.
var FixtureTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// AssertContains fails the test if s does not contain substr.
func AssertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: expected %q to contain %q", msg, s, substr)
	}
}

// AssertStatusCode checks if the response has the expected status code.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// AssertJSONContains checks that the top-level JSON object has key == expected.
func AssertJSONContains(t *testing.T, body []byte, key string, expected interface{}) {
	t.Helper()
	result := ParseJSONResponse(t, body)
	if result[key] != expected {
		t.Errorf("expected %s to be %v, got %v", key, expected, result[key])
	}
}

// ParseJSONResponse parses a JSON response body into a map.
func ParseJSONResponse(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON response %q: %v", body, err)
	}
	return result
}

// NewUser returns a user fixture with a fresh ID.
func NewUser(username string) *models.User {
	return &models.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		CreatedAt: FixtureTime,
		UpdatedAt: FixtureTime,
	}
}

// NewSolution returns a published solution fixture owned by author.
func NewSolution(author uuid.UUID, title, slug, content string, tags ...string) *models.Solution {
	s := &models.Solution{
		ID:          uuid.New(),
		Title:       title,
		Slug:        slug,
		AuthorID:    author,
		Content:     content,
		Summary:     "summary of " + title,
		IsPublished: true,
		Tags:        []models.Tag{},
		CreatedAt:   FixtureTime,
		UpdatedAt:   FixtureTime,
	}
	for _, name := range tags {
		s.Tags = append(s.Tags, models.Tag{
			ID:   uuid.New(),
			Name: name,
			Slug: strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		})
	}
	return s
}

// RPCCall renders a JSON-RPC 2.0 request with id 1. params is marshalled
// unless it is a string, which is embedded verbatim; an empty string or nil
// omits params.
func RPCCall(method string, params interface{}) string {
	envelope := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	switch p := params.(type) {
	case nil:
	case string:
		if p != "" {
			envelope["params"] = json.RawMessage(p)
		}
	default:
		envelope["params"] = p
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// NewBearerRequest builds a POST carrying body and, when token is non-empty,
// an Authorization: Bearer header.
func NewBearerRequest(path, token, body string) *http.Request {
	req := NewTestRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// NewTestRequest creates a new HTTP request for testing.
func NewTestRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewTestRequestWithJSON creates a new HTTP request with JSON body.
func NewTestRequestWithJSON(t *testing.T, method, path string, data interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return NewTestRequest(method, path, strings.NewReader(string(body)))
}
