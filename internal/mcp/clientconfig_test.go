package mcp

import (
	"encoding/json"
	"testing"
)

func TestNewClientConfig(t *testing.T) {
	data, err := json.Marshal(NewClientConfig("https://kb.example.com/api/mcp/", "sb_secret"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Servers map[string]struct {
			Type        string `json:"type"`
			URL         string `json:"url"`
			RequestInit struct {
				Headers map[string]string `json:"headers"`
			} `json:"requestInit"`
		} `json:"servers"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	server, ok := decoded.Servers[DefaultServerName]
	if !ok {
		t.Fatalf("expected server %q in %s", DefaultServerName, data)
	}
	if server.Type != "http" || server.URL != "https://kb.example.com/api/mcp/" {
		t.Errorf("unexpected server entry: %+v", server)
	}
	if got := server.RequestInit.Headers["Authorization"]; got != "Bearer sb_secret" {
		t.Errorf("expected bearer header, got %q", got)
	}
}
