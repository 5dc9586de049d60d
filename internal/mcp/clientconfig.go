package mcp

// DefaultServerName is the key assistants list this server under.
const DefaultServerName = "solutionbase"

// ClientConfig is the snippet an MCP-capable assistant needs to reach the
// endpoint with a bearer token.
type ClientConfig struct {
	Servers map[string]ClientServer `json:"servers"`
}

type ClientServer struct {
	Type        string      `json:"type"`
	URL         string      `json:"url"`
	RequestInit RequestInit `json:"requestInit"`
}

type RequestInit struct {
	Headers map[string]string `json:"headers"`
}

// NewClientConfig builds the snippet for endpoint authenticated by secret.
func NewClientConfig(endpoint, secret string) ClientConfig {
	return ClientConfig{
		Servers: map[string]ClientServer{
			DefaultServerName: {
				Type: "http",
				URL:  endpoint,
				RequestInit: RequestInit{
					Headers: map[string]string{"Authorization": "Bearer " + secret},
				},
			},
		},
	}
}
