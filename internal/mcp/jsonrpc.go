package mcp

import "encoding/json"

const jsonrpcVersion = "2.0"

// Request is a decoded JSON-RPC 2.0 request. ID is kept raw so it can be
// echoed byte for byte.
type Request struct {
	JSONRPC string
	ID      json.RawMessage
	Method  string
	Params  json.RawMessage
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result and Error is
// set; a nil ID is written as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func successResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: jsonrpcVersion, Result: result, ID: nullableID(id)}
}

func errorResponse(id json.RawMessage, e *Error) Response {
	return Response{JSONRPC: jsonrpcVersion, Error: &ErrorObject{Code: e.Code, Message: e.Message}, ID: nullableID(id)}
}

func nullableID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// decodeRequest parses body into a Request. The first error reports which
// envelope rule failed; the returned Request still carries any id that was
// readable so callers can echo it.
func decodeRequest(body []byte) (Request, *Error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return Request{}, errInvalidJSON
	}

	req := Request{ID: fields["id"], Params: fields["params"]}

	if err := json.Unmarshal(fields["jsonrpc"], &req.JSONRPC); err != nil || req.JSONRPC != jsonrpcVersion {
		return req, errBadVersion
	}
	if raw, ok := fields["method"]; ok {
		if err := json.Unmarshal(raw, &req.Method); err != nil {
			return req, errBadMethodField
		}
	}
	return req, nil
}

// arguments decodes params into a map. Absent and null params are empty.
func arguments(params json.RawMessage) (map[string]any, *Error) {
	args := map[string]any{}
	if len(params) == 0 || string(params) == "null" {
		return args, nil
	}
	if err := json.Unmarshal(params, &args); err != nil || args == nil {
		return nil, InvalidParams("params must be an object")
	}
	return args, nil
}
