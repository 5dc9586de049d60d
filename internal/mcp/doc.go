// Package mcp serves the JSON-RPC 2.0 endpoint that AI assistants use to
// read and write a user's solutions.
//
// Every POST call carries an access token in the Authorization header. The
// Server validates the envelope, authenticates the token and dispatches the
// method through a Registry, which holds the handler table and the tool
// catalogue generated from the same entries. Plain method calls
// (list_solutions, get_solution, create_solution, update_solution,
// list_tools) and the MCP tool methods (initialize, tools/list, tools/call)
// share that table.
//
// A GET on the endpoint answers with a single empty server-sent event and
// returns; it carries no request semantics.
package mcp
