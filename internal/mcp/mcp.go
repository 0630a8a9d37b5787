// Package mcp exposes the retrieval service over a JSON-RPC 2.0
// tool-calling protocol: one JSON object per HTTP POST, dispatched on
// the method field.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"spec-search/internal/models"
	"spec-search/internal/search"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

const protocolVersion = "2024-11-05"

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type toolResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Handler is the stateless JSON-RPC dispatcher. Per-request state is
// discarded after the response; concurrency comes from the HTTP server.
type Handler struct {
	svc        *search.Service
	serverName string
	version    string
}

func NewHandler(svc *search.Service, serverName, version string) *Handler {
	return &Handler{svc: svc, serverName: serverName, version: version}
}

// Handle processes one JSON-RPC request body.
func (h *Handler) Handle(c *gin.Context) {
	var req request
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		c.JSON(http.StatusOK, response{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeParseError, Message: "parse error: " + err.Error()},
		})
		return
	}

	log.Debug().Str("method", req.Method).Msg("jsonrpc request")

	switch req.Method {
	case "initialize":
		h.reply(c, req, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": h.serverName, "version": h.version},
			"instructions":    serverInstructions,
		})
	case "notifications/initialized":
		c.Status(http.StatusAccepted)
	case "tools/list":
		h.reply(c, req, map[string]any{"tools": toolCatalogue})
	case "tools/call":
		h.handleToolCall(c, req)
	default:
		h.replyError(c, req, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (h *Handler) handleToolCall(c *gin.Context, req request) {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.replyError(c, req, codeInvalidParams, "invalid params: "+err.Error())
		return
	}

	var text string
	var err error
	switch params.Name {
	case "search_ecma_spec":
		text, err = h.callSearch(c, params.Arguments)
	case "get_section":
		text, err = h.callGetSection(c, params.Arguments)
	case "list_parts":
		text, err = h.callListParts(c, params.Arguments)
	default:
		h.replyError(c, req, codeMethodNotFound, fmt.Sprintf("unknown tool: %s", params.Name))
		return
	}

	if err != nil {
		var invalid *invalidArgError
		if errors.As(err, &invalid) {
			h.replyError(c, req, codeInvalidParams, invalid.Error())
			return
		}
		// execution failure is caught here and converted, never thrown
		// past the transport
		h.replyError(c, req, codeInternalError, err.Error())
		return
	}

	h.reply(c, req, toolResult{Content: []contentBlock{{Type: "text", Text: text}}})
}

func (h *Handler) callSearch(c *gin.Context, args map[string]any) (string, error) {
	query, ok := argString(args, "query")
	if !ok {
		return "", &invalidArgError{tool: "search_ecma_spec", arg: "query"}
	}

	filter := models.SearchFilter{
		Part:  argInt(args, "part"),
		Limit: argInt(args, "limit"),
	}
	if filter.Limit <= 0 {
		filter.Limit = models.DefaultSearchLimit
	}
	if filter.Limit > models.MaxSearchLimit {
		filter.Limit = models.MaxSearchLimit
	}

	results, err := h.svc.Search(c.Request.Context(), query, filter)
	if err != nil {
		return "", err
	}
	return formatSearchResults(query, results), nil
}

func (h *Handler) callGetSection(c *gin.Context, args map[string]any) (string, error) {
	sectionID, ok := argString(args, "section_id")
	if !ok {
		return "", &invalidArgError{tool: "get_section", arg: "section_id"}
	}

	results, err := h.svc.GetSection(c.Request.Context(), sectionID, argInt(args, "part"))
	if err != nil {
		return "", err
	}
	return formatSectionResults(sectionID, results), nil
}

func (h *Handler) callListParts(c *gin.Context, args map[string]any) (string, error) {
	refs, err := h.svc.ListSections(c.Request.Context(), argInt(args, "part"))
	if err != nil {
		return "", err
	}
	return formatSectionList(refs), nil
}

func (h *Handler) reply(c *gin.Context, req request, result any) {
	c.JSON(http.StatusOK, response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (h *Handler) replyError(c *gin.Context, req request, code int, message string) {
	c.JSON(http.StatusOK, response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error:   &rpcError{Code: code, Message: message},
	})
}

type invalidArgError struct {
	tool string
	arg  string
}

func (e *invalidArgError) Error() string {
	return fmt.Sprintf("%s requires a %q argument", e.tool, e.arg)
}

func argString(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// argInt reads a JSON number argument, zero when absent.
func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
