// Package mcp exposes the router as Model Context Protocol tools so that
// agents can route and inspect text without speaking the HTTP API.
//
// Two tools are registered by [NewServer]:
//   - "route_text"   identifies, cleans and routes one input.
//   - "inspect_text" reports how each cleaned token relates to the lexicon.
//
// The server is stateless. Every call reads the current router from the
// [RouterSource], so configuration reloads are picked up immediately.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/lidroute/internal/router"
	"github.com/MrWong99/lidroute/internal/validation"
	"github.com/MrWong99/lidroute/pkg/types"
)

// Tool names.
const (
	ToolRouteText   = "route_text"
	ToolInspectText = "inspect_text"
)

// RouterSource returns the router to serve a call with.
type RouterSource interface {
	Router() *router.Router
}

// RouteArgs is the input of the "route_text" tool.
type RouteArgs struct {
	Text string `json:"text" jsonschema:"the text to identify and route"`
}

// InspectArgs is the input of the "inspect_text" tool.
type InspectArgs struct {
	Text string `json:"text" jsonschema:"the text to clean and inspect"`
	Lang string `json:"lang,omitempty" jsonschema:"language code of the pipeline to use; detected when empty"`
}

// InspectResult is the output of the "inspect_text" tool.
type InspectResult struct {
	LangCode    string                   `json:"lang_code"`
	CleanedText string                   `json:"cleaned_text"`
	Tokens      []validation.TokenReport `json:"tokens"`
}

var errEmptyText = errors.New("text must not be empty")

// NewServer creates an MCP server with the routing tools registered.
func NewServer(src RouterSource, version string) *mcpsdk.Server {
	s := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "lidroute", Version: version}, nil)

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        ToolRouteText,
		Description: "Identify the language of a text, clean it with the matching language pipeline and return the downstream route key.",
	}, func(ctx context.Context, _ *mcpsdk.CallToolRequest, args RouteArgs) (*mcpsdk.CallToolResult, types.Result, error) {
		res := src.Router().Process(ctx, args.Text)
		out, err := textResult(res)
		return out, res, err
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        ToolInspectText,
		Description: "Clean a text with a language pipeline and report, per token, whether it is in the lexicon and which lexicon words resemble it.",
	}, func(ctx context.Context, _ *mcpsdk.CallToolRequest, args InspectArgs) (*mcpsdk.CallToolResult, InspectResult, error) {
		if args.Text == "" {
			return nil, InspectResult{}, errEmptyText
		}
		code, cleaned, tokens := src.Router().Inspect(ctx, args.Text, args.Lang)
		res := InspectResult{LangCode: code, CleanedText: cleaned, Tokens: tokens}
		out, err := textResult(res)
		return out, res, err
	})

	return s
}

// Handler serves s over the streamable HTTP transport.
func Handler(s *mcpsdk.Server) http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return s }, nil)
}

// textResult renders v as the JSON text content of a tool result.
func textResult(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: encode result: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil
}
