package tools

import (
	"context"
	"encoding/json"

	"github.com/aerochat/aerochat/internal/normalize"
	"github.com/aerochat/aerochat/pkg/types"
)

var searchDestinationsDef = types.ToolDefinition{
	Name: NameSearchDestinations,
	Description: "Search for available airport/city destinations by name. " +
		"Use this to validate city names and get their airport codes.",
	Parameters: objectSchema(map[string]any{
		"query": prop("string", `City or airport name to look up (e.g. "Arusha", "Dar es Salaam")`),
	}, "query"),
}

type searchDestinationsArgs struct {
	Query string `json:"query"`
}

func (r *Registry) searchDestinations(ctx context.Context, threadID string, raw json.RawMessage) Result {
	var a searchDestinationsArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return errorResult("invalid arguments: %v", err)
	}
	if a.Query == "" {
		return errorResult("query must not be empty")
	}

	dests, err := r.client.Destinations(ctx)
	if err != nil {
		r.recordRemoteError(ctx, err)
		return Result{Content: mustJSON(map[string]any{"found": false, "error": err.Error()}), IsError: true}
	}

	catalog := make([]normalize.CatalogEntry, len(dests))
	for i, d := range dests {
		catalog[i] = normalize.CatalogEntry{Code: d.Code, Name: d.Name, IATA: d.IATA}
	}

	if code, ok := r.matcher.MatchCode(a.Query, catalog); ok {
		name := a.Query
		for _, d := range dests {
			if d.Code == code {
				name = d.Name
				break
			}
		}
		return jsonResult(map[string]any{"found": true, "code": code, "name": name})
	}

	return jsonResult(map[string]any{
		"found":                false,
		"query":                a.Query,
		"similar_destinations": r.matcher.Suggestions(a.Query, catalog),
	})
}

func mustJSON(v any) string {
	buf, _ := json.Marshal(v)
	return string(buf)
}
