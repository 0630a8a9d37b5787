package mcp

const serverInstructions = "Semantic search over the ECMA-376 (Office Open XML) specification. " +
	"Use search_ecma_spec for natural-language queries, get_section to read a " +
	"specific numbered section (prefix match, so \"17.3\" includes its " +
	"subsections), and list_parts to browse the section catalogue."

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

var toolCatalogue = []tool{
	{
		Name:        "search_ecma_spec",
		Description: "Semantic search across the ECMA-376 specification text. Returns the most relevant chunks ranked by similarity.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Natural-language search query",
				},
				"part": map[string]any{
					"type":        "number",
					"description": "Restrict to one document part (1-4)",
					"minimum":     1,
					"maximum":     4,
				},
				"limit": map[string]any{
					"type":        "number",
					"description": "Maximum results (default 5, capped at 20)",
				},
			},
			"required": []string{"query"},
		},
	},
	{
		Name:        "get_section",
		Description: "Fetch the chunks of a numbered section and its subsections, e.g. \"17.3.2\".",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"section_id": map[string]any{
					"type":        "string",
					"description": "Dotted section id, used as a prefix",
				},
				"part": map[string]any{
					"type":        "number",
					"description": "Restrict to one document part (1-4)",
					"minimum":     1,
					"maximum":     4,
				},
			},
			"required": []string{"section_id"},
		},
	},
	{
		Name:        "list_parts",
		Description: "List the known sections with their titles, optionally restricted to one part.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"part": map[string]any{
					"type":        "number",
					"description": "Restrict to one document part (1-4)",
					"minimum":     1,
					"maximum":     4,
				},
			},
		},
	},
}
