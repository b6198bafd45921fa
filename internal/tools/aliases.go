package tools

// toolAliases maps historical or model-invented tool names onto the
// canonical registered names.
var toolAliases = map[string]string{
	"get_time":        "get_current_time",
	"current_time":    "get_current_time",
	"calc":            "calculate",
	"calculator":      "calculate",
	"save_memory":     "memory_save",
	"remember":        "memory_save",
	"search_memory":   "memory_search",
	"recall":          "memory_search",
	"read_all_memory": "memory_read_all",
	"word_count":      "text_stats",
	"remove_file":     "delete_file",
}

// paramAliases maps alternate parameter spellings per canonical tool name.
// Models trained on other tool sets often emit these.
var paramAliases = map[string]map[string]string{
	"calculate": {
		"equation": "expression",
		"query":    "expression",
	},
	"memory_save": {
		"text":    "content",
		"message": "content",
	},
	"memory_search": {
		"q":     "query",
		"terms": "query",
	},
	"text_stats": {
		"input": "text",
	},
	"delete_file": {
		"file":      "path",
		"file_path": "path",
		"filename":  "path",
	},
}

// ResolveAlias returns the canonical tool name for a call.
func ResolveAlias(name string) string {
	if canonical, ok := toolAliases[name]; ok {
		return canonical
	}
	return name
}

// normalizeParamNames rewrites aliased parameter keys for the given tool.
// A key is only rewritten when the canonical key is absent, so an explicit
// canonical value always wins.
func normalizeParamNames(toolName string, params map[string]any) map[string]any {
	aliases, ok := paramAliases[toolName]
	if !ok || len(params) == 0 {
		return params
	}
	out := make(map[string]any, len(params))
	for key, value := range params {
		canonical, aliased := aliases[key]
		if aliased {
			if _, exists := params[canonical]; !exists {
				out[canonical] = value
				continue
			}
		}
		out[key] = value
	}
	return out
}
