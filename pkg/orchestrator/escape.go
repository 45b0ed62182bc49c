package orchestrator

import "strings"

// EscapeQuery makes free text safe to pass to the store's search syntax as a
// single quoted phrase term. Quotes are doubled so user text containing
// search metacharacters is matched literally instead of being parsed as
// query operators; phrase quoting also biases the substrate toward phrase
// matching, the desired default for context-hint queries.
func EscapeQuery(query string) string {
	query = strings.ReplaceAll(query, "'", "''")
	query = strings.ReplaceAll(query, `"`, `""`)
	return `"` + query + `"`
}
