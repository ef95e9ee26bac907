// pkg/registry/schema.go
package registry

type IntentCatalog struct {
	Version     string        `json:"version"`
	LastUpdated string        `json:"lastUpdated"`
	Intents     []IntentEntry `json:"intents"`
}

type IntentEntry struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
	Parameters  []string `json:"parameters,omitempty"`
}
