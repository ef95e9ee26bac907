// cmd/tools/catalog-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"attendance-chat/pkg/registry"
)

var catalogPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)

	// Add command flags
	idAdd := addCmd.String("id", "", "Intent ID (e.g., attendance_list)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Attendance List)")
	description := addCmd.String("description", "", "Description shown to the classifier")
	examples := addCmd.String("examples", "", "Comma-separated example questions")
	parameters := addCmd.String("parameters", "", "Comma-separated parameter names")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Intent ID to update")
	field := updateCmd.String("field", "", "Field to update (displayName, description, examples, parameters)")
	value := updateCmd.String("value", "", "New value for the field")

	// Validate command flags
	validateCmd.StringVar(&catalogPath, "path", "configs/intents.json", "Path to catalog file")

	// Init command flags
	initCmd.StringVar(&catalogPath, "path", "configs/intents.json", "Path to catalog file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *description == "" {
			fmt.Println("Error: id, displayName, and description are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		intent := registry.IntentEntry{
			ID:          *idAdd,
			DisplayName: *displayName,
			Description: *description,
			Examples:    splitList(*examples),
			Parameters:  splitList(*parameters),
		}
		err := addIntent(&intent)
		if err != nil {
			fmt.Printf("Error adding intent: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added intent: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		err := updateIntent(*idUpdate, *field, *value)
		if err != nil {
			fmt.Printf("Error updating intent: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated intent %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		err := validateCatalog()
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Catalog validation passed.")

	case "init":
		initCmd.Parse(os.Args[2:])
		err := initCatalog()
		if err != nil {
			fmt.Printf("Error initializing catalog: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote built-in catalog to %s\n", catalogPath)

	case "help":
		fallthrough
	default:
		help()
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func addIntent(intent *registry.IntentEntry) error {
	cat, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		// If file doesn't exist, create new catalog
		if os.IsNotExist(err) {
			cat = &registry.IntentCatalog{
				Version:     "1.0.0",
				LastUpdated: time.Now().Format("2006-01-02"),
				Intents:     []registry.IntentEntry{},
			}
		} else {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	// Check if intent already exists
	for _, existing := range cat.Intents {
		if existing.ID == intent.ID {
			return fmt.Errorf("intent with ID %s already exists", intent.ID)
		}
	}

	// Add new intent
	cat.Intents = append(cat.Intents, *intent)
	cat.LastUpdated = time.Now().Format("2006-01-02")

	// Save catalog
	return saveCatalog(cat, catalogPath)
}

func updateIntent(id, field, value string) error {
	cat, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	found := false
	for i := range cat.Intents {
		if cat.Intents[i].ID == id {
			found = true
			switch field {
			case "displayName":
				cat.Intents[i].DisplayName = value
			case "description":
				cat.Intents[i].Description = value
			case "examples":
				cat.Intents[i].Examples = splitList(value)
			case "parameters":
				cat.Intents[i].Parameters = splitList(value)
			default:
				return fmt.Errorf("unknown field: %s", field)
			}
			break
		}
	}

	if !found {
		return fmt.Errorf("intent with ID %s not found", id)
	}

	cat.LastUpdated = time.Now().Format("2006-01-02")
	return saveCatalog(cat, catalogPath)
}

func validateCatalog() error {
	cat, err := registry.LoadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if len(cat.Intents) == 0 {
		return fmt.Errorf("catalog contains no intents")
	}

	ids := make(map[string]bool)
	for _, intent := range cat.Intents {
		if ids[intent.ID] {
			return fmt.Errorf("duplicate intent ID: %s", intent.ID)
		}
		ids[intent.ID] = true

		if intent.ID == "" {
			return fmt.Errorf("intent missing required field: ID")
		}
		if intent.DisplayName == "" {
			return fmt.Errorf("intent %s missing required field: DisplayName", intent.ID)
		}
		if intent.Description == "" {
			return fmt.Errorf("intent %s missing required field: Description", intent.ID)
		}
	}

	fmt.Printf("Catalog validation passed. Found %d intents.\n", len(cat.Intents))
	return nil
}

func initCatalog() error {
	if _, err := os.Stat(catalogPath); err == nil {
		return fmt.Errorf("catalog file already exists: %s", catalogPath)
	}
	return saveCatalog(registry.DefaultCatalog(), catalogPath)
}

// saveCatalog handles saving the catalog to file
func saveCatalog(cat *registry.IntentCatalog, path string) error {
	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	return nil
}

func help() {
	fmt.Print(`
Usage: catalog-updater <command> [flags]

Commands:
  add      Add a new intent to the catalog
  update   Update an existing intent's field
  validate Validate the catalog file
  init     Write the built-in catalog to a file
  help     Show this help message

Examples:
  catalog-updater init -path configs/intents.json
  catalog-updater add -id attendance_month -displayName "Attendance Month" -description "total attendance for this month" -examples "attendance this month,monthly attendance"
  catalog-updater update -id attendance_month -field description -value "attendance totals for the current month"
  catalog-updater validate -path configs/intents.json

Use 'catalog-updater <command> -h' for more information about a command.
`)
}
