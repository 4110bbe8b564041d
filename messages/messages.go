// Package messages holds the user-facing copy the bot sends to Slack.
package messages

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// Catalog is a read-only set of message templates keyed by name.
type Catalog struct {
	entries map[string]string
}

// Default returns the catalogue built into the binary.
func Default() *Catalog {
	entries, err := parse(defaultMessages)
	if err != nil {
		panic(fmt.Sprintf("embedded messages.yaml is invalid: %v", err))
	}
	return &Catalog{entries: entries}
}

// Load returns the default catalogue with the entries of the YAML file at path
// merged over it. An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file %s: %w", path, err)
	}
	overrides, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse messages file %s: %w", path, err)
	}
	for k, v := range overrides {
		c.entries[k] = v
	}
	return c, nil
}

func parse(data []byte) (map[string]string, error) {
	parsed := make(map[string]string)
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

// Get returns the raw template for key, or "" when it is not defined.
func (c *Catalog) Get(key string) string {
	return c.entries[key]
}

// Format renders the template for key with fmt.Sprintf semantics.
// Missing keys render as the key itself so a gap is visible rather than silent.
func (c *Catalog) Format(key string, args ...interface{}) string {
	tmpl, ok := c.entries[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// Len returns the number of templates loaded.
func (c *Catalog) Len() int {
	return len(c.entries)
}
