package hooks

import (
	"encoding/json"
	"fmt"
	"strings"

	errors "github.com/veloserve/veloctl/internal/errors"
)

// LifecycleEvent is one typed notification from the panel. Data stays
// schemaless here; each handler decodes the fields it consumes.
type LifecycleEvent struct {
	Category string
	Name     string
	Data     map[string]any
}

// Key returns the dispatch key, "Accounts::Create" for example.
func (e LifecycleEvent) Key() string {
	return e.Category + "::" + e.Name
}

// wireEvent is the panel's stdin envelope.
type wireEvent struct {
	Context struct {
		Event string `json:"event"`
	} `json:"context"`
	Data map[string]any `json:"data"`
}

// ParseEvent decodes one wire-format event.
func ParseEvent(data []byte) (LifecycleEvent, error) {
	var we wireEvent
	if err := json.Unmarshal(data, &we); err != nil {
		return LifecycleEvent{}, errors.Parse("malformed event payload", err)
	}

	category, name, ok := strings.Cut(we.Context.Event, "::")
	if !ok || category == "" || name == "" {
		return LifecycleEvent{}, errors.Validation(fmt.Sprintf("event %q is not of the form Category::Name", we.Context.Event))
	}

	return LifecycleEvent{Category: category, Name: name, Data: we.Data}, nil
}
