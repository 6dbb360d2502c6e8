// Package render projects carts and lookup results into removable chips and
// the HTML list fragments the kiosk page swaps in.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/ndewijer/note-kfet-kiosk/internal/cart"
)

// Chip is one rendered list entry.
type Chip struct {
	// ID is the DOM id, "<prefix>_<key>".
	ID       string `json:"id"`
	Key      int    `json:"key"`
	Label    string `json:"label"`
	Quantity int    `json:"quantity,omitempty"`
	Class    string `json:"class,omitempty"`
	// Action is the URL that removes one unit (carts) or selects the entry
	// (lookup results).
	Action string `json:"action,omitempty"`
}

// Chips projects entries onto chips in display order. style may be nil.
// action receives the entry key and returns the URL bound to the chip.
func Chips[T any](prefix string, entries []cart.Entry[T], style func(T) string, action func(key int) string) []Chip {
	chips := make([]Chip, 0, len(entries))
	for _, e := range entries {
		chip := Chip{
			ID:       fmt.Sprintf("%s_%d", prefix, e.Key),
			Key:      e.Key,
			Label:    e.Label,
			Quantity: e.Quantity,
		}
		if style != nil {
			chip.Class = style(e.Payload)
		}
		if action != nil {
			chip.Action = action(e.Key)
		}
		chips = append(chips, chip)
	}
	return chips
}

var listTemplate = template.Must(template.New("chips").Parse(
	`{{range .}}<li class="list-group-item py-1 px-2 d-flex justify-content-between align-items-center text-truncate{{with .Class}} {{.}}{{end}}"` +
		`{{with .ID}} id="{{.}}"{{end}}{{with .Action}} data-action="{{.}}"{{end}}>{{.Label}}` +
		`{{if .Quantity}}<span class="badge badge-dark badge-pill">{{.Quantity}}</span>{{end}}</li>
{{end}}`))

// Fragment renders the full list. The page replaces the whole region with it.
func Fragment(chips []Chip) (template.HTML, error) {
	var buf bytes.Buffer
	if err := listTemplate.Execute(&buf, chips); err != nil {
		return "", fmt.Errorf("failed to render chips: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // output of html/template
}

// Notice renders a single emphasised entry, used to flag an empty cart on
// validation.
func Notice(text string) (template.HTML, error) {
	return Fragment([]Chip{{Label: text, Class: "text-danger font-weight-bold"}})
}
