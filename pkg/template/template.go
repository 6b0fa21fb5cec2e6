// Package template renders merge-field templates for email alerts and
// computed action values against a record's fields.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pulsecrm/pulse/pkg/models"
)

// Render executes a merge-field template. Templates see the record's
// fields as {{.fields.<name>}}, the record identity as {{.record.id}},
// {{.record.type}}, and {{.record.owner}}, the acting user as {{.actor}},
// and the trigger time via the {{now}} function.
func Render(input string, record models.FieldRecord, actor string, clock clockwork.Clock) (string, error) {
	tmpl, err := template.
		New("merge").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return clock.Now().UTC().Format(time.RFC3339)
			},
		}).
		Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %v: %w", input, err, models.ErrConfiguration)
	}

	data := map[string]any{
		"fields": record.Fields(),
		"actor":  actor,
		"record": map[string]any{
			"id":    record.RecordID(),
			"type":  record.EntityType(),
			"owner": record.OwnerID(),
		},
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template %q: %v: %w", input, err, models.ErrConfiguration)
	}

	return buf.String(), nil
}
