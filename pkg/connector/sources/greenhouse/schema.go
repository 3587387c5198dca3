package greenhouse

import (
	"github.com/recruitsync/harvest-connector/pkg/connector/core"
)

// declaredStreams returns the full declared stream set in catalog order.
// Schemas are intentionally loose: Harvest objects are wide and versioned
// server-side, so beyond the identity and bookkeeping fields everything
// rides in the record payload as-is.
func declaredStreams(catalog *Catalog) []core.StreamDescriptor {
	streams := make([]core.StreamDescriptor, 0, len(entities))
	for _, name := range catalog.Entities() {
		streams = append(streams, core.StreamDescriptor{
			Name:       name,
			Schema:     entitySchema(name),
			PrimaryKey: []string{"id"},
		})
	}
	return streams
}

// timestamped entities carry created_at/updated_at bookkeeping fields.
var timestamped = map[string]bool{
	"applications": true,
	"candidates":   true,
	"job_posts":    true,
	"jobs":         true,
	"offers":       true,
	"scorecards":   true,
	"users":        true,
	"interviews":   true,
}

func entitySchema(name string) *core.Schema {
	fields := []core.Field{
		{Name: "id", Type: core.FieldTypeInt, Primary: true},
	}
	if timestamped[name] {
		fields = append(fields,
			core.Field{Name: "created_at", Type: core.FieldTypeTimestamp, Nullable: true},
			core.Field{Name: "updated_at", Type: core.FieldTypeTimestamp, Nullable: true},
		)
	}
	fields = append(fields, core.Field{Name: "payload", Type: core.FieldTypeJSON, Nullable: true,
		Description: "remaining object fields as returned by the API"})

	return &core.Schema{
		Name:    name,
		Fields:  fields,
		Version: 1,
	}
}
