package greenhouse

import (
	"github.com/recruitsync/harvest-connector/pkg/connector/registry"
)

func init() {
	// Panics at startup if the name is double-registered; that is a build
	// defect, not a runtime condition.
	if err := registry.RegisterSource("greenhouse", NewGreenhouseSource); err != nil {
		panic(err)
	}
}
