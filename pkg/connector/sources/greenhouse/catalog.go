package greenhouse

import (
	"strings"

	"github.com/recruitsync/harvest-connector/pkg/errors"
)

// EndpointKind distinguishes root collections from nested relations.
type EndpointKind int

const (
	// KindRoot is a top-level Harvest collection
	KindRoot EndpointKind = iota
	// KindNested is a relation reached through a parent record
	KindNested
)

// Endpoint describes one remote Harvest collection: its list path and the
// named relations that can be traversed from its records. Nested paths
// contain a "{rel_id}" placeholder for the parent record id.
type Endpoint struct {
	Name     string
	Kind     EndpointKind
	Path     string
	Children map[string]*Endpoint
}

// Child returns the named nested relation of this endpoint.
func (e *Endpoint) Child(relation string) (*Endpoint, bool) {
	child, ok := e.Children[relation]
	return child, ok
}

// entities is the fixed, ordered set of extractable entity names. Compound
// names denote a nested traversal from the root segment's records.
var entities = []string{
	"applications",
	"candidates",
	"close_reasons",
	"degrees",
	"departments",
	"job_posts",
	"jobs",
	"offers",
	"scorecards",
	"users",
	"custom_fields",
	"demographics_question_sets",
	"demographics_questions",
	"demographics_answer_options",
	"demographics_answers",
	"applications.demographics_answers",
	"demographics_question_sets.questions",
	"demographics_answers.answer_options",
	"interviews",
	"applications.interviews",
	"sources",
	"rejection_reasons",
	"jobs.openings",
	"job_stages",
	"jobs.stages",
}

// Catalog holds the endpoint descriptors for every supported entity.
// Descriptors are built once at construction; resolution never touches the
// network.
type Catalog struct {
	roots map[string]*Endpoint
}

// NewCatalog builds the catalog of Harvest endpoints.
func NewCatalog() *Catalog {
	nested := func(name, path string) *Endpoint {
		return &Endpoint{Name: name, Kind: KindNested, Path: path}
	}
	root := func(name, path string, children ...*Endpoint) *Endpoint {
		e := &Endpoint{Name: name, Kind: KindRoot, Path: path}
		if len(children) > 0 {
			e.Children = make(map[string]*Endpoint, len(children))
			for _, c := range children {
				e.Children[c.Name] = c
			}
		}
		return e
	}

	roots := []*Endpoint{
		root("applications", "applications",
			nested("demographics_answers", "applications/{rel_id}/demographics/answers"),
			nested("interviews", "applications/{rel_id}/scheduled_interviews"),
		),
		root("candidates", "candidates"),
		root("close_reasons", "close_reasons"),
		root("degrees", "degrees"),
		root("departments", "departments"),
		root("job_posts", "job_posts"),
		root("jobs", "jobs",
			nested("openings", "jobs/{rel_id}/openings"),
			nested("stages", "jobs/{rel_id}/stages"),
		),
		root("offers", "offers"),
		root("scorecards", "scorecards"),
		root("users", "users"),
		root("custom_fields", "custom_fields"),
		root("demographics_question_sets", "demographics/question_sets",
			nested("questions", "demographics/question_sets/{rel_id}/questions"),
		),
		root("demographics_questions", "demographics/questions"),
		root("demographics_answer_options", "demographics/answer_options"),
		root("demographics_answers", "demographics/answers",
			// Answer options hang off the answer's question, per the
			// Harvest URL layout.
			nested("answer_options", "demographics/questions/{rel_id}/answer_options"),
		),
		root("interviews", "scheduled_interviews"),
		root("sources", "sources"),
		root("rejection_reasons", "rejection_reasons"),
		root("job_stages", "job_stages"),
	}

	c := &Catalog{roots: make(map[string]*Endpoint, len(roots))}
	for _, r := range roots {
		c.roots[r.Name] = r
	}
	return c
}

// Entities returns the supported entity names in declared order.
func (c *Catalog) Entities() []string {
	out := make([]string, len(entities))
	copy(out, entities)
	return out
}

// Has reports whether the catalog declares the given entity name.
func (c *Catalog) Has(name string) bool {
	for _, e := range entities {
		if e == name {
			return true
		}
	}
	return false
}

// Resolve splits an entity name on "." and returns the root endpoint plus
// the ordered chain of nested relation names to traverse. An unknown root
// or relation is a configuration defect: the catalog is the only source of
// entity names, so this is never expected at runtime.
func (c *Catalog) Resolve(name string) (*Endpoint, []string, error) {
	parts := strings.Split(name, ".")

	root, ok := c.roots[parts[0]]
	if !ok {
		return nil, nil, errors.Newf(errors.ErrorTypeConfig, "unknown entity %q", parts[0])
	}

	chain := parts[1:]

	// Validate the full relation chain up front so traversal never hits an
	// unknown relation mid-flight.
	cur := root
	for _, rel := range chain {
		child, ok := cur.Child(rel)
		if !ok {
			return nil, nil, errors.Newf(errors.ErrorTypeConfig,
				"entity %q has no nested relation %q", cur.Name, rel)
		}
		cur = child
	}

	return root, chain, nil
}
