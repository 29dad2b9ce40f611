package enrich

import (
	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/pkg/tree"
)

// DataRoot is the only permitted first segment of a rule's field path.
const DataRoot = "data"

// Rule writes the result of a JSON-logic expression to Field.
type Rule struct {
	// Field is a dotted path such as "data.GrpHdr.MsgId".
	Field string `json:"field" yaml:"field"`
	// Rule is the expression evaluated against the enrichment input.
	Rule any `json:"rule" yaml:"rule"`
	// Description becomes the change reason. Default "Enriched field <field>".
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// reason returns the change-log reason for the rule.
func (r Rule) reason() string {
	if r.Description != "" {
		return r.Description
	}
	return "Enriched field " + r.Field
}

// target parses Field and returns the path below the data root.
func (r Rule) target() (tree.Path, error) {
	path, err := tree.ParsePath(r.Field)
	if err != nil {
		return nil, errors.Newf(errors.InvalidFieldPath, "enrich.Enrich", err, "field %q is not a valid path", r.Field)
	}
	if path.Root() != DataRoot {
		return nil, errors.Newf(errors.InvalidFieldPath, "enrich.Enrich", nil,
			"field %q must be rooted at %q", r.Field, DataRoot)
	}
	if len(path.Rest()) == 0 {
		return nil, errors.Newf(errors.InvalidFieldPath, "enrich.Enrich", nil,
			"field %q must name a value below %q", r.Field, DataRoot)
	}
	return path.Rest(), nil
}

// ValidateRules checks every field path without evaluating anything. Embedders
// use it to reject rule sets at configuration time.
func ValidateRules(rules []Rule) error {
	for _, r := range rules {
		if _, err := r.target(); err != nil {
			return err
		}
	}
	return nil
}
