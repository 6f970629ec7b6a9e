// Package attributes maps free-text intake fields onto the registry's
// person-attribute types.
package attributes

import "strings"

// MaxTypes is the number of attribute types requested from the registry.
const MaxTypes = 100

// Type is a registry-defined person attribute descriptor.
type Type struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Format      string `json:"format,omitempty"`
}

// Field names an intake field that can be carried as a person attribute.
type Field string

const (
	FieldTelephoneResidence Field = "telephone_residence"
	FieldTelephoneMobile    Field = "telephone_mobile"
	FieldNationalID         Field = "national_id"
)

// Rule binds a field to the keywords that identify its attribute type.
type Rule struct {
	Field    Field
	Keywords []string
}

// DefaultRules is the rule table used for intake. Resolution output follows
// this order.
var DefaultRules = []Rule{
	{Field: FieldTelephoneResidence, Keywords: []string{"phone", "telephone"}},
	{Field: FieldTelephoneMobile, Keywords: []string{"mobile"}},
	{Field: FieldNationalID, Keywords: []string{"nic", "identity"}},
}

// Assignment is a value attached to a person under an attribute type. The
// JSON form is the registry's wire shape.
type Assignment struct {
	AttributeTypeID string `json:"attributeType"`
	Value           string `json:"value"`
}

// Resolver evaluates a rule table against a fetched attribute-type list.
type Resolver struct {
	rules []Rule
}

// NewResolver returns a Resolver over rules. A nil table uses DefaultRules.
func NewResolver(rules []Rule) *Resolver {
	if rules == nil {
		rules = DefaultRules
	}
	return &Resolver{rules: rules}
}

// Rules returns the resolver's rule table.
func (r *Resolver) Rules() []Rule {
	return r.rules
}

// Match returns the first type in list order whose display name contains any
// of the field's keywords, ignoring case.
func (r *Resolver) Match(types []Type, field Field) (Type, bool) {
	for _, rule := range r.rules {
		if rule.Field != field {
			continue
		}
		return matchKeywords(types, rule.Keywords)
	}
	return Type{}, false
}

func matchKeywords(types []Type, keywords []string) (Type, bool) {
	for _, t := range types {
		name := strings.ToLower(t.DisplayName)
		for _, kw := range keywords {
			if strings.Contains(name, strings.ToLower(kw)) {
				return t, true
			}
		}
	}
	return Type{}, false
}

// Resolve builds assignments for every field that has a non-blank value and
// a matching type. Fields without a match are omitted. A nil result means
// nothing resolved and is not an error.
func (r *Resolver) Resolve(types []Type, values map[Field]string) []Assignment {
	var out []Assignment
	for _, rule := range r.rules {
		v := strings.TrimSpace(values[rule.Field])
		if v == "" {
			continue
		}
		t, ok := matchKeywords(types, rule.Keywords)
		if !ok {
			continue
		}
		out = append(out, Assignment{AttributeTypeID: t.ID, Value: v})
	}
	return out
}
