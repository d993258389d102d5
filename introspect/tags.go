package introspect

import "strings"

const TagKey = "thimble"

type tag struct {
	name     string
	optional bool
	skip     bool
}

// parseTag reads `thimble:"name,optional"`. A lone "-" excludes the field.
func parseTag(s string) tag {
	if s == "-" {
		return tag{skip: true}
	}

	parts := strings.Split(s, ",")
	t := tag{name: strings.TrimSpace(parts[0])}
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "optional" {
			t.optional = true
		}
	}
	return t
}

// parseParam reads a parameter spec "param=dependency,optional". Both the
// dependency and the option are optional.
func parseParam(s string) (name string, t tag) {
	head, rest, hasOpts := strings.Cut(s, ",")
	name, dep, _ := strings.Cut(head, "=")

	spec := dep
	if hasOpts {
		spec += "," + rest
	}
	return strings.TrimSpace(name), parseTag(spec)
}
