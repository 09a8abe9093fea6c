package spec

import (
	"fmt"
	"sort"
	"strings"

	"depcoord/internal/coordinatorerrors"
)

// RestartPolicy controls whether a terminated spec is restarted.
type RestartPolicy int

const (
	// PolicyTransient restarts only on abnormal termination. It is the
	// zero value so a zero-initialized Spec defaults to it, per
	// spec §9 Open Question 1.
	PolicyTransient RestartPolicy = iota
	// PolicyPermanent always restarts.
	PolicyPermanent
	// PolicyTemporary never restarts.
	PolicyTemporary
)

// String makes RestartPolicy satisfy fmt.Stringer.
func (p RestartPolicy) String() string {
	switch p {
	case PolicyTransient:
		return "transient"
	case PolicyPermanent:
		return "permanent"
	case PolicyTemporary:
		return "temporary"
	default:
		return "unknown"
	}
}

// ParseRestartPolicy parses the string form used by the YAML catalog
// (internal/catalog). An empty string parses as PolicyTransient.
func ParseRestartPolicy(s string) (RestartPolicy, error) {
	switch s {
	case "", "transient":
		return PolicyTransient, nil
	case "permanent":
		return PolicyPermanent, nil
	case "temporary":
		return PolicyTemporary, nil
	default:
		return 0, fmt.Errorf("unknown restart policy %q", s)
	}
}

// StartDescriptor names what to spawn and the opaque arguments to spawn it
// with.
type StartDescriptor struct {
	Target string
	Args   []interface{}
}

// Spec is the normalized, canonical description of how to start one
// service instance (spec.md §3, "Service spec (normalized)").
type Spec struct {
	ID      string
	Start   StartDescriptor
	Restart RestartPolicy
}

// RawSpec is the pre-built structural shape a caller (or the YAML catalog,
// internal/catalog) may hand to Normalize directly, shape (c) of spec.md
// §4.1.
type RawSpec struct {
	ID      string
	Target  string
	Args    []interface{}
	Restart RestartPolicy
}

// Key returns a stable, comparable string identifying s, suitable for use
// as a map key in the Registry and resolver. Spec itself is not
// map-keyable: StartDescriptor.Args may contain slices or maps, which Go
// does not allow as map keys or as operands to ==.
func Key(s Spec) string {
	var b strings.Builder
	b.WriteString(s.ID)
	b.WriteByte('\x00')
	b.WriteString(s.Start.Target)
	b.WriteByte('\x00')
	canonicalize(&b, s.Start.Args)
	return b.String()
}

// canonicalize writes a deterministic textual encoding of v, sorting map
// keys so that two equal-by-value maps encode identically regardless of
// iteration order.
func canonicalize(b *strings.Builder, v interface{}) {
	switch val := v.(type) {
	case nil:
		b.WriteString("<nil>")
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte(':')
			canonicalize(b, val[k])
		}
		b.WriteByte('}')
	case []interface{}:
		b.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			canonicalize(b, e)
		}
		b.WriteByte(']')
	default:
		fmt.Fprintf(b, "%#v", val)
	}
}

// Normalize canonicalizes one of the three accepted input shapes into a
// Spec:
//
//   - string: a bare identifier, Normalize("db") -> Spec{ID: "db", Start: {Target: "db"}}
//   - [2]interface{}{id, arg} or a (string, interface{}) pair via NormalizeWithArg:
//     an identifier plus a single opaque argument
//   - Spec or *RawSpec: a pre-built structural spec, validated and defaulted
//
// Inputs matching none of these shapes return coordinatorerrors.ErrBadSpec.
func Normalize(input interface{}) (Spec, error) {
	switch v := input.(type) {
	case Spec:
		return normalizeStructural(v.ID, v.Start.Target, v.Start.Args, v.Restart)
	case *RawSpec:
		if v == nil {
			return Spec{}, fmt.Errorf("%w: nil RawSpec", coordinatorerrors.ErrBadSpec)
		}
		return normalizeStructural(v.ID, v.Target, v.Args, v.Restart)
	case string:
		return normalizeStructural(v, v, nil, PolicyTransient)
	case [2]interface{}:
		id, ok := v[0].(string)
		if !ok {
			return Spec{}, fmt.Errorf("%w: identifier of type %T", coordinatorerrors.ErrBadSpec, v[0])
		}
		return NormalizeWithArg(id, v[1])
	default:
		return Spec{}, fmt.Errorf("%w: unsupported input type %T", coordinatorerrors.ErrBadSpec, input)
	}
}

// NormalizeWithArg canonicalizes shape (b) of spec.md §4.1: an identifier
// naming a service module plus a single opaque argument.
func NormalizeWithArg(id string, arg interface{}) (Spec, error) {
	if id == "" {
		return Spec{}, fmt.Errorf("%w: empty identifier", coordinatorerrors.ErrBadSpec)
	}
	return normalizeStructural(id, id, []interface{}{arg}, PolicyTransient)
}

func normalizeStructural(id, target string, args []interface{}, restart RestartPolicy) (Spec, error) {
	if id == "" {
		return Spec{}, fmt.Errorf("%w: empty id", coordinatorerrors.ErrBadSpec)
	}
	if target == "" {
		target = id
	}
	argsCopy := make([]interface{}, len(args))
	copy(argsCopy, args)
	return Spec{
		ID:      id,
		Start:   StartDescriptor{Target: target, Args: argsCopy},
		Restart: restart,
	}, nil
}
