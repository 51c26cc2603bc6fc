// Package kind resolves human-supplied subject kind names to the canonical
// kinds stored on subjects. The registry is closed: it is populated once at
// startup and read-only afterwards.
package kind

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/reactions/internal/platform/errors"
)

// Capability is a contract a kind implements.
type Capability string

const (
	// CapabilityReactable marks kinds whose records can receive reactions.
	CapabilityReactable Capability = "reactable"
	// CapabilityReacter marks kinds whose records can react.
	CapabilityReacter Capability = "reacter"
)

// Causes carried by SUBJECT_KIND_INVALID errors.
var (
	ErrKindNotExists = errors.New("kind does not exist")
	ErrNotReactable  = errors.New("kind does not implement reactable")
)

// Kind is one concrete record kind.
type Kind struct {
	ID           string
	Capabilities []Capability
}

// Has reports whether k implements capability.
func (k Kind) Has(capability Capability) bool {
	for _, c := range k.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Alias maps a short name to a kind id.
type Alias struct {
	Name string
	Kind string
}

// Registry holds known kinds and aliases.
type Registry struct {
	kinds   map[string]Kind
	aliases map[string]string
	// canonical maps a kind id to the first alias registered for it.
	canonical map[string]string
}

// NewRegistry validates and indexes kinds and aliases. Aliases may point at
// other aliases; the order of aliases decides which one is canonical for a kind.
func NewRegistry(kinds []Kind, aliases []Alias) (*Registry, error) {
	r := &Registry{
		kinds:     make(map[string]Kind, len(kinds)),
		aliases:   make(map[string]string, len(aliases)),
		canonical: make(map[string]string),
	}
	for _, k := range kinds {
		id := strings.TrimSpace(k.ID)
		if id == "" {
			return nil, fmt.Errorf("kind id is required")
		}
		if _, dup := r.kinds[id]; dup {
			return nil, fmt.Errorf("kind %q registered twice", id)
		}
		k.ID = id
		r.kinds[id] = k
	}
	for _, a := range aliases {
		name := strings.TrimSpace(a.Name)
		target := strings.TrimSpace(a.Kind)
		if name == "" || target == "" {
			return nil, fmt.Errorf("alias name and kind are required")
		}
		if _, dup := r.aliases[name]; dup {
			return nil, fmt.Errorf("alias %q registered twice", name)
		}
		r.aliases[name] = target
		if _, ok := r.canonical[target]; !ok {
			r.canonical[target] = name
		}
	}
	return r, nil
}

// Resolve maps name to the canonical kind stored on subjects. A known kind id
// is checked for the reactable capability; otherwise name is looked up as an
// alias and the target resolved in turn.
func (r *Registry) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if r == nil {
		return "", invalid(name, ErrKindNotExists)
	}
	current := name
	// Each hop consumes an alias, so a chain longer than the alias table is a cycle.
	for hops := 0; hops <= len(r.aliases); hops++ {
		if k, ok := r.kinds[current]; ok {
			if !k.Has(CapabilityReactable) {
				return "", invalid(current, ErrNotReactable)
			}
			return r.canonicalName(k.ID), nil
		}
		target, ok := r.aliases[current]
		if !ok {
			return "", invalid(current, ErrKindNotExists)
		}
		current = target
	}
	return "", invalid(name, ErrKindNotExists)
}

func (r *Registry) canonicalName(id string) string {
	if alias, ok := r.canonical[id]; ok {
		return alias
	}
	return id
}

func invalid(name string, cause error) error {
	reason := "class_not_exists"
	if errors.Is(cause, ErrNotReactable) {
		reason = "not_implement_interface"
	}
	return apperrors.WrapWithMetadata(
		apperrors.CodeSubjectKindInvalid,
		fmt.Sprintf("invalid subject kind %q", name),
		map[string]string{"kind": name, "reason": reason},
		cause,
	)
}
