// Package path implements the textual addressing grammar used to resolve
// Nodes and their interface operators against the scene: absolute/relative
// node paths with an optional trailing interop suffix.
package path

import (
	"strings"

	"github.com/lyzr/notf/errs"
)

const (
	nodeDelimiter    = '/'
	interopDelimiter = '|'
	serviceDelimiter = ':'
	stepInPlace      = "."
	stepUp           = ".."
)

// Path is an immutable, normalized address of a Node or one of its
// interface operators. The zero Path is the empty relative path ("self").
type Path struct {
	absolute bool
	segments []string
	interop  string // "" if this Path does not address an interop
	hasInterop bool
}

// Parse builds a normalized Path from its textual form. Construction
// rejects any Path containing the Service delimiter (service paths are not
// supported), an empty interop name, control characters trailing the interop
// suffix, and an absolute Path whose ".." steps would resolve above the
// root.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	if strings.ContainsRune(s, serviceDelimiter) {
		return Path{}, errs.NewPathError("service paths are not supported by this Path grammar: %q", s)
	}

	nodePart := s
	var interop string
	hasInterop := false
	if idx := strings.IndexByte(s, interopDelimiter); idx != -1 {
		nodePart = s[:idx]
		interop = s[idx+1:]
		hasInterop = true
		if interop == "" {
			return Path{}, errs.NewPathError("empty interop name in path %q", s)
		}
		if strings.ContainsAny(interop, "/|") {
			return Path{}, errs.NewPathError("interop name must not contain path control characters: %q", s)
		}
	}

	absolute := strings.HasPrefix(nodePart, string(nodeDelimiter))

	var rawSegments []string
	if absolute {
		rawSegments = strings.Split(strings.TrimPrefix(nodePart, string(nodeDelimiter)), string(nodeDelimiter))
	} else {
		rawSegments = strings.Split(nodePart, string(nodeDelimiter))
	}

	segments := make([]string, 0, len(rawSegments))
	for _, seg := range rawSegments {
		switch seg {
		case "":
			continue
		case stepInPlace:
			continue
		case stepUp:
			if len(segments) == 0 {
				if absolute {
					return Path{}, errs.NewPathError("absolute path cannot resolve above the root: %q", s)
				}
				segments = append(segments, stepUp)
				continue
			}
			if segments[len(segments)-1] == stepUp {
				segments = append(segments, stepUp)
				continue
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	return Path{absolute: absolute, segments: segments, interop: interop, hasInterop: hasInterop}, nil
}

// CheckName validates a single path segment / interop name in isolation:
// non-empty, not a reserved token ("." or ".."), and free of path control
// characters.
func CheckName(name string) error {
	if name == "" {
		return errs.NewPathError("names may not be empty")
	}
	if name == stepInPlace || name == stepUp {
		return errs.NewPathError("the name %q is reserved", name)
	}
	if strings.ContainsAny(name, ":/|") {
		return errs.NewPathError("name %q may not contain path control characters", name)
	}
	return nil
}

func (p Path) IsEmpty() bool { return !p.absolute && len(p.segments) == 0 && !p.hasInterop }
func (p Path) IsAbsolute() bool { return p.absolute }
func (p Path) Segments() []string { return p.segments }

// Interop returns the interop name this Path addresses, and whether it
// addresses one at all.
func (p Path) Interop() (string, bool) { return p.interop, p.hasInterop }

func (p Path) String() string {
	var b strings.Builder
	if p.absolute {
		b.WriteByte(nodeDelimiter)
	}
	b.WriteString(strings.Join(p.segments, string(nodeDelimiter)))
	if p.hasInterop {
		b.WriteByte(interopDelimiter)
		b.WriteString(p.interop)
	}
	return b.String()
}
