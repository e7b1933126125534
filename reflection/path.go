package reflection

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one access in a property path: a named property or an index.
type Step struct {
	Key     string
	Indexed bool
}

// IntIndex returns the index as an integer when it is one.
func (s Step) IntIndex() (int, bool) {
	if !s.Indexed {
		return 0, false
	}
	n, err := strconv.Atoi(s.Key)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s Step) String() string {
	if s.Indexed {
		return "[" + s.Key + "]"
	}
	return s.Key
}

// Path is a parsed property path such as items[2].amount.
type Path []Step

func (p Path) String() string {
	var sb strings.Builder
	for i, s := range p {
		if i > 0 && !s.Indexed {
			sb.WriteByte('.')
		}
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Root returns the name of the first segment.
func (p Path) Root() string {
	if len(p) == 0 {
		return ""
	}
	return p[0].Key
}

// ParsePath parses dotted and indexed segments:
//
//	path    = segment { "." segment }
//	segment = name { "[" index "]" }
func ParsePath(path string) (Path, error) {
	p := &pathParser{src: path}
	steps, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedPath, path, err)
	}
	return steps, nil
}

// RootName returns the first segment name of path, or "" when it is malformed.
func RootName(path string) string {
	p, err := ParsePath(path)
	if err != nil {
		return ""
	}
	return p.Root()
}

type pathParser struct {
	src string
	pos int
}

func (p *pathParser) parse() (Path, error) {
	var steps Path
	for {
		seg, err := p.segment()
		if err != nil {
			return nil, err
		}
		steps = append(steps, seg...)
		if p.pos == len(p.src) {
			return steps, nil
		}
		if p.src[p.pos] != '.' {
			return nil, fmt.Errorf("unexpected %q at %d", p.src[p.pos], p.pos)
		}
		p.pos++
	}
}

func (p *pathParser) segment() (Path, error) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '.' && p.src[p.pos] != '[' && p.src[p.pos] != ']' {
		p.pos++
	}
	if p.pos == start {
		return nil, fmt.Errorf("empty property name at %d", start)
	}
	steps := Path{{Key: p.src[start:p.pos]}}
	for p.pos < len(p.src) && p.src[p.pos] == '[' {
		idx, err := p.index()
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Key: idx, Indexed: true})
	}
	return steps, nil
}

func (p *pathParser) index() (string, error) {
	open := p.pos
	p.pos++
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ']' {
		if p.src[p.pos] == '[' {
			return "", fmt.Errorf("nested '[' at %d", p.pos)
		}
		p.pos++
	}
	if p.pos == len(p.src) {
		return "", fmt.Errorf("unclosed '[' at %d", open)
	}
	if p.pos == start {
		return "", fmt.Errorf("empty index at %d", open)
	}
	key := p.src[start:p.pos]
	p.pos++
	return key, nil
}
