package css

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	complexNthRegexp = regexp.MustCompile(`(?i)^\s*([+-]?\d*)?n\s*([+-]\s*\d+)?\s*$`)
	simpleNthRegexp  = regexp.MustCompile(`^\s*([+-]?\d+)\s*$`)
	whitespaceRegexp = regexp.MustCompile(`\s`)
)

func parseNthArgs(args string) (int, int, error) {
	if args = strings.ToLower(strings.TrimSpace(args)); args == "odd" {
		return 2, 1, nil
	} else if args == "even" {
		return 2, 0, nil
	} else if m := simpleNthRegexp.FindStringSubmatch(args); m != nil {
		b, err := atoi(m[1], "0")
		return 0, b, err
	} else if m := complexNthRegexp.FindStringSubmatch(args); m != nil {
		a, err := atoi(m[1], "1")
		if err != nil {
			return 0, 0, err
		}
		b, err := atoi(m[2], "0")
		if err != nil {
			return 0, 0, err
		}
		return a, b, nil
	}
	return 0, 0, fmt.Errorf("bad nth arguments: %q", args)
}

func atoi(s, fallback string) (int, error) {
	s = whitespaceRegexp.ReplaceAllString(s, "")
	if s == "" || s == "+" || s == "-" {
		s = s + fallback
	}
	return strconv.Atoi(s)
}

// isNth checks whether the 1-based position y is a*n+b for some n >= 0.
func isNth(a, b, y int) bool {
	switch {
	case a == 0:
		return y == b
	case a > 0:
		return y >= b && (y-b)%a == 0
	default:
		return y <= b && (b-y)%(-a) == 0
	}
}

type positions struct {
	child, childLast, ofType, ofTypeLast int
}

func (p positions) of(t Nth) (int, int) {
	if t.OfType {
		return p.ofType, p.ofTypeLast
	}
	return p.child, p.childLast
}

// positionIndex caches sibling positions for one query pass.
// Positions of a whole sibling run are computed the first time any member is asked for.
type positionIndex struct {
	m map[Node]positions
}

func newPositionIndex() *positionIndex {
	return &positionIndex{m: map[Node]positions{}}
}

func (x *positionIndex) get(n Node, xml bool) positions {
	if p, ok := x.m[n]; ok {
		return p
	}
	run := siblingRun(n)
	types, totals := make([]string, len(run)), map[string]int{}
	for i, s := range run {
		types[i] = foldName(s.TagName(), xml)
		totals[types[i]]++
	}
	seen := map[string]int{}
	for i, s := range run {
		seen[types[i]]++
		x.m[s] = positions{
			child:      i + 1,
			childLast:  len(run) - i,
			ofType:     seen[types[i]],
			ofTypeLast: totals[types[i]] - seen[types[i]] + 1,
		}
	}
	return x.m[n]
}

// siblingRun returns the element siblings of n including n itself, in order.
func siblingRun(n Node) []Node {
	first := n
	for s := n.PrevSibling(); s != nil; s = s.PrevSibling() {
		first = s
	}
	var run []Node
	for s := first; s != nil; s = s.NextSibling() {
		if s.Kind() == ElementNode {
			run = append(run, s)
		}
	}
	return run
}

// countPositions computes the positions of n alone, without an index.
func countPositions(n Node, xml bool) positions {
	p, name := positions{1, 1, 1, 1}, foldName(n.TagName(), xml)
	for s := prevElement(n); s != nil; s = prevElement(s) {
		p.child++
		if foldName(s.TagName(), xml) == name {
			p.ofType++
		}
	}
	for s := nextElement(n); s != nil; s = nextElement(s) {
		p.childLast++
		if foldName(s.TagName(), xml) == name {
			p.ofTypeLast++
		}
	}
	return p
}

func foldName(name string, xml bool) string {
	if xml {
		return name
	}
	return strings.ToLower(name)
}

func (c *EvalContext) positions(n Node) positions {
	if c.index == nil {
		return countPositions(n, c.XML)
	}
	return c.index.get(n, c.XML)
}
