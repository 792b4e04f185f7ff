package graphview

import (
	"sort"

	"tablegraph/backend/internal/constants"
)

// NodeSet is a set of node ids
type NodeSet map[string]struct{}

// Has reports membership
func (s NodeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order
func (s NodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Neighbors returns focus plus every node within maxHops undirected hops of it.
// Each hop scans all links once; expansion stops early when a hop adds nothing.
// An empty focus yields an empty set and a negative maxHops means DefaultHops.
func Neighbors(links []Link, focus string, maxHops int) NodeSet {
	result := NodeSet{}
	if focus == "" {
		return result
	}
	if maxHops < 0 {
		maxHops = constants.DefaultHops
	}

	result[focus] = struct{}{}
	frontier := NodeSet{focus: {}}

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		next := NodeSet{}
		for _, l := range links {
			if frontier.Has(l.Source) && !result.Has(l.Target) {
				result[l.Target] = struct{}{}
				next[l.Target] = struct{}{}
			}
			if frontier.Has(l.Target) && !result.Has(l.Source) {
				result[l.Source] = struct{}{}
				next[l.Source] = struct{}{}
			}
		}
		frontier = next
	}
	return result
}

// Neighborhood is the highlight set for one focused node
type Neighborhood struct {
	Focus string   `json:"focus"`
	Hops  int      `json:"hops"`
	Nodes []string `json:"nodes"`
	// Links are the links whose both ends are highlighted
	Links []Link `json:"links"`
}

// Highlight computes the neighborhood of focus within g
func Highlight(g *Graph, focus string, maxHops int) *Neighborhood {
	if maxHops < 0 {
		maxHops = constants.DefaultHops
	}
	set := Neighbors(g.Links, focus, maxHops)

	links := []Link{}
	for _, l := range g.Links {
		if set.Has(l.Source) && set.Has(l.Target) {
			links = append(links, l)
		}
	}
	return &Neighborhood{
		Focus: focus,
		Hops:  maxHops,
		Nodes: set.Sorted(),
		Links: links,
	}
}
