package supervisor

import (
	"iter"
	"maps"
	"slices"
)

// graph records "dependent depends on dependency" edges between processes.
// It is kept acyclic: edges that would close a cycle are rejected.
type graph struct {
	rank       map[string]uint64              // registration order, breaks ties
	deps       map[string]map[string]struct{} // dependent -> dependencies
	dependents map[string]map[string]struct{} // dependency -> dependents
}

func newGraph() *graph {
	return &graph{
		rank:       make(map[string]uint64),
		deps:       make(map[string]map[string]struct{}),
		dependents: make(map[string]map[string]struct{}),
	}
}

func (g *graph) addNode(name string, rank uint64) {
	g.rank[name] = rank
}

func (g *graph) has(name string) bool {
	_, ok := g.rank[name]
	return ok
}

// removeNode drops name and every edge touching it.
func (g *graph) removeNode(name string) {
	for dep := range g.deps[name] {
		delete(g.dependents[dep], name)
	}
	for dependent := range g.dependents[name] {
		delete(g.deps[dependent], name)
	}
	delete(g.deps, name)
	delete(g.dependents, name)
	delete(g.rank, name)
}

// addEdge records that dependent depends on dependency. The graph is left
// untouched if the edge would close a cycle.
func (g *graph) addEdge(dependent, dependency string) bool {
	if dependent == dependency || g.reaches(dependency, dependent) {
		return false
	}
	if g.deps[dependent] == nil {
		g.deps[dependent] = make(map[string]struct{})
	}
	if g.dependents[dependency] == nil {
		g.dependents[dependency] = make(map[string]struct{})
	}
	g.deps[dependent][dependency] = struct{}{}
	g.dependents[dependency][dependent] = struct{}{}
	return true
}

// reaches reports whether to is reachable from from following dependency edges.
func (g *graph) reaches(from, to string) bool {
	seen := make(map[string]struct{})
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		for dep := range g.deps[n] {
			stack = append(stack, dep)
		}
	}
	return false
}

// dependenciesOf returns the direct dependencies of name in registration order.
func (g *graph) dependenciesOf(name string) []string {
	return g.byRank(maps.Keys(g.deps[name]))
}

// dependentsOf yields every process that transitively depends on name,
// each after all of its own dependencies within that set.
func (g *graph) dependentsOf(name string) iter.Seq[string] {
	return func(yield func(string) bool) {
		set := make(map[string]struct{})
		stack := []string{name}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for d := range g.dependents[n] {
				if _, ok := set[d]; !ok {
					set[d] = struct{}{}
					stack = append(stack, d)
				}
			}
		}
		g.topo(set, yield)
	}
}

// order returns every node with dependencies before dependents.
func (g *graph) order() []string {
	set := make(map[string]struct{}, len(g.rank))
	for n := range g.rank {
		set[n] = struct{}{}
	}
	out := make([]string, 0, len(set))
	g.topo(set, func(n string) bool {
		out = append(out, n)
		return true
	})
	return out
}

// topo runs Kahn's algorithm over the subgraph induced by set. Among ready
// nodes the earliest registered is emitted first.
func (g *graph) topo(set map[string]struct{}, yield func(string) bool) {
	indegree := make(map[string]int, len(set))
	var ready []string
	for n := range set {
		for dep := range g.deps[n] {
			if _, ok := set[dep]; ok {
				indegree[n]++
			}
		}
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	for len(ready) > 0 {
		i := 0
		for j := range ready {
			if g.rank[ready[j]] < g.rank[ready[i]] {
				i = j
			}
		}
		n := ready[i]
		ready = slices.Delete(ready, i, i+1)
		if !yield(n) {
			return
		}
		for d := range g.dependents[n] {
			if _, ok := set[d]; !ok {
				continue
			}
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
}

func (g *graph) byRank(names iter.Seq[string]) []string {
	out := slices.Collect(names)
	slices.SortFunc(out, func(a, b string) int {
		switch {
		case g.rank[a] < g.rank[b]:
			return -1
		case g.rank[a] > g.rank[b]:
			return 1
		default:
			return 0
		}
	})
	return out
}

// clone returns a deep copy for use outside the supervisor lock.
func (g *graph) clone() *graph {
	c := newGraph()
	maps.Copy(c.rank, g.rank)
	for k, v := range g.deps {
		c.deps[k] = maps.Clone(v)
	}
	for k, v := range g.dependents {
		c.dependents[k] = maps.Clone(v)
	}
	return c
}
