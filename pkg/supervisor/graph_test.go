package supervisor

import (
	"slices"
	"testing"
)

func buildGraph(t *testing.T, nodes []string, edges [][2]string) *graph {
	t.Helper()
	g := newGraph()
	for i, n := range nodes {
		g.addNode(n, uint64(i+1))
	}
	for _, e := range edges {
		if !g.addEdge(e[0], e[1]) {
			t.Fatalf("addEdge(%s, %s) rejected", e[0], e[1])
		}
	}
	return g
}

func TestGraphRejectsCycles(t *testing.T) {
	tests := []struct {
		name       string
		edges      [][2]string
		dependent  string
		dependency string
	}{
		{"self", nil, "a", "a"},
		{"direct", [][2]string{{"b", "a"}}, "a", "b"},
		{"transitive", [][2]string{{"b", "a"}, {"c", "b"}}, "a", "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, []string{"a", "b", "c"}, tt.edges)
			if g.addEdge(tt.dependent, tt.dependency) {
				t.Fatalf("addEdge(%s, %s) accepted a cycle", tt.dependent, tt.dependency)
			}
			if _, ok := g.deps[tt.dependent][tt.dependency]; ok {
				t.Error("rejected edge was recorded")
			}
			if _, ok := g.dependents[tt.dependency][tt.dependent]; ok {
				t.Error("rejected edge was recorded in reverse index")
			}
		})
	}
}

func TestGraphDependentsOfTopological(t *testing.T) {
	g := buildGraph(t,
		[]string{"d", "a", "b", "e", "f", "c"},
		[][2]string{{"a", "d"}, {"b", "a"}, {"e", "d"}, {"f", "b"}, {"f", "e"}},
	)

	got := slices.Collect(g.dependentsOf("d"))
	want := []string{"a", "b", "e", "f"}
	if !slices.Equal(got, want) {
		t.Errorf("dependentsOf(d) = %v, want %v", got, want)
	}

	if got := slices.Collect(g.dependentsOf("c")); len(got) != 0 {
		t.Errorf("dependentsOf(c) = %v, want empty", got)
	}
	if got := slices.Collect(g.dependentsOf("b")); !slices.Equal(got, []string{"f"}) {
		t.Errorf("dependentsOf(b) = %v, want [f]", got)
	}
}

func TestGraphDependentsOfStopsEarly(t *testing.T) {
	g := buildGraph(t, []string{"d", "a", "b"}, [][2]string{{"a", "d"}, {"b", "a"}})

	var got []string
	for n := range g.dependentsOf("d") {
		got = append(got, n)
		break
	}
	if !slices.Equal(got, []string{"a"}) {
		t.Errorf("got %v, want [a]", got)
	}
}

func TestGraphOrder(t *testing.T) {
	g := buildGraph(t,
		[]string{"api", "cache", "db", "worker"},
		[][2]string{{"api", "db"}, {"api", "cache"}, {"worker", "api"}},
	)

	got := g.order()
	want := []string{"cache", "db", "api", "worker"}
	if !slices.Equal(got, want) {
		t.Errorf("order() = %v, want %v", got, want)
	}
}

func TestGraphRemoveNode(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, [][2]string{{"b", "a"}, {"c", "b"}})

	g.removeNode("b")

	if g.has("b") {
		t.Error("b still present")
	}
	if got := slices.Collect(g.dependentsOf("a")); len(got) != 0 {
		t.Errorf("dependentsOf(a) = %v after removing b", got)
	}
	if deps := g.dependenciesOf("c"); len(deps) != 0 {
		t.Errorf("dependenciesOf(c) = %v after removing b", deps)
	}
	// With b gone, a -> c no longer closes a cycle.
	if !g.addEdge("a", "c") {
		t.Error("addEdge(a, c) rejected after removing b")
	}
}

func TestGraphClone(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, [][2]string{{"b", "a"}})
	c := g.clone()
	g.removeNode("b")

	if got := slices.Collect(c.dependentsOf("a")); !slices.Equal(got, []string{"b"}) {
		t.Errorf("clone dependentsOf(a) = %v, want [b]", got)
	}
}
