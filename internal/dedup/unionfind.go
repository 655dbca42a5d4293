// file: internal/dedup/unionfind.go
// version: 1.0.0
// guid: 6f2b8d4a-9c5e-4a7b-8d1f-3e9c6a2b7d5f

package dedup

// unionFind is a flat, arena-indexed disjoint-set structure with path
// compression and union by rank. Elements are slice indexes into the
// group being clustered.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// find returns the root of x, compressing the path along the way.
func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// union joins the sets containing a and b.
func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// components returns the connected components as slices of element
// indexes, ordered by smallest member index for determinism.
func (uf *unionFind) components() [][]int {
	byRoot := make(map[int][]int)
	order := make([]int, 0)
	for i := range uf.parent {
		root := uf.find(i)
		if _, seen := byRoot[root]; !seen {
			order = append(order, root)
		}
		byRoot[root] = append(byRoot[root], i)
	}
	out := make([][]int, 0, len(order))
	for _, root := range order {
		out = append(out, byRoot[root])
	}
	return out
}
