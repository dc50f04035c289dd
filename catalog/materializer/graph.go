package materializer

type edge struct {
	parentTag string
	parentKey any
	childTag  string
}

type member struct {
	edge
	childKey any
}

// Graph holds one identity map per tag and the parent-child links between entities.
type Graph struct {
	entities  map[string]map[any]any
	order     map[string][]any
	links     map[edge][]any
	members   map[member]struct{}
	assembled map[string]map[any]bool
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		entities:  make(map[string]map[any]any),
		order:     make(map[string][]any),
		links:     make(map[edge][]any),
		members:   make(map[member]struct{}),
		assembled: make(map[string]map[any]bool),
	}
}

// Lookup returns the entity with the given tag and key.
func (g *Graph) Lookup(tag string, key any) (any, bool) {
	e, ok := g.entities[tag][key]
	return e, ok
}

// Store adds an entity to the identity map of its tag, unless the key is already present.
// It reports whether the entity was added.
func (g *Graph) Store(tag string, key any, entity any) bool {
	m, ok := g.entities[tag]
	if !ok {
		m = make(map[any]any)
		g.entities[tag] = m
	}

	if _, exists := m[key]; exists {
		return false
	}

	m[key] = entity
	g.order[tag] = append(g.order[tag], key)

	return true
}

// Keys returns the keys of a tag in first-seen order.
func (g *Graph) Keys(tag string) []any {
	return g.order[tag]
}

// Len returns the number of distinct entities stored under a tag.
func (g *Graph) Len(tag string) int {
	return len(g.entities[tag])
}

// Link adds childKey to the children of the parent for childTag, unless it is already linked.
// It reports whether a new link was created.
func (g *Graph) Link(parentTag string, parentKey any, childTag string, childKey any) bool {
	m := member{edge: edge{parentTag: parentTag, parentKey: parentKey, childTag: childTag}, childKey: childKey}
	if _, exists := g.members[m]; exists {
		return false
	}

	g.members[m] = struct{}{}
	g.links[m.edge] = append(g.links[m.edge], childKey)

	return true
}

// Replace makes childKey the only child of the parent for childTag.
func (g *Graph) Replace(parentTag string, parentKey any, childTag string, childKey any) {
	e := edge{parentTag: parentTag, parentKey: parentKey, childTag: childTag}
	for _, old := range g.links[e] {
		delete(g.members, member{edge: e, childKey: old})
	}

	g.links[e] = []any{childKey}
	g.members[member{edge: e, childKey: childKey}] = struct{}{}
}

// Children returns the keys linked below the parent for childTag, in link order.
func (g *Graph) Children(parentTag string, parentKey any, childTag string) []any {
	return g.links[edge{parentTag: parentTag, parentKey: parentKey, childTag: childTag}]
}

func (g *Graph) markAssembled(tag string, key any) bool {
	m, ok := g.assembled[tag]
	if !ok {
		m = make(map[any]bool)
		g.assembled[tag] = m
	}

	if m[key] {
		return false
	}

	m[key] = true

	return true
}
