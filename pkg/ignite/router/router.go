// Package router implements the longest-prefix route lookup this module's
// request driver (reqcore.ProcessRequest) consults to resolve a handler
// for a request's path. Adapted from bolt/core/router.go's radix tree: the
// teacher's node supports exact, :param, and *wildcard segments for a
// full web framework; this module's spec only calls for longest-prefix
// matching (e.g. "/static/" matching "/static/css/site.css"), so the node
// here is trimmed to prefix segments only, keeping the teacher's
// cache-line-ordered field layout and registration/traversal shape.
package router

import (
	"sort"
	"sync"

	"github.com/watt-toolkit/ignite/pkg/ignite/reqcore"
)

// node is one segment of the registered-path trie. Field order mirrors
// the teacher's cache-line grouping: hot traversal fields first, the
// legacy/debug-only path string last.
type node struct {
	label     byte // first byte of pathBytes, checked before a full compare
	pathBytes []byte
	children  []*node
	route     reqcore.Route
	hasRoute  bool

	path string // retained for diagnostics only
}

// Trie is a longest-prefix route table: Add registers a handler at an
// exact path prefix, and LongestPrefix finds the most specific registered
// prefix of a request path, the way a static-file or API-gateway route
// table dispatches "/api/" to one handler and "/api/v2/" to a more
// specific one.
type Trie struct {
	mu   sync.RWMutex
	root *node
}

// New creates an empty Trie.
func New() *Trie {
	return &Trie{root: &node{}}
}

// Add registers handler at prefix with no POST body opt-in (spec.md's
// HAS_POST_DATA flag, off by default — a GET/HEAD/DELETE/OPTIONS-style
// route). Registering the same prefix twice replaces the previous route.
func (t *Trie) Add(prefix string, handler reqcore.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insert([]byte(prefix), reqcore.Route{Handler: handler}, prefix)
}

// AddWithBody registers handler at prefix with the POST body opt-in set
// (spec.md's HAS_POST_DATA flag), so reqcore.Connection will ingest a
// POST body bound for this route instead of rejecting it with 405.
func (t *Trie) AddWithBody(prefix string, handler reqcore.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insert([]byte(prefix), reqcore.Route{Handler: handler, AllowsBody: true}, prefix)
}

func (t *Trie) insert(prefix []byte, route reqcore.Route, original string) {
	cur := t.root
	for len(prefix) > 0 {
		idx := childIndex(cur.children, prefix[0])
		if idx == -1 {
			child := &node{label: prefix[0], pathBytes: append([]byte(nil), prefix...), route: route, hasRoute: true, path: original}
			cur.children = append(cur.children, child)
			sortChildren(cur.children)
			return
		}
		child := cur.children[idx]
		common := commonPrefixLen(child.pathBytes, prefix)
		switch {
		case common == len(child.pathBytes) && common == len(prefix):
			child.route = route
			child.hasRoute = true
			child.path = original
			return
		case common == len(child.pathBytes):
			cur = child
			prefix = prefix[common:]
		default:
			splitNode(child, common)
			if common == len(prefix) {
				child.route = route
				child.hasRoute = true
				child.path = original
			} else {
				newChild := &node{label: prefix[common], pathBytes: append([]byte(nil), prefix[common:]...), route: route, hasRoute: true, path: original}
				child.children = append(child.children, newChild)
				sortChildren(child.children)
			}
			return
		}
	}
	cur.route = route
	cur.hasRoute = true
	cur.path = original
}

// splitNode breaks child's pathBytes at position n, inserting an
// intermediate node so the trie stays a proper radix tree after a partial
// prefix match during insertion.
func splitNode(child *node, n int) {
	tail := append([]byte(nil), child.pathBytes[n:]...)
	moved := &node{
		label:     tail[0],
		pathBytes: tail,
		children:  child.children,
		route:     child.route,
		hasRoute:  child.hasRoute,
		path:      child.path,
	}
	child.pathBytes = child.pathBytes[:n]
	child.children = []*node{moved}
	child.route = reqcore.Route{}
	child.hasRoute = false
	child.path = ""
}

func childIndex(children []*node, label byte) int {
	for i, c := range children {
		if c.label == label {
			return i
		}
	}
	return -1
}

func sortChildren(children []*node) {
	sort.Slice(children, func(i, j int) bool { return children[i].label < children[j].label })
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// LongestPrefix returns the Route registered at the longest prefix of
// path, walking the trie and remembering the deepest node with a route
// seen along the way (so "/api/" still matches a request for
// "/api/v2/widgets" even though no exact node exists for the full path).
func (t *Trie) LongestPrefix(path []byte) (reqcore.Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cur := t.root
	var best reqcore.Route
	found := false
	if cur.hasRoute {
		best, found = cur.route, true
	}

	for len(path) > 0 {
		idx := childIndex(cur.children, path[0])
		if idx == -1 {
			break
		}
		child := cur.children[idx]
		common := commonPrefixLen(child.pathBytes, path)
		if common < len(child.pathBytes) {
			break
		}
		cur = child
		path = path[common:]
		if cur.hasRoute {
			best, found = cur.route, true
		}
	}
	return best, found
}
