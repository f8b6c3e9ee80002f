package dirhash

import (
	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// pendingPath is a path discovered by the traverser but not yet visited
type pendingPath struct {
	relPath string
	absPath string
}

// pathQueue keeps discovered paths in traversal order. The smallest path under
// compareRelPaths is always visited next, which yields a depth-first pre-order
// walk with byte-wise sorted siblings.
type pathQueue struct {
	skiplist *zcsl.ZeroCopySkiplist[pendingPath, string, string]
}

// newPathQueue creates an empty pending path queue
func newPathQueue(maxLevels int) *pathQueue {
	if maxLevels < 8 {
		maxLevels = 16
	}

	getKeyFromItem := func(p *pendingPath) string {
		return p.relPath
	}

	getItemSize := func(p *pendingPath) int {
		return len(p.relPath) + len(p.absPath)
	}

	skiplist := zcsl.MakeZeroCopySkiplist[pendingPath, string, string](
		maxLevels,
		getKeyFromItem,
		getItemSize,
		compareRelPaths,
	)

	return &pathQueue{skiplist: skiplist}
}

// Push adds a path; a path already queued is ignored
func (q *pathQueue) Push(relPath, absPath string) bool {
	return q.skiplist.Insert(&pendingPath{relPath: relPath, absPath: absPath}, PendingContext)
}

// Pop removes and returns the smallest queued path
func (q *pathQueue) Pop() (*pendingPath, bool) {
	first := q.skiplist.First()
	if first == nil {
		return nil, false
	}
	item := *first.Item()
	q.skiplist.Delete(item.relPath)
	return &item, true
}

// Length returns the number of queued paths
func (q *pathQueue) Length() int {
	return q.skiplist.Length()
}
