package repository

import (
	"hash/fnv"

	"github.com/okian/tagrank/internal/domain/types"
)

// Treap ordered for a leaderboard: rank DESC, then competitor id ASC.
// "less" means ranks earlier, so in-order traversal yields the board from
// best to worst. Priorities come from a hash of the id so the shape does not
// depend on insertion order.

type node struct {
	id    string
	rank  float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRank, aID) should appear before (bRank, bID).
func less(aRank float64, aID string, bRank float64, bID string) bool {
	if aRank != bRank {
		return aRank > bRank
	}
	return aID < bID
}

func priority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, rank float64) *node {
	if n == nil {
		return &node{id: id, rank: rank, prio: priority(id), size: 1}
	}
	if less(rank, id, n.rank, n.id) {
		n.left = insert(n.left, id, rank)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rank)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, rank float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case rank == n.rank && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, rank)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, rank)
		}
	case less(rank, id, n.rank, n.id):
		n.left = deleteNode(n.left, id, rank)
	default:
		n.right = deleteNode(n.right, id, rank)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in board order. Positions are
// assigned by the caller.
func collectTopN(n *node, limit int, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, types.Entry{CompetitorID: n.id, Rank: n.rank})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// densePosition walks the board in order and returns the dense position of
// (id, rank), or 0 if it is not on the board.
func densePosition(root *node, id string, rank float64) int {
	pos := 0
	prev := 0.0
	found := 0
	var walk func(n *node) bool
	walk = func(n *node) bool {
		if n == nil {
			return false
		}
		if walk(n.left) {
			return true
		}
		if pos == 0 || n.rank != prev {
			pos++
			prev = n.rank
		}
		if n.id == id && n.rank == rank {
			found = pos
			return true
		}
		return walk(n.right)
	}
	walk(root)
	return found
}
