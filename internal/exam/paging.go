package exam

// pager partitions a fixed question set into 1-based pages of a fixed
// size; the last page may be shorter. Page math is pure so GetPage and
// SubmitPage always agree on boundaries.
type pager struct {
	total int
	size  int
}

func newPager(total, size int) pager {
	if size < 1 {
		size = 1
	}
	return pager{total: total, size: size}
}

func (p pager) totalPages() int {
	if p.total == 0 {
		return 1
	}
	return (p.total + p.size - 1) / p.size
}

// clamp maps any requested page onto the closest valid one, never errors.
func (p pager) clamp(n int) int {
	if n < 1 {
		return 1
	}
	if last := p.totalPages(); n > last {
		return last
	}
	return n
}

// bounds returns the half-open index range [lo, hi) of page n.
func (p pager) bounds(n int) (lo, hi int) {
	n = p.clamp(n)
	lo = (n - 1) * p.size
	hi = lo + p.size
	if hi > p.total {
		hi = p.total
	}
	if lo > p.total {
		lo = p.total
	}
	return lo, hi
}

func (p pager) hasNext(n int) bool {
	return p.clamp(n) < p.totalPages()
}
