package chapter

// Handler runs the chapter codecs on enter and leave. A true return means the
// codec navigated somewhere else and the transition must stop.
type Handler interface {
	Enter(id ID) bool
	Leave(id ID) bool
}

// EnterAndLeave leaves every chapter from prev up to, not including, the
// lowest common ancestor of prev and next, then enters every chapter from
// below that ancestor down to next. Either end may be None. It reports
// whether a handler navigated.
func (a *Arena) EnterAndLeave(prev, next ID, h Handler) bool {
	common := prev
	for common != None && !a.IsAncestor(common, next) {
		if h.Leave(common) {
			return true
		}
		common = a.nodes[common].Parent
	}
	if next == None {
		return false
	}

	path := a.Path(next)
	start := 0
	if common != None {
		for i, id := range path {
			if id == common {
				start = i + 1
				break
			}
		}
		if common == next {
			start = len(path) - 1
		}
	}
	for _, id := range path[start:] {
		if h.Enter(id) {
			return true
		}
	}
	return false
}
