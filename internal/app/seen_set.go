package app

// SeenSet remembers processed trade IDs in insertion order. Once it grows past
// maxSize it keeps only the keepSize most recent IDs.
//
// SeenSet is not safe for concurrent use; the poll goroutine owns it.
type SeenSet struct {
	order    []string
	ids      map[string]struct{}
	maxSize  int
	keepSize int
}

func NewSeenSet(maxSize, keepSize int) *SeenSet {
	if keepSize <= 0 || keepSize >= maxSize {
		keepSize = maxSize / 2
	}
	return &SeenSet{
		ids:      make(map[string]struct{}),
		maxSize:  maxSize,
		keepSize: keepSize,
	}
}

// Add marks id as seen. It returns false if id was already present.
func (s *SeenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)

	if len(s.order) > s.maxSize {
		s.truncate()
	}
	return true
}

func (s *SeenSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *SeenSet) Len() int {
	return len(s.order)
}

func (s *SeenSet) truncate() {
	drop := s.order[:len(s.order)-s.keepSize]
	for _, id := range drop {
		delete(s.ids, id)
	}

	kept := make([]string, s.keepSize, s.maxSize+1)
	copy(kept, s.order[len(drop):])
	s.order = kept
}
