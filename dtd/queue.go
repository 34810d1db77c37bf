package dtd

import "github.com/dpotapov/go-tagsoup/token"

// Queue is a FIFO of tokens. A start token is followed by its attribute
// tokens.
type Queue struct {
	tokens []*token.Token
	head   int
}

func (q *Queue) Len() int {
	return len(q.tokens) - q.head
}

func (q *Queue) Push(t *token.Token) {
	q.tokens = append(q.tokens, t)
}

// PopFront removes and returns the oldest token, or nil.
func (q *Queue) PopFront() *token.Token {
	if q.Len() == 0 {
		return nil
	}
	t := q.tokens[q.head]
	q.tokens[q.head] = nil
	q.head++
	if q.head == len(q.tokens) {
		q.tokens = q.tokens[:0]
		q.head = 0
	}
	return t
}

// Drain removes and returns every token in order.
func (q *Queue) Drain() []*token.Token {
	out := make([]*token.Token, q.Len())
	copy(out, q.tokens[q.head:])
	clear(q.tokens)
	q.tokens = q.tokens[:0]
	q.head = 0
	return out
}

func (q *Queue) release(a *token.Allocator) {
	for t := q.PopFront(); t != nil; t = q.PopFront() {
		a.ReleaseToken(t)
	}
}
