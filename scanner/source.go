package scanner

import (
	"slices"

	"github.com/dpotapov/go-tagsoup/token"
)

// Source is a double-ended queue of tokens. It implements dtd.TokenSource.
//
// Tokens pushed into a Source are owned by it until popped.
type Source struct {
	alloc  *token.Allocator
	tokens []*token.Token
	head   int
}

// NewSource returns an empty source whose tokens come from a. A nil a gets a
// fresh allocator.
func NewSource(a *token.Allocator) *Source {
	if a == nil {
		a = &token.Allocator{}
	}
	return &Source{alloc: a}
}

func (s *Source) Allocator() *token.Allocator {
	return s.alloc
}

func (s *Source) Count() int {
	return len(s.tokens) - s.head
}

// Push appends t at the back.
func (s *Source) Push(t *token.Token) {
	s.tokens = append(s.tokens, t)
}

func (s *Source) PopToken() *token.Token {
	if s.Count() == 0 {
		return nil
	}
	t := s.tokens[s.head]
	s.tokens[s.head] = nil
	s.head++
	if s.head == len(s.tokens) {
		s.tokens = s.tokens[:0]
		s.head = 0
	}
	return t
}

func (s *Source) PeekToken() *token.Token {
	return s.TokenAt(0)
}

func (s *Source) TokenAt(i int) *token.Token {
	if i < 0 || i >= s.Count() {
		return nil
	}
	return s.tokens[s.head+i]
}

func (s *Source) PushTokenFront(t *token.Token) {
	if t == nil {
		return
	}
	if s.head > 0 {
		s.head--
		s.tokens[s.head] = t
		return
	}
	s.tokens = slices.Insert(s.tokens, 0, t)
}

// PrependTokens puts tokens in front so that tokens[0] is popped next.
func (s *Source) PrependTokens(tokens []*token.Token) {
	if len(tokens) == 0 {
		return
	}
	if s.head >= len(tokens) {
		s.head -= len(tokens)
		copy(s.tokens[s.head:], tokens)
		return
	}
	s.tokens = slices.Insert(s.tokens[s.head:], 0, tokens...)
	s.head = 0
}

// Release drops every pending token.
func (s *Source) Release() {
	for t := s.PopToken(); t != nil; t = s.PopToken() {
		s.alloc.ReleaseToken(t)
	}
}
