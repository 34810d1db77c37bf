package dtd

import (
	"errors"

	"github.com/dpotapov/go-tagsoup/token"
)

var (
	// ErrInterrupted is returned by BuildModel when the sink asked to yield.
	// It is not a failure: calling BuildModel again resumes the parse.
	ErrInterrupted = errors.New("dtd: interrupted")

	// ErrStopParsing is returned once the parse was terminated or hit a
	// fatal error. Errors wrapping it carry the cause.
	ErrStopParsing = errors.New("dtd: parsing stopped")

	errHierarchyTooDeep = errors.New("dtd: hierarchy too deep")
)

// TokenSource is the stream of tokens a DTD consumes. Tokens popped from the
// source are owned by the caller; tokens pushed back are owned by the source.
type TokenSource interface {
	PopToken() *token.Token
	PeekToken() *token.Token
	PushTokenFront(t *token.Token)
	// PrependTokens puts tokens in front of the stream so that tokens[0]
	// is popped first.
	PrependTokens(tokens []*token.Token)
	// TokenAt returns the i-th pending token without removing it, or nil.
	TokenAt(i int) *token.Token
	Count() int
	Allocator() *token.Allocator
}

// Sink receives the tree the DTD builds. Nodes passed to the sink are only
// valid for the duration of the call.
//
// An error returned by any method other than DidProcessAToken stops the
// parse. DidProcessAToken returns ErrInterrupted to ask the DTD to yield.
type Sink interface {
	OpenContainer(n *token.Node) error
	CloseContainer(tag token.Tag) error
	CloseMalformedContainer(tag token.Tag) error
	AddLeaf(n *token.Node) error
	OpenHead() error

	// IsEnabled reports whether scripting (token.Script) or frames
	// (token.Frameset) are enabled.
	IsEnabled(tag token.Tag) bool

	// BeginContext starts a nested context in which misplaced content is
	// built. index is the position, in the DTD stack, of the element the
	// content is relocated under.
	BeginContext(index int) error
	EndContext(index int) error

	DidProcessAToken() error
}

// DoctypeSink is implemented by sinks that want the document type
// declaration.
type DoctypeSink interface {
	AddDocTypeDecl(n *token.Node) error
}

// AttributeSink is implemented by sinks that want the attributes of a
// repeated html or body start tag. The element is not opened again.
type AttributeSink interface {
	MergeAttributes(n *token.Node) error
}
