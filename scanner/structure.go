package scanner

import (
	"github.com/dpotapov/go-tagsoup/grammar"
	"github.com/dpotapov/go-tagsoup/token"
)

// markStructure sets WellFormed on the start tokens of block, inline and
// table containers whose end tag closes them without crossing another such
// element.
func markStructure(tokens []*token.Token, g grammar.Grammar) {
	var open []*token.Token
	malformed := make(map[*token.Token]bool)

	for _, t := range tokens {
		if t.Kind != token.Start && t.Kind != token.End {
			continue
		}
		if !tracked(g, t.Tag) {
			continue
		}

		if t.Kind == token.Start {
			if g.HasProperty(t.Tag, grammar.VerifyHierarchy) {
				// A nested element of a kind that may not nest ends the
				// earlier one implicitly.
				for i := len(open) - 1; i >= 0; i-- {
					if open[i].Tag == t.Tag {
						for _, o := range open[i:] {
							malformed[o] = true
						}
						break
					}
				}
			}
			open = append(open, t)
			continue
		}

		if n := len(open); n > 0 && open[n-1].Tag == t.Tag {
			top := open[n-1]
			open = open[:n-1]
			if !malformed[top] {
				top.WellFormed = true
			}
			continue
		}
		for i := len(open) - 1; i >= 0; i-- {
			if open[i].Tag != t.Tag {
				continue
			}
			for _, o := range open[i:] {
				malformed[o] = true
			}
			open = append(open[:i], open[i+1:]...)
			break
		}
	}
}

func tracked(g grammar.Grammar, tag token.Tag) bool {
	if tag.IsPseudo() || !g.IsContainer(tag) {
		return false
	}
	return g.IsMemberOf(tag, grammar.BlockEntity|grammar.InlineEntity|grammar.TableGroup)
}
