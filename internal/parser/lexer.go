// Package parser turns Wiz source text into the internal/ast tree the
// compiler core consumes (spec.md §6's Parser collaborator, explicitly
// out of scope for the core itself).
//
// Grounded on the teacher's mscr/compiler/parser.go: a participle
// struct-tag grammar built directly over Go types, plus
// compiler_main.go's comment-stripping regex pre-pass. The teacher's
// other compiler_main.go steps (shelling out to `gpp` for C-style
// preprocessing, `handleCharacters`'s char-literal-to-int rewrite) have
// no SPEC_FULL.md component to serve: Wiz has its own full expression
// grammar and no spec'd macro-preprocessor stage, so only the
// comment-stripping half survives here.
package parser

import (
	"github.com/alecthomas/participle/lexer"
)

// wizLexer tokenizes Wiz source. Multi-character operators are listed
// before their single-character prefixes so the regexp lexer's
// first-match-wins scan prefers the longer token.
var wizLexer = lexer.Must(lexer.Regexp(
	`(\s+)` +
		`|(?P<Ident>[A-Za-z_][A-Za-z0-9_]*)` +
		`|(?P<Hex>0x[0-9A-Fa-f_]+)` +
		`|(?P<Bin>0b[01_]+)` +
		`|(?P<Int>[0-9][0-9_]*)` +
		`|(?P<String>"(\\.|[^"\\])*")` +
		`|(?P<Char>'(\\.|[^'\\])')` +
		`|(?P<Op>\.\.|<<>|<<<|==|!=|<=|>=|&&|\|\||\+\+|--|<<|>>|::|->|<:|>:|#:|[-+*/%&|^~!<>=.,:;(){}\[\]#@$])`,
))

// There is no separate punctuation token kind: every quoted literal in
// a grammar tag (`"+"`, `"func"`, ...) is checked against the raw text
// of whichever token kind matched, so Ident and Op both serve as
// sources for keyword and operator literals respectively.
