package parser

import (
	"io/ioutil"
	"regexp"
	"strings"

	"github.com/alecthomas/participle"

	"github.com/undisbeliever/wiz/internal/ast"
)

// stripCommentsRegex mirrors compiler_main.go's stripComments exactly:
// line comments, block comments, and quoted string/char literals are
// all matched by the same alternation so that only the comment matches
// (never the quoted text, which the callback passes through unchanged)
// get blanked out.
var stripCommentsRegex = regexp.MustCompile(`(?s)(?m)//.*?$|/\*.*?\*/|'(?:\\.|[^\\'])*'|"(?:\\.|[^\\"])*"`)

func stripComments(input string) string {
	return stripCommentsRegex.ReplaceAllStringFunc(input, func(s string) string {
		if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'") {
			return s
		}
		return " "
	})
}

// Parser turns Wiz source files into internal/ast trees, satisfying
// internal/importer.Parser. Built once and reused across files: the
// participle grammar itself is immutable.
type Parser struct {
	build *participle.Parser
}

// New builds the grammar once, the way compiler_main.go's GenerateAST
// builds its parser once per compile rather than per file.
func New() *Parser {
	build := participle.MustBuild(
		&fileG{},
		participle.Lexer(wizLexer),
		participle.Unquote("String"),
		participle.UseLookahead(5),
	)
	return &Parser{build: build}
}

// ParseFile reads path, strips comments, and parses the result into an
// ast.File.
func (p *Parser) ParseFile(path string) (*ast.File, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	source := stripComments(string(raw))

	root := &fileG{}
	if err := p.build.ParseString(source, root); err != nil {
		return nil, err
	}
	return fileToAST(path, root)
}
