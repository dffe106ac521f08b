// parser.go is a hand-written recursive-descent parser producing an *ast.Program. The teacher
// drives goyacc from a concurrently running lexer (frontend/tree.go); splc replaces the generated
// parser with recursive descent because go.mod cannot ship a generated parser.yy.go without running
// goyacc during build, which this project's build step does not do. The lexer's scanning primitives
// are kept (lexer.go); only the grammar-driving layer changes shape. Errors accumulate into a
// util.Bag and local recovery skips past the next ';' or '}' (closing parentheses and brackets are
// not recovery points), aborting once util.MaxRecoverableErrors is reached.
package frontend

import (
	"splc/src/ast"
	"splc/src/errors"
	"splc/src/types"
	"splc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// parser holds the token stream and cursor plus the binder and error bag threaded through one parse.
type parser struct {
	toks   []token
	pos    int
	bag    *util.Bag
	binder *binder
}

// ---------------------
// ----- functions -----
// ---------------------

// Parse lexes and parses src into a *ast.Program. Returns the program and a slice of warnings even
// on success; returns the LexError from Tokenize, or else the first error collected in the bag (a
// SyntaxError or BindingError), as the non-nil error.
func Parse(src string) (*ast.Program, []*errors.Diagnostic, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, nil, err
	}

	var warnings []*errors.Diagnostic
	p := &parser{
		toks: toks,
		bag:  util.NewBag(8),
		binder: newBinder(func(d *errors.Diagnostic) {
			warnings = append(warnings, d)
		}),
	}

	prog := p.parseProgram()
	if p.bag.Len() > 0 {
		errs := p.bag.Errors()
		return prog, warnings, errs[0]
	}
	return prog, warnings, nil
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) peekN(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) at(tt tokenType) bool { return p.cur().typ == tt }

func (p *parser) expect(tt tokenType, what string) token {
	if !p.at(tt) {
		p.errorf("expected %s", what)
		return p.cur()
	}
	return p.advance()
}

func (p *parser) errorf(format string, args ...interface{}) {
	p.bag.Append(errors.NewSyntaxError(p.cur().rng, format, args...))
	p.recover()
}

// recover skips tokens up to and including the next ';' or '}' (or to EOF). Closing parentheses
// and brackets do not stop it.
func (p *parser) recover() {
	for !p.at(tokEOF) {
		t := p.advance()
		if t.typ == tokSemi || t.typ == tokRBrace {
			return
		}
	}
}

// ------------------------
// ----- Grammar rules ----
// ------------------------

func (p *parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.at(tokEOF) {
		if p.bag.Full() {
			break
		}
		if p.looksLikeDecl() {
			prog.Globals = append(prog.Globals, p.parseGlobalDecl())
		} else if p.at(tokIdentifier) {
			prog.Funcs = append(prog.Funcs, p.parseFuncDecl())
		} else {
			p.errorf("expected declaration or function at top level")
		}
	}
	return prog
}

// looksLikeDecl performs bounded lookahead to tell a `var`/typed declaration apart from a function
// declaration, both of which start with an identifier-ish token.
func (p *parser) looksLikeDecl() bool {
	if p.at(tokVar) {
		return true
	}
	save := p.pos
	defer func() { p.pos = save }()
	_, ok := p.tryParseType()
	return ok && p.at(tokIdentifier) && p.peekN(1).typ == tokAssign
}

func (p *parser) parseGlobalDecl() *ast.GlobalDecl {
	start := p.cur().rng
	var declared *ast.TypeExpr
	if p.at(tokVar) {
		p.advance()
	} else {
		declared, _ = p.tryParseType()
	}
	name := p.expect(tokIdentifier, "identifier").val
	id := p.binder.declare(name, start)
	p.expect(tokAssign, "'='")
	init := p.parseExpr()
	p.expect(tokSemi, "';'")
	return &ast.GlobalDecl{Name: name, ID: id, Declared: declared, Init: init,
		Base: baseAt(start)}
}

func (p *parser) parseFuncDecl() *ast.FuncDecl {
	start := p.cur().rng
	name := p.advance().val
	p.expect(tokLParen, "'('")

	p.binder.push()
	var params []*ast.Param
	for !p.at(tokRParen) && !p.at(tokEOF) {
		prng := p.cur().rng
		pname := p.expect(tokIdentifier, "parameter name").val
		pid := p.binder.declare(pname, prng)
		params = append(params, &ast.Param{Name: pname, ID: pid, Base: baseAt(prng)})
		if p.at(tokComma) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(tokRParen, "')'")

	var ret *ast.TypeExpr
	hasSig := false
	if p.at(tokDColon) {
		hasSig = true
		p.advance()
		for !p.at(tokArrow) && !p.at(tokLBrace) && !p.at(tokEOF) {
			// Declared argument types in the `:: T1 T2 -> Tret` signature form; SPL's formal
			// parameters carry no per-parameter type syntax beyond this positional list, so these
			// are parsed and discarded positionally (the binder already owns the parameter ids).
			p.tryParseType()
		}
		if p.at(tokArrow) {
			p.advance()
			ret, _ = p.tryParseType()
		}
	}

	body := p.parseBlock()
	p.binder.pop()

	return &ast.FuncDecl{Name: name, Params: params, Ret: ret, HasSig: hasSig, Body: body, Base: baseAt(start)}
}

func (p *parser) parseBlock() *ast.Block {
	start := p.cur().rng
	p.expect(tokLBrace, "'{'")
	p.binder.push()
	var stmts []ast.Stmt
	for !p.at(tokRBrace) && !p.at(tokEOF) {
		stmts = append(stmts, p.parseStmt())
	}
	p.binder.pop()
	p.expect(tokRBrace, "'}'")
	return &ast.Block{Stmts: stmts, Base: baseAt(start)}
}

func (p *parser) parseStmt() ast.Stmt {
	start := p.cur().rng
	switch {
	case p.looksLikeDecl():
		return p.parseLocalDecl()
	case p.at(tokIf):
		return p.parseIf()
	case p.at(tokWhile):
		return p.parseWhile()
	case p.at(tokReturn):
		p.advance()
		var val ast.Expr
		if !p.at(tokSemi) {
			val = p.parseExpr()
		}
		p.expect(tokSemi, "';'")
		return &ast.ReturnStmt{Value: val, Base: baseAt(start)}
	default:
		return p.parseAssignOrExprStmt()
	}
}

func (p *parser) parseLocalDecl() ast.Stmt {
	start := p.cur().rng
	var declared *ast.TypeExpr
	if p.at(tokVar) {
		p.advance()
	} else {
		declared, _ = p.tryParseType()
	}
	name := p.expect(tokIdentifier, "identifier").val
	id := p.binder.declare(name, start)
	p.expect(tokAssign, "'='")
	init := p.parseExpr()
	p.expect(tokSemi, "';'")
	return &ast.LocalDecl{Name: name, ID: id, Declared: declared, Init: init, Base: baseAt(start)}
}

func (p *parser) parseIf() ast.Stmt {
	start := p.cur().rng
	p.advance()
	p.expect(tokLParen, "'('")
	cond := p.parseExpr()
	p.expect(tokRParen, "')'")
	then := p.parseBlock()
	var els *ast.Block
	if p.at(tokElse) {
		p.advance()
		els = p.parseBlock()
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: els, Base: baseAt(start)}
}

func (p *parser) parseWhile() ast.Stmt {
	start := p.cur().rng
	p.advance()
	p.expect(tokLParen, "'('")
	cond := p.parseExpr()
	p.expect(tokRParen, "')'")
	body := p.parseBlock()
	return &ast.WhileStmt{Cond: cond, Body: body, Base: baseAt(start)}
}

// parseAssignOrExprStmt parses a leading expression and then decides, based on what follows,
// whether it is an assignment target or a bare call statement.
func (p *parser) parseAssignOrExprStmt() ast.Stmt {
	start := p.cur().rng
	e := p.parsePostfix()
	if p.at(tokAssign) {
		p.advance()
		lv := exprToLvalue(e, p)
		val := p.parseExpr()
		p.expect(tokSemi, "';'")
		return &ast.AssignStmt{Target: lv, Value: val, Base: baseAt(start)}
	}
	call, ok := e.(*ast.CallExpr)
	if !ok {
		p.errorf("expected assignment or call statement")
		return &ast.ExprStmt{Base: baseAt(start)}
	}
	p.expect(tokSemi, "';'")
	return &ast.ExprStmt{Call: call, Base: baseAt(start)}
}

func exprToLvalue(e ast.Expr, p *parser) ast.Lvalue {
	switch n := e.(type) {
	case *ast.VariableExpr:
		return &ast.VarLvalue{Name: n.Name, ID: n.ID, Base: baseAt(n.Range())}
	case *ast.FieldAccessExpr:
		target := exprToLvalue(n.Target, p)
		return &ast.FieldLvalue{Target: target, Sel: n.Sel, Base: baseAt(n.Range())}
	default:
		p.errorf("invalid assignment target")
		return &ast.VarLvalue{}
	}
}

// ---------------------------
// ----- Expression rules ----
// ---------------------------

func (p *parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *parser) parseOr() ast.Expr {
	l := p.parseAnd()
	for p.at(tokOr) {
		start := l.Range()
		p.advance()
		r := p.parseAnd()
		l = &ast.BinaryExpr{Op: "||", L: l, R: r, Base: baseAt(start)}
	}
	return l
}

func (p *parser) parseAnd() ast.Expr {
	l := p.parseEquality()
	for p.at(tokAnd) {
		start := l.Range()
		p.advance()
		r := p.parseEquality()
		l = &ast.BinaryExpr{Op: "&&", L: l, R: r, Base: baseAt(start)}
	}
	return l
}

func (p *parser) parseEquality() ast.Expr {
	l := p.parseRelational()
	for p.at(tokEq) || p.at(tokNe) {
		op := "=="
		if p.at(tokNe) {
			op = "!="
		}
		start := l.Range()
		p.advance()
		r := p.parseRelational()
		l = &ast.BinaryExpr{Op: op, L: l, R: r, Base: baseAt(start)}
	}
	return l
}

func (p *parser) parseRelational() ast.Expr {
	l := p.parseCons()
	if p.at(tokLt) || p.at(tokLe) || p.at(tokGt) || p.at(tokGe) {
		op := map[tokenType]string{tokLt: "<", tokLe: "<=", tokGt: ">", tokGe: ">="}[p.cur().typ]
		start := l.Range()
		p.advance()
		r := p.parseCons()
		l = &ast.BinaryExpr{Op: op, L: l, R: r, Base: baseAt(start)}
	}
	return l
}

// parseCons is right-associative: `a : b : []`.
func (p *parser) parseCons() ast.Expr {
	l := p.parseAdditive()
	if p.at(tokColon) {
		start := l.Range()
		p.advance()
		r := p.parseCons()
		return &ast.BinaryExpr{Op: ":", L: l, R: r, Base: baseAt(start)}
	}
	return l
}

func (p *parser) parseAdditive() ast.Expr {
	l := p.parseMultiplicative()
	for p.at(tokPlus) || p.at(tokMinus) {
		op := "+"
		if p.at(tokMinus) {
			op = "-"
		}
		start := l.Range()
		p.advance()
		r := p.parseMultiplicative()
		l = &ast.BinaryExpr{Op: op, L: l, R: r, Base: baseAt(start)}
	}
	return l
}

func (p *parser) parseMultiplicative() ast.Expr {
	l := p.parseUnary()
	for p.at(tokStar) || p.at(tokSlash) || p.at(tokPercent) {
		op := map[tokenType]string{tokStar: "*", tokSlash: "/", tokPercent: "%"}[p.cur().typ]
		start := l.Range()
		p.advance()
		r := p.parseUnary()
		l = &ast.BinaryExpr{Op: op, L: l, R: r, Base: baseAt(start)}
	}
	return l
}

func (p *parser) parseUnary() ast.Expr {
	if p.at(tokNot) || p.at(tokMinus) {
		start := p.cur().rng
		op := "!"
		if p.at(tokMinus) {
			op = "-"
		}
		p.advance()
		x := p.parseUnary()
		if op == "-" {
			if lit, ok := x.(*ast.IntLit); ok {
				lit.Negated = true
				return lit
			}
		}
		return &ast.UnaryExpr{Op: op, X: x, Base: baseAt(start)}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for p.at(tokDot) {
		start := e.Range()
		p.advance()
		selTok := p.advance()
		sel, ok := fieldSelectors[selTok.val]
		if !ok {
			p.errorf("expected one of fst, snd, hd, tl after '.'")
			sel = fieldSelectors["fst"]
		}
		e = &ast.FieldAccessExpr{Target: e, Sel: astSel(sel), Base: baseAt(start)}
	}
	return e
}

func astSel(tt tokenType) ast.Selector {
	switch tt {
	case tokFst:
		return ast.Fst
	case tokSnd:
		return ast.Snd
	case tokHd:
		return ast.Hd
	case tokTl:
		return ast.Tl
	default:
		return ast.Fst
	}
}

func (p *parser) parsePrimary() ast.Expr {
	start := p.cur().rng
	switch {
	case p.at(tokInt):
		t := p.advance()
		return &ast.IntLit{Value: t.num, Base: baseAt(start)}
	case p.at(tokChar):
		t := p.advance()
		return &ast.CharLit{Value: decodeCharLit(t.val), Base: baseAt(start)}
	case p.at(tokString):
		t := p.advance()
		return desugarString(decodeStringLit(t.val), baseAt(start))
	case p.at(tokTrue):
		p.advance()
		return &ast.BoolLit{Value: true, Base: baseAt(start)}
	case p.at(tokFalse):
		p.advance()
		return &ast.BoolLit{Value: false, Base: baseAt(start)}
	case p.at(tokLBracket):
		p.advance()
		p.expect(tokRBracket, "']'")
		return &ast.ListNilLit{Base: baseAt(start)}
	case p.at(tokLParen):
		p.advance()
		first := p.parseExpr()
		if p.at(tokComma) {
			p.advance()
			second := p.parseExpr()
			p.expect(tokRParen, "')'")
			return &ast.TupleExpr{Fst: first, Snd: second, Base: baseAt(start)}
		}
		p.expect(tokRParen, "')'")
		return first
	case p.at(tokIdentifier):
		name := p.advance().val
		if p.at(tokLParen) {
			p.advance()
			var args []ast.Expr
			for !p.at(tokRParen) && !p.at(tokEOF) {
				args = append(args, p.parseExpr())
				if p.at(tokComma) {
					p.advance()
				} else {
					break
				}
			}
			p.expect(tokRParen, "')'")
			return &ast.CallExpr{Name: name, Args: args, Base: baseAt(start)}
		}
		id, ok := p.binder.resolve(name)
		if !ok {
			p.bag.Append(errors.NewBindingError(start, "use of undeclared name %q", name))
		}
		return &ast.VariableExpr{Name: name, ID: id, Base: baseAt(start)}
	default:
		p.errorf("expected expression")
		return &ast.IntLit{Base: baseAt(start)}
	}
}

// desugarString turns a decoded string into a Char : Char : ... : [] chain (§6).
func desugarString(s string, b ast.Base) ast.Expr {
	runes := []rune(s)
	var tail ast.Expr = &ast.ListNilLit{Base: b}
	for i := len(runes) - 1; i >= 0; i-- {
		tail = &ast.BinaryExpr{Op: ":", L: &ast.CharLit{Value: runes[i], Base: b}, R: tail, Base: b}
	}
	return tail
}

func decodeCharLit(lexeme string) rune {
	inner := lexeme[1 : len(lexeme)-1]
	r := []rune(inner)
	if len(r) == 0 {
		return 0
	}
	if r[0] == '\\' && len(r) > 1 {
		return unescape(r[1])
	}
	return r[0]
}

func decodeStringLit(lexeme string) string {
	inner := lexeme[1 : len(lexeme)-1]
	var out []rune
	runes := []rune(inner)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			i++
			out = append(out, unescape(runes[i]))
			continue
		}
		out = append(out, runes[i])
	}
	return string(out)
}

func unescape(c rune) rune {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case '0':
		return 0
	default:
		return c
	}
}

// ------------------------
// ----- Type syntax ------
// ------------------------

// tryParseType attempts to parse a TypeExpr at the current position, restoring the cursor and
// returning ok=false if the current token cannot start a type.
func (p *parser) tryParseType() (*ast.TypeExpr, bool) {
	switch p.cur().typ {
	case tokTypeInt:
		start := p.advance().rng
		return &ast.TypeExpr{Kind: types.Int, Base: baseAt(start)}, true
	case tokTypeBool:
		start := p.advance().rng
		return &ast.TypeExpr{Kind: types.Bool, Base: baseAt(start)}, true
	case tokTypeChar:
		start := p.advance().rng
		return &ast.TypeExpr{Kind: types.Char, Base: baseAt(start)}, true
	case tokTypeVoid:
		start := p.advance().rng
		return &ast.TypeExpr{Kind: types.Void, Base: baseAt(start)}, true
	case tokLBracket:
		start := p.advance().rng
		elem, ok := p.tryParseType()
		if !ok || !p.at(tokRBracket) {
			return nil, false
		}
		p.advance()
		return &ast.TypeExpr{Kind: types.List, Elem: elem, Base: baseAt(start)}, true
	case tokLParen:
		start := p.advance().rng
		fst, ok := p.tryParseType()
		if !ok || !p.at(tokComma) {
			return nil, false
		}
		p.advance()
		snd, ok := p.tryParseType()
		if !ok || !p.at(tokRParen) {
			return nil, false
		}
		p.advance()
		return &ast.TypeExpr{Kind: types.Tuple, Fst: fst, Snd: snd, Base: baseAt(start)}, true
	case tokIdentifier:
		name := p.cur().val
		if len(name) == 0 || !isLowerStart(name) {
			return nil, false
		}
		start := p.advance().rng
		return &ast.TypeExpr{Kind: types.Var, Name: name, Base: baseAt(start)}, true
	default:
		return nil, false
	}
}

func isLowerStart(s string) bool {
	c := s[0]
	return c >= 'a' && c <= 'z'
}

// ------------------------
// ----- helpers ----------
// ------------------------

func baseAt(rng errors.CodeRange) ast.Base { return ast.Base{Rng: rng} }
