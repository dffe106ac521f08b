package frontend

// tokenType differentiates tokens scanned by the lexer. Adapted from the teacher's itemType
// (frontend/lexer.go) and keyword table (frontend/lang.go), re-keyed for SPL's surface (§6).
type tokenType int

const (
	tokEOF tokenType = iota
	tokError

	tokIdentifier
	tokInt
	tokChar
	tokString

	// Keywords.
	tokVar
	tokIf
	tokElse
	tokWhile
	tokReturn
	tokTrue
	tokFalse
	tokTypeInt
	tokTypeBool
	tokTypeChar
	tokTypeVoid

	// Punctuation.
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokComma
	tokSemi
	tokDot
	tokAssign
	tokArrow  // ->
	tokDColon // ::

	// Operators.
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokEq
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
	tokAnd
	tokOr
	tokNot
	tokColon // cons
	tokFst
	tokSnd
	tokHd
	tokTl
)

// keywords maps a reserved SPL identifier to its token type: a flat map in place of the teacher's
// length-bucketed isKeyword lookup table (frontend/lang.go).
var keywords = map[string]tokenType{
	"var":    tokVar,
	"if":     tokIf,
	"else":   tokElse,
	"while":  tokWhile,
	"return": tokReturn,
	"True":   tokTrue,
	"False":  tokFalse,
	"Int":    tokTypeInt,
	"Bool":   tokTypeBool,
	"Char":   tokTypeChar,
	"Void":   tokTypeVoid,
}

// fieldSelectors maps the four field-access keywords from their lexeme to their token type, checked
// after a '.' token.
var fieldSelectors = map[string]tokenType{
	"fst": tokFst,
	"snd": tokSnd,
	"hd":  tokHd,
	"tl":  tokTl,
}
