package lexer

import "github.com/buildc-lang/buildc/internal/token"

// punct3 is a sparse 3-rune lookup table for the multi-character
// punctuators that are three runes long (spec §6.1): <<=, >>=, and the
// one case where the two-rune prefix isn't itself a token, "...". Reading
// through a missing first or second level yields the zero value of the
// next map (nil), and indexing a nil map for reads is well defined in Go,
// so chained lookups never panic.
var punct3 = map[rune]map[rune]map[rune]token.Kind{
	'<': {'<': {'=': token.ShiftLeftEqual}},
	'>': {'>': {'=': token.ShiftRightEqual}},
	'.': {'.': {'.': token.Ellipsis}},
}

var twoChar = map[[2]rune]token.Kind{
	{'<', '<'}: token.ShiftLeft,
	{'>', '>'}: token.ShiftRight,
	{'<', '='}: token.LessEqual,
	{'>', '='}: token.GreaterEqual,
	{'=', '='}: token.EqualEqual,
	{'!', '='}: token.NotEqual,
	{'+', '='}: token.PlusEqual,
	{'-', '='}: token.MinusEqual,
	{'*', '='}: token.StarEqual,
	{'/', '='}: token.SlashEqual,
	{'%', '='}: token.PercentEqual,
	{'&', '='}: token.AmpEqual,
	{'|', '='}: token.PipeEqual,
	{'^', '='}: token.CaretEqual,
	{'=', '>'}: token.FatArrow,
}

var oneChar = map[rune]token.Kind{
	'+': token.Plus, '-': token.Minus, '*': token.Star, '/': token.Slash, '%': token.Percent,
	'&': token.Amp, '|': token.Pipe, '~': token.Tilde, '^': token.Caret,
	'<': token.Less, '>': token.Greater, '=': token.Equal,
	',': token.Comma, ':': token.Colon, '.': token.Dot,
	'(': token.LParen, ')': token.RParen,
	'{': token.LBrace, '}': token.RBrace,
	'[': token.LBracket, ']': token.RBracket,
}

// twoCharPunct looks up a two-rune punctuator. "..": not a token on its own
// (only "..." is), so it deliberately reports false here and is left to the
// 3-char ellipsis lookup in scanPunctuator.
func twoCharPunct(a, b rune) (token.Kind, bool) {
	if a == '.' && b == '.' {
		return token.Illegal, false
	}
	k, ok := twoChar[[2]rune{a, b}]
	return k, ok
}

func oneCharPunct(r rune) (token.Kind, bool) {
	k, ok := oneChar[r]
	return k, ok
}
