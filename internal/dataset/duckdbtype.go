package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// UnsupportedTypeError is returned when a DuckDB type string has no Arrow
// equivalent.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported duckdb type: %s", e.Type)
}

// ParseDuckDBType converts a DuckDB logical type string, as printed by
// DESCRIBE, to the Arrow type DuckDB produces when exporting that column.
func ParseDuckDBType(s string) (arrow.DataType, error) {
	p := newTypeParser(s)
	dt, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("parse duckdb type %q: %w", s, err)
	}
	if p.cur.kind != tokEOF {
		return nil, fmt.Errorf("parse duckdb type %q: unexpected %q", s, p.cur.lit)
	}
	return dt, nil
}

var duckdbScalarTypes = map[string]arrow.DataType{
	"BOOLEAN":      arrow.FixedWidthTypes.Boolean,
	"BOOL":         arrow.FixedWidthTypes.Boolean,
	"TINYINT":      arrow.PrimitiveTypes.Int8,
	"INT1":         arrow.PrimitiveTypes.Int8,
	"SMALLINT":     arrow.PrimitiveTypes.Int16,
	"INT2":         arrow.PrimitiveTypes.Int16,
	"INTEGER":      arrow.PrimitiveTypes.Int32,
	"INT":          arrow.PrimitiveTypes.Int32,
	"INT4":         arrow.PrimitiveTypes.Int32,
	"BIGINT":       arrow.PrimitiveTypes.Int64,
	"INT8":         arrow.PrimitiveTypes.Int64,
	"LONG":         arrow.PrimitiveTypes.Int64,
	"UTINYINT":     arrow.PrimitiveTypes.Uint8,
	"USMALLINT":    arrow.PrimitiveTypes.Uint16,
	"UINTEGER":     arrow.PrimitiveTypes.Uint32,
	"UBIGINT":      arrow.PrimitiveTypes.Uint64,
	"HUGEINT":      &arrow.Decimal128Type{Precision: 38, Scale: 0},
	"UHUGEINT":     &arrow.Decimal128Type{Precision: 38, Scale: 0},
	"FLOAT":        arrow.PrimitiveTypes.Float32,
	"REAL":         arrow.PrimitiveTypes.Float32,
	"FLOAT4":       arrow.PrimitiveTypes.Float32,
	"DOUBLE":       arrow.PrimitiveTypes.Float64,
	"FLOAT8":       arrow.PrimitiveTypes.Float64,
	"VARCHAR":      arrow.BinaryTypes.String,
	"TEXT":         arrow.BinaryTypes.String,
	"STRING":       arrow.BinaryTypes.String,
	"UUID":         arrow.BinaryTypes.String,
	"JSON":         arrow.BinaryTypes.String,
	"BLOB":         arrow.BinaryTypes.Binary,
	"BYTEA":        arrow.BinaryTypes.Binary,
	"BIT":          arrow.BinaryTypes.Binary,
	"DATE":         arrow.FixedWidthTypes.Date32,
	"TIME":         arrow.FixedWidthTypes.Time64us,
	"TIMETZ":       arrow.FixedWidthTypes.Time64us,
	"TIMESTAMP":    arrow.FixedWidthTypes.Timestamp_us,
	"DATETIME":     arrow.FixedWidthTypes.Timestamp_us,
	"TIMESTAMP_US": arrow.FixedWidthTypes.Timestamp_us,
	"TIMESTAMP_S":  arrow.FixedWidthTypes.Timestamp_s,
	"TIMESTAMP_MS": arrow.FixedWidthTypes.Timestamp_ms,
	"TIMESTAMP_NS": arrow.FixedWidthTypes.Timestamp_ns,
	"TIMESTAMPTZ":  &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"},
	"INTERVAL":     arrow.FixedWidthTypes.MonthDayNanoInterval,
	"NULL":         arrow.Null,
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIllegal
	tokIdent
	tokQuoted
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokComma
	tokLBracket
	tokRBracket
)

type typeToken struct {
	kind tokenKind
	lit  string
}

// typeLexer tokenizes DuckDB type strings.
type typeLexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

func newTypeLexer(input string) *typeLexer {
	l := &typeLexer{input: input}
	l.readChar()
	return l
}

func (l *typeLexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *typeLexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *typeLexer) next() typeToken {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
	var tok typeToken
	switch {
	case l.ch == 0:
		return typeToken{kind: tokEOF}
	case l.ch == '(':
		tok = typeToken{kind: tokLParen, lit: "("}
	case l.ch == ')':
		tok = typeToken{kind: tokRParen, lit: ")"}
	case l.ch == ',':
		tok = typeToken{kind: tokComma, lit: ","}
	case l.ch == '[':
		tok = typeToken{kind: tokLBracket, lit: "["}
	case l.ch == ']':
		tok = typeToken{kind: tokRBracket, lit: "]"}
	case l.ch == '"':
		lit, ok := l.readDelimited('"')
		if !ok {
			return typeToken{kind: tokIllegal, lit: lit}
		}
		return typeToken{kind: tokQuoted, lit: lit}
	case l.ch == '\'':
		lit, ok := l.readDelimited('\'')
		if !ok {
			return typeToken{kind: tokIllegal, lit: lit}
		}
		return typeToken{kind: tokString, lit: lit}
	case isDigit(l.ch):
		start := l.pos
		for isDigit(l.ch) {
			l.readChar()
		}
		return typeToken{kind: tokNumber, lit: l.input[start:l.pos]}
	case isIdentChar(l.ch):
		start := l.pos
		for isIdentChar(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		return typeToken{kind: tokIdent, lit: l.input[start:l.pos]}
	default:
		tok = typeToken{kind: tokIllegal, lit: string(l.ch)}
	}
	l.readChar()
	return tok
}

// readDelimited reads a quoted literal where a doubled quote escapes itself.
func (l *typeLexer) readDelimited(q byte) (string, bool) {
	var sb strings.Builder
	l.readChar()
	for {
		switch {
		case l.ch == 0:
			return sb.String(), false
		case l.ch == q && l.peekChar() == q:
			sb.WriteByte(q)
			l.readChar()
			l.readChar()
		case l.ch == q:
			l.readChar()
			return sb.String(), true
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

type typeParser struct {
	lex *typeLexer
	cur typeToken
}

func newTypeParser(s string) *typeParser {
	p := &typeParser{lex: newTypeLexer(s)}
	p.advance()
	return p
}

func (p *typeParser) advance() { p.cur = p.lex.next() }

func (p *typeParser) expect(kind tokenKind, what string) (typeToken, error) {
	if p.cur.kind != kind {
		if p.cur.kind == tokEOF {
			return p.cur, fmt.Errorf("expected %s, got end of input", what)
		}
		return p.cur, fmt.Errorf("expected %s, got %q", what, p.cur.lit)
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

func (p *typeParser) keyword(word string) bool {
	if p.cur.kind == tokIdent && strings.EqualFold(p.cur.lit, word) {
		p.advance()
		return true
	}
	return false
}

// parseType parses a base type followed by any number of list ([]) or
// array ([n]) suffixes.
func (p *typeParser) parseType() (arrow.DataType, error) {
	dt, err := p.parseBase()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokLBracket {
		p.advance()
		if p.cur.kind == tokRBracket {
			p.advance()
			dt = arrow.ListOf(dt)
			continue
		}
		n, err := p.expect(tokNumber, "array size")
		if err != nil {
			return nil, err
		}
		size, err := strconv.ParseInt(n.lit, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("array size %q: %w", n.lit, err)
		}
		if _, err := p.expect(tokRBracket, "]"); err != nil {
			return nil, err
		}
		dt = arrow.FixedSizeListOf(int32(size), dt)
	}
	return dt, nil
}

func (p *typeParser) parseBase() (arrow.DataType, error) {
	tok, err := p.expect(tokIdent, "type name")
	if err != nil {
		return nil, err
	}
	name := strings.ToUpper(tok.lit)
	switch name {
	case "STRUCT", "ROW":
		return p.parseStruct()
	case "MAP":
		return p.parseMap()
	case "ENUM":
		return p.parseEnum()
	case "DECIMAL", "NUMERIC":
		return p.parseDecimal()
	case "VARCHAR":
		// VARCHAR(n) carries a length that DuckDB ignores.
		if err := p.skipArgs(); err != nil {
			return nil, err
		}
		return arrow.BinaryTypes.String, nil
	case "TIMESTAMP", "TIME":
		if p.keyword("WITH") {
			if !p.keyword("TIME") || !p.keyword("ZONE") {
				return nil, fmt.Errorf("expected WITH TIME ZONE after %s", name)
			}
			name += "TZ"
		}
	case "DOUBLE":
		p.keyword("PRECISION")
	}
	if dt, ok := duckdbScalarTypes[name]; ok {
		return dt, nil
	}
	return nil, &UnsupportedTypeError{Type: tok.lit}
}

func (p *typeParser) parseStruct() (arrow.DataType, error) {
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var fields []arrow.Field
	for {
		var name string
		switch p.cur.kind {
		case tokIdent, tokQuoted:
			name = p.cur.lit
			p.advance()
		default:
			return nil, fmt.Errorf("expected struct field name, got %q", p.cur.lit)
		}
		dt, err := p.parseType()
		if err != nil {
			return nil, fmt.Errorf("struct field %s: %w", name, err)
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: true})
		if p.cur.kind == tokComma {
			p.advance()
			continue
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return arrow.StructOf(fields...), nil
	}
}

func (p *typeParser) parseMap() (arrow.DataType, error) {
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	key, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("map key: %w", err)
	}
	if _, err := p.expect(tokComma, ","); err != nil {
		return nil, err
	}
	val, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("map value: %w", err)
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return arrow.MapOf(key, val), nil
}

// parseEnum maps ENUM to a string dictionary whose index width depends on
// the number of members.
func (p *typeParser) parseEnum() (arrow.DataType, error) {
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	n := 0
	for p.cur.kind != tokRParen {
		if _, err := p.expect(tokString, "enum member"); err != nil {
			return nil, err
		}
		n++
		switch p.cur.kind {
		case tokComma:
			p.advance()
		case tokRParen:
		default:
			_, err := p.expect(tokRParen, ", or ) after enum member")
			return nil, err
		}
	}
	p.advance()

	var index arrow.DataType
	switch {
	case n <= 1<<8-1:
		index = arrow.PrimitiveTypes.Uint8
	case n <= 1<<16-1:
		index = arrow.PrimitiveTypes.Uint16
	default:
		index = arrow.PrimitiveTypes.Uint32
	}
	return &arrow.DictionaryType{IndexType: index, ValueType: arrow.BinaryTypes.String}, nil
}

func (p *typeParser) parseDecimal() (arrow.DataType, error) {
	precision, scale := int64(18), int64(3)
	if p.cur.kind == tokLParen {
		p.advance()
		tok, err := p.expect(tokNumber, "decimal precision")
		if err != nil {
			return nil, err
		}
		precision, _ = strconv.ParseInt(tok.lit, 10, 32)
		scale = 0
		if p.cur.kind == tokComma {
			p.advance()
			tok, err := p.expect(tokNumber, "decimal scale")
			if err != nil {
				return nil, err
			}
			scale, _ = strconv.ParseInt(tok.lit, 10, 32)
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
	}
	return &arrow.Decimal128Type{Precision: int32(precision), Scale: int32(scale)}, nil
}

func (p *typeParser) skipArgs() error {
	if p.cur.kind != tokLParen {
		return nil
	}
	depth := 0
	for {
		switch p.cur.kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		case tokEOF:
			return fmt.Errorf("unterminated type arguments")
		}
		p.advance()
		if depth == 0 {
			return nil
		}
	}
}
