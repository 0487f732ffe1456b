package compiler

import (
	"strconv"

	"github.com/zurustar/danmaku/pkg/compiler/token"
	"github.com/zurustar/danmaku/pkg/opcode"
	"github.com/zurustar/danmaku/pkg/value"
)

// Precedence levels for operators, lowest first.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssign                // :=
	PrecOr                    // ||
	PrecAnd                   // &&
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * / %
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules []parseRule

func init() {
	rules = make([]parseRule, token.Count())
	register := func(t token.Type, prefix, infix parseFn, prec Precedence) {
		rules[t] = parseRule{prefix: prefix, infix: infix, precedence: prec}
	}

	register(token.LPAREN, (*Compiler).grouping, (*Compiler).call, PrecCall)
	register(token.DOT, nil, (*Compiler).dot, PrecCall)
	register(token.MINUS, (*Compiler).unary, (*Compiler).binary, PrecTerm)
	register(token.PLUS, nil, (*Compiler).binary, PrecTerm)
	register(token.SLASH, nil, (*Compiler).binary, PrecFactor)
	register(token.STAR, nil, (*Compiler).binary, PrecFactor)
	register(token.PERCENT, nil, (*Compiler).binary, PrecFactor)
	register(token.BANG, (*Compiler).unary, nil, PrecNone)
	register(token.NOT_EQ, nil, (*Compiler).binary, PrecEquality)
	register(token.EQ, nil, (*Compiler).binary, PrecEquality)
	register(token.GT, nil, (*Compiler).binary, PrecComparison)
	register(token.GTE, nil, (*Compiler).binary, PrecComparison)
	register(token.LT, nil, (*Compiler).binary, PrecComparison)
	register(token.LTE, nil, (*Compiler).binary, PrecComparison)
	register(token.AND, nil, (*Compiler).and, PrecAnd)
	register(token.OR, nil, (*Compiler).or, PrecOr)
	register(token.IDENT, (*Compiler).variable, nil, PrecNone)
	register(token.STRING, (*Compiler).string, nil, PrecNone)
	register(token.INT, (*Compiler).integer, nil, PrecNone)
	register(token.FLOAT, (*Compiler).float, nil, PrecNone)
	register(token.TRUE, (*Compiler).literal, nil, PrecNone)
	register(token.FALSE, (*Compiler).literal, nil, PrecNone)
	register(token.VEC_OPEN, (*Compiler).vector, nil, PrecNone)
	register(token.PT_OPEN, (*Compiler).point, nil, PrecNone)
	register(token.BACKSLASH, (*Compiler).lambda, nil, PrecNone)
}

func getRule(t token.Type) parseRule {
	return rules[t]
}

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssign)
}

// parsePrecedence parses any expression whose operators bind at least as
// tightly as prec.
func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= PrecAssign
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).precedence {
		c.advance()
		getRule(c.previous.Type).infix(c, canAssign)
	}

	if canAssign && c.match(token.ASSIGN) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) grouping(bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
	c.lastVar = nil
}

func (c *Compiler) integer(bool) {
	n, err := strconv.ParseInt(c.previous.Lexeme, 10, 32)
	if err != nil {
		c.error("Integer literal out of range.")
		return
	}
	c.emitLiteral(value.Int(int32(n)))
}

func (c *Compiler) float(bool) {
	f, err := strconv.ParseFloat(c.previous.Lexeme, 32)
	if err != nil {
		c.error("Float literal out of range.")
		return
	}
	c.emitLiteral(value.Float(float32(f)))
}

// string interns the literal right away so equal literals anywhere in the
// compilation share one object.
func (c *Compiler) string(bool) {
	lexeme := c.previous.Lexeme
	s := c.strings.Intern(lexeme[1 : len(lexeme)-1])
	c.emitLiteral(value.Obj(s))
}

func (c *Compiler) literal(bool) {
	switch c.previous.Type {
	case token.TRUE:
		c.emitOp(opcode.True)
	case token.FALSE:
		c.emitOp(opcode.False)
	}
}

func (c *Compiler) unary(bool) {
	operator := c.previous.Type
	c.parsePrecedence(PrecUnary)

	switch operator {
	case token.MINUS:
		c.emitOp(opcode.Negate)
	case token.BANG:
		c.emitOp(opcode.Not)
	}
}

func (c *Compiler) binary(bool) {
	operator := c.previous.Type
	c.parsePrecedence(getRule(operator).precedence + 1)

	switch operator {
	case token.PLUS:
		c.emitOp(opcode.Add)
	case token.MINUS:
		c.emitOp(opcode.Subtract)
	case token.STAR:
		c.emitOp(opcode.Multiply)
	case token.SLASH:
		c.emitOp(opcode.Divide)
	case token.PERCENT:
		c.emitOp(opcode.Modulo)
	case token.EQ:
		c.emitOp(opcode.Equal)
	case token.NOT_EQ:
		c.emitOps(opcode.Equal, opcode.Not)
	case token.GT:
		c.emitOp(opcode.Greater)
	case token.GTE:
		c.emitOps(opcode.Less, opcode.Not)
	case token.LT:
		c.emitOp(opcode.Less)
	case token.LTE:
		c.emitOps(opcode.Greater, opcode.Not)
	}
}

func (c *Compiler) and(bool) {
	endJump := c.emitJump(opcode.JumpIfFalse)
	c.emitOp(opcode.Pop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(bool) {
	elseJump := c.emitJump(opcode.JumpIfFalse)
	endJump := c.emitJump(opcode.Jump)
	c.patchJump(elseJump)
	c.emitOp(opcode.Pop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Lexeme, canAssign)
}

func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp opcode.Op
	var operands []byte

	if slot, hops, ok := c.resolve(name); ok {
		if hops > 0xff {
			c.error("Variable is nested too deeply.")
			return
		}
		getOp, setOp = opcode.GetLocal, opcode.SetLocal
		operands = []byte{byte(slot), byte(hops)}
	} else {
		getOp, setOp = opcode.GetGlobal, opcode.SetGlobal
		operands = []byte{c.identifierLiteral(name)}
	}

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emitOp(setOp)
		for _, b := range operands {
			c.emitByte(b)
		}
		return
	}

	start := c.program().Len()
	c.emitOp(getOp)
	for _, b := range operands {
		c.emitByte(b)
	}
	ref := &varRef{prog: c.program(), start: start, end: c.program().Len(), op: getOp}
	if getOp == opcode.GetLocal {
		ref.slot, ref.hops = operands[0], operands[1]
	} else {
		ref.index = operands[0]
	}
	c.lastVar = ref
}

// dot compiles member access. An assignment through a member is only
// valid when the receiver is a plain variable; its read is dropped and
// replaced by a field store.
func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "Expect member name after '.'.")
	field, ok := opcode.FieldByName(c.previous.Lexeme)
	if !ok {
		c.error("Unknown member '" + c.previous.Lexeme + "'.")
		return
	}

	if canAssign && c.check(token.ASSIGN) {
		ref := c.lastVar
		if ref == nil || ref.prog != c.program() || ref.end != c.program().Len() {
			return
		}
		c.advance()
		c.program().Truncate(ref.start)
		c.lastVar = nil
		c.expression()
		if ref.op == opcode.GetLocal {
			c.emitOp(opcode.SetLocalField)
			c.emitByte(ref.slot)
			c.emitByte(ref.hops)
		} else {
			c.emitOpArg(opcode.SetGlobalField, ref.index)
		}
		c.emitByte(byte(field))
		return
	}

	c.emitOpArg(opcode.GetField, byte(field))
}

func (c *Compiler) call(bool) {
	argc := c.argumentList()
	c.emitOpArg(opcode.Call, argc)
}

func (c *Compiler) argumentList() byte {
	argc := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argc == maxParams {
				c.error("Can't have more than 255 arguments.")
			}
			argc++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(argc)
}

func (c *Compiler) vector(bool) {
	c.expression()
	c.consume(token.COMMA, "Expect ',' after vector magnitude.")
	c.expression()
	c.consume(token.VEC_CLOSE, "Expect '>>' after vector angle.")
	c.emitOp(opcode.Vector)
}

func (c *Compiler) point(bool) {
	c.expression()
	c.consume(token.COMMA, "Expect ',' after point x.")
	c.expression()
	c.consume(token.PT_CLOSE, "Expect ']]' after point y.")
	c.emitOp(opcode.Point)
}

// lambda compiles \(params) -> { body } as a nested function and leaves
// it as a literal of the enclosing program.
func (c *Compiler) lambda(bool) {
	name := c.lambdaName
	c.lambdaName = ""

	c.beginFunction(kindFunction, name)
	c.beginScope()

	c.consume(token.LPAREN, "Expect '(' after '\\'.")
	if !c.check(token.RPAREN) {
		for {
			fn := c.fs.fn
			fn.Arity++
			if fn.Arity > maxParams {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			c.parseVariable("Expect parameter name.")
			c.markInitialized()
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after parameters.")
	c.consume(token.ARROW, "Expect '->' after parameters.")
	c.consume(token.LBRACE, "Expect '{' before lambda body.")
	c.block()

	fn := c.endFunction()
	c.emitLiteral(value.Obj(fn))
}
