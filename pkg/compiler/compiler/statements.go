package compiler

import (
	"github.com/zurustar/danmaku/pkg/compiler/token"
	"github.com/zurustar/danmaku/pkg/opcode"
)

func (c *Compiler) declaration() {
	if c.match(token.LET) || c.match(token.VAR) {
		c.varDeclaration()
	} else {
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

// varDeclaration compiles let/var. Without an initializer the variable
// starts as false.
func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	name := c.previous.Lexeme

	if c.match(token.ASSIGN) {
		if c.check(token.BACKSLASH) {
			c.lambdaName = name
		}
		c.expression()
		c.lambdaName = ""
	} else {
		c.emitOp(opcode.False)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.YIELD):
		c.yieldStatement()
	case c.match(token.WAIT):
		c.waitStatement()
	case c.match(token.INCLUDE):
		c.includeStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(opcode.Print)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(opcode.Pop)
}

func (c *Compiler) condition(keyword string) {
	c.consume(token.LPAREN, "Expect '(' after '"+keyword+"'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")
}

func (c *Compiler) ifStatement() {
	c.condition("if")

	thenJump := c.emitJump(opcode.JumpIfFalse)
	c.emitOp(opcode.Pop)
	c.statement()

	elseJump := c.emitJump(opcode.Jump)
	c.patchJump(thenJump)
	c.emitOp(opcode.Pop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := c.program().Len()
	c.condition("while")

	exitJump := c.emitJump(opcode.JumpIfFalse)
	c.emitOp(opcode.Pop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(opcode.Pop)
}

// forStatement compiles for (init; cond; incr) body. The increment is
// compiled before the body, so the body jumps back to it and the
// increment loops back to the condition.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after 'for'.")
	switch {
	case c.match(token.SEMICOLON):
	case c.match(token.LET), c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.program().Len()
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")

		exitJump = c.emitJump(opcode.JumpIfFalse)
		c.emitOp(opcode.Pop)
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(opcode.Jump)
		incrementStart := c.program().Len()
		c.expression()
		c.emitOp(opcode.Pop)
		c.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(opcode.Pop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.fs.kind == kindScript {
		c.error("Can't return from top-level code.")
	}

	if c.match(token.SEMICOLON) {
		c.emitOps(opcode.False, opcode.Return)
		return
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(opcode.Return)
}

func (c *Compiler) yieldStatement() {
	c.consume(token.SEMICOLON, "Expect ';' after 'yield'.")
	c.emitOp(opcode.Yield)
}

// waitStatement compiles wait (cond); into a loop that yields once per
// pass until cond holds:
//
//	L: cond; JumpIfFalse Y; Pop; Jump X; Y: Pop; Yield; Loop L; X:
func (c *Compiler) waitStatement() {
	loopStart := c.program().Len()
	c.condition("wait")
	c.consume(token.SEMICOLON, "Expect ';' after wait condition.")

	yieldJump := c.emitJump(opcode.JumpIfFalse)
	c.emitOp(opcode.Pop)
	exitJump := c.emitJump(opcode.Jump)

	c.patchJump(yieldJump)
	c.emitOps(opcode.Pop, opcode.Yield)
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
}

// includeStatement parses include "path"; and rejects it.
func (c *Compiler) includeStatement() {
	c.error("'include' is not supported.")
	c.match(token.STRING)
	c.match(token.SEMICOLON)
}
