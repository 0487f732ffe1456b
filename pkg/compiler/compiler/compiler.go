// Package compiler compiles bullet scripts into bytecode in a single pass.
// There is no AST: a Pratt parser consumes tokens from the lexer and
// writes instructions straight into the program of the function being
// compiled.
package compiler

import (
	"fmt"

	"github.com/zurustar/danmaku/pkg/compiler/lexer"
	"github.com/zurustar/danmaku/pkg/compiler/token"
	"github.com/zurustar/danmaku/pkg/opcode"
	"github.com/zurustar/danmaku/pkg/value"
)

const (
	// maxLocals is the number of stack slots addressable by one byte.
	maxLocals = 256
	// maxParams also bounds the argument count of a call.
	maxParams = 255
	maxJump   = 0xffff
)

// CompilerError represents an error that occurred during compilation.
// Lexical is set when the error came from a lexer error token.
type CompilerError struct {
	Message string
	Line    int
	Column  int
	Where   string
	Lexical bool
}

// Error implements the error interface.
func (e *CompilerError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}

// NewCompilerError creates a new CompilerError with the given message and location.
func NewCompilerError(message string, line, column int) *CompilerError {
	return &CompilerError{
		Message: message,
		Line:    line,
		Column:  column,
	}
}

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
)

type local struct {
	name  string
	depth int // -1 while the initializer is being compiled
}

// funcState is the compile-time state of one function. Function literals
// push a new state whose enclosing link points at the outer one.
type funcState struct {
	enclosing  *funcState
	fn         *value.FunctionObject
	kind       funcKind
	locals     []local
	scopeDepth int
}

// varRef remembers the variable read emitted last so that a following
// member assignment can rewrite it into a field store.
type varRef struct {
	prog       *value.Program
	start, end int
	op         opcode.Op
	slot, hops byte
	index      byte
}

// Compiler holds the parser state for one compilation.
type Compiler struct {
	lex      *lexer.Lexer
	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errors    []*CompilerError

	fs         *funcState
	strings    *value.Interner
	lambdaName string
	lastVar    *varRef
}

// New creates a Compiler over source.
func New(source string) *Compiler {
	return &Compiler{
		lex:     lexer.New(source),
		strings: value.NewInterner(),
	}
}

// Compile compiles source as a script. On failure the function is nil and
// every collected error is returned.
func Compile(source string) (*value.FunctionObject, []error) {
	return New(source).Compile()
}

// Compile compiles the whole source and returns the script function.
func (c *Compiler) Compile() (*value.FunctionObject, []error) {
	c.beginFunction(kindScript, "")
	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endFunction()

	if c.hadError {
		errs := make([]error, len(c.errors))
		for i, e := range c.errors {
			errs[i] = e
		}
		return nil, errs
	}
	return fn, nil
}

// Errors returns the list of compilation errors.
func (c *Compiler) Errors() []*CompilerError {
	return c.errors
}

func (c *Compiler) beginFunction(kind funcKind, name string) {
	fs := &funcState{
		enclosing: c.fs,
		kind:      kind,
		locals:    make([]local, 0, 8),
	}
	if kind == kindScript {
		fs.fn = value.NewFunction("", 0, c.strings, true)
	} else {
		fs.fn = value.NewFunction(name, c.fs.fn.Depth+1, c.strings, false)
	}
	c.fs = fs
}

func (c *Compiler) endFunction() *value.FunctionObject {
	if c.fs.kind == kindScript {
		c.emitOp(opcode.End)
	} else {
		c.emitOps(opcode.False, opcode.Return)
	}
	fn := c.fs.fn
	c.fs = c.fs.enclosing
	c.lastVar = nil
	return fn
}

func (c *Compiler) program() *value.Program {
	return c.fs.fn.Program
}

// Token stream

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.Next()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) consume(t token.Type, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *Compiler) check(t token.Type) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

// Errors

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *Compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	err := NewCompilerError(message, tok.Line, tok.Column)
	switch tok.Type {
	case token.EOF:
		err.Where = " at end"
	case token.ERROR:
		err.Lexical = true
	default:
		err.Where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.errors = append(c.errors, err)
}

// synchronize skips tokens until a statement boundary.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		if c.current.Type.StartsStatement() {
			return
		}
		c.advance()
	}
}

// Emission

func (c *Compiler) emitByte(b byte) {
	c.program().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op opcode.Op) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitOps(ops ...opcode.Op) {
	for _, op := range ops {
		c.emitOp(op)
	}
}

func (c *Compiler) emitOpArg(op opcode.Op, arg byte) {
	c.emitOp(op)
	c.emitByte(arg)
}

func (c *Compiler) makeLiteral(v value.Value) byte {
	idx, err := c.program().Literals.Add(v)
	if err != nil {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitLiteral(v value.Value) {
	c.emitOpArg(opcode.Constant, c.makeLiteral(v))
}

// emitJump writes a forward jump with a placeholder offset and returns
// the position of the offset for patchJump.
func (c *Compiler) emitJump(op opcode.Op) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return c.program().Len() - 2
}

func (c *Compiler) patchJump(at int) {
	code := c.program().Code
	jump := len(code) - at - 2
	if jump > maxJump {
		c.error("Too much code to jump over.")
	}
	code[at] = byte(jump >> 8)
	code[at+1] = byte(jump)
	// A jump now lands after the last read, so it can no longer be rewritten.
	c.lastVar = nil
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(opcode.Loop)
	offset := c.program().Len() - loopStart + 2
	if offset > maxJump {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

// Scopes and variables

func (c *Compiler) beginScope() {
	c.fs.scopeDepth++
}

func (c *Compiler) endScope() {
	fs := c.fs
	fs.scopeDepth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		c.emitOp(opcode.Pop)
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

func (c *Compiler) identifierLiteral(name string) byte {
	return c.makeLiteral(value.Obj(c.strings.Intern(name)))
}

func (c *Compiler) addLocal(name string) {
	if len(c.fs.locals) >= maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.fs.locals = append(c.fs.locals, local{name: name, depth: -1})
}

func (c *Compiler) declareVariable() {
	fs := c.fs
	if fs.scopeDepth == 0 {
		return
	}
	name := c.previous.Lexeme
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if l.depth != -1 && l.depth < fs.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) parseVariable(message string) byte {
	c.consume(token.IDENT, message)
	c.declareVariable()
	if c.fs.scopeDepth > 0 {
		return 0
	}
	return c.identifierLiteral(c.previous.Lexeme)
}

func (c *Compiler) markInitialized() {
	fs := c.fs
	if fs.scopeDepth == 0 {
		return
	}
	fs.locals[len(fs.locals)-1].depth = fs.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.fs.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpArg(opcode.DefineGlobal, global)
}

// resolveLocal finds name among the locals of fs, innermost first.
func (c *Compiler) resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 && fs == c.fs {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolve walks outwards through the enclosing functions. hops is the
// number of access links the VM follows to reach the frame owning slot.
func (c *Compiler) resolve(name string) (slot, hops int, ok bool) {
	for fs := c.fs; fs != nil; fs = fs.enclosing {
		if i := c.resolveLocal(fs, name); i >= 0 {
			return i, hops, true
		}
		hops++
	}
	return 0, 0, false
}
