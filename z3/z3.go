package z3

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/benbjohnson/glean"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
#include <stdio.h>
*/
import "C"

// Seed is the random seed passed to every solver so runs are reproducible.
const Seed = 42

// Ensure solver implements interface.
var _ glean.Solver = (*Solver)(nil)
var _ glean.Interrupter = (*Solver)(nil)

// Solver represents an incremental solver that uses an embedded Z3 solver.
type Solver struct {
	ctx    *Context
	raw    C.Z3_solver
	model  *Model
	scopes int
	stats  Stats

	// Guards the context against an interrupt racing with Close.
	mu     sync.Mutex
	closed bool
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	ctx := NewContext()

	raw := C.Z3_mk_solver(ctx.raw)
	if err := ctx.err("Z3_mk_solver"); err != nil {
		panic(err)
	}
	C.Z3_solver_inc_ref(ctx.raw, raw)

	s := &Solver{ctx: ctx, raw: raw}
	if err := s.setParam("random_seed", Seed); err != nil {
		panic(err)
	}
	return s
}

// Close deletes the underlying Z3 solver & context.
func (s *Solver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.releaseModel()
	C.Z3_solver_dec_ref(s.ctx.raw, s.raw)
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// Scopes returns the number of open scopes.
func (s *Solver) Scopes() int {
	return s.scopes
}

// SetTimeout sets the per-check timeout. Zero disables the timeout.
func (s *Solver) SetTimeout(d time.Duration) error {
	ms := uint(d / time.Millisecond)
	if ms == 0 {
		ms = math.MaxUint32
	}
	return s.setParam("timeout", ms)
}

func (s *Solver) setParam(key string, value uint) error {
	params := C.Z3_mk_params(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_params"); err != nil {
		return err
	}
	C.Z3_params_inc_ref(s.ctx.raw, params)
	defer C.Z3_params_dec_ref(s.ctx.raw, params)

	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	sym := C.Z3_mk_string_symbol(s.ctx.raw, ckey)

	C.Z3_params_set_uint(s.ctx.raw, params, sym, C.uint(value))
	if err := s.ctx.err("Z3_params_set_uint"); err != nil {
		return err
	}
	C.Z3_solver_set_params(s.ctx.raw, s.raw, params)
	return s.ctx.err("Z3_solver_set_params")
}

// Interrupt aborts a running check. The check returns ErrSolverCanceled.
// Interrupting a closed solver is a no-op.
func (s *Solver) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		C.Z3_interrupt(s.ctx.raw)
	}
}

// Push opens a new assertion scope.
func (s *Solver) Push() error {
	s.releaseModel()
	C.Z3_solver_push(s.ctx.raw, s.raw)
	if err := s.ctx.err("Z3_solver_push"); err != nil {
		return err
	}
	s.scopes++
	return nil
}

// Pop discards the n most recent scopes.
func (s *Solver) Pop(n int) error {
	if n == 0 {
		return nil
	} else if n > s.scopes {
		return fmt.Errorf("z3: cannot pop %d scopes, only %d open", n, s.scopes)
	}

	s.releaseModel()
	C.Z3_solver_pop(s.ctx.raw, s.raw, C.uint(n))
	if err := s.ctx.err("Z3_solver_pop"); err != nil {
		return err
	}
	s.scopes -= n
	return nil
}

// Assert adds a boolean constraint to the current scope.
func (s *Solver) Assert(expr glean.Expr) error {
	if sort := glean.ExprSort(expr); sort != glean.SortBool {
		return fmt.Errorf("z3: cannot assert %s expression", sort)
	}

	s.releaseModel()
	ast, err := s.ctx.toAST(expr)
	if err != nil {
		return err
	}
	C.Z3_solver_assert(s.ctx.raw, s.raw, ast)
	return s.ctx.err("Z3_solver_assert")
}

// Check returns the satisfiability of the asserted constraints.
func (s *Solver) Check() (glean.SolverStatus, error) {
	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	s.releaseModel()

	// Check equations with the solver.
	// Exit immediately if unsatisfiable or the solver encountered an error.
	ret := C.Z3_solver_check(s.ctx.raw, s.raw)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return glean.Unknown, err
	} else if ret == C.Z3_L_FALSE {
		return glean.Unsat, nil
	} else if ret == C.Z3_L_TRUE {
		return glean.Sat, nil
	}

	s.stats.UnknownN++
	reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, s.raw))
	switch {
	case strings.Contains(reason, "timeout"):
		return glean.Unknown, glean.ErrSolverTimeout
	case strings.Contains(reason, "canceled"), strings.Contains(reason, "interrupted"):
		return glean.Unknown, glean.ErrSolverCanceled
	case strings.Contains(reason, "(resource limits reached)"), strings.Contains(reason, "max. memory exceeded"):
		return glean.Unknown, glean.ErrSolverResourceLimit
	case strings.Contains(reason, "unknown"), strings.Contains(reason, "incomplete"):
		return glean.Unknown, glean.ErrSolverUnknown
	default:
		return glean.Unknown, fmt.Errorf("z3: %s", reason)
	}
}

// Model returns the model of the last satisfiable check.
func (s *Solver) Model() (glean.Model, error) {
	if s.model != nil {
		return s.model, nil
	}

	raw := C.Z3_solver_get_model(s.ctx.raw, s.raw)
	if err := s.ctx.err("Z3_solver_get_model"); err != nil {
		return nil, err
	}
	C.Z3_model_inc_ref(s.ctx.raw, raw)

	s.model = &Model{ctx: s.ctx, raw: raw}
	return s.model, nil
}

// releaseModel frees the cached model, if any.
func (s *Solver) releaseModel() {
	if s.model == nil {
		return
	}
	C.Z3_model_dec_ref(s.ctx.raw, s.model.raw)
	s.model.raw = nil
	s.model = nil
}

// String returns the solver assertions in SMT-LIB2 format.
func (s *Solver) String() string {
	return C.GoString(C.Z3_solver_to_string(s.ctx.raw, s.raw))
}

// Model represents a satisfying assignment from the solver.
type Model struct {
	ctx *Context
	raw C.Z3_model
}

// Eval evaluates expr against the model with model completion enabled.
func (m *Model) Eval(expr glean.Expr) (*glean.ConstantExpr, error) {
	if m.raw == nil {
		return nil, fmt.Errorf("z3: model released")
	}

	ast, err := m.ctx.toAST(expr)
	if err != nil {
		return nil, err
	}
	value, err := m.eval(ast)
	if err != nil {
		return nil, err
	}

	switch sort := glean.ExprSort(expr); sort {
	case glean.SortBool:
		return m.ctx.boolValue(value)
	case glean.SortInt:
		return m.ctx.intValue(value)
	case glean.SortReal:
		return m.ctx.realValue(value)
	case glean.SortFloat:
		return m.floatValue(value)
	default:
		return nil, fmt.Errorf("z3: cannot evaluate %s expression", sort)
	}
}

func (m *Model) eval(ast C.Z3_ast) (C.Z3_ast, error) {
	var value C.Z3_ast
	if ok := C.Z3_model_eval(m.ctx.raw, m.raw, ast, C.bool(true), &value); !bool(ok) {
		return nil, fmt.Errorf("z3: model evaluation failed: %s", m.ctx.astToString(ast))
	}
	return value, m.ctx.err("Z3_model_eval")
}

func (m *Model) floatValue(value C.Z3_ast) (*glean.ConstantExpr, error) {
	negative := bool(C.Z3_fpa_is_numeral_negative(m.ctx.raw, value))
	switch {
	case bool(C.Z3_fpa_is_numeral_nan(m.ctx.raw, value)):
		return glean.NewFloatConstantExpr(math.NaN()), nil
	case bool(C.Z3_fpa_is_numeral_inf(m.ctx.raw, value)):
		if negative {
			return glean.NewFloatConstantExpr(math.Inf(-1)), nil
		}
		return glean.NewFloatConstantExpr(math.Inf(1)), nil
	case bool(C.Z3_fpa_is_numeral_zero(m.ctx.raw, value)):
		if negative {
			return glean.NewFloatConstantExpr(math.Copysign(0, -1)), nil
		}
		return glean.NewFloatConstantExpr(0), nil
	}

	// Finite values are exactly representable as rationals.
	ast := C.Z3_mk_fpa_to_real(m.ctx.raw, value)
	if err := m.ctx.err("Z3_mk_fpa_to_real"); err != nil {
		return nil, err
	}
	ast, err := m.eval(ast)
	if err != nil {
		return nil, err
	}
	r, err := m.ctx.realValue(ast)
	if err != nil {
		return nil, err
	}
	f, _ := r.Real.Float64()
	return glean.NewFloatConstantExpr(f), nil
}

// Context represents a Z3 context object that is used for constructing expressions.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return nil
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

// toAST returns a new instance of Z3_ast from a glean expression.
func (ctx *Context) toAST(expr glean.Expr) (C.Z3_ast, error) {
	switch expr := expr.(type) {
	case *glean.ConstantExpr:
		return ctx.toConstantAST(expr)
	case *glean.VarExpr:
		return ctx.toVarAST(expr)
	case *glean.SelectExpr:
		return ctx.toSelectAST(expr)
	case *glean.CastExpr:
		return ctx.toCastAST(expr)
	case *glean.NotExpr:
		return ctx.toNotAST(expr)
	case *glean.UnaryExpr:
		return ctx.toUnaryAST(expr)
	case *glean.IteExpr:
		return ctx.toIteAST(expr)
	case *glean.BinaryExpr:
		return ctx.toBinaryAST(expr)
	default:
		return nil, fmt.Errorf("z3.Context.toAST: invalid expression type: %T", expr)
	}
}

func (ctx *Context) toConstantAST(expr *glean.ConstantExpr) (C.Z3_ast, error) {
	switch expr.Sort {
	case glean.SortBool:
		if expr.IsTrue() {
			return ctx.makeTrue()
		}
		return ctx.makeFalse()
	case glean.SortInt:
		return ctx.makeNumeral(expr.Int.String(), glean.SortInt)
	case glean.SortReal:
		return ctx.makeNumeral(expr.Real.RatString(), glean.SortReal)
	case glean.SortFloat:
		return ctx.makeFloat(expr.Float)
	default:
		return nil, fmt.Errorf("z3.Context.toConstantAST: invalid expression sort: %s", expr.Sort)
	}
}

func (ctx *Context) toVarAST(expr *glean.VarExpr) (C.Z3_ast, error) {
	sort, err := ctx.makeSort(expr.Sort)
	if err != nil {
		return nil, err
	}

	cname := C.CString(expr.Name)
	defer C.free(unsafe.Pointer(cname))
	nameSymbol := C.Z3_mk_string_symbol(ctx.raw, cname)

	return C.Z3_mk_const(ctx.raw, nameSymbol, sort), ctx.err("Z3_mk_const")
}

func (ctx *Context) toSelectAST(expr *glean.SelectExpr) (C.Z3_ast, error) {
	array, err := ctx.makeArrayWithUpdate(expr.Array, expr.Array.Updates)
	if err != nil {
		return nil, err
	}
	index, err := ctx.toAST(expr.Index)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_select(ctx.raw, array, index), ctx.err("Z3_mk_select")
}

func (ctx *Context) toCastAST(expr *glean.CastExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Src)
	if err != nil {
		return nil, err
	}

	switch from := glean.ExprSort(expr.Src); {
	case from == glean.SortBool && expr.Sort == glean.SortInt:
		return ctx.toBoolToIntAST(src)

	case from == glean.SortInt && expr.Sort == glean.SortReal:
		return C.Z3_mk_int2real(ctx.raw, src), ctx.err("Z3_mk_int2real")

	case from == glean.SortInt && expr.Sort == glean.SortFloat:
		real := C.Z3_mk_int2real(ctx.raw, src)
		if err := ctx.err("Z3_mk_int2real"); err != nil {
			return nil, err
		}
		return ctx.toRealToFloatAST(real)

	case from == glean.SortReal && expr.Sort == glean.SortFloat:
		return ctx.toRealToFloatAST(src)

	case from == glean.SortReal && expr.Sort == glean.SortInt:
		return C.Z3_mk_real2int(ctx.raw, src), ctx.err("Z3_mk_real2int")

	case from == glean.SortFloat && expr.Sort == glean.SortReal:
		return C.Z3_mk_fpa_to_real(ctx.raw, src), ctx.err("Z3_mk_fpa_to_real")

	case from == glean.SortFloat && expr.Sort == glean.SortInt:
		// Truncate toward zero before converting so real2int's floor is exact.
		rtz := C.Z3_mk_fpa_rtz(ctx.raw)
		if err := ctx.err("Z3_mk_fpa_rtz"); err != nil {
			return nil, err
		}
		integral := C.Z3_mk_fpa_round_to_integral(ctx.raw, rtz, src)
		if err := ctx.err("Z3_mk_fpa_round_to_integral"); err != nil {
			return nil, err
		}
		real := C.Z3_mk_fpa_to_real(ctx.raw, integral)
		if err := ctx.err("Z3_mk_fpa_to_real"); err != nil {
			return nil, err
		}
		return C.Z3_mk_real2int(ctx.raw, real), ctx.err("Z3_mk_real2int")

	default:
		return nil, fmt.Errorf("z3.Context.toCastAST: invalid conversion: %s to %s", from, expr.Sort)
	}
}

func (ctx *Context) toBoolToIntAST(src C.Z3_ast) (C.Z3_ast, error) {
	whenTrue, err := ctx.makeNumeral("1", glean.SortInt)
	if err != nil {
		return nil, err
	}
	whenFalse, err := ctx.makeNumeral("0", glean.SortInt)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, src, whenTrue, whenFalse), ctx.err("Z3_mk_ite")
}

func (ctx *Context) toRealToFloatAST(src C.Z3_ast) (C.Z3_ast, error) {
	rm, err := ctx.makeRNE()
	if err != nil {
		return nil, err
	}
	sort, err := ctx.makeSort(glean.SortFloat)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_fpa_to_fp_real(ctx.raw, rm, src, sort), ctx.err("Z3_mk_fpa_to_fp_real")
}

func (ctx *Context) toNotAST(expr *glean.NotExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_not(ctx.raw, src), ctx.err("Z3_mk_not")
}

func (ctx *Context) toUnaryAST(expr *glean.UnaryExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}
	isFloat := glean.ExprSort(expr.Expr) == glean.SortFloat

	switch expr.Op {
	case glean.NEG:
		if isFloat {
			return C.Z3_mk_fpa_neg(ctx.raw, src), ctx.err("Z3_mk_fpa_neg")
		}
		return C.Z3_mk_unary_minus(ctx.raw, src), ctx.err("Z3_mk_unary_minus")

	case glean.ABS:
		if isFloat {
			return C.Z3_mk_fpa_abs(ctx.raw, src), ctx.err("Z3_mk_fpa_abs")
		}
		return ctx.toExactAbsAST(src, glean.ExprSort(expr.Expr))

	case glean.ISNAN:
		return C.Z3_mk_fpa_is_nan(ctx.raw, src), ctx.err("Z3_mk_fpa_is_nan")

	case glean.ISINF:
		return C.Z3_mk_fpa_is_infinite(ctx.raw, src), ctx.err("Z3_mk_fpa_is_infinite")

	default:
		return nil, fmt.Errorf("z3.Context.toUnaryAST: unexpected operation: %s", expr.Op)
	}
}

func (ctx *Context) toExactAbsAST(src C.Z3_ast, sort glean.Sort) (C.Z3_ast, error) {
	zero, err := ctx.makeNumeral("0", sort)
	if err != nil {
		return nil, err
	}
	cond := C.Z3_mk_lt(ctx.raw, src, zero)
	if err := ctx.err("Z3_mk_lt"); err != nil {
		return nil, err
	}
	neg := C.Z3_mk_unary_minus(ctx.raw, src)
	if err := ctx.err("Z3_mk_unary_minus"); err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, cond, neg, src), ctx.err("Z3_mk_ite")
}

func (ctx *Context) toIteAST(expr *glean.IteExpr) (C.Z3_ast, error) {
	cond, err := ctx.toAST(expr.Cond)
	if err != nil {
		return nil, err
	}
	then, err := ctx.toAST(expr.Then)
	if err != nil {
		return nil, err
	}
	els, err := ctx.toAST(expr.Else)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, cond, then, els), ctx.err("Z3_mk_ite")
}

func (ctx *Context) toBinaryAST(expr *glean.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	if glean.ExprSort(expr.LHS) == glean.SortFloat {
		return ctx.toFloatBinaryAST(expr.Op, lhs, rhs)
	}

	switch expr.Op {
	case glean.ADD:
		args := []C.Z3_ast{lhs, rhs}
		return C.Z3_mk_add(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_add")
	case glean.SUB:
		args := []C.Z3_ast{lhs, rhs}
		return C.Z3_mk_sub(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_sub")
	case glean.MUL:
		args := []C.Z3_ast{lhs, rhs}
		return C.Z3_mk_mul(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_mul")
	case glean.DIV:
		return C.Z3_mk_div(ctx.raw, lhs, rhs), ctx.err("Z3_mk_div")
	case glean.FLOORDIV:
		return ctx.toFloorDivAST(lhs, rhs)
	case glean.MOD:
		return ctx.toFloorModAST(lhs, rhs)
	case glean.AND:
		args := []C.Z3_ast{lhs, rhs}
		return C.Z3_mk_and(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_and")
	case glean.OR:
		args := []C.Z3_ast{lhs, rhs}
		return C.Z3_mk_or(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_or")
	case glean.XOR:
		return C.Z3_mk_xor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_xor")
	case glean.EQ:
		return C.Z3_mk_eq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_eq")
	case glean.NE:
		eq := C.Z3_mk_eq(ctx.raw, lhs, rhs)
		if err := ctx.err("Z3_mk_eq"); err != nil {
			return nil, err
		}
		return C.Z3_mk_not(ctx.raw, eq), ctx.err("Z3_mk_not")
	case glean.LT:
		return C.Z3_mk_lt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_lt")
	case glean.LE:
		return C.Z3_mk_le(ctx.raw, lhs, rhs), ctx.err("Z3_mk_le")
	case glean.GT:
		return C.Z3_mk_gt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_gt")
	case glean.GE:
		return C.Z3_mk_ge(ctx.raw, lhs, rhs), ctx.err("Z3_mk_ge")
	default:
		return nil, fmt.Errorf("z3.Context.toBinaryAST: unexpected operation: %s", expr.Op)
	}
}

// toFloorDivAST returns the floored quotient. Z3 integer division is euclidean
// so a negative divisor is handled by negating both operands.
func (ctx *Context) toFloorDivAST(lhs, rhs C.Z3_ast) (C.Z3_ast, error) {
	zero, err := ctx.makeNumeral("0", glean.SortInt)
	if err != nil {
		return nil, err
	}
	positive := C.Z3_mk_gt(ctx.raw, rhs, zero)
	if err := ctx.err("Z3_mk_gt"); err != nil {
		return nil, err
	}
	whenPositive := C.Z3_mk_div(ctx.raw, lhs, rhs)
	if err := ctx.err("Z3_mk_div"); err != nil {
		return nil, err
	}
	whenNegative := C.Z3_mk_div(ctx.raw, C.Z3_mk_unary_minus(ctx.raw, lhs), C.Z3_mk_unary_minus(ctx.raw, rhs))
	if err := ctx.err("Z3_mk_div"); err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, positive, whenPositive, whenNegative), ctx.err("Z3_mk_ite")
}

// toFloorModAST returns lhs - rhs*floordiv(lhs, rhs).
func (ctx *Context) toFloorModAST(lhs, rhs C.Z3_ast) (C.Z3_ast, error) {
	q, err := ctx.toFloorDivAST(lhs, rhs)
	if err != nil {
		return nil, err
	}
	mulArgs := []C.Z3_ast{rhs, q}
	product := C.Z3_mk_mul(ctx.raw, 2, &mulArgs[0])
	if err := ctx.err("Z3_mk_mul"); err != nil {
		return nil, err
	}
	subArgs := []C.Z3_ast{lhs, product}
	return C.Z3_mk_sub(ctx.raw, 2, &subArgs[0]), ctx.err("Z3_mk_sub")
}

func (ctx *Context) toFloatBinaryAST(op glean.BinaryOp, lhs, rhs C.Z3_ast) (C.Z3_ast, error) {
	var rm C.Z3_ast
	if op.IsArithmetic() {
		var err error
		if rm, err = ctx.makeRNE(); err != nil {
			return nil, err
		}
	}

	switch op {
	case glean.ADD:
		return C.Z3_mk_fpa_add(ctx.raw, rm, lhs, rhs), ctx.err("Z3_mk_fpa_add")
	case glean.SUB:
		return C.Z3_mk_fpa_sub(ctx.raw, rm, lhs, rhs), ctx.err("Z3_mk_fpa_sub")
	case glean.MUL:
		return C.Z3_mk_fpa_mul(ctx.raw, rm, lhs, rhs), ctx.err("Z3_mk_fpa_mul")
	case glean.DIV:
		return C.Z3_mk_fpa_div(ctx.raw, rm, lhs, rhs), ctx.err("Z3_mk_fpa_div")
	case glean.EQ:
		return C.Z3_mk_fpa_eq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_fpa_eq")
	case glean.NE:
		eq := C.Z3_mk_fpa_eq(ctx.raw, lhs, rhs)
		if err := ctx.err("Z3_mk_fpa_eq"); err != nil {
			return nil, err
		}
		return C.Z3_mk_not(ctx.raw, eq), ctx.err("Z3_mk_not")
	case glean.LT:
		return C.Z3_mk_fpa_lt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_fpa_lt")
	case glean.LE:
		return C.Z3_mk_fpa_leq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_fpa_leq")
	case glean.GT:
		return C.Z3_mk_fpa_gt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_fpa_gt")
	case glean.GE:
		return C.Z3_mk_fpa_geq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_fpa_geq")
	default:
		return nil, fmt.Errorf("z3.Context.toFloatBinaryAST: unexpected operation: %s", op)
	}
}

func (ctx *Context) makeTrue() (C.Z3_ast, error) {
	return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
}

func (ctx *Context) makeFalse() (C.Z3_ast, error) {
	return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
}

func (ctx *Context) makeRNE() (C.Z3_ast, error) {
	return C.Z3_mk_fpa_rne(ctx.raw), ctx.err("Z3_mk_fpa_rne")
}

// makeSort returns the Z3 sort for a glean sort.
func (ctx *Context) makeSort(sort glean.Sort) (C.Z3_sort, error) {
	switch sort {
	case glean.SortBool:
		return C.Z3_mk_bool_sort(ctx.raw), ctx.err("Z3_mk_bool_sort")
	case glean.SortInt:
		return C.Z3_mk_int_sort(ctx.raw), ctx.err("Z3_mk_int_sort")
	case glean.SortReal:
		return C.Z3_mk_real_sort(ctx.raw), ctx.err("Z3_mk_real_sort")
	case glean.SortFloat:
		return C.Z3_mk_fpa_sort_double(ctx.raw), ctx.err("Z3_mk_fpa_sort_double")
	default:
		return nil, fmt.Errorf("z3.Context.makeSort: invalid sort: %s", sort)
	}
}

// makeNumeral returns an int or real numeral from its decimal string.
func (ctx *Context) makeNumeral(s string, sort glean.Sort) (C.Z3_ast, error) {
	t, err := ctx.makeSort(sort)
	if err != nil {
		return nil, err
	}

	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return C.Z3_mk_numeral(ctx.raw, cs, t), ctx.err("Z3_mk_numeral")
}

// makeFloat returns a double precision numeral, including NaN, infinities & signed zeros.
func (ctx *Context) makeFloat(f float64) (C.Z3_ast, error) {
	t, err := ctx.makeSort(glean.SortFloat)
	if err != nil {
		return nil, err
	}

	switch {
	case math.IsNaN(f):
		return C.Z3_mk_fpa_nan(ctx.raw, t), ctx.err("Z3_mk_fpa_nan")
	case math.IsInf(f, 0):
		return C.Z3_mk_fpa_inf(ctx.raw, t, C.bool(f < 0)), ctx.err("Z3_mk_fpa_inf")
	case f == 0:
		return C.Z3_mk_fpa_zero(ctx.raw, t, C.bool(math.Signbit(f))), ctx.err("Z3_mk_fpa_zero")
	default:
		return C.Z3_mk_fpa_numeral_double(ctx.raw, C.double(f), t), ctx.err("Z3_mk_fpa_numeral_double")
	}
}

// makeArrayConst returns the root constant array with no updates.
func (ctx *Context) makeArrayConst(array *glean.Array) (C.Z3_ast, error) {
	// Construct array sort.
	domainSort, err := ctx.makeSort(glean.SortInt)
	if err != nil {
		return nil, err
	}
	rangeSort, err := ctx.makeSort(array.Range)
	if err != nil {
		return nil, err
	}
	arraySort := C.Z3_mk_array_sort(ctx.raw, domainSort, rangeSort)
	if err := ctx.err("Z3_mk_array_sort"); err != nil {
		return nil, err
	}

	// Construct Z3 string for name.
	cname := C.CString(array.Name())
	defer C.free(unsafe.Pointer(cname))
	nameSymbol := C.Z3_mk_string_symbol(ctx.raw, cname)

	return C.Z3_mk_const(ctx.raw, nameSymbol, arraySort), ctx.err("Z3_mk_const")
}

// makeArrayWithUpdate returns an array with updates recursively applied.
func (ctx *Context) makeArrayWithUpdate(root *glean.Array, upd *glean.ArrayUpdate) (C.Z3_ast, error) {
	if upd == nil {
		return ctx.makeArrayConst(root)
	}

	array, err := ctx.makeArrayWithUpdate(root, upd.Next)
	if err != nil {
		return nil, err
	}
	index, err := ctx.toAST(upd.Index)
	if err != nil {
		return nil, err
	}
	value, err := ctx.toAST(upd.Value)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_store(ctx.raw, array, index, value), ctx.err("Z3_mk_store")
}

func (ctx *Context) boolValue(value C.Z3_ast) (*glean.ConstantExpr, error) {
	switch C.Z3_get_bool_value(ctx.raw, value) {
	case C.Z3_L_TRUE:
		return glean.NewBoolConstantExpr(true), nil
	case C.Z3_L_FALSE:
		return glean.NewBoolConstantExpr(false), nil
	default:
		return nil, fmt.Errorf("z3: not a boolean value: %s", ctx.astToString(value))
	}
}

func (ctx *Context) intValue(value C.Z3_ast) (*glean.ConstantExpr, error) {
	s := C.GoString(C.Z3_get_numeral_string(ctx.raw, value))
	if err := ctx.err("Z3_get_numeral_string"); err != nil {
		return nil, err
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("z3: invalid integer numeral: %q", s)
	}
	return glean.NewBigIntConstantExpr(i), nil
}

func (ctx *Context) realValue(value C.Z3_ast) (*glean.ConstantExpr, error) {
	s := C.GoString(C.Z3_get_numeral_string(ctx.raw, value))
	if err := ctx.err("Z3_get_numeral_string"); err != nil {
		return nil, err
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("z3: invalid real numeral: %q", s)
	}
	return glean.NewRealConstantExpr(r), nil
}

func (ctx *Context) astToString(ast C.Z3_ast) string {
	return C.GoString(C.Z3_ast_to_string(ctx.raw, ast))
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats represents solver statistics.
type Stats struct {
	SolveN    int
	UnknownN  int
	SolveTime time.Duration
}
