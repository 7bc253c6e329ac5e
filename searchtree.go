package glean

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// SearchSeed is the seed of the random source used to choose between feasible branches.
const SearchSeed = 1801243388510242075

// VerificationStatus is the status of a path or subtree. The zero value means
// the path was ignored and does not contribute to the result.
type VerificationStatus int

// Verification statuses, ordered from worst to best.
const (
	StatusIgnored = VerificationStatus(iota)
	StatusRefuted
	StatusUnknown
	StatusConfirmed
)

// String returns the string representation of the status.
func (s VerificationStatus) String() string {
	switch s {
	case StatusIgnored:
		return "ignored"
	case StatusRefuted:
		return "refuted"
	case StatusUnknown:
		return "unknown"
	case StatusConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("VerificationStatus<%d>", s)
	}
}

// MessageKind categorizes a message reported by an analysis.
// Kinds are ordered by precedence; a later kind overrides an earlier one.
type MessageKind int

// Message kinds, in precedence order.
const (
	MessageConfirmed = MessageKind(iota)
	MessageCannotConfirm
	MessagePreconditionUnsat
	MessagePostconditionError
	MessageExecutionError
	MessagePostconditionFailed
)

var messageKinds = [...]string{
	MessageConfirmed:           "confirmed",
	MessageCannotConfirm:       "cannot_confirm",
	MessagePreconditionUnsat:   "pre_unsat",
	MessagePostconditionError:  "post_err",
	MessageExecutionError:      "exec_err",
	MessagePostconditionFailed: "post_fail",
}

// String returns the string representation of the kind.
func (k MessageKind) String() string {
	if k >= 0 && k < MessageKind(len(messageKinds)) {
		return messageKinds[k]
	}
	return fmt.Sprintf("MessageKind<%d>", k)
}

// Message is a single finding of an analysis.
type Message struct {
	Kind           MessageKind
	Text           string
	Condition      string
	Counterexample *Counterexample
}

// PathResult is the result of a path or of a merged subtree.
type PathResult struct {
	Status   VerificationStatus
	Messages []*Message
}

// PathStats counts completed paths per status.
type PathStats struct {
	Confirmed    int
	Refuted      int
	Unknown      int
	Ignored      int
	Realizations int
}

// Paths returns the total number of completed paths.
func (s PathStats) Paths() int {
	return s.Confirmed + s.Refuted + s.Unknown + s.Ignored
}

// Add returns the sum of s and other.
func (s PathStats) Add(other PathStats) PathStats {
	return PathStats{
		Confirmed:    s.Confirmed + other.Confirmed,
		Refuted:      s.Refuted + other.Refuted,
		Unknown:      s.Unknown + other.Unknown,
		Ignored:      s.Ignored + other.Ignored,
		Realizations: s.Realizations + other.Realizations,
	}
}

func (s *PathStats) inc(status VerificationStatus) {
	switch status {
	case StatusConfirmed:
		s.Confirmed++
	case StatusRefuted:
		s.Refuted++
	case StatusUnknown:
		s.Unknown++
	default:
		s.Ignored++
	}
}

// searchNode represents a node of the replay search tree.
type searchNode interface {
	base() *nodeBase
	stats() PathStats
}

// decisionNode represents a node at which a path made a choice.
type decisionNode interface {
	searchNode
	choose(favorTrue bool) (bool, *stem)
	computeResult(leaf PathResult) (PathResult, bool)
}

// nodeBase holds the merged result of a subtree.
type nodeBase struct {
	result    PathResult
	exhausted bool
}

func (b *nodeBase) base() *nodeBase { return b }

// updateResult recomputes the result of n from its children.
func updateResult(n decisionNode, leaf PathResult) {
	if b := n.base(); !b.exhausted {
		b.result, b.exhausted = n.computeResult(leaf)
	}
}

// stem is an unexplored edge of the tree. It grows into a node the first time
// a path reaches it.
type stem struct {
	evolution searchNode
}

func (s *stem) isStem() bool { return s.evolution == nil }

func (s *stem) isExhausted() bool {
	return s.evolution != nil && s.evolution.base().exhausted
}

func (s *stem) result() PathResult {
	if s.evolution == nil {
		return PathResult{Status: StatusUnknown}
	}
	return s.evolution.base().result
}

// status returns the status of the subtree, or ignored for an unexplored stem.
func (s *stem) status() VerificationStatus {
	if s.evolution == nil {
		return StatusIgnored
	}
	return s.evolution.base().result.Status
}

func (s *stem) stats() PathStats {
	if s.evolution == nil {
		return PathStats{}
	}
	return s.evolution.stats()
}

func (s *stem) grow(n searchNode) searchNode {
	s.evolution = n
	return n
}

// searchLeaf is the end of a completed path.
type searchLeaf struct {
	nodeBase
	counts PathStats
}

func newSearchLeaf(result PathResult) *searchLeaf {
	n := &searchLeaf{nodeBase: nodeBase{result: result, exhausted: true}}
	n.counts.inc(result.Status)
	return n
}

func (n *searchLeaf) stats() PathStats { return n.counts }

// singlePathNode is a node with exactly one outgoing edge.
type singlePathNode struct {
	nodeBase
	decision bool
	child    *stem
}

func newSinglePathNode(decision bool) *singlePathNode {
	return &singlePathNode{decision: decision, child: &stem{}}
}

func (n *singlePathNode) choose(favorTrue bool) (bool, *stem) {
	return n.decision, n.child
}

func (n *singlePathNode) computeResult(leaf PathResult) (PathResult, bool) {
	return n.child.result(), n.child.isExhausted()
}

func (n *singlePathNode) stats() PathStats { return n.child.stats() }

// detachedPathNode marks the point after which a path stops exploring.
// Anything below it, such as counterexample realization, does not branch the tree.
type detachedPathNode struct {
	singlePathNode
	cached *PathStats
}

func newDetachedPathNode() *detachedPathNode {
	return &detachedPathNode{singlePathNode: singlePathNode{decision: true, child: &stem{}}}
}

func (n *detachedPathNode) computeResult(leaf PathResult) (PathResult, bool) {
	return leaf, true
}

func (n *detachedPathNode) stats() PathStats {
	if n.cached == nil {
		// Only the path status propagates; realizations below the detach
		// point are not part of the search.
		st := n.child.stats()
		st.Realizations = 0
		n.cached = &st
	}
	return *n.cached
}

// binaryPathNode is a node with a positive & negative edge chosen at random.
type binaryPathNode struct {
	nodeBase
	rand     *rand.Rand
	positive *stem
	negative *stem
	counts   PathStats
}

func newBinaryPathNode(rng *rand.Rand) binaryPathNode {
	return binaryPathNode{rand: rng, positive: &stem{}, negative: &stem{}}
}

func (n *binaryPathNode) stats() PathStats { return n.counts }

// chooseRandom picks an unexhausted edge, preferring false with probability p.
func (n *binaryPathNode) chooseRandom(favorTrue bool, p float64) (bool, *stem) {
	positiveOK, negativeOK := !n.positive.isExhausted(), !n.negative.isExhausted()
	assert(positiveOK || negativeOK, "search node exhausted on both edges")

	choice := positiveOK
	if positiveOK && negativeOK {
		if favorTrue {
			choice = true
		} else {
			choice = n.rand.Float64() > p
		}
	}
	if choice {
		return true, n.positive
	}
	return false, n.negative
}

// parallelNode is an engine-level fork where either edge may produce the result.
// The first edge to complete with a definitive result is used.
type parallelNode struct {
	binaryPathNode
	falseProbability float64
	desc             string
}

func (n *parallelNode) String() string {
	return fmt.Sprintf("ParallelNode(false_pct=%g, %s)", n.falseProbability, n.desc)
}

func (n *parallelNode) choose(favorTrue bool) (bool, *stem) {
	p := n.falseProbability
	if n.positive.isExhausted() {
		p = 1.0
	}
	return n.chooseRandom(favorTrue, p)
}

func (n *parallelNode) computeResult(leaf PathResult) (PathResult, bool) {
	positive, negative := n.positive, n.negative
	posExhausted, negExhausted := positive.isExhausted(), negative.isExhausted()
	if posExhausted && positive.status() != StatusUnknown {
		n.counts = positive.stats()
		return positive.result(), true
	}
	if negExhausted && negative.status() != StatusUnknown {
		n.counts = negative.stats()
		return negative.result(), true
	}
	n.counts = positive.stats().Add(negative.stats())
	return mergeResults(positive.result(), posExhausted && negExhausted, negative)
}

// mergeResults combines the results of two branches, taking the worst status
// and the messages of both.
func mergeResults(left PathResult, exhausted bool, right *stem) (PathResult, bool) {
	other := right.result()
	if !right.isExhausted() {
		exhausted = false
	}
	if left.Status == StatusIgnored {
		return other, exhausted
	} else if other.Status == StatusIgnored {
		return left, exhausted
	}

	status := left.Status
	if other.Status < status {
		status = other.Status
	}
	messages := make([]*Message, 0, len(left.Messages)+len(other.Messages))
	messages = append(messages, left.Messages...)
	messages = append(messages, other.Messages...)
	return PathResult{Status: status, Messages: messages}, exhausted
}

// worstResultNode branches on a boolean expression. Both sides are checked for
// feasibility when the node is created; an infeasible side is never chosen.
type worstResultNode struct {
	binaryPathNode
	expr   Expr
	forced int // 0 when both sides are feasible, +1 if forced true, -1 if forced false
}

// falseProbability biases unexplored nodes toward false. Loop conditions tend
// to repeat on true so this favors paths that complete early.
const falseProbability = 0.75

func newWorstResultNode(rng *rand.Rand, expr Expr, b *Bridge) (*worstResultNode, error) {
	n := &worstResultNode{binaryPathNode: newBinaryPathNode(rng), expr: expr}
	if err := n.init(expr, b); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *worstResultNode) init(expr Expr, b *Bridge) error {
	couldBeTrue, err := isPossible(b, expr)
	if err != nil {
		return err
	}
	couldBeFalse, err := isPossible(b, NewNotExpr(expr))
	if err != nil {
		return err
	}

	switch {
	case !couldBeTrue && !couldBeFalse:
		return fmt.Errorf("reached impossible code path: %s: %w", expr, ErrInternal)
	case !couldBeTrue:
		n.forced = -1
	case !couldBeFalse:
		n.forced = 1
	}
	return nil
}

// isPossible returns true if expr is satisfiable on the current path.
func isPossible(b *Bridge, expr Expr) (bool, error) {
	status, err := b.CheckWith(expr)
	if status == Unknown {
		if err == nil {
			err = ErrSolverUnknown
		}
		return false, fmt.Errorf("%w: %w", ErrUnknownSatisfiability, err)
	} else if err != nil {
		return false, err
	}
	return status == Sat, nil
}

func (n *worstResultNode) String() string {
	if n.isExhausted() {
		return fmt.Sprintf("WorstResultNode(%s : exhausted)", n.expr)
	}
	return fmt.Sprintf("WorstResultNode(%s)", n.expr)
}

func (n *worstResultNode) isExhausted() bool {
	return (n.positive.isExhausted() && n.negative.isExhausted()) ||
		(n.forced == 1 && n.positive.isExhausted()) ||
		(n.forced == -1 && n.negative.isExhausted())
}

func (n *worstResultNode) choose(favorTrue bool) (bool, *stem) {
	switch n.forced {
	case 1:
		return true, n.positive
	case -1:
		return false, n.negative
	}
	return n.chooseRandom(favorTrue, falseProbability)
}

// computeResult returns the worst result of the two sides. Path counts always
// cover both sides so they partition the explored paths.
func (n *worstResultNode) computeResult(leaf PathResult) (PathResult, bool) {
	positive, negative := n.positive, n.negative
	exhausted := n.isExhausted()
	n.counts = positive.stats().Add(negative.stats())
	if positive.status() == StatusRefuted || n.forced == 1 {
		return positive.result(), exhausted
	}
	if negative.status() == StatusRefuted || n.forced == -1 {
		return negative.result(), exhausted
	}
	return mergeResults(positive.result(), positive.isExhausted(), negative)
}

// modelValueNode realizes an expression. The positive edge fixes the expression
// to a value taken from the current model; the negative edge excludes that
// value so a replay can try another one.
type modelValueNode struct {
	worstResultNode
	target Expr
	value  *ConstantExpr
}

func newModelValueNode(rng *rand.Rand, expr Expr, b *Bridge) (*modelValueNode, error) {
	model, err := b.Model()
	if err != nil {
		return nil, err
	}
	value, err := model.Eval(expr)
	if err != nil {
		return nil, err
	}

	n := &modelValueNode{
		worstResultNode: worstResultNode{binaryPathNode: newBinaryPathNode(rng)},
		target:          expr,
		value:           value,
	}
	n.expr = NewSameValueExpr(expr, value)
	if err := n.init(n.expr, b); err != nil {
		return nil, err
	}
	return n, nil
}

// computeResult merges the children & counts the node itself as a single
// realization of a variable. Children counts are recomputed on every update.
func (n *modelValueNode) computeResult(leaf PathResult) (PathResult, bool) {
	result, exhausted := n.worstResultNode.computeResult(leaf)
	if _, ok := n.target.(*VarExpr); ok {
		n.counts.Realizations++
	}
	return result, exhausted
}

// SearchTree is the replay search tree of a single analysis. Each path starts
// at the root and replays the recorded choices until it reaches a new stem.
type SearchTree struct {
	root *singlePathNode
	rand *rand.Rand
}

// NewSearchTree returns a new, unexplored search tree.
func NewSearchTree() *SearchTree {
	return &SearchTree{
		root: newSinglePathNode(true),
		rand: rand.New(rand.NewSource(SearchSeed)),
	}
}

// Exhausted returns true if every path of the tree has been explored.
func (t *SearchTree) Exhausted() bool {
	return t.root.child.isExhausted()
}

// Result returns the merged result of all explored paths.
func (t *SearchTree) Result() PathResult {
	return t.root.child.result()
}

// Stats returns the path counts of the tree.
func (t *SearchTree) Stats() PathStats {
	return t.root.stats()
}
