package la

// RelOp is a relational operator between two linear expressions.
type RelOp int

const (
	Le RelOp = iota // less than or equal
	Ge              // greater than or equal
	Eql             // equal
)

func (op RelOp) String() string {
	switch op {
	case Le:
		return "<="
	case Ge:
		return ">="
	case Eql:
		return "="
	}
	return "?"
}

// Flip mirrors the operator across an equality: Le becomes Ge and vice
// versa. Used when an atom is normalized by a negative coefficient.
func (op RelOp) Flip() RelOp {
	switch op {
	case Le:
		return Ge
	case Ge:
		return Le
	}
	return op
}

// Atom relates two linear expressions.
type Atom struct {
	LHS *Expr
	Op  RelOp
	RHS *Expr
}

// AtomLE returns the atom l <= r.
func AtomLE(l, r *Expr) Atom { return Atom{LHS: l, Op: Le, RHS: r} }

// AtomGE returns the atom l >= r.
func AtomGE(l, r *Expr) Atom { return Atom{LHS: l, Op: Ge, RHS: r} }

// AtomEq returns the atom l = r.
func AtomEq(l, r *Expr) Atom { return Atom{LHS: l, Op: Eql, RHS: r} }

// Holds reports whether the atom is satisfied exactly under m.
func (a Atom) Holds(m Model) bool {
	cmp := a.LHS.Eval(m).Cmp(a.RHS.Eval(m))
	switch a.Op {
	case Le:
		return cmp <= 0
	case Ge:
		return cmp >= 0
	default:
		return cmp == 0
	}
}

func (a Atom) String() string {
	return a.LHS.String() + " " + a.Op.String() + " " + a.RHS.String()
}
