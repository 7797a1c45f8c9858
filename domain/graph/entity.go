package graph

// Row holds the positional field values of one entity.
type Row []any

// Pair is one input row of SaveGraph: a left and a right entity joined by
// a relation.
type Pair struct {
	Left  Row
	Right Row
}

// PairOf builds a Pair of single-field entities.
func PairOf(left, right any) Pair {
	return Pair{Left: Row{left}, Right: Row{right}}
}
