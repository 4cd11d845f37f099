package wer

import "github.com/antzucaro/matchr"

// OpKind classifies one step of an alignment.
type OpKind string

const (
	OpMatch        OpKind = "match"
	OpSubstitution OpKind = "substitution"
	OpInsertion    OpKind = "insertion"
	OpDeletion     OpKind = "deletion"
)

// Operation is one aligned unit between the reference and the hypothesis.
// Ref is empty for insertions and Hyp is empty for deletions; normalized
// tokens are never empty, so the empty string always means "absent".
type Operation struct {
	Kind OpKind `json:"type"`
	Ref  string `json:"refWord,omitempty"`
	Hyp  string `json:"hypWord,omitempty"`

	// Similarity is the Jaro-Winkler score of Ref and Hyp, set only for
	// substitutions. It never affects the distance.
	Similarity float64 `json:"similarity,omitempty"`
}

// backpointer codes stored per table cell
const (
	stepNone uint8 = iota
	stepDeletion
	stepInsertion
	stepDiagonal
)

// Distance returns the word-level Levenshtein distance between ref and hyp.
// Only two rows are kept because no alignment is reconstructed.
func Distance(ref, hyp []string) int {
	if len(ref) == 0 {
		return len(hyp)
	}
	if len(hyp) == 0 {
		return len(ref)
	}

	prev := make([]int, len(hyp)+1)
	curr := make([]int, len(hyp)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ref); i++ {
		curr[0] = i
		for j := 1; j <= len(hyp); j++ {
			cost := 1
			if ref[i-1] == hyp[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution or match
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(hyp)]
}

// Align computes the edit distance between ref and hyp together with one
// optimal alignment, ordered from the start of both sequences to the end.
//
// The full (m+1)x(n+1) table is kept in two flat arrays (distances and
// backpointers) indexed by i*(n+1)+j. When several predecessors reach the
// minimum, deletion wins over insertion, and insertion over the diagonal.
// The tie-break only changes which operations are reported, never the
// distance.
func Align(ref, hyp []string) (int, []Operation) {
	m, n := len(ref), len(hyp)
	width := n + 1

	dist := make([]int, (m+1)*width)
	back := make([]uint8, (m+1)*width)

	for i := 1; i <= m; i++ {
		dist[i*width] = i
		back[i*width] = stepDeletion
	}
	for j := 1; j <= n; j++ {
		dist[j] = j
		back[j] = stepInsertion
	}

	for i := 1; i <= m; i++ {
		row := i * width
		prevRow := (i - 1) * width
		for j := 1; j <= n; j++ {
			cost := 1
			if ref[i-1] == hyp[j-1] {
				cost = 0
			}

			deletion := dist[prevRow+j] + 1
			insertion := dist[row+j-1] + 1
			diagonal := dist[prevRow+j-1] + cost

			best := min(deletion, insertion, diagonal)
			dist[row+j] = best

			switch best {
			case deletion:
				back[row+j] = stepDeletion
			case insertion:
				back[row+j] = stepInsertion
			default:
				back[row+j] = stepDiagonal
			}
		}
	}

	return dist[m*width+n], traceback(back, width, ref, hyp)
}

// traceback walks the backpointers from (m,n) to (0,0).
func traceback(back []uint8, width int, ref, hyp []string) []Operation {
	i, j := len(ref), len(hyp)
	ops := make([]Operation, 0, max(i, j))

	for i > 0 || j > 0 {
		switch back[i*width+j] {
		case stepDeletion:
			ops = append(ops, Operation{Kind: OpDeletion, Ref: ref[i-1]})
			i--
		case stepInsertion:
			ops = append(ops, Operation{Kind: OpInsertion, Hyp: hyp[j-1]})
			j--
		case stepDiagonal:
			r, h := ref[i-1], hyp[j-1]
			if r == h {
				ops = append(ops, Operation{Kind: OpMatch, Ref: r, Hyp: h})
			} else {
				ops = append(ops, Operation{
					Kind:       OpSubstitution,
					Ref:        r,
					Hyp:        h,
					Similarity: matchr.JaroWinkler(r, h, false),
				})
			}
			i--
			j--
		default:
			return reverse(ops)
		}
	}

	return reverse(ops)
}

func reverse(ops []Operation) []Operation {
	for l, r := 0, len(ops)-1; l < r; l, r = l+1, r-1 {
		ops[l], ops[r] = ops[r], ops[l]
	}
	return ops
}
