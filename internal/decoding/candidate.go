// Package decoding implements the candidate-generation-and-selection core:
// fan out k seeded generations, score or arbitrate, return one final answer.
package decoding

// Candidate is one sampled continuation. Immutable once created and owned by
// the pipe invocation that produced it.
type Candidate struct {
	// Index is the 0-based position in the candidate set. Failed calls are
	// dropped before positions are assigned, so it can differ from the
	// request index; relative generation order is preserved.
	Index int
	Seed  int
	Text  string

	// EvalCount and EvalDuration are the endpoint's generation metrics.
	EvalCount    int64
	EvalDuration int64

	// Confidence is EvalCount/EvalDuration: a throughput proxy that rewards
	// fast generations. It is NOT a calibrated likelihood and must not be
	// treated as one; the upstream design never promoted it beyond a
	// heuristic.
	Confidence float64
}

// confidence guards the division: a zero or missing duration counts as 1.
func confidence(evalCount, evalDuration int64) float64 {
	if evalDuration == 0 {
		evalDuration = 1
	}
	return float64(evalCount) / float64(evalDuration)
}
