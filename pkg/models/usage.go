package models

// Usage represents aggregated token usage across one or more agent
// invocations.
type Usage struct {
	// InputTokens is the total prompt-side tokens consumed.
	InputTokens int64
	// OutputTokens is the total completion-side tokens produced.
	OutputTokens int64
	// TotalTokens is InputTokens + OutputTokens. It is maintained by
	// Add and must not be set directly.
	TotalTokens int64
}

// NewUsage creates a Usage with the total derived from the given counts.
func NewUsage(input, output int64) Usage {
	return Usage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
}

// Add accumulates another usage record into this one, keeping TotalTokens
// consistent. Counts are never decremented.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens = u.InputTokens + u.OutputTokens
}
