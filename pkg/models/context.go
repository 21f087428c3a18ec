package models

// Context carries conversational state across agent invocations within a
// run. The orchestration engine threads it through strategies when history
// preservation is enabled; the Values map is opaque pass-through data the
// engine never interprets.
type Context struct {
	// Task is the original request that started the run.
	Task string
	// History is the ordered conversation so far.
	History []Message
	// Values holds caller-supplied data threaded through unmodified.
	Values map[string]any
}

// NewContext creates a Context for the given task.
func NewContext(task string) *Context {
	return &Context{Task: task}
}

// Clone returns a copy of the context with an independent history slice.
// Values is shared, not copied: it is read-only pass-through data.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	history := make([]Message, len(c.History))
	copy(history, c.History)
	return &Context{Task: c.Task, History: history, Values: c.Values}
}

// Append adds messages to the context history.
func (c *Context) Append(msgs ...Message) {
	c.History = append(c.History, msgs...)
}
