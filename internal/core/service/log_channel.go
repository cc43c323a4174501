package service

import "sync"

// LogChannel relays the active run's output lines to any number of observers.
// The producer never blocks: lines are appended to an in-memory buffer and
// every observer reads from its own cursor into it. The buffer of a finished
// run stays readable until the next Reset.
type LogChannel struct {
	mu         sync.Mutex
	generation uint64
	lines      []string
	observers  map[*Observer]struct{}
}

func NewLogChannel() *LogChannel {
	return &LogChannel{observers: make(map[*Observer]struct{})}
}

// Reset discards the previous run's lines and starts a new generation
func (c *LogChannel) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.lines = nil
}

// Publish appends one line of the current run
func (c *LogChannel) Publish(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

// Subscribe attaches an observer positioned at the end of the current buffer;
// it receives lines published from now on
func (c *LogChannel) Subscribe() *Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := &Observer{channel: c, generation: c.generation, offset: len(c.lines)}
	c.observers[o] = struct{}{}
	return o
}

// Observers reports how many observers are attached
func (c *LogChannel) Observers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

func (c *LogChannel) next(o *Observer) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.observers[o]; !ok {
		return nil
	}
	if o.generation != c.generation {
		o.generation = c.generation
		o.offset = 0
	}
	if o.offset >= len(c.lines) {
		return nil
	}

	out := make([]string, len(c.lines)-o.offset)
	copy(out, c.lines[o.offset:])
	o.offset = len(c.lines)
	return out
}

func (c *LogChannel) remove(o *Observer) {
	c.mu.Lock()
	delete(c.observers, o)
	c.mu.Unlock()
}

// Observer is one consumer's cursor into a LogChannel. It is not safe for
// concurrent use by multiple goroutines.
type Observer struct {
	channel    *LogChannel
	generation uint64
	offset     int
}

// Next returns every line published since the previous call
func (o *Observer) Next() []string {
	return o.channel.next(o)
}

// Close detaches the observer; later Next calls return nothing
func (o *Observer) Close() {
	o.channel.remove(o)
}
