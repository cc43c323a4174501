package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogChannelObserverCursor(t *testing.T) {
	c := NewLogChannel()
	c.Reset()
	c.Publish("before")

	o := c.Subscribe()
	assert.Empty(t, o.Next(), "observers start at the end of the buffer")

	c.Publish("one")
	c.Publish("two")
	assert.Equal(t, []string{"one", "two"}, o.Next())
	assert.Empty(t, o.Next())

	c.Publish("three")
	assert.Equal(t, []string{"three"}, o.Next())
}

func TestLogChannelResetStartsNewGeneration(t *testing.T) {
	c := NewLogChannel()
	o := c.Subscribe()

	c.Publish("old run")
	c.Reset()
	c.Publish("new run")

	// The unread tail of the old run is gone once the next run starts
	assert.Equal(t, []string{"new run"}, o.Next())
}

func TestLogChannelIndependentObservers(t *testing.T) {
	c := NewLogChannel()
	a := c.Subscribe()
	b := c.Subscribe()
	assert.Equal(t, 2, c.Observers())

	c.Publish("x")
	assert.Equal(t, []string{"x"}, a.Next())

	c.Publish("y")
	assert.Equal(t, []string{"y"}, a.Next())
	assert.Equal(t, []string{"x", "y"}, b.Next())

	b.Close()
	assert.Equal(t, 1, c.Observers())
	c.Publish("z")
	assert.Nil(t, b.Next(), "closed observers receive nothing")
	assert.Equal(t, []string{"z"}, a.Next())
}

func TestLogChannelConcurrentProducerAndObservers(t *testing.T) {
	c := NewLogChannel()
	const lines = 500

	observers := make([]*Observer, 4)
	for i := range observers {
		observers[i] = c.Subscribe()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < lines; i++ {
			c.Publish(fmt.Sprintf("line %d", i))
		}
	}()

	results := make([][]string, len(observers))
	for i, o := range observers {
		wg.Add(1)
		go func(i int, o *Observer) {
			defer wg.Done()
			for len(results[i]) < lines {
				results[i] = append(results[i], o.Next()...)
			}
		}(i, o)
	}
	wg.Wait()

	for _, got := range results {
		assert.Len(t, got, lines)
		for i, line := range got {
			assert.Equal(t, fmt.Sprintf("line %d", i), line, "lines arrive in production order")
		}
	}
}
