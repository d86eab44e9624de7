package reactive

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCell_SetNotifiesEveryTime(t *testing.T) {
	c := NewCell(1)
	calls := 0
	c.Subscribe(func() { calls++ })

	c.Set(1) // identical value still publishes
	c.Set(2)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, c.Get())
	assert.Equal(t, uint64(2), c.Version())
}

func TestCell_Update(t *testing.T) {
	c := NewCell(10)
	c.Update(func(v int) int { return v + 5 })
	assert.Equal(t, 15, c.Get())
}

func TestCell_Unsubscribe(t *testing.T) {
	c := NewCell("a")
	calls := 0
	unsub := c.Subscribe(func() { calls++ })

	c.Set("b")
	unsub()
	unsub() // idempotent
	c.Set("c")

	assert.Equal(t, 1, calls)
}

func TestCell_SubscriberOrder(t *testing.T) {
	c := NewCell(0)
	var order []string
	c.Subscribe(func() { order = append(order, "first") })
	c.Subscribe(func() { order = append(order, "second") })

	c.Set(1)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestCell_UnsubscribeDuringNotify(t *testing.T) {
	c := NewCell(0)
	calls := 0
	var unsub func()
	unsub = c.Subscribe(func() {
		calls++
		unsub()
	})

	c.Set(1)
	c.Set(2)
	assert.Equal(t, 1, calls)
}

func TestCell_ConcurrentSet(t *testing.T) {
	c := NewCell(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Get())
}

func TestWatch_ReceivesValues(t *testing.T) {
	c := NewCell(0)
	var got []int
	stop := Watch[int](c, func(v int) { got = append(got, v) })

	c.Set(1)
	c.Set(2)
	stop()
	c.Set(3)

	assert.Equal(t, []int{1, 2}, got)
}

func TestReadOnly(t *testing.T) {
	c := NewCell(7)
	r := c.ReadOnly()
	assert.Equal(t, 7, r.Get())
}
