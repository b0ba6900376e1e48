package mqtt

import (
	"log"
	"sync"
)

// inbox is a fixed-capacity FIFO of inbound messages filled by the client's
// callback goroutine and drained by Poll on the control loop.
type inbox struct {
	mu       sync.Mutex
	buf      []Message
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since the queue last emptied
}

func newInbox(capacity int) *inbox {
	return &inbox{
		buf:      make([]Message, capacity),
		capacity: capacity,
	}
}

func (q *inbox) push(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == q.capacity {
		if !q.overflow {
			log.Printf("mqtt: inbound queue full (%d messages), dropping oldest", q.capacity)
			q.overflow = true
		}
		// Overwrite oldest: head is already pointing at it
		q.buf[q.head] = msg
		q.head = (q.head + 1) % q.capacity
		return
	}
	q.buf[q.head] = msg
	q.head = (q.head + 1) % q.capacity
	q.count++
}

func (q *inbox) pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Message{}, false
	}
	// Oldest item is at (head - count) mod capacity
	i := (q.head - q.count + q.capacity) % q.capacity
	msg := q.buf[i]
	q.buf[i] = Message{}
	q.count--
	if q.count == 0 {
		q.overflow = false
	}
	return msg, true
}

func (q *inbox) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}
