package port_reader

// NewBufferLink creates an in-memory link holding up to capacity bytes.
func NewBufferLink(capacity int) *BufferLink {
	l := &BufferLink{}
	l.capacity = capacity
	return l
}

// Write queues p as if it had arrived on the wire. It never fails.
func (l *BufferLink) Write(p []byte) (int, error) {
	l.push(p)
	return len(p), nil
}

// BytesAvailable returns the number of bytes that can be read without waiting.
func (q *byteQueue) BytesAvailable() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// ReadByte returns the oldest queued byte, or ErrNoData when empty.
func (q *byteQueue) ReadByte() (byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return 0, ErrNoData
	}
	b := q.buf[0]
	q.buf = q.buf[1:]
	if len(q.buf) == 0 {
		q.buf = nil
	}
	return b, nil
}

// Dropped returns how many bytes were discarded because the queue was full.
func (q *byteQueue) Dropped() uint64 {
	return q.dropped.Load()
}

func (q *byteQueue) push(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity <= 0 {
		q.capacity = DefaultQueueSize
	}

	q.buf = append(q.buf, p...)
	overflow := len(q.buf) - q.capacity
	if overflow <= 0 {
		return 0
	}
	q.buf = append(q.buf[:0:0], q.buf[overflow:]...)
	q.dropped.Add(uint64(overflow))
	return overflow
}
