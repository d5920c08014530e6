package session

// Queue is the FIFO of encoded frames waiting to be sent.
type Queue struct {
	frames [][]byte
}

// Push appends an encoded frame.
func (q *Queue) Push(b []byte) {
	q.frames = append(q.frames, b)
}

// Len returns the number of unsent frames.
func (q *Queue) Len() int {
	return len(q.frames)
}

// Flush sends frames in order. A frame leaves the queue only after send
// returned nil for it; the first error stops the flush and is returned with
// that frame and every later one still queued.
func (q *Queue) Flush(send func([]byte) error) error {
	for len(q.frames) > 0 {
		if err := send(q.frames[0]); err != nil {
			return err
		}
		q.frames[0] = nil
		q.frames = q.frames[1:]
	}
	q.frames = nil
	return nil
}

// Take removes and returns every queued frame.
func (q *Queue) Take() [][]byte {
	frames := q.frames
	q.frames = nil
	return frames
}

// Prepend puts frames ahead of the ones already queued.
func (q *Queue) Prepend(frames [][]byte) {
	if len(frames) == 0 {
		return
	}
	q.frames = append(append([][]byte(nil), frames...), q.frames...)
}

// Reset drops every queued frame.
func (q *Queue) Reset() {
	q.frames = nil
}
