package task

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode"
)

// Iterator yields tasks one at a time. Next returns io.EOF when exhausted.
type Iterator interface {
	Next() (Task, error)
}

// Reader streams tasks from either a JSON array of task objects or a sequence
// of task objects (JSON lines), detected from the first non-space byte.
type Reader struct {
	dec     *json.Decoder
	started bool
	array   bool
	done    bool
	count   int
}

// NewReader creates a Reader.
func NewReader(r io.Reader) *Reader {
	br := bufio.NewReader(r)
	rd := &Reader{}
	if b, err := peekNonSpace(br); err == nil && b == '[' {
		rd.array = true
	}
	rd.dec = json.NewDecoder(br)
	rd.dec.UseNumber()
	return rd
}

// Next decodes the next task.
func (r *Reader) Next() (Task, error) {
	if r.done {
		return Task{}, io.EOF
	}

	if r.array && !r.started {
		r.started = true
		if _, err := r.dec.Token(); err != nil {
			return Task{}, fmt.Errorf("read task array: %w", err)
		}
	}

	if r.array && !r.dec.More() {
		r.done = true
		if _, err := r.dec.Token(); err != nil {
			return Task{}, fmt.Errorf("read task array end: %w", err)
		}
		return Task{}, io.EOF
	}

	var t Task
	if err := r.dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) && !r.array {
			r.done = true
			return Task{}, io.EOF
		}
		return Task{}, fmt.Errorf("decode task %d: %w", r.count+1, err)
	}
	r.count++
	return t, nil
}

// Count returns the number of tasks decoded so far.
func (r *Reader) Count() int { return r.count }

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for i := 1; ; i++ {
		buf, err := br.Peek(i)
		if len(buf) < i {
			return 0, err
		}
		if b := buf[i-1]; !unicode.IsSpace(rune(b)) {
			return b, nil
		}
	}
}

// SliceIterator iterates over tasks held in memory.
type SliceIterator struct {
	tasks []Task
	pos   int
}

// FromSlice returns an Iterator over tasks.
func FromSlice(tasks []Task) *SliceIterator {
	return &SliceIterator{tasks: tasks}
}

// Next returns the next task or io.EOF.
func (s *SliceIterator) Next() (Task, error) {
	if s.pos >= len(s.tasks) {
		return Task{}, io.EOF
	}
	t := s.tasks[s.pos]
	s.pos++
	return t, nil
}
