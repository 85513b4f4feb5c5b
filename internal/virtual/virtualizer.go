// Package virtual computes which rows of a long list need to exist for a
// given scroll position, so that only the visible slice plus an overscan
// margin is ever built.
//
// Usage:
//
//	v := virtual.New(virtual.Options{Count: n, EstimateSize: 35, Overscan: 10})
//	v.SetViewport(scrollTop, clientHeight)
//	w := v.Window()
//	// spacer of w.PaddingTop, rows w.Start..w.End, spacer of w.PaddingBottom
package virtual

import "sort"

// Align selects where ScrollToIndex places the item in the viewport.
type Align int

const (
	// AlignAuto scrolls the minimum distance that makes the item visible.
	AlignAuto Align = iota
	AlignStart
	AlignCenter
	AlignEnd
)

// Options configures a Virtualizer.
type Options struct {
	Count int
	// EstimateSize is the height assumed for rows that were not measured.
	EstimateSize float32
	// Overscan is the number of extra rows kept on each side.
	Overscan int
	// PaddingStart is space before the first row.
	PaddingStart float32
}

// Item is one mounted row.
type Item struct {
	Index int
	Start float32
	End   float32
	Size  float32
}

// Window is the mounted range [Start, End) and its spacers.
type Window struct {
	Items     []Item
	Start     int
	End       int
	TotalSize float32
	// PaddingTop + sum of item sizes + PaddingBottom == TotalSize.
	PaddingTop    float32
	PaddingBottom float32
}

// Len returns the number of mounted rows.
func (w Window) Len() int { return w.End - w.Start }

// Virtualizer tracks row sizes and the viewport. It is not safe for
// concurrent use.
type Virtualizer struct {
	opts     Options
	offset   float32
	height   float32
	measured map[int]float32

	// starts[i] is the top of row i; starts[count] is the content end.
	starts []float32
	dirty  bool
}

// New returns a Virtualizer with an empty viewport.
func New(opts Options) *Virtualizer {
	if opts.Count < 0 {
		opts.Count = 0
	}
	if opts.Overscan < 0 {
		opts.Overscan = 0
	}
	return &Virtualizer{opts: opts, measured: map[int]float32{}, dirty: true}
}

// SetCount changes the number of rows. Measurements past the new count
// are forgotten.
func (v *Virtualizer) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	if n == v.opts.Count {
		return
	}
	for i := range v.measured {
		if i >= n {
			delete(v.measured, i)
		}
	}
	v.opts.Count = n
	v.dirty = true
}

// Count returns the number of rows.
func (v *Virtualizer) Count() int { return v.opts.Count }

// SetViewport records the scroll offset and visible height.
func (v *Virtualizer) SetViewport(offset, height float32) {
	if offset < 0 {
		offset = 0
	}
	if height < 0 {
		height = 0
	}
	v.offset, v.height = offset, height
}

// Viewport returns the last offset and height.
func (v *Virtualizer) Viewport() (offset, height float32) { return v.offset, v.height }

// Measure overrides the estimated size of row index.
func (v *Virtualizer) Measure(index int, size float32) {
	if index < 0 || index >= v.opts.Count || size < 0 {
		return
	}
	if cur, ok := v.measured[index]; ok && cur == size {
		return
	}
	v.measured[index] = size
	v.dirty = true
}

// Reset drops every measurement.
func (v *Virtualizer) Reset() {
	v.measured = map[int]float32{}
	v.dirty = true
}

func (v *Virtualizer) layout() {
	if !v.dirty {
		return
	}
	n := v.opts.Count
	if cap(v.starts) < n+1 {
		v.starts = make([]float32, n+1)
	}
	v.starts = v.starts[:n+1]
	pos := v.opts.PaddingStart
	for i := 0; i < n; i++ {
		v.starts[i] = pos
		size, ok := v.measured[i]
		if !ok {
			size = v.opts.EstimateSize
		}
		pos += size
	}
	v.starts[n] = pos
	v.dirty = false
}

// TotalSize is the full scroll height of the list.
func (v *Virtualizer) TotalSize() float32 {
	v.layout()
	return v.starts[v.opts.Count]
}

// item returns row i's geometry. layout must be current.
func (v *Virtualizer) item(i int) Item {
	s, e := v.starts[i], v.starts[i+1]
	return Item{Index: i, Start: s, End: e, Size: e - s}
}

// visibleRange returns the first and last (inclusive) rows that
// intersect the viewport.
func (v *Virtualizer) visibleRange() (int, int) {
	n := v.opts.Count
	// last row whose start is at or before the offset
	first := sort.Search(n, func(i int) bool { return v.starts[i] > v.offset }) - 1
	if first < 0 {
		first = 0
	}
	last := first
	for last < n-1 && v.starts[last+1] < v.offset+v.height {
		last++
	}
	return first, last
}

// Window computes the mounted rows for the current viewport.
func (v *Virtualizer) Window() Window {
	v.layout()
	n := v.opts.Count
	w := Window{TotalSize: v.starts[n]}
	if n == 0 {
		return w
	}

	first, last := v.visibleRange()
	first -= v.opts.Overscan
	if first < 0 {
		first = 0
	}
	last += v.opts.Overscan
	if last > n-1 {
		last = n - 1
	}

	w.Start, w.End = first, last+1
	w.Items = make([]Item, 0, w.End-w.Start)
	for i := w.Start; i < w.End; i++ {
		w.Items = append(w.Items, v.item(i))
	}
	w.PaddingTop = w.Items[0].Start
	w.PaddingBottom = w.TotalSize - w.Items[len(w.Items)-1].End
	return w
}

// ScrollToIndex moves the viewport so that row index is placed per
// align and returns the new offset.
func (v *Virtualizer) ScrollToIndex(index int, align Align) float32 {
	v.layout()
	if v.opts.Count == 0 {
		v.offset = 0
		return 0
	}
	if index < 0 || index >= v.opts.Count {
		return v.offset
	}
	it := v.item(index)

	target := v.offset
	switch align {
	case AlignStart:
		target = it.Start
	case AlignEnd:
		target = it.End - v.height
	case AlignCenter:
		target = it.Start + it.Size/2 - v.height/2
	default:
		if it.Start < v.offset {
			target = it.Start
		} else if it.End > v.offset+v.height {
			target = it.End - v.height
		}
	}

	maxOffset := v.starts[v.opts.Count] - v.height
	if target > maxOffset {
		target = maxOffset
	}
	if target < 0 {
		target = 0
	}
	v.offset = target
	return target
}
