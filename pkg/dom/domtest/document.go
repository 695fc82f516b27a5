// Package domtest provides an in-memory dom.Document for tests.
//
// Resizes are driven explicitly with Resize and ResizeBody and delivered
// synchronously to live observers. Unlike a browser, observing an element
// does not deliver an initial entry.
package domtest

import (
	"sync"

	"github.com/vango-dev/screenobserver/pkg/dom"
)

// Element is an in-memory element.
type Element struct {
	id string

	mu    sync.Mutex
	width float64
}

// ID returns the element ID.
func (e *Element) ID() string {
	return e.id
}

// OffsetWidth returns the element width.
func (e *Element) OffsetWidth() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width
}

func (e *Element) setWidth(w float64) {
	e.mu.Lock()
	e.width = w
	e.mu.Unlock()
}

// Document is an in-memory dom.Document.
type Document struct {
	mu        sync.Mutex
	elements  map[string]*Element
	body      *Element
	observers []*Observer
}

var _ dom.Document = (*Document)(nil)

// New creates an empty document with a zero-width body.
func New() *Document {
	return &Document{
		elements: make(map[string]*Element),
		body:     &Element{},
	}
}

// SetElement adds the element or updates its width without notifying
// observers.
func (d *Document) SetElement(id string, width float64) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.elements[id]
	if !ok {
		el = &Element{id: id}
		d.elements[id] = el
	}
	el.setWidth(width)
	return el
}

// Remove deletes the element from the document. Observers keep their
// reference, as they would in a browser.
func (d *Document) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.elements, id)
}

// Resize sets the element width and notifies observers watching it.
// Resizing an unknown element is a no-op.
func (d *Document) Resize(id string, width float64) {
	d.mu.Lock()
	el, ok := d.elements[id]
	d.mu.Unlock()
	if !ok {
		return
	}
	el.setWidth(width)
	d.notify(el)
}

// ResizeBody sets the body width and notifies observers watching it.
func (d *Document) ResizeBody(width float64) {
	d.body.setWidth(width)
	d.notify(d.body)
}

func (d *Document) notify(el *Element) {
	d.mu.Lock()
	var targets []*Observer
	for _, o := range d.observers {
		if o.watches(el) {
			targets = append(targets, o)
		}
	}
	d.mu.Unlock()

	for _, o := range targets {
		o.fn([]dom.ResizeEntry{{Target: el}})
	}
}

// ElementByID implements dom.Document.
func (d *Document) ElementByID(id string) (dom.Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.elements[id]
	if !ok {
		return nil, false
	}
	return el, true
}

// Body implements dom.Document.
func (d *Document) Body() dom.Element {
	return d.body
}

// NewResizeObserver implements dom.Document.
func (d *Document) NewResizeObserver(fn func(entries []dom.ResizeEntry)) dom.ResizeObserver {
	o := &Observer{doc: d, fn: fn}
	d.mu.Lock()
	d.observers = append(d.observers, o)
	d.mu.Unlock()
	return o
}

// ObserverCount returns the number of observers that have not been
// disconnected.
func (d *Document) ObserverCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.observers)
}

// Observer is an in-memory resize observer.
type Observer struct {
	doc     *Document
	fn      func([]dom.ResizeEntry)
	targets []dom.Element
}

// Observe implements dom.ResizeObserver.
func (o *Observer) Observe(el dom.Element) {
	o.doc.mu.Lock()
	defer o.doc.mu.Unlock()
	o.targets = append(o.targets, el)
}

// Disconnect implements dom.ResizeObserver.
func (o *Observer) Disconnect() {
	o.doc.mu.Lock()
	defer o.doc.mu.Unlock()
	for i, other := range o.doc.observers {
		if other == o {
			o.doc.observers = append(o.doc.observers[:i:i], o.doc.observers[i+1:]...)
			break
		}
	}
	o.targets = nil
}

// watches must be called with doc.mu held.
func (o *Observer) watches(el dom.Element) bool {
	for _, t := range o.targets {
		if t == el {
			return true
		}
	}
	return false
}
