// Package dom is the slice of the browser document the screen observer
// bridge needs: element lookup, offset widths, and resize observation.
//
// Under GOOS=js GOARCH=wasm, Global returns the page's document through
// syscall/js. Tests use the in-memory document in package domtest.
package dom

// Element is a laid-out DOM element.
type Element interface {
	// ID returns the element's id attribute.
	ID() string

	// OffsetWidth returns the element's layout width in CSS pixels.
	// Browsers may report fractional widths.
	OffsetWidth() float64
}

// ResizeEntry describes one observed size change.
type ResizeEntry struct {
	Target Element
}

// ResizeObserver mirrors the browser ResizeObserver.
type ResizeObserver interface {
	// Observe starts delivering size changes for el.
	Observe(el Element)

	// Disconnect stops all delivery and releases the observer.
	Disconnect()
}

// Document provides access to the page.
type Document interface {
	// ElementByID returns the element with the given id, if present.
	ElementByID(id string) (Element, bool)

	// Body returns the document body.
	Body() Element

	// NewResizeObserver creates an observer that calls fn with each
	// batch of size changes.
	NewResizeObserver(fn func(entries []ResizeEntry)) ResizeObserver
}
