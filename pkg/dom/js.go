//go:build js && wasm

package dom

import "syscall/js"

// Global returns the document of the page the program runs in.
func Global() Document {
	return jsDocument{v: js.Global().Get("document")}
}

type jsDocument struct {
	v js.Value
}

func (d jsDocument) ElementByID(id string) (Element, bool) {
	el := d.v.Call("getElementById", id)
	if el.IsNull() || el.IsUndefined() {
		return nil, false
	}
	return jsElement{v: el}, true
}

func (d jsDocument) Body() Element {
	return jsElement{v: d.v.Get("body")}
}

func (d jsDocument) NewResizeObserver(fn func(entries []ResizeEntry)) ResizeObserver {
	o := &jsResizeObserver{}
	o.cb = js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		raw := args[0]
		n := raw.Length()
		entries := make([]ResizeEntry, 0, n)
		for i := 0; i < n; i++ {
			entries = append(entries, ResizeEntry{Target: jsElement{v: raw.Index(i).Get("target")}})
		}
		fn(entries)
		return nil
	})
	o.v = js.Global().Get("ResizeObserver").New(o.cb)
	return o
}

type jsElement struct {
	v js.Value
}

func (e jsElement) ID() string {
	return e.v.Get("id").String()
}

func (e jsElement) OffsetWidth() float64 {
	return e.v.Get("offsetWidth").Float()
}

type jsResizeObserver struct {
	v        js.Value
	cb       js.Func
	released bool
}

func (o *jsResizeObserver) Observe(el Element) {
	if je, ok := el.(jsElement); ok {
		o.v.Call("observe", je.v)
	}
}

func (o *jsResizeObserver) Disconnect() {
	if o.released {
		return
	}
	o.v.Call("disconnect")
	o.cb.Release()
	o.released = true
}
