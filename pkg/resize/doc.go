// Package resize is the host side of the screen observer: a registry of
// width subscriptions keyed by observed target.
//
// The browser does the actual measuring. A Bridge carries requests from
// the host to the browser, and the browser calls back into the host
// through a HostRef once a resize has settled. The Service arbitrates
// observation lifecycle: the first subscriber to a target starts
// observation, the last one to leave stops it.
//
// Usage:
//
//	svc := resize.New(bridge, nil)
//	defer svc.Dispose(ctx)
//
//	sub, width, err := svc.ObserveElement(ctx, "sidebar", func(w int) {
//	    layout.SetSidebarWidth(w)
//	})
//	if err != nil {
//	    return err
//	}
//	defer svc.StopObservingElement(ctx, "sidebar", sub)
//
// A width of 0 returned from an observe call means the width is unknown:
// either the browser could not be reached or the element does not exist.
package resize
