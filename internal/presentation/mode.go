package presentation

import "net/http"

// OverlayTarget is the id of the container that hosts the overlay
// presentation on top of the current page.
const OverlayTarget = "overlay"

const (
	headerRequest        = "HX-Request"
	headerTarget         = "HX-Target"
	headerHistoryRestore = "HX-History-Restore-Request"
)

// VaryHeader lists the request headers that select the presentation, so
// caches keep the two renderings of one URL apart.
const VaryHeader = headerRequest + ", " + headerTarget

type Mode int

const (
	// Standalone is a full page: direct load, refresh, shared link or
	// history restore.
	Standalone Mode = iota
	// Overlay is a fragment swapped over the page the user navigated from.
	Overlay
)

func (m Mode) String() string {
	if m == Overlay {
		return "overlay"
	}
	return "standalone"
}

// ModeFromRequest picks the presentation for a job URL. Only in-app
// navigation aimed at the overlay container gets the overlay; htmx history
// restores need a full page even though they come from htmx.
func ModeFromRequest(r *http.Request) Mode {
	if r.Header.Get(headerRequest) != "true" {
		return Standalone
	}
	if r.Header.Get(headerHistoryRestore) != "" {
		return Standalone
	}
	if r.Header.Get(headerTarget) != OverlayTarget {
		return Standalone
	}
	return Overlay
}

// IsHTMX reports whether r was issued by htmx, whatever its target.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get(headerRequest) == "true" && r.Header.Get(headerHistoryRestore) == ""
}
