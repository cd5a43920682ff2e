package htmx

import (
	"net/http"
	"strings"
)

const TriggerHeader = "HX-Trigger"

func IsRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// TriggerHeaders returns response headers firing event on the client when r
// came from htmx, or nil otherwise.
func TriggerHeaders(r *http.Request, event string) map[string]string {
	if !IsRequest(r) {
		return nil
	}
	return map[string]string{TriggerHeader: event}
}
