package transport

import "net/http"

// BrowserHeaders returns the header set presented to upstream sites so that
// requests look like they come from a desktop browser.
func BrowserHeaders(userAgent string) http.Header {
	h := make(http.Header, 4)
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Connection", "keep-alive")
	return h
}

// ApplyBrowserHeaders copies the browser header set onto req without
// overriding headers the caller already set.
func ApplyBrowserHeaders(req *http.Request, userAgent string) {
	for key, values := range BrowserHeaders(userAgent) {
		if req.Header.Get(key) != "" {
			continue
		}
		req.Header[key] = append([]string(nil), values...)
	}
}
