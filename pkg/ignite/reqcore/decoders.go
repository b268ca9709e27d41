package reqcore

import (
	"bytes"
	"sort"
	"time"

	"github.com/watt-toolkit/ignite/pkg/ignite/arena"
)

// Query lazily decodes r.RawQuery into key/value pairs on first call,
// caching the result for the remainder of the request's lifetime (the
// DecodeState tri-state distinguishes "not parsed yet" from "parsed and
// genuinely empty" so a request with no query string doesn't re-run the
// decoder on every subsequent call).
func (r *Request) Query(a *arena.Arena) []KV {
	if r.queryState != Unparsed {
		return r.query
	}
	if len(r.RawQuery) == 0 {
		r.queryState = ParsedEmpty
		return nil
	}
	r.query = parseKeyValues(a, r.RawQuery, '&', r.query[:0])
	if len(r.query) == 0 {
		r.queryState = ParsedEmpty
	} else {
		r.queryState = Parsed
	}
	return r.query
}

// Cookies lazily decodes the Cookie header into key/value pairs, split on
// "; " pairs per RFC 6265.
func (r *Request) Cookies(a *arena.Arena) []KV {
	if r.cookieState != Unparsed {
		return r.cookies
	}
	raw := r.Header.Get(headerCookie)
	if len(raw) == 0 {
		r.cookieState = ParsedEmpty
		return nil
	}
	r.cookies = parseKeyValues(a, raw, ';', r.cookies[:0])
	if len(r.cookies) == 0 {
		r.cookieState = ParsedEmpty
	} else {
		r.cookieState = Parsed
	}
	return r.cookies
}

// Form lazily decodes a POST body with Content-Type
// application/x-www-form-urlencoded. It does not itself read the body —
// the caller passes the bytes component F already ingested.
func (r *Request) Form(a *arena.Arena, body []byte) []KV {
	if r.formState != Unparsed {
		return r.form
	}
	if len(body) == 0 {
		r.formState = ParsedEmpty
		return nil
	}
	r.form = parseKeyValues(a, body, '&', r.form[:0])
	if len(r.form) == 0 {
		r.formState = ParsedEmpty
	} else {
		r.formState = Parsed
	}
	return r.form
}

// parseKeyValues splits raw on sep into key=value pairs, url-decoding both
// sides in place into arena-owned copies (the source bytes alias the
// request buffer, which is reused by the next pipelined request, so a
// decoded field that must outlive the current parse cycle is cloned into
// the arena rather than decoded in place). The pairs are returned sorted
// by key; pairs with equal keys keep their arrival order.
func parseKeyValues(a *arena.Arena, raw []byte, sep byte, out []KV) []KV {
	for len(raw) > 0 {
		var pair []byte
		pair, raw, _ = cutByte(raw, sep)
		pair = trimLeadingSpace(pair)
		if len(pair) == 0 {
			continue
		}
		key, value, hasEq := strsepChar(pair, '=')
		keyBuf := a.Clone(key)
		if n, err := urlDecode(keyBuf); err == nil {
			keyBuf = keyBuf[:n]
		}
		var valueBuf []byte
		if hasEq {
			valueBuf = a.Clone(value)
			if n, err := urlDecode(valueBuf); err == nil {
				valueBuf = valueBuf[:n]
			}
		}
		out = append(out, KV{Key: keyBuf, Value: valueBuf})
	}
	sort.SliceStable(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out
}

// cutByte splits s at the first occurrence of sep, like strsepChar, but
// treats "not found" as "the whole remainder is one final token" rather
// than an error — the shape parseKeyValues needs for its loop.
func cutByte(s []byte, sep byte) (token, rest []byte, ok bool) {
	if tok, r, found := strsepChar(s, sep); found {
		return tok, r, true
	}
	return s, nil, false
}

// Range describes a single-range byte request (RFC 7233 §2.1, "bytes=
// first-last"); multi-range requests are not modeled and are reported as
// unsatisfiable by the caller, matching this module's spec.
type Range struct {
	Start, End int64 // End == -1 means "to the end of the resource"
	Valid      bool
}

// ParseRange decodes the Range header on each call (the result is not
// cached). It returns a zero Range with Valid=false if the header is
// absent, malformed, or lists multiple ranges. The suffix form
// "bytes=-500" is returned as Start=-1, End=500, and "bytes=500-" as
// Start=500, End=-1.
func (r *Request) ParseRange() Range {
	raw := r.Header.Get(headerRange)
	if raw == nil {
		return Range{}
	}
	const prefix = "bytes="
	if len(raw) <= len(prefix) || string(raw[:len(prefix)]) != prefix {
		return Range{}
	}
	spec := raw[len(prefix):]
	if i := indexByte(spec, ','); i != -1 {
		return Range{} // multi-range, unsupported
	}
	startB, endB, _ := strsepChar(spec, '-')
	if len(startB) == 0 {
		// suffix range: "-500" means last 500 bytes
		n, ok := parseDecimal(endB)
		if !ok {
			return Range{}
		}
		return Range{Start: -1, End: n, Valid: true}
	}
	start, ok := parseDecimal(startB)
	if !ok {
		return Range{}
	}
	if len(endB) == 0 {
		return Range{Start: start, End: -1, Valid: true}
	}
	end, ok := parseDecimal(endB)
	if !ok || end < start {
		return Range{}
	}
	return Range{Start: start, End: end, Valid: true}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func parseDecimal(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var v int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	return v, true
}

// ParseIfModifiedSince lazily decodes the If-Modified-Since header as an
// RFC 1123 timestamp (the only format this module's Non-goals allow —
// RFC 850 and asctime fallbacks are not parsed).
func (r *Request) ParseIfModifiedSince() (time.Time, bool) {
	raw := r.Header.Get(headerIfModifiedSince)
	if raw == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC1123, string(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AcceptsEncoding reports whether the Accept-Encoding header lists coding
// (e.g. "gzip"). Each comma-separated token is compared case-insensitively
// after any ";q=..." parameter is dropped; q-values are not evaluated, so
// "gzip;q=0" still counts as accepted (compression itself is an external
// collaborator, see SPEC_FULL.md component map).
func (r *Request) AcceptsEncoding(coding []byte) bool {
	raw := r.Header.Get(headerAcceptEncoding)
	if raw == nil {
		return false
	}
	for len(raw) > 0 {
		var tok []byte
		tok, raw, _ = cutByte(raw, ',')
		tok = trimTrailingSpace(trimLeadingSpace(tok))
		if semi := indexByte(tok, ';'); semi != -1 {
			tok = trimTrailingSpace(tok[:semi])
		}
		if bytesEqualCaseInsensitive(tok, coding) {
			return true
		}
	}
	return false
}

// ShouldKeepAlive reports whether the connection should stay open after
// this request, combining the request's own Connection header with the
// protocol-version default (HTTP/1.1 defaults to keep-alive, HTTP/1.0
// requires an explicit "Connection: keep-alive").
func (r *Request) ShouldKeepAlive() bool {
	if r.Close {
		return false
	}
	conn := r.Header.Get(headerConnection)
	if r.ProtoMajor == 1 && r.ProtoMinor == 0 {
		return bytesEqualCaseInsensitive(conn, headerKeepAlive)
	}
	return true
}
