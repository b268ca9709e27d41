package reqcore

import "strconv"

// DecodeState tracks whether a lazily-decoded Request field has been
// computed yet, distinguishing "not parsed" from "parsed, and the field is
// legitimately absent" so a decoder never redoes work for a request that
// simply has no query string or no cookies.
type DecodeState uint8

const (
	Unparsed DecodeState = iota
	ParsedEmpty
	Parsed
)

// KV is a single decoded key/value pair (query parameter, cookie, or form
// field). parseKeyValues stores both sides as arena-owned copies, so they
// do not alias the request buffer.
type KV struct {
	Key, Value []byte
}

// Request is the tokenized view of one HTTP/1.x request: method, URL, and
// headers are zero-copy slices into the connection's buffer, valid only
// until the next call to Reset. Every field the wire grammar doesn't
// guarantee is present carries its own DecodeState so Component D's lazy
// decoders run at most once per field per request.
type Request struct {
	MethodID Method
	URL      []byte // mutable across an internal URL rewrite (component G)
	OriginalURL []byte // snapshot taken before any rewrite
	Path     []byte // URL without the query string
	RawQuery []byte
	ProtoMajor, ProtoMinor int

	Header Header

	ContentLength int64
	HasContentLength bool
	Chunked          bool // recognized, not decoded — see Non-goals
	Close            bool

	Proxy *ProxyInfo

	query   []KV
	queryState DecodeState
	cookies    []KV
	cookieState DecodeState
	form       []KV
	formState  DecodeState

	rewrites int
}

// Reset clears a Request for reuse by the next pipelined request on the
// same connection (or the next connection, if pooled).
func (r *Request) Reset() {
	*r = Request{
		query:   r.query[:0],
		cookies: r.cookies[:0],
		form:    r.form[:0],
	}
	r.Header.Reset()
}

// ParseRequestLine splits a request-line (without its trailing CRLF) into
// method, URL, and protocol version, validating each against this module's
// narrower method/version set. Grounded on the teacher's parseRequestLine
// (space-delimited three-field split, leading '/' or '*' path check),
// generalized to the method table in constants.go.
func (r *Request) ParseRequestLine(line []byte) error {
	methodBytes, rest, ok := strsepChar(line, ' ')
	if !ok {
		return ErrMalformedRequestLine
	}
	uri, proto, ok := cutLastSpace(rest)
	if !ok {
		return ErrMalformedRequestLine
	}

	method := parseMethod(methodBytes)
	if method == MethodUnknown {
		return ErrUnsupportedMethod
	}
	r.MethodID = method

	if len(uri) == 0 || (uri[0] != '/' && !(len(uri) == 1 && uri[0] == '*')) {
		return ErrInvalidURI
	}
	r.URL = uri
	r.OriginalURL = uri
	if path, query, found := strsepChar(uri, '?'); found {
		r.Path = path
		r.RawQuery = query
	} else {
		r.Path = uri
		r.RawQuery = nil
	}

	switch {
	case bytesEqualCaseInsensitive(proto, http11Bytes):
		r.ProtoMajor, r.ProtoMinor = 1, 1
	case bytesEqualCaseInsensitive(proto, http10Bytes):
		r.ProtoMajor, r.ProtoMinor = 1, 0
	default:
		return ErrUnsupportedVersion
	}
	return nil
}

// cutLastSpace splits s at its last space, returning (before, after).
// The request line has exactly two spaces (METHOD SP URI SP VERSION); after
// the method is removed, the URI/VERSION split uses the *last* space
// rather than the first, so any stray raw space inside the URI stays part
// of the URI token. Raw spaces in the URI are not rejected here or later.
func cutLastSpace(s []byte) (before, after []byte, ok bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ' ' {
			return s[:i], s[i+1:], true
		}
	}
	return nil, nil, false
}

func parseMethod(b []byte) Method {
	switch len(b) {
	case 3:
		if string(b) == "GET" {
			return MethodGET
		}
	case 4:
		switch string(b) {
		case "HEAD":
			return MethodHEAD
		case "POST":
			return MethodPOST
		}
	case 6:
		if string(b) == "DELETE" {
			return MethodDELETE
		}
	case 7:
		if string(b) == "OPTIONS" {
			return MethodOPTIONS
		}
	}
	return MethodUnknown
}

// ParseHeaders scans a CRLF-delimited header block (without the blank line
// that terminates it) and populates r.Header, applying the smuggling
// protections the teacher's parseHeaders/processSpecialHeader implement:
// rejecting whitespace before the colon, rejecting a second Host header,
// rejecting Content-Length values that disagree with each other, and
// rejecting simultaneous Content-Length and chunked Transfer-Encoding.
func (r *Request) ParseHeaders(block []byte) error {
	sawHost := false
	sawContentLength := false
	for len(block) > 0 {
		line, rest, ok := strsepChar(block, '\n')
		if !ok {
			line, rest = block, nil
		} else if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		block = rest

		if len(line) == 0 {
			continue
		}
		name, value, ok := strsepChar(line, ':')
		if !ok {
			return ErrMalformedHeader
		}
		if len(name) > 0 && (name[len(name)-1] == ' ' || name[len(name)-1] == '\t') {
			return ErrWhitespaceBeforeColon
		}
		value = trimTrailingSpace(trimLeadingSpace(value))
		if len(name) > MaxHeaderNameLen || len(value) > MaxHeaderValueLen {
			return ErrHeadersTooLarge
		}

		if err := r.processSpecialHeader(name, value, &sawHost, &sawContentLength); err != nil {
			return err
		}
		if err := r.Header.Add(name, value); err != nil {
			return err
		}
	}
	if r.HasContentLength && r.Chunked {
		return ErrAmbiguousFraming
	}
	return nil
}

func (r *Request) processSpecialHeader(name, value []byte, sawHost, sawContentLength *bool) error {
	switch {
	case bytesEqualCaseInsensitive(name, headerHost):
		if *sawHost {
			return ErrDuplicateHost
		}
		*sawHost = true
	case bytesEqualCaseInsensitive(name, headerContentLength):
		n, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil || n < 0 {
			return ErrMalformedHeader
		}
		if *sawContentLength && r.ContentLength != n {
			return ErrDuplicateContentLength
		}
		*sawContentLength = true
		r.ContentLength = n
		r.HasContentLength = true
	case bytesEqualCaseInsensitive(name, headerTransferEncoding):
		if bytesEqualCaseInsensitive(trimTrailingSpace(trimLeadingSpace(value)), headerChunked) {
			r.Chunked = true
		}
	case bytesEqualCaseInsensitive(name, headerConnection):
		if bytesEqualCaseInsensitive(value, headerClose) {
			r.Close = true
		}
	}
	return nil
}

// HasBody reports whether the request declares a body (by Content-Length
// or chunked Transfer-Encoding). POST to a route that opts in
// (Route.AllowsBody) is the only combination this module's driver allows
// a body ingest step for; Connection.handleOneRequest checks the matched
// route and rejects any other method, or a POST to a route that didn't
// opt in, with 405 before component F (IngestBody) ever runs.
func (r *Request) HasBody() bool {
	return r.Chunked || (r.HasContentLength && r.ContentLength > 0)
}
