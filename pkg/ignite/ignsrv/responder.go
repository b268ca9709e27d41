package ignsrv

import (
	"fmt"
	"net"

	"github.com/watt-toolkit/ignite/pkg/ignite/reqcore"
)

var statusText = map[int]string{
	200: "OK",
	204: "No Content",
	400: "Bad Request",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	500: "Internal Server Error",
}

// connResponder is the default reqcore.Responder: it writes a minimal
// HTTP/1.1 response (status line, "Content-Length: 0" and
// "Connection: close") directly to the accepted connection; it has no
// way to send a response body. statusText covers every status the driver
// and the connection emit (400/404/405/413/500) plus the 200/204 the demo
// handlers use; any other status is written with the reason "Unknown".
type connResponder struct {
	conn net.Conn
}

// NewConnResponder adapts conn into a reqcore.Responder. Pass this (or
// StatusResponderFactory) as the newResponder argument to New.
func NewConnResponder(conn net.Conn) reqcore.Responder {
	return &connResponder{conn: conn}
}

func (r *connResponder) EmitStatus(status int) error {
	text, ok := statusText[status]
	if !ok {
		text = "Unknown"
	}
	_, err := fmt.Fprintf(r.conn, "HTTP/1.1 %d %s\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", status, text)
	return err
}

// StatusResponderFactory is the reqcore.ResponderFactory built from
// NewConnResponder, ready to hand to ignsrv.New.
func StatusResponderFactory(conn net.Conn) reqcore.Responder {
	return NewConnResponder(conn)
}
