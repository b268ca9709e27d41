package reqcore

import (
	"encoding/binary"
	"net"

	"github.com/pkg/errors"
)

// ProxyFamily mirrors the wire address-family byte used by both PROXY
// protocol versions.
type ProxyFamily byte

const (
	ProxyFamilyUnspec ProxyFamily = iota
	ProxyFamilyInet
	ProxyFamilyInet6
	ProxyFamilyUnix
)

// ProxyAddr is one endpoint (source or destination) of a PROXY protocol
// header.
type ProxyAddr struct {
	Family ProxyFamily
	IP     net.IP
	Port   uint16
}

// ProxyInfo is the decoded PROXY protocol preface, when one precedes the
// HTTP request on the wire (as emitted by load balancers such as HAProxy
// or AWS NLB in front of this server).
type ProxyInfo struct {
	Version int // 1 or 2
	From    ProxyAddr
	To      ProxyAddr
	// consumed is how many bytes of the connection's leading buffer the
	// preface occupied; the caller resumes request-line tokenizing at
	// that offset.
consumed int
}

// Consumed reports how many leading bytes of the buffer the PROXY preface
// occupied.
func (p *ProxyInfo) Consumed() int { return p.consumed }

var (
	v1Prefix    = []byte("PROXY ")
	v2Signature = []byte("\r\n\r\n\x00\r\nQUIT\n")
)

// DetectAndParseProxyHeader inspects the start of buf for a PROXY protocol
// v1 (text) or v2 (binary) preface. If neither signature is present at
// offset 0, it returns (nil, 0, nil) — the caller proceeds straight to
// request-line tokenizing. This operates entirely on bytes already read
// into the connection's buffer (component E), unlike the bufio.Reader-based
// decoder it is grounded on, because this module's socket reader does not
// own a bufio.Reader.
func DetectAndParseProxyHeader(buf []byte) (*ProxyInfo, int, error) {
	if len(buf) >= len(v2Signature) && bytesEqual(buf[:len(v2Signature)], v2Signature) {
		return parseProxyV2(buf)
	}
	if len(buf) >= len(v1Prefix) && bytesEqual(buf[:len(v1Prefix)], v1Prefix) {
		return parseProxyV1(buf)
	}
	return nil, 0, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- v1: text, max 107 header bytes + trailing \n = 108, per HAProxy spec. ---

const v1HeaderMaxLength = 107

func parseProxyV1(buf []byte) (*ProxyInfo, int, error) {
	lineEnd := -1
	limit := len(buf)
	if limit > v1HeaderMaxLength+1 {
		limit = v1HeaderMaxLength + 1
	}
	for i := 0; i < limit; i++ {
		if buf[i] == '\n' {
			lineEnd = i
			break
		}
	}
	if lineEnd == -1 {
		if len(buf) > v1HeaderMaxLength+1 {
			return nil, 0, errors.Wrap(ErrProxyHeaderTooLong, "proxyproto v1")
		}
		return nil, 0, ErrProxyMalformed // incomplete — caller should read more
	}
	if lineEnd == 0 || buf[lineEnd-1] != '\r' {
		return nil, 0, errors.Wrap(ErrProxyMalformed, "proxyproto v1: missing CRLF")
	}
	line := buf[:lineEnd-1]
	fields := splitFields(line)
	if len(fields) < 2 {
		return nil, 0, errors.Wrap(ErrProxyMalformed, "proxyproto v1: missing address family")
	}

	info := &ProxyInfo{Version: 1, consumed: lineEnd + 1}
	var fam ProxyFamily
	switch string(fields[1]) {
	case "TCP4":
		fam = ProxyFamilyInet
	case "TCP6":
		fam = ProxyFamilyInet6
	case "UNKNOWN":
		return info, info.consumed, nil
	default:
		return nil, 0, errors.Wrap(ErrProxyUnknownFamily, "proxyproto v1")
	}
	if len(fields) < 6 {
		return nil, 0, errors.Wrap(ErrProxyMalformed, "proxyproto v1: missing address or port")
	}
	srcIP := net.ParseIP(string(fields[2]))
	dstIP := net.ParseIP(string(fields[3]))
	if srcIP == nil || dstIP == nil {
		return nil, 0, errors.Wrap(ErrProxyMalformed, "proxyproto v1: invalid IP")
	}
	srcPort, ok1 := parseASCIIPort(fields[4])
	dstPort, ok2 := parseASCIIPort(fields[5])
	if !ok1 || !ok2 {
		return nil, 0, errors.Wrap(ErrProxyMalformed, "proxyproto v1: invalid port")
	}
	info.From = ProxyAddr{Family: fam, IP: srcIP, Port: srcPort}
	info.To = ProxyAddr{Family: fam, IP: dstIP, Port: dstPort}
	return info, info.consumed, nil
}

func splitFields(b []byte) [][]byte {
	var out [][]byte
	for len(b) > 0 {
		b = trimLeadingSpace(b)
		if len(b) == 0 {
			break
		}
		i := 0
		for i < len(b) && b[i] != ' ' {
			i++
		}
		out = append(out, b[:i])
		b = b[i:]
	}
	return out
}

// --- v2: binary, 16-byte fixed header + address block + TLV trailer. ---

const (
	addrLenV4   = 12
	addrLenV6   = 36
	addrLenUnix = 216
)

func parseProxyV2(buf []byte) (*ProxyInfo, int, error) {
	const fixedHeaderLen = 16
	if len(buf) < fixedHeaderLen {
		return nil, 0, ErrProxyMalformed // incomplete
	}
	verCmd := buf[12]
	ver := verCmd >> 4
	cmd := verCmd & 0x0F
	if ver != 2 {
		return nil, 0, errors.Wrap(ErrProxyBadSignature, "proxyproto v2: bad version")
	}
	afTp := buf[13]
	af := afTp >> 4
	payloadLen := int(binary.BigEndian.Uint16(buf[14:16]))
	if len(buf) < fixedHeaderLen+payloadLen {
		return nil, 0, ErrProxyPayloadTooShort
	}
	consumed := fixedHeaderLen + payloadLen
	info := &ProxyInfo{Version: 2, consumed: consumed}

	if cmd == 0x00 { // LOCAL: health check connection, no real addresses
		return info, consumed, nil
	}

	payload := buf[fixedHeaderLen:consumed]
	switch af {
	case 0x1: // AF_INET
		if len(payload) < addrLenV4 {
			return nil, 0, ErrProxyPayloadTooShort
		}
		info.From = ProxyAddr{Family: ProxyFamilyInet, IP: net.IP(payload[0:4]).To4(), Port: binary.BigEndian.Uint16(payload[8:10])}
		info.To = ProxyAddr{Family: ProxyFamilyInet, IP: net.IP(payload[4:8]).To4(), Port: binary.BigEndian.Uint16(payload[10:12])}
	case 0x2: // AF_INET6
		if len(payload) < addrLenV6 {
			return nil, 0, ErrProxyPayloadTooShort
		}
		info.From = ProxyAddr{Family: ProxyFamilyInet6, IP: net.IP(payload[0:16]), Port: binary.BigEndian.Uint16(payload[32:34])}
		info.To = ProxyAddr{Family: ProxyFamilyInet6, IP: net.IP(payload[16:32]), Port: binary.BigEndian.Uint16(payload[34:36])}
	case 0x3: // AF_UNIX: addresses are socket paths, not IP:port; not
		// modeled by ProxyAddr (IP-oriented) in this module's scope.
		info.From = ProxyAddr{Family: ProxyFamilyUnix}
		info.To = ProxyAddr{Family: ProxyFamilyUnix}
	default:
		info.From = ProxyAddr{Family: ProxyFamilyUnspec}
		info.To = ProxyAddr{Family: ProxyFamilyUnspec}
	}
	// Remaining payload bytes after the fixed address block are TLVs
	// (load-balancer metadata, e.g. PP2_TYPE_AUTHORITY). Skipping them by
	// declared length is enough to keep framing correct; this module does
	// not expose TLV contents as an operation.
	return info, consumed, nil
}
