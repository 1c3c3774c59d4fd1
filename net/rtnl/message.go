package rtnl

import (
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
)

// headerLen is sizeof(struct nlmsghdr).
const headerLen = 16

// align rounds n up to the 4 byte netlink alignment.
func align(n int) int {
	return (n + 3) &^ 3
}

// marshalMessage frames m for the wire. The header length is computed from
// the payload.
func marshalMessage(m netlink.Message) ([]byte, error) {
	m.Header.Length = uint32(align(headerLen + len(m.Data)))
	return m.MarshalBinary()
}

// parseMessages splits a datagram into the netlink messages it carries.
//
// Each message is length-prefixed; the next message starts at the aligned end
// of the previous one.
func parseMessages(b []byte) ([]netlink.Message, error) {
	var msgs []netlink.Message

	for len(b) > 0 {
		if len(b) < headerLen {
			return nil, malformed("trailing %d bytes shorter than a header", len(b))
		}

		l := int(nlenc.Uint32(b[0:4]))
		if l < headerLen || l > len(b) {
			return nil, malformed("message length %d out of bounds (%d bytes left)", l, len(b))
		}

		m := netlink.Message{
			Header: netlink.Header{
				Length:   uint32(l),
				Type:     netlink.HeaderType(nlenc.Uint16(b[4:6])),
				Flags:    netlink.HeaderFlags(nlenc.Uint16(b[6:8])),
				Sequence: nlenc.Uint32(b[8:12]),
				PID:      nlenc.Uint32(b[12:16]),
			},
			Data: append([]byte(nil), b[headerLen:l]...),
		}
		msgs = append(msgs, m)

		next := align(l)
		if next > len(b) {
			next = len(b)
		}
		b = b[next:]
	}

	return msgs, nil
}

// errorCode extracts the signed error code at the start of an NLMSG_ERROR or
// NLMSG_DONE payload.
func errorCode(m netlink.Message) (int32, bool) {
	if len(m.Data) < 4 {
		return 0, false
	}
	return nlenc.Int32(m.Data[0:4]), true
}
