package interfaces

import (
	"net"
)

// PacketSender is the narrow capability a Session uses to emit datagrams
// without holding a back-pointer to the Transport (spec §9: "Session
// refers to Transport through a narrow send capability. No object-level
// back-pointers.").
type PacketSender interface {
	SendTo(addr *net.UDPAddr, packet []byte) error
}
