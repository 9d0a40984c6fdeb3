package httpsock

import (
	"errors"
	"fmt"
	"net/netip"
	"syscall"
)

// ErrForbiddenAddress is a dial to an address rejected by PublicOnly.
var ErrForbiddenAddress = errors.New("address not allowed")

// PublicOnly is a net.Dialer Control function that refuses loopback,
// private, link-local, multicast and unspecified addresses. It runs after
// name resolution, so hostnames pointing at internal addresses are caught too.
func PublicOnly(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, address)
	}
	a := ap.Addr().Unmap()
	if a.IsLoopback() || a.IsPrivate() || a.IsUnspecified() ||
		a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() ||
		a.IsInterfaceLocalMulticast() || a.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, a)
	}
	return nil
}
