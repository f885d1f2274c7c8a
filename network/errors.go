package network

import (
	"fmt"

	"github.com/comit-network/swapd/swap"
)

// AlreadyHaveRoleParams is returned when a peer sends the same role's
// params twice before the match completes, following cnd's
// swaps::Error::AlreadyHaveRoleParams: a peer only gets one shot at
// announcing a given role's half of a setup-swap exchange.
type AlreadyHaveRoleParams struct {
	Peer swap.PeerId
	Role string
}

func (e *AlreadyHaveRoleParams) Error() string {
	return fmt.Sprintf("setup-swap: peer %s already sent %s params", e.Peer, e.Role)
}
