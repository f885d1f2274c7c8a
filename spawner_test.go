package main

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/comit-network/swapd/network"
	"github.com/comit-network/swapd/swap"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func mustPrivKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

// hbitIdentities must always resolve Alice's key to the redeem side and
// Bob's to the refund side when hbit is beta (Herc20Hbit), and the
// opposite when hbit is alpha (HbitHerc20), regardless of which of the
// two keys is "own" versus "remote" from this daemon's point of view.
func TestHbitIdentitiesAcrossOrderingsAndRoles(t *testing.T) {
	ownKey := mustPrivKey(t).PubKey()
	remoteKey := mustPrivKey(t).PubKey()

	cases := []struct {
		name       string
		ordering   swap.Ordering
		role       swap.Role
		wantRedeem *btcec.PublicKey
		wantRefund *btcec.PublicKey
	}{
		{"HbitHerc20/Alice", swap.HbitHerc20, swap.RoleAlice, remoteKey, ownKey},
		{"HbitHerc20/Bob", swap.HbitHerc20, swap.RoleBob, ownKey, remoteKey},
		{"Herc20Hbit/Alice", swap.Herc20Hbit, swap.RoleAlice, ownKey, remoteKey},
		{"Herc20Hbit/Bob", swap.Herc20Hbit, swap.RoleBob, remoteKey, ownKey},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			redeem, refund := hbitIdentities(c.ordering, c.role, ownKey, remoteKey)
			require.True(t, c.wantRedeem.IsEqual(redeem), "redeem identity mismatch")
			require.True(t, c.wantRefund.IsEqual(refund), "refund identity mismatch")
		})
	}
}

// herc20Identities mirrors hbitIdentities: herc20 is alpha (Alice funds,
// Bob redeems) under Herc20Hbit and beta (Bob funds, Alice redeems)
// under HbitHerc20, so Alice always redeems under HbitHerc20 and Bob
// always redeems under Herc20Hbit.
func TestHerc20IdentitiesAcrossOrderingsAndRoles(t *testing.T) {
	own := common.HexToAddress("0x0000000000000000000000000000000000000001")
	aliceRemote := common.HexToAddress("0x0000000000000000000000000000000000000002")
	bobRemote := common.HexToAddress("0x0000000000000000000000000000000000000003")

	cases := []struct {
		name       string
		ordering   swap.Ordering
		role       swap.Role
		wantRedeem common.Address
		wantRefund common.Address
	}{
		// HbitHerc20: herc20 is beta, Alice redeems, Bob refunds.
		{"HbitHerc20/Alice", swap.HbitHerc20, swap.RoleAlice, own, bobRemote},
		{"HbitHerc20/Bob", swap.HbitHerc20, swap.RoleBob, aliceRemote, own},
		// Herc20Hbit: herc20 is alpha, Bob redeems, Alice refunds.
		{"Herc20Hbit/Alice", swap.Herc20Hbit, swap.RoleAlice, bobRemote, own},
		{"Herc20Hbit/Bob", swap.Herc20Hbit, swap.RoleBob, own, aliceRemote},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			redeem, refund := herc20Identities(c.ordering, c.role, own, aliceRemote, bobRemote)
			require.Equal(t, c.wantRedeem, redeem)
			require.Equal(t, c.wantRefund, refund)
		})
	}
}

func TestOrderingFor(t *testing.T) {
	require.Equal(t, swap.Herc20Hbit, orderingFor(network.ProtocolHerc20Hbit))
	require.Equal(t, swap.HbitHerc20, orderingFor(network.ProtocolHbitHerc20))
}
