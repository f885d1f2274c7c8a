package network

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/comit-network/swapd/swap"
	"github.com/stretchr/testify/require"
)

func testCommon() CommonParams {
	return CommonParams{
		Erc20Quantity:          "1000000000",
		BitcoinSats:            100_000_000,
		EthereumAbsoluteExpiry: 2_000_000_000,
		BitcoinAbsoluteExpiry:  2_000_000_000,
		EthereumChainId:        1337,
		BitcoinNetwork:         "regtest",
	}
}

func newTestServer(t *testing.T, onExecutable func(ExecutableSwap)) *Server {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	server := NewServer(listener, listener.Addr().String(), btclog.Disabled, onExecutable)
	server.Start()
	t.Cleanup(func() { server.Stop() })
	return server
}

// TestSetupSwapMatchesBothHalves drives the exchange the way two distinct
// daemons would: each runs its own Server and announces its own half to
// the other's address.
func TestSetupSwapMatchesBothHalves(t *testing.T) {
	aliceMatched := make(chan ExecutableSwap, 1)
	bobMatched := make(chan ExecutableSwap, 1)

	aliceServer := newTestServer(t, func(es ExecutableSwap) { aliceMatched <- es })
	bobServer := newTestServer(t, func(es ExecutableSwap) { bobMatched <- es })

	common := testCommon()
	secretHash := swap.SecretHash{0xaa}

	go func() {
		err := aliceServer.Announce(context.Background(), bobServer.selfAddr,
			ProtocolHbitHerc20, "alice", common, AliceParams{SecretHash: secretHash})
		require.NoError(t, err)
	}()

	err := bobServer.Announce(context.Background(), aliceServer.selfAddr,
		ProtocolHbitHerc20, "bob", common, BobParams{})
	require.NoError(t, err)

	for _, matched := range []chan ExecutableSwap{aliceMatched, bobMatched} {
		select {
		case es := <-matched:
			require.Equal(t, secretHash, es.Alice.SecretHash)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for executable swap")
		}
	}
}

func TestSetupSwapRejectsMismatchedCommonParams(t *testing.T) {
	aliceMatched := make(chan ExecutableSwap, 1)
	bobMatched := make(chan ExecutableSwap, 1)

	aliceServer := newTestServer(t, func(es ExecutableSwap) { aliceMatched <- es })
	bobServer := newTestServer(t, func(es ExecutableSwap) { bobMatched <- es })

	common := testCommon()
	mismatched := common
	mismatched.BitcoinSats = common.BitcoinSats + 1

	go func() {
		aliceServer.Announce(context.Background(), bobServer.selfAddr,
			ProtocolHbitHerc20, "alice", common, AliceParams{})
	}()
	bobServer.Announce(context.Background(), aliceServer.selfAddr,
		ProtocolHbitHerc20, "bob", mismatched, BobParams{})

	select {
	case <-aliceMatched:
		t.Fatal("expected no match for disagreeing common params")
	case <-bobMatched:
		t.Fatal("expected no match for disagreeing common params")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSetupSwapRejectsSameRoleParamsTwice(t *testing.T) {
	server := newTestServer(t, func(es ExecutableSwap) {
		t.Fatal("expected no match for a single role announced twice")
	})

	common := testCommon()
	peer := swap.PeerId("127.0.0.1:1")

	err := server.foldLocal(peer, frame{
		Protocol:   ProtocolHbitHerc20,
		Role:       "alice",
		SenderAddr: "127.0.0.1:1",
		Common:     common,
	})
	require.NoError(t, err)

	err = server.foldLocal(peer, frame{
		Protocol:   ProtocolHbitHerc20,
		Role:       "alice",
		SenderAddr: "127.0.0.1:1",
		Common:     common,
	})
	var alreadyHave *AlreadyHaveRoleParams
	require.ErrorAs(t, err, &alreadyHave)
	require.Equal(t, peer, alreadyHave.Peer)
	require.Equal(t, "alice", alreadyHave.Role)
}
