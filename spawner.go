package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"
	"github.com/comit-network/swapd/lnwallet"
	"github.com/comit-network/swapd/network"
	"github.com/comit-network/swapd/swap"
	"github.com/comit-network/swapd/swapdb"
	"github.com/comit-network/swapd/swapengine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

// spawner turns a matched network.ExecutableSwap into a running
// swapengine.Engine invocation and resumes whatever swapdb still holds
// open at startup. Announcing a role's own identity ahead of a match is
// an external order-matching concern this daemon does not implement;
// it only has to be internally consistent about how it derives
// identities, which it is: every identity this daemon ever presents on
// the wire, inbound or outbound, comes from
// wallet.DeriveTransientKey(swapdb.NextTransientKeyIndex()).
type spawner struct {
	ctx        context.Context
	db         *swapdb.DB
	engine     *swapengine.Engine
	btcWallet  lnwallet.BitcoinWallet
	ethWallet  lnwallet.EthereumWallet
	btcNetwork *chaincfg.Params
	ethChainID uint64
	erc20Token common.Address
	ethClient  *ethclient.Client
	log        btclog.Logger

	// group bounds every in-flight swap-run goroutine so Wait can block
	// shutdown until each one has observed ctx cancellation and
	// returned, instead of closing the database out from under them.
	group errgroup.Group
}

// Wait blocks until every swap-run goroutine launched by onExecutable
// or resumeAll has returned.
func (s *spawner) Wait() {
	s.group.Wait()
}

// onExecutable is network.Server's match callback: it persists the new
// swap's immutable parameters and launches the engine in its own
// goroutine, never blocking the protocol layer. A peer matched a
// second time while its first swap is still active is rejected with a
// swap.DuplicateSwapForPeer before any transient key index is
// reserved for it, so the rejected match never consumes one.
func (s *spawner) onExecutable(es network.ExecutableSwap) {
	id, err := swap.NewId()
	if err != nil {
		s.log.Errorf("mint swap id for matched swap with peer %s: %v", es.Peer, err)
		return
	}

	if err := s.db.PinPeer(es.Peer, id); err != nil {
		if errors.Is(err, swapdb.ErrPeerAlreadyActive) {
			s.log.Warnf("matched swap with peer %s: %v", es.Peer, &swap.DuplicateSwapForPeer{Peer: es.Peer})
			return
		}
		s.log.Errorf("pin peer %s to swap %s: %v", es.Peer, id, err)
		return
	}

	params, secret, keys, err := s.buildParams(es, id)
	if err != nil {
		s.log.Errorf("build params for matched swap with peer %s: %v", es.Peer, err)
		s.db.UnpinPeer(es.Peer)
		return
	}

	if err := s.db.CreateSwap(params); err != nil {
		s.log.Errorf("persist swap %s: %v", params.SwapId, err)
		s.db.UnpinPeer(es.Peer)
		return
	}

	s.log.Infof("swap %s matched: role=%s ordering=%s peer=%s", params.SwapId, params.Role, params.Ordering, es.Peer)
	s.group.Go(func() error {
		s.run(s.ctx, params, secret, keys)
		return nil
	})
}

// resumeAll relaunches every swap still open in swapdb, relying on
// Engine.Run's idempotent leg actions to skip whatever already
// completed before a prior restart.
func (s *spawner) resumeAll() {
	ids, err := s.db.AllSwapIds()
	if err != nil {
		s.log.Errorf("list swaps to resume: %v", err)
		return
	}

	for _, id := range ids {
		params, err := s.db.LoadParams(id)
		if err != nil {
			s.log.Errorf("load params for swap %s: %v", id, err)
			continue
		}

		keys, err := s.deriveBitcoinKeys(params.TransientKeyIndex)
		if err != nil {
			s.log.Errorf("derive bitcoin keys for swap %s: %v", id, err)
			continue
		}

		s.log.Infof("resuming swap %s: role=%s ordering=%s", id, params.Role, params.Ordering)
		s.group.Go(func() error {
			s.run(s.ctx, params, params.Secret, keys)
			return nil
		})
	}
}

func (s *spawner) run(ctx context.Context, params swap.SwapParams, secret swap.Secret, keys swapengine.BitcoinKeys) {
	outcome, err := s.engine.Run(ctx, params, params.Role, params.Ordering, secret, keys)
	if err != nil {
		s.log.Errorf("swap %s ended with error: %v", params.SwapId, err)
		return
	}

	s.log.Infof("swap %s finalized: outcome=%s", params.SwapId, outcome)
	err = s.db.RecordHistory(swapdb.HistoryRecord{
		SwapId:   params.SwapId,
		Role:     params.Role,
		Ordering: params.Ordering,
		Outcome:  outcome,
		ClosedAt: time.Now(),
	}, params.Counterparty)
	if err != nil {
		s.log.Errorf("record history for swap %s: %v", params.SwapId, err)
	}
}

// buildParams folds a matched ExecutableSwap, the id already pinned to
// its peer, and a freshly derived transient key into the immutable
// SwapParams the engine runs on, plus the BitcoinKeys and (for Alice)
// the Secret this daemon's own run of the engine needs.
func (s *spawner) buildParams(es network.ExecutableSwap, id swap.Id) (swap.SwapParams, swap.Secret, swapengine.BitcoinKeys, error) {
	ordering := orderingFor(es.Protocol)

	if es.Common.EthereumChainId != s.ethChainID {
		return swap.SwapParams{}, swap.Secret{}, swapengine.BitcoinKeys{}, fmt.Errorf(
			"matched swap targets ethereum chain %d, this daemon runs chain %d", es.Common.EthereumChainId, s.ethChainID)
	}
	if es.Common.BitcoinNetwork != s.btcNetwork.Name {
		return swap.SwapParams{}, swap.Secret{}, swapengine.BitcoinKeys{}, fmt.Errorf(
			"matched swap targets bitcoin network %q, this daemon runs %q", es.Common.BitcoinNetwork, s.btcNetwork.Name)
	}

	index, err := s.db.NextTransientKeyIndex()
	if err != nil {
		return swap.SwapParams{}, swap.Secret{}, swapengine.BitcoinKeys{}, fmt.Errorf("reserve transient key index: %w", err)
	}
	keys, err := s.deriveBitcoinKeys(index)
	if err != nil {
		return swap.SwapParams{}, swap.Secret{}, swapengine.BitcoinKeys{}, fmt.Errorf("derive bitcoin keys: %w", err)
	}
	ownBitcoinPubkey := keys.Key.PubKey()
	ownEthereumAddr := s.ethWallet.OwnAddress()

	remoteBitcoinPubkey, err := remoteBitcoinPubkey(es)
	if err != nil {
		return swap.SwapParams{}, swap.Secret{}, swapengine.BitcoinKeys{}, fmt.Errorf("parse counterparty bitcoin identity: %w", err)
	}

	var secret swap.Secret
	var secretHash swap.SecretHash
	if es.Role == swap.RoleAlice {
		secret, err = swap.NewSecret()
		if err != nil {
			return swap.SwapParams{}, swap.Secret{}, swapengine.BitcoinKeys{}, fmt.Errorf("generate secret: %w", err)
		}
		secretHash = secret.Hash()
	} else {
		secretHash = es.Alice.SecretHash
	}

	hbitRedeem, hbitRefund := hbitIdentities(ordering, es.Role, ownBitcoinPubkey, remoteBitcoinPubkey)
	herc20Redeem, herc20Refund := herc20Identities(ordering, es.Role, ownEthereumAddr, es.Alice.EthereumIdentity, es.Bob.EthereumIdentity)

	hbitParams := swap.HbitParams{
		Network:        s.btcNetwork,
		AssetSats:      btcutil.Amount(es.Common.BitcoinSats),
		RedeemIdentity: hbitRedeem,
		RefundIdentity: hbitRefund,
		ExpiryUnix:     es.Common.BitcoinAbsoluteExpiry,
		SecretHash:     secretHash,
	}

	quantity, ok := new(big.Int).SetString(es.Common.Erc20Quantity, 10)
	if !ok {
		return swap.SwapParams{}, swap.Secret{}, swapengine.BitcoinKeys{}, fmt.Errorf("parse erc20 quantity %q", es.Common.Erc20Quantity)
	}

	// FromBlock is pinned to the chain tip observed at setup time so a
	// restart's AwaitDeployed scan never has to walk the chain from
	// genesis.
	fromBlock, err := s.ethClient.BlockNumber(context.Background())
	if err != nil {
		return swap.SwapParams{}, swap.Secret{}, swapengine.BitcoinKeys{}, fmt.Errorf("read ethereum chain tip: %w", err)
	}

	herc20Params := swap.Herc20Params{
		Asset:          swap.Asset{Token: s.erc20Token, Quantity: quantity},
		RedeemIdentity: herc20Redeem,
		RefundIdentity: herc20Refund,
		ExpiryUnix:     es.Common.EthereumAbsoluteExpiry,
		SecretHash:     secretHash,
		ChainID:        es.Common.EthereumChainId,
		FromBlock:      fromBlock,
	}

	params := swap.SwapParams{
		Hbit:              hbitParams,
		Herc20:            herc20Params,
		SecretHash:        secretHash,
		StartOfSwap:       time.Now(),
		SwapId:            id,
		Counterparty:      es.Peer,
		Role:              es.Role,
		Ordering:          ordering,
		TransientKeyIndex: index,
	}
	if es.Role == swap.RoleAlice {
		params.Secret = secret
	}

	return params, secret, keys, nil
}

func (s *spawner) deriveBitcoinKeys(index uint32) (swapengine.BitcoinKeys, error) {
	key, err := s.btcWallet.DeriveTransientKey(index)
	if err != nil {
		return swapengine.BitcoinKeys{}, err
	}

	hash := btcutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(hash, s.btcNetwork)
	if err != nil {
		return swapengine.BitcoinKeys{}, fmt.Errorf("derive payout address: %w", err)
	}

	return swapengine.BitcoinKeys{Key: key, DestAddr: addr}, nil
}

func orderingFor(p network.Protocol) swap.Ordering {
	if p == network.ProtocolHerc20Hbit {
		return swap.Herc20Hbit
	}
	return swap.HbitHerc20
}

func remoteBitcoinPubkey(es network.ExecutableSwap) (*btcec.PublicKey, error) {
	if es.Role == swap.RoleAlice {
		return es.Bob.BitcoinPublicKey()
	}
	return es.Alice.BitcoinPublicKey()
}

// hbitIdentities assigns the hbit HTLC's redeem/refund public keys
// according to which ledger is alpha under ordering: the funder of a
// leg always owns its refund path, the other role always owns its
// redeem path, regardless of which role is local.
func hbitIdentities(ordering swap.Ordering, role swap.Role, own, remote *btcec.PublicKey) (redeem, refund *btcec.PublicKey) {
	// hbit is alpha under HbitHerc20 (Alice funds/refunds, Bob redeems)
	// and beta under Herc20Hbit (Bob funds/refunds, Alice redeems).
	aliceRedeems := ordering == swap.Herc20Hbit

	aliceIsOwn := role == swap.RoleAlice
	var alicePub, bobPub *btcec.PublicKey
	if aliceIsOwn {
		alicePub, bobPub = own, remote
	} else {
		alicePub, bobPub = remote, own
	}

	if aliceRedeems {
		return alicePub, bobPub
	}
	return bobPub, alicePub
}

// herc20Identities mirrors hbitIdentities for the Ethereum leg: herc20
// is alpha under Herc20Hbit (Alice funds/refunds, Bob redeems) and beta
// under HbitHerc20 (Bob funds/refunds, Alice redeems).
func herc20Identities(ordering swap.Ordering, role swap.Role, own common.Address, aliceRemote, bobRemote common.Address) (redeem, refund common.Address) {
	aliceRedeems := ordering == swap.HbitHerc20

	var alice, bob common.Address
	if role == swap.RoleAlice {
		alice, bob = own, bobRemote
	} else {
		alice, bob = aliceRemote, own
	}

	if aliceRedeems {
		return alice, bob
	}
	return bob, alice
}
