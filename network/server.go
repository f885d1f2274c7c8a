package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/comit-network/swapd/swap"
)

// responseTimeout bounds a single setup-swap request-response exchange:
// a miss fails the match, not the swap.
const responseTimeout = 20 * time.Second

// pendingHalf is one side's role params for a peer, held until the
// counterparty's half arrives or responseTimeout elapses.
type pendingHalf struct {
	frame     frame
	isLocal   bool
	arrivedAt time.Time
}

// Server accepts and dials setup-swap connections, matching each peer's
// two halves into an ExecutableSwap. Every swap this daemon takes either
// role in shares one Server: selfAddr is this daemon's own dial address,
// embedded in outgoing frames so the counterparty can key its pending
// map by it.
type Server struct {
	listener net.Listener
	selfAddr string
	log      btclog.Logger

	// onExecutable is invoked once per matched swap; pinning the peer
	// against a swap id ("no two swaps with the same peer") is the
	// spawner's responsibility once it has minted that id, not this
	// protocol layer's.
	onExecutable func(ExecutableSwap)

	mu      sync.Mutex
	pending map[swap.PeerId]pendingHalf

	wg   sync.WaitGroup
	quit chan struct{}
}

// NewServer wraps a listener already bound to selfAddr, the address this
// daemon advertises to counterparties for setup-swap dial-back.
// onExecutable is invoked once per matched swap, from whichever goroutine
// completed the match; it must not block.
func NewServer(listener net.Listener, selfAddr string, log btclog.Logger, onExecutable func(ExecutableSwap)) *Server {
	return &Server{
		listener:     listener,
		selfAddr:     selfAddr,
		log:          log,
		onExecutable: onExecutable,
		pending:      make(map[swap.PeerId]pendingHalf),
		quit:         make(chan struct{}),
	}
}

// Start begins accepting inbound setup-swap connections.
func (s *Server) Start() {
	s.wg.Add(1)
	go s.acceptLoop()
}

// Stop cancels the accept loop and waits for in-flight connections to
// close.
func (s *Server) Stop() error {
	close(s.quit)
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.log.Errorf("accept setup-swap connection: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection reads one half from an inbound connection, folds it
// into that peer's pending state, and replies with the frame foldRemote
// returns, which is a bare acknowledgement (see foldRemote).
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(responseTimeout))

	f, err := readFrame(conn)
	if err != nil {
		s.log.Debugf("read setup-swap frame from %s: %v", conn.RemoteAddr(), err)
		return
	}
	if f.SenderAddr == "" {
		s.log.Debugf("setup-swap frame from %s missing sender address", conn.RemoteAddr())
		return
	}

	s.log.Tracef("setup-swap frame from %s: %v", conn.RemoteAddr(), dumpFrame(f))

	peer := swap.PeerId(f.SenderAddr)
	reply, err := s.foldRemote(peer, f)
	if err != nil {
		s.log.Warnf("fold setup-swap frame from %s: %v", peer, err)
		return
	}

	if err := writeFrame(conn, reply); err != nil {
		s.log.Debugf("reply to setup-swap peer %s: %v", peer, err)
	}
}

// Announce presents this daemon's own half of the setup exchange for
// peer under the given protocol, storing it locally and dialing the
// peer to deliver it. If the peer's half is already pending here, the
// match completes locally and onExecutable fires; the peer completes its
// own match when this dial delivers our half to it. A reply carrying
// role params is folded in as well, but the server's replies are bare
// acknowledgements.
func (s *Server) Announce(ctx context.Context, peerAddr string, protocol Protocol, role string, common CommonParams, roleParams interface{}) error {
	encodedRoleParams, err := json.Marshal(roleParams)
	if err != nil {
		return fmt.Errorf("encode role params: %w", err)
	}
	commonHash, err := common.Hash()
	if err != nil {
		return err
	}

	out := frame{
		Protocol:   protocol,
		Role:       role,
		SenderAddr: s.selfAddr,
		CommonHash: commonHash,
		Common:     common,
		RoleParams: encodedRoleParams,
	}

	peer := swap.PeerId(peerAddr)
	if err := s.foldLocal(peer, out); err != nil {
		return err
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", peerAddr)
	if err != nil {
		return fmt.Errorf("dial setup-swap peer %s: %w", peerAddr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(responseTimeout))

	s.log.Tracef("announcing setup-swap half to %s: %v", peerAddr, dumpFrame(out))

	if err := writeFrame(conn, out); err != nil {
		return fmt.Errorf("send setup-swap half to %s: %w", peerAddr, err)
	}

	reply, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("read setup-swap reply from %s: %w", peerAddr, err)
	}
	if reply.hasRoleParams() {
		s.log.Tracef("setup-swap reply from %s: %v", peerAddr, dumpFrame(reply))
		if _, err := s.foldRemote(peer, reply); err != nil {
			return err
		}
	}
	return nil
}

// foldLocal stores this daemon's own half for peer, completing the match
// if the peer's half is already pending.
func (s *Server) foldLocal(peer swap.PeerId, f frame) error {
	return s.fold(peer, f, true)
}

// foldRemote stores a counterparty's half for peer, completing the
// match if this daemon's own half is already pending, and returns the
// frame to reply with. A successful fold either stores f or consumes
// this daemon's own half in the match, so no own half is left pending
// for peer and the reply is a bare acknowledgement.
func (s *Server) foldRemote(peer swap.PeerId, f frame) (frame, error) {
	if err := s.fold(peer, f, false); err != nil {
		return frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, have := s.pending[peer]; have && existing.isLocal {
		return existing.frame, nil
	}
	return frame{Protocol: f.Protocol, SenderAddr: s.selfAddr, Common: f.Common}, nil
}

// fold folds f into peer's pending state, matching it against any
// previously-stored opposite-role half and emitting an ExecutableSwap
// once both are present and their CommonParams agree. It returns
// AlreadyHaveRoleParams if peer already has a pending half of the same
// role, without disturbing that pending half.
func (s *Server) fold(peer swap.PeerId, f frame, isLocal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, have := s.pending[peer]
	if !have || time.Since(existing.arrivedAt) > responseTimeout {
		s.pending[peer] = pendingHalf{frame: f, isLocal: isLocal, arrivedAt: time.Now()}
		return nil
	}

	if existing.frame.Role == f.Role {
		return &AlreadyHaveRoleParams{Peer: peer, Role: f.Role}
	}

	existingHash, err := existing.frame.Common.Hash()
	if err != nil {
		return fmt.Errorf("hash pending common params for %s: %w", peer, err)
	}
	incomingHash, err := f.Common.Hash()
	if err != nil {
		return fmt.Errorf("hash incoming common params for %s: %w", peer, err)
	}
	if existingHash != incomingHash {
		delete(s.pending, peer)
		return fmt.Errorf("setup-swap: peer %s's two halves disagree on common params; dropped both", peer)
	}

	delete(s.pending, peer)

	var aliceHalf, bobHalf pendingHalf
	incomingHalf := pendingHalf{frame: f, isLocal: isLocal, arrivedAt: time.Now()}
	if f.Role == "alice" {
		aliceHalf, bobHalf = incomingHalf, existing
	} else {
		aliceHalf, bobHalf = existing, incomingHalf
	}

	localRole := swap.RoleAlice
	if bobHalf.isLocal {
		localRole = swap.RoleBob
	}

	var alice AliceParams
	if err := json.Unmarshal(aliceHalf.frame.RoleParams, &alice); err != nil {
		return fmt.Errorf("decode alice params from %s: %w", peer, err)
	}
	var bob BobParams
	if err := json.Unmarshal(bobHalf.frame.RoleParams, &bob); err != nil {
		return fmt.Errorf("decode bob params from %s: %w", peer, err)
	}

	s.onExecutable(ExecutableSwap{
		Role:     localRole,
		Peer:     peer,
		Protocol: f.Protocol,
		Common:   f.Common,
		Alice:    alice,
		Bob:      bob,
	})
	return nil
}
