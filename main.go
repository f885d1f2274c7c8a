package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/comit-network/swapd/chainntfs"
	"github.com/comit-network/swapd/contractcourt"
	"github.com/comit-network/swapd/lnwallet"
	"github.com/comit-network/swapd/network"
	"github.com/comit-network/swapd/swap/hbit"
	"github.com/comit-network/swapd/swap/herc20"
	"github.com/comit-network/swapd/swapdb"
	"github.com/comit-network/swapd/swapengine"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"math/big"
)

func main() {
	if err := swapdMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// swapdMain is the true entry point; kept separate from main so every
// early-return path still flows through the same error handling.
func swapdMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := ensureDir(cfg.DataDir); err != nil {
		return fmt.Errorf("create datadir: %w", err)
	}
	if err := ensureDir(cfg.LogDir); err != nil {
		return fmt.Errorf("create logdir: %w", err)
	}

	logging, err := NewLoggingBackend(cfg.logFilePath(), defaultMaxLogRolls)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logging.Close()
	logging.SetLevels(cfg.LogLevel)

	swapLog := logging.Logger("SWAP")
	swapLog.Infof("starting swapd, datadir=%s", cfg.DataDir)

	db, err := swapdb.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open swapdb: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	btcNetwork, err := bitcoinNetworkParams(cfg.Bitcoin.Network)
	if err != nil {
		return err
	}

	btcConnector, err := chainntfs.NewBtcdConnector(&rpcclient.ConnConfig{
		Host:         cfg.Bitcoin.RPCHost,
		User:         cfg.Bitcoin.RPCUser,
		Pass:         cfg.Bitcoin.RPCPass,
		Certificates: loadCertOrEmpty(cfg.Bitcoin.RPCCert),
		HTTPPostMode: true,
		DisableTLS:   cfg.Bitcoin.RPCCert == "",
	}, logging.Logger("NTFN"))
	if err != nil {
		return fmt.Errorf("connect to btcd: %w", err)
	}
	if err := btcConnector.Start(); err != nil {
		return fmt.Errorf("start bitcoin connector: %w", err)
	}
	defer btcConnector.Stop()

	ethConnector, err := chainntfs.DialEthClient(ctx, cfg.Ethereum.RPCURL, logging.Logger("NTFN"))
	if err != nil {
		return fmt.Errorf("connect to ethereum: %w", err)
	}

	btcRPCClient, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.Bitcoin.RPCHost,
		User:         cfg.Bitcoin.RPCUser,
		Pass:         cfg.Bitcoin.RPCPass,
		HTTPPostMode: true,
		DisableTLS:   cfg.Bitcoin.RPCCert == "",
	}, nil)
	if err != nil {
		return fmt.Errorf("dial btcd rpc client: %w", err)
	}

	btcRootKey, err := hdkeychain.NewKeyFromString(cfg.Bitcoin.RootXprv)
	if err != nil {
		return fmt.Errorf("parse bitcoin root xprv: %w", err)
	}
	ethRootKey, err := hdkeychain.NewKeyFromString(cfg.Ethereum.RootXprv)
	if err != nil {
		return fmt.Errorf("parse ethereum root xprv: %w", err)
	}

	btcWallet := lnwallet.NewBtcdWallet(
		btcRPCClient,
		staticFeeRateEstimator{rateSatKw: cfg.Bitcoin.FeeRateSatKw},
		btcutil.Amount(cfg.Bitcoin.FeeCapSat),
		btcRootKey,
	)

	ethClient, err := ethclient.DialContext(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		return fmt.Errorf("dial ethereum client: %w", err)
	}
	ethKey, err := ethRootKey.ECPrivKey()
	if err != nil {
		return fmt.Errorf("derive ethereum signing key: %w", err)
	}
	ethAuth, err := bind.NewKeyedTransactorWithChainID(ethKey.ToECDSA(), new(big.Int).SetUint64(cfg.Ethereum.ChainID))
	if err != nil {
		return fmt.Errorf("build ethereum transactor: %w", err)
	}
	ethWallet := lnwallet.NewEthWallet(ethClient, ethAuth, ethRootKey)

	hbitWatcher := contractcourt.NewHbitWatcher(btcConnector, logging.Logger("HBIT"))
	herc20Watcher := contractcourt.NewHerc20Watcher(ethConnector, logging.Logger("HERC"))

	hbitActor := hbit.NewActor(btcWallet, hbitWatcher, lnwallet.SatPerKWeight(cfg.Bitcoin.FeeRateSatKw), btcutil.Amount(cfg.Bitcoin.FeeCapSat), cfg.Bitcoin.NumConfs)
	herc20Actor := herc20.NewActor(ethWallet, herc20Watcher, cfg.Ethereum.NumConfs)

	engine := swapengine.New(
		db,
		chainntfs.BitcoinClock{Connector: btcConnector},
		chainntfs.EthereumClock{Connector: ethConnector},
		hbitActor,
		herc20Actor,
	)

	sp := &spawner{
		ctx:        ctx,
		db:         db,
		engine:     engine,
		btcWallet:  btcWallet,
		ethWallet:  ethWallet,
		btcNetwork: btcNetwork,
		ethChainID: cfg.Ethereum.ChainID,
		erc20Token: parseErc20TokenAddress(cfg.Ethereum.Erc20TokenAddress),
		ethClient:  ethClient,
		log:        swapLog,
	}

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
	}
	server := network.NewServer(listener, cfg.SelfAddr, logging.Logger("PROT"), sp.onExecutable)
	server.Start()
	defer server.Stop()

	sp.resumeAll()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	swapLog.Info("received shutdown signal")

	cancel()
	sp.Wait()
	return nil
}

func bitcoinNetworkParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown bitcoin network %q", name)
	}
}

// parseErc20TokenAddress resolves the configured ERC-20 contract this
// daemon trades; an empty address selects native ether.
func parseErc20TokenAddress(addr string) common.Address {
	if addr == "" {
		return common.Address{}
	}
	return common.HexToAddress(addr)
}

func loadCertOrEmpty(path string) []byte {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return raw
}

// staticFeeRateEstimator implements lnwallet.FeeRateEstimator with a
// fixed, config-supplied rate instead of querying btcd's smart fee
// estimator; swapping in a live estimator later only requires a new
// implementation of the same one-method interface.
type staticFeeRateEstimator struct {
	rateSatKw int64
}

func (e staticFeeRateEstimator) EstimateFeeRate(ctx context.Context, confTarget int32) (btcutil.Amount, error) {
	return btcutil.Amount(e.rateSatKw), nil
}
