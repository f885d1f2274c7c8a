package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDataDir    = "data"
	defaultLogDir     = "logs"
	defaultLogFile    = "swapd.log"
	defaultMaxLogRolls = 3
	defaultBitcoinFeeCapSat = 100_000
)

// config holds every daemon-wide setting loaded from the command line
// (no config file is read), mirroring lnd's config struct: plain fields,
// go-flags struct tags, defaults applied before parsing.
type config struct {
	DataDir  string `long:"datadir" description:"directory the swap database is stored under"`
	LogDir   string `long:"logdir" description:"directory log files are written to"`
	LogLevel string `long:"loglevel" description:"debug level for all subsystems"`
	SelfAddr string `long:"selfaddr" description:"address this daemon advertises for setup-swap dial-back"`
	Listen   string `long:"listen" description:"address to accept setup-swap connections on"`

	Bitcoin  bitcoinConfig  `group:"Bitcoin" namespace:"bitcoin"`
	Ethereum ethereumConfig `group:"Ethereum" namespace:"ethereum"`
}

type bitcoinConfig struct {
	RPCHost     string `long:"rpchost" description:"btcd RPC host:port"`
	RPCUser     string `long:"rpcuser"`
	RPCPass     string `long:"rpcpass"`
	RPCCert     string `long:"rpccert" description:"path to btcd's TLS certificate"`
	Network     string `long:"network" description:"mainnet, testnet3, signet or regtest"`
	FeeCapSat    int64  `long:"feecapsat" description:"maximum total fee, in satoshis, any swap transaction may pay"`
	FeeRateSatKw int64  `long:"feeratesatkw" description:"static fee rate, in satoshis per kilo-weight-unit, applied to every swap transaction"`
	NumConfs     uint32 `long:"numconfs" description:"confirmations required before a Bitcoin HTLC output is considered final"`
	RootXprv     string `long:"rootxprv" description:"BIP32 extended private key transient swap keys are derived from"`
}

type ethereumConfig struct {
	RPCURL            string `long:"rpcurl" description:"Ethereum JSON-RPC endpoint"`
	ChainID           uint64 `long:"chainid"`
	NumConfs          uint64 `long:"numconfs" description:"confirmations required before an Ethereum HTLC deploy/fund is considered final"`
	RootXprv          string `long:"rootxprv" description:"BIP32 extended private key transient swap keys are derived from"`
	Erc20TokenAddress string `long:"erc20tokenaddress" description:"ERC-20 contract traded by this daemon; empty selects native ether"`
}

// loadConfig parses the command line, applying defaults first the way
// lnd.go's loadConfig does, and resolves DataDir/LogDir to absolute
// paths before any subsystem touches the filesystem.
func loadConfig() (*config, error) {
	cfg := config{
		DataDir:  defaultDataDir,
		LogDir:   defaultLogDir,
		LogLevel: "info",
		Listen:   "127.0.0.1:7777",
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	var err error
	cfg.DataDir, err = filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve datadir: %w", err)
	}
	cfg.LogDir, err = filepath.Abs(cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("resolve logdir: %w", err)
	}

	if cfg.SelfAddr == "" {
		cfg.SelfAddr = cfg.Listen
	}
	if cfg.Bitcoin.FeeCapSat == 0 {
		cfg.Bitcoin.FeeCapSat = defaultBitcoinFeeCapSat
	}
	if cfg.Bitcoin.NumConfs == 0 {
		cfg.Bitcoin.NumConfs = 1
	}
	if cfg.Bitcoin.FeeRateSatKw == 0 {
		cfg.Bitcoin.FeeRateSatKw = 2500
	}
	if cfg.Ethereum.NumConfs == 0 {
		cfg.Ethereum.NumConfs = 1
	}

	return &cfg, nil
}

func (c *config) logFilePath() string {
	return filepath.Join(c.LogDir, defaultLogFile)
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0700)
}
