package node

import (
	"context"
	"errors"

	"github.com/Siasom1/herbchain/core/blockchain"
	"github.com/Siasom1/herbchain/explorer"
	"github.com/Siasom1/herbchain/log"
	"github.com/Siasom1/herbchain/metrics"
	"github.com/Siasom1/herbchain/modules/traceability"
	"github.com/Siasom1/herbchain/params"
	"github.com/Siasom1/herbchain/rpc"
	"go.uber.org/zap"
)

type Node struct {
	Config      *Config
	Logger      *log.Logger
	Chain       *blockchain.Blockchain
	Ledger      *traceability.Service
	Metrics     *metrics.Metrics
	RPCServer   *rpc.Server
	ExplorerAPI *explorer.ExplorerAPI
}

func NewNode(cfg *Config) (*Node, error) {
	logger, err := log.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return &Node{
		Config: cfg,
		Logger: logger,
	}, nil
}

func (n *Node) Start() error {
	chainCfg := params.HerbChainConfig()
	n.Logger.Info("starting node",
		zap.String("chain", chainCfg.ChainName),
		zap.String("dataDir", n.Config.Chain.DataDir),
		zap.Int("idLength", n.Config.Chain.IDLength))

	// ------------------------------------------------
	// 1. Metrics
	// ------------------------------------------------
	if n.Config.Metrics {
		n.Metrics = metrics.New()
	}

	// ------------------------------------------------
	// 2. Blockchain (replays and verifies the archive)
	// ------------------------------------------------
	bc, err := blockchain.NewBlockchain(n.Config.Chain, n.Logger,
		blockchain.WithCollisionHook(func(string) { n.Metrics.IDCollision() }))
	if err != nil {
		n.Logger.Error("failed to init blockchain", zap.Error(err))
		return err
	}
	n.Chain = bc

	head := n.Chain.Head()
	n.Logger.Info("loaded chain head",
		zap.Int("blocks", n.Chain.Len()),
		zap.String("head", head.ID),
		zap.String("hash", head.Hash))

	// ------------------------------------------------
	// 3. Ledger service (folds the projection)
	// ------------------------------------------------
	ledger, err := traceability.NewService(n.Chain, n.Logger, traceability.WithMetrics(n.Metrics))
	if err != nil {
		n.Logger.Error("failed to fold chain", zap.Error(err))
		n.Chain.Close()
		return err
	}
	n.Ledger = ledger

	// ------------------------------------------------
	// 4. RPC server
	// ------------------------------------------------
	if n.Config.RPCAddr != "" {
		n.RPCServer = rpc.NewServer(n.Ledger, n.Logger)
		n.RPCServer.Start(n.Config.RPCAddr)
	}

	// ------------------------------------------------
	// 5. Explorer API (REST + live streams)
	// ------------------------------------------------
	if n.Config.ExplorerAddr != "" {
		n.ExplorerAPI = explorer.NewExplorerAPI(n.Ledger, n.Metrics, n.Logger)
		n.ExplorerAPI.Start(n.Config.ExplorerAddr)
	}

	n.Logger.Info("node started")
	return nil
}

func (n *Node) Stop(ctx context.Context) error {
	n.Logger.Info("stopping node")

	var errs []error
	if n.RPCServer != nil {
		errs = append(errs, n.RPCServer.Stop(ctx))
	}
	if n.ExplorerAPI != nil {
		errs = append(errs, n.ExplorerAPI.Stop(ctx))
	}
	if n.Chain != nil {
		errs = append(errs, n.Chain.Close())
	}

	n.Logger.Info("node stopped")
	_ = n.Logger.Sync()
	return errors.Join(errs...)
}
