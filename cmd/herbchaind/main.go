package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Siasom1/herbchain/core/blockchain"
	"github.com/Siasom1/herbchain/core/state"
	"github.com/Siasom1/herbchain/log"
	"github.com/Siasom1/herbchain/node"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type flags struct {
	configPath   string
	dataDir      string
	rpcAddr      string
	explorerAddr string
	logLevel     string
	idLength     int
	metrics      bool
}

var f flags

var rootCmd = &cobra.Command{
	Use:   "herbchaind",
	Short: "Herb supply-chain ledger node",
	Long: `herbchaind keeps an append-only hash chain of herb collection, processing
and formulation events, derives batch and product records from it, and serves
them over JSON-RPC (writes and reads) and a REST explorer (reads, live streams).`,
	SilenceUsage: true,
	RunE:         runNode,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		out, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the archived chain and its projection without serving",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		if cfg.Chain.DataDir == "" {
			return fmt.Errorf("verify needs --datadir or chain.dataDir")
		}
		// NewBlockchain refuses an archive that fails verification.
		bc, err := blockchain.NewBlockchain(cfg.Chain, log.Nop())
		if err != nil {
			return err
		}
		defer bc.Close()

		st, err := state.Fold(bc.Blocks())
		if err != nil {
			return err
		}
		batches, products := st.Len()
		fmt.Fprintf(cmd.OutOrStdout(), "chain valid: %d blocks, %d batches, %d products\n",
			bc.Len(), batches, products)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file")
	pf.StringVar(&f.dataDir, "datadir", "", "chain archive directory (empty keeps it in memory)")
	pf.StringVar(&f.rpcAddr, "rpc", "", "JSON-RPC listen address (default :8545)")
	pf.StringVar(&f.explorerAddr, "explorer", "", "explorer listen address (default :9500)")
	pf.StringVar(&f.logLevel, "loglevel", "", "log level: debug|info|warn|error")
	pf.IntVar(&f.idLength, "id-length", 0, "hex characters per block id")
	pf.BoolVar(&f.metrics, "metrics", true, "serve /metrics on the explorer")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(verifyCmd)
}

// loadConfig starts from defaults or the --config file, then applies every
// flag the user set explicitly.
func loadConfig(fs *pflag.FlagSet) (*node.Config, error) {
	cfg := node.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = node.LoadConfig(f.configPath); err != nil {
			return nil, err
		}
	}

	if fs.Changed("datadir") {
		cfg.Chain.DataDir = f.dataDir
	}
	if fs.Changed("rpc") {
		cfg.RPCAddr = f.rpcAddr
	}
	if fs.Changed("explorer") {
		cfg.ExplorerAddr = f.explorerAddr
	}
	if fs.Changed("loglevel") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("id-length") {
		cfg.Chain.IDLength = f.idLength
	}
	if fs.Changed("metrics") {
		cfg.Metrics = f.metrics
	}
	return cfg, cfg.Validate()
}

func runNode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	n, err := node.NewNode(cfg)
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	n.Logger.Info("shutdown requested", zap.Error(context.Cause(ctx)))

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return n.Stop(shutdown)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
