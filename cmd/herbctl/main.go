package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/cobra"
)

var (
	rpcURL  string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "herbctl",
	Short: "Command-line client for a herbchaind node",
	Long: `herbctl records herb collections, processing steps and formulations on a
herbchaind node and reads back items, traces, smart labels and blocks over
JSON-RPC.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc", "http://localhost:8545", "node JSON-RPC endpoint")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per-call timeout")

	rootCmd.AddCommand(
		registerCmd, processCmd, formulateCmd,
		itemCmd, batchesCmd, productsCmd, traceCmd, labelCmd, scanCmd, markerCmd,
		blockCmd, blocksCmd, countCmd, verifyCmd, watchCmd,
	)
}

// call dials the node, runs one method and prints the result as indented JSON.
func call(cmd *cobra.Command, method string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	defer client.Close()

	var result json.RawMessage
	if err := client.CallContext(ctx, &result, method, args...); err != nil {
		return describe(err)
	}
	return printJSON(cmd.OutOrStdout(), result)
}

// describe keeps the JSON-RPC code and data in the message so validation
// failures show which fields were rejected.
func describe(err error) error {
	re, ok := err.(rpc.Error)
	if !ok {
		return err
	}
	msg := fmt.Sprintf("%s (code %d)", re.Error(), re.ErrorCode())
	if de, ok := err.(rpc.DataError); ok && de.ErrorData() != nil {
		data, _ := json.Marshal(de.ErrorData())
		msg += ": " + string(data)
	}
	return fmt.Errorf("%s", msg)
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
