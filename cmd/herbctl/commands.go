package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Siasom1/herbchain/core/txfactory"
	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/modules/label"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var (
	collectIn   txfactory.CollectionInput
	lat, lon    float64
	processIn   txfactory.ProcessingInput
	formulateIn txfactory.FormulationInput
	latestN     int
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Record a herb collection and create a batch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := collectIn
		// Without both coordinates the position counts as unresolved.
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			in.Location = &types.GeoLocation{Lat: lat, Lon: lon}
		}
		return call(cmd, "herb_registerBatch", in)
	},
}

var processCmd = &cobra.Command{
	Use:   "process <batchId>",
	Short: "Record a processing step on a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := processIn
		in.BatchID = args[0]
		return call(cmd, "herb_processBatch", in)
	},
}

var formulateCmd = &cobra.Command{
	Use:   "formulate <batchId>...",
	Short: "Record a product formulated from one or more batches",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := formulateIn
		in.InputBatchIDs = args
		return call(cmd, "herb_formulateProduct", in)
	},
}

var itemCmd = &cobra.Command{
	Use:   "item <id>",
	Short: "Show a batch or product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, "herb_getItem", args[0])
	},
}

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List batches in creation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, "herb_listBatches")
	},
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List products in creation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, "herb_listProducts")
	},
}

var traceCmd = &cobra.Command{
	Use:   "trace <id>",
	Short: "Show the blocks in an item's history, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, "herb_trace", args[0])
	},
}

var labelCmd = &cobra.Command{
	Use:   "label <id>",
	Short: "Build the consumer smart label for an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, "herb_label", args[0])
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <payload>",
	Short: "Resolve a scanned QR payload to its item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, "herb_scan", args[0])
	},
}

var markerCmd = &cobra.Command{
	Use:   "marker <id>",
	Short: "Print the QR payload for an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := label.Encode(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return err
	},
}

var blockCmd = &cobra.Command{
	Use:   "block <id|0xN|latest>",
	Short: "Show one block by id or by number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, blockMethod(args[0]), args[0])
	},
}

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Show the newest blocks, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, "herb_latestBlocks", latestN)
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show the number of blocks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, "herb_blockCount")
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the node's chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, "herb_verifyChain")
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream block and item events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := streamURL(rpcURL)
		if err != nil {
			return err
		}
		conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), u, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", u, err)
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(msg))
		}
	},
}

func init() {
	rf := registerCmd.Flags()
	rf.StringVar(&collectIn.HerbName, "herb", "", "herb name")
	rf.Float64Var(&collectIn.Quantity, "quantity", 0, "collected quantity in kg")
	rf.StringVar(&collectIn.Collector, "collector", "", "collector name")
	rf.Float64Var(&lat, "lat", 0, "latitude")
	rf.Float64Var(&lon, "lon", 0, "longitude")

	pf := processCmd.Flags()
	pf.StringVar(&processIn.Processor, "processor", "", "processor name")
	pf.StringVar(&processIn.ProcessType, "type", "", "process type, e.g. Dried")
	pf.Float64Var(&processIn.OutputQuantity, "output", 0, "output quantity in kg")

	ff := formulateCmd.Flags()
	ff.StringVar(&formulateIn.ProductName, "name", "", "product name")
	ff.StringVar(&formulateIn.Manufacturer, "manufacturer", "", "manufacturer name")

	blocksCmd.Flags().IntVarP(&latestN, "limit", "n", 10, "how many blocks")
}

// blockMethod picks the lookup for a block reference: numbers are hex
// quantities or "latest", anything else is a block id.
func blockMethod(ref string) string {
	if ref == "latest" || strings.HasPrefix(ref, "0x") {
		return "herb_getBlockByNumber"
	}
	return "herb_getBlock"
}

// streamURL maps the JSON-RPC endpoint to its websocket stream.
func streamURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
