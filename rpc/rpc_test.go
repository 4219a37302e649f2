package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Siasom1/herbchain/core/blockchain"
	"github.com/Siasom1/herbchain/core/state"
	"github.com/Siasom1/herbchain/core/txfactory"
	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/log"
	"github.com/Siasom1/herbchain/modules/label"
	"github.com/Siasom1/herbchain/modules/traceability"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*traceability.Service, *httptest.Server) {
	t.Helper()
	chain, err := blockchain.NewBlockchain(blockchain.DefaultChainConfig(""), log.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { chain.Close() })

	svc, err := traceability.NewService(chain, log.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(svc, log.Nop()).Handler())
	t.Cleanup(srv.Close)
	return svc, srv
}

func dial(t *testing.T, url string) *gethrpc.Client {
	t.Helper()
	c, err := gethrpc.DialContext(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func rpcCode(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	var re gethrpc.Error
	require.True(t, errors.As(err, &re), "not a JSON-RPC error: %v", err)
	return re.ErrorCode()
}

var collection = txfactory.CollectionInput{
	HerbName: "Ashwagandha", Quantity: 5, Collector: "Asha",
	Location: &types.GeoLocation{Lat: 12.9, Lon: 77.6},
}

func TestRPC_WriteAndRead(t *testing.T) {
	_, srv := newTestServer(t)
	c := dial(t, srv.URL)
	ctx := context.Background()

	var rc types.Receipt
	require.NoError(t, c.CallContext(ctx, &rc, "herb_registerBatch", collection))
	assert.Equal(t, "COLLECTION", rc.Kind)
	assert.Equal(t, uint64(1), rc.BlockNumber)

	var pr types.Receipt
	require.NoError(t, c.CallContext(ctx, &pr, "herb_processBatch", txfactory.ProcessingInput{
		BatchID: rc.ItemID, Processor: "Raj", ProcessType: "Dried", OutputQuantity: 4,
	}))
	assert.Equal(t, rc.ItemID, pr.ItemID)

	var batch state.HerbBatch
	require.NoError(t, c.CallContext(ctx, &batch, "herb_getItem", rc.ItemID))
	assert.Equal(t, "Dried", batch.Status)
	assert.Equal(t, "Raj", batch.CurrentOwner)
	assert.Len(t, batch.History, 2)

	var count hexutil.Uint64
	require.NoError(t, c.CallContext(ctx, &count, "herb_blockCount"))
	assert.Equal(t, hexutil.Uint64(3), count)

	var trace []types.Block
	require.NoError(t, c.CallContext(ctx, &trace, "herb_trace", rc.ItemID))
	require.Len(t, trace, 2)
	assert.Equal(t, rc.BlockID, trace[0].ID)

	var v VerifyResult
	require.NoError(t, c.CallContext(ctx, &v, "herb_verifyChain"))
	assert.True(t, v.Valid)
	assert.Equal(t, 3, v.Blocks)
}

func TestRPC_Formulation(t *testing.T) {
	_, srv := newTestServer(t)
	c := dial(t, srv.URL)
	ctx := context.Background()

	var rc types.Receipt
	require.NoError(t, c.CallContext(ctx, &rc, "herb_registerBatch", collection))

	var fr types.Receipt
	require.NoError(t, c.CallContext(ctx, &fr, "herb_formulateProduct", txfactory.FormulationInput{
		ProductName: "Calm Tonic", Manufacturer: "Vaidya Labs", InputBatchIDs: []string{rc.ItemID},
	}))

	var products []state.FinalProduct
	require.NoError(t, c.CallContext(ctx, &products, "herb_listProducts"))
	require.Len(t, products, 1)
	assert.Equal(t, []string{fr.BlockID, rc.BlockID}, products[0].History)

	var l label.SmartLabel
	require.NoError(t, c.CallContext(ctx, &l, "herb_label", fr.ItemID))
	assert.True(t, l.IsProduct)
	require.NotNil(t, l.Origin)
	assert.Equal(t, "Asha", l.Origin.Collector)
}

func TestRPC_ErrorCodes(t *testing.T) {
	_, srv := newTestServer(t)
	c := dial(t, srv.URL)
	ctx := context.Background()
	var out json.RawMessage

	err := c.CallContext(ctx, &out, "herb_registerBatch", txfactory.CollectionInput{HerbName: "Tulsi"})
	assert.Equal(t, CodeInvalidParams, rpcCode(t, err))

	err = c.CallContext(ctx, &out, "herb_processBatch", txfactory.ProcessingInput{
		BatchID: "deadbeef", Processor: "Raj", ProcessType: "Dried", OutputQuantity: 1,
	})
	assert.Equal(t, CodeUnknownBatch, rpcCode(t, err))

	err = c.CallContext(ctx, &out, "herb_getItem", "ffffffff")
	assert.Equal(t, CodeNotFound, rpcCode(t, err))

	err = c.CallContext(ctx, &out, "herb_getItem")
	assert.Equal(t, CodeInvalidParams, rpcCode(t, err))

	err = c.CallContext(ctx, &out, "herb_noSuchMethod")
	assert.Equal(t, CodeMethodNotFound, rpcCode(t, err))

	err = c.CallContext(ctx, &out, "herb_scan", `{"type":"other","id":"ab12cd34"}`)
	assert.Equal(t, CodeInvalidParams, rpcCode(t, err))

	err = c.CallContext(ctx, &out, "herb_getBlockByNumber", "12")
	assert.Equal(t, CodeInvalidParams, rpcCode(t, err))
}

func TestRPC_Scan(t *testing.T) {
	_, srv := newTestServer(t)
	c := dial(t, srv.URL)
	ctx := context.Background()

	var rc types.Receipt
	require.NoError(t, c.CallContext(ctx, &rc, "herb_registerBatch", collection))

	payload, err := label.Encode(rc.ItemID)
	require.NoError(t, err)
	var batch state.HerbBatch
	require.NoError(t, c.CallContext(ctx, &batch, "herb_scan", string(payload)))
	assert.Equal(t, rc.ItemID, batch.ID)
}

func TestRPC_Blocks(t *testing.T) {
	_, srv := newTestServer(t)
	c := dial(t, srv.URL)
	ctx := context.Background()

	var rc types.Receipt
	require.NoError(t, c.CallContext(ctx, &rc, "herb_registerBatch", collection))

	var byNum BlockResult
	require.NoError(t, c.CallContext(ctx, &byNum, "herb_getBlockByNumber", "0x1"))
	assert.Equal(t, rc.BlockID, byNum.Block.ID)

	var latest BlockResult
	require.NoError(t, c.CallContext(ctx, &latest, "herb_getBlockByNumber", "latest"))
	assert.Equal(t, rc.BlockID, latest.Block.ID)

	var byID BlockResult
	require.NoError(t, c.CallContext(ctx, &byID, "herb_getBlock", rc.BlockID))
	assert.Equal(t, hexutil.Uint64(1), byID.Number)

	var blocks []types.Block
	require.NoError(t, c.CallContext(ctx, &blocks, "herb_latestBlocks", 5))
	require.Len(t, blocks, 2)
	assert.True(t, blocks[1].IsGenesis())
}

func TestRPC_Batch(t *testing.T) {
	_, srv := newTestServer(t)
	c := dial(t, srv.URL)

	var count hexutil.Uint64
	var batches []state.HerbBatch
	reqs := []gethrpc.BatchElem{
		{Method: "herb_blockCount", Result: &count},
		{Method: "herb_listBatches", Result: &batches},
		{Method: "herb_getItem", Args: []interface{}{"ffffffff"}, Result: new(json.RawMessage)},
	}
	require.NoError(t, c.BatchCallContext(context.Background(), reqs))
	assert.NoError(t, reqs[0].Error)
	assert.Equal(t, hexutil.Uint64(1), count)
	assert.NoError(t, reqs[1].Error)
	assert.Empty(t, batches)
	assert.Equal(t, CodeNotFound, rpcCode(t, reqs[2].Error))
}

func TestRPC_MalformedRequests(t *testing.T) {
	_, srv := newTestServer(t)

	post := func(body string) RPCResponse {
		resp, err := http.Post(srv.URL, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out RPCResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	assert.Equal(t, CodeParseError, post(`{`).Error.Code)
	assert.Equal(t, CodeInvalidRequest, post(`{"jsonrpc":"1.0","method":"herb_blockCount","id":1}`).Error.Code)
	assert.Equal(t, CodeInvalidParams, post(`{"jsonrpc":"2.0","method":"herb_getItem","params":{"id":"x"},"id":1}`).Error.Code)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRPC_WebsocketStream(t *testing.T) {
	svc, srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	r, err := svc.RegisterBatch(collection)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	seen := map[string]json.RawMessage{}
	for len(seen) < 2 {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		seen[msg.Type] = msg.Data
	}

	var b types.Block
	require.NoError(t, json.Unmarshal(seen["block"], &b))
	assert.Equal(t, r.BlockID, b.ID)
	assert.Contains(t, string(seen["item"]), r.ItemID)
}

func TestToRPCError(t *testing.T) {
	assert.Equal(t, CodeIntegrity, toRPCError(&blockchain.IntegrityViolation{Index: 2}).Code)
	assert.Equal(t, CodeUnknownBatch, toRPCError(&state.ReferentialIntegrityError{}).Code)
	assert.Equal(t, CodeInternal, toRPCError(errors.New("boom")).Code)

	ve := &txfactory.ValidationError{Fields: []txfactory.FieldError{{Field: "quantity", Reason: "required"}}}
	e := toRPCError(ve)
	assert.Equal(t, CodeInvalidParams, e.Code)
	assert.Equal(t, ve.Fields, e.Data)
}
