package explorer

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Siasom1/herbchain/core/blockchain"
	"github.com/Siasom1/herbchain/core/txfactory"
	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/log"
	"github.com/Siasom1/herbchain/metrics"
	"github.com/Siasom1/herbchain/modules/traceability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*traceability.Service, *httptest.Server) {
	t.Helper()
	chain, err := blockchain.NewBlockchain(blockchain.DefaultChainConfig(""), log.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { chain.Close() })

	m := metrics.New()
	svc, err := traceability.NewService(chain, log.Nop(), traceability.WithMetrics(m))
	require.NoError(t, err)

	srv := httptest.NewServer(NewExplorerAPI(svc, m, log.Nop()).Handler())
	t.Cleanup(srv.Close)
	return svc, srv
}

func registerBatch(t *testing.T, svc *traceability.Service) string {
	t.Helper()
	r, err := svc.RegisterBatch(txfactory.CollectionInput{
		HerbName: "Ashwagandha", Quantity: 5, Collector: "Asha",
		Location: &types.GeoLocation{Lat: 12.9, Lon: 77.6},
	})
	require.NoError(t, err)
	return r.ItemID
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestExplorer_LatestBlocks(t *testing.T) {
	svc, srv := newTestServer(t)
	id := registerBatch(t, svc)

	var blocks []types.Block
	resp := getJSON(t, srv.URL+"/explorer/latest-blocks", &blocks)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	require.Len(t, blocks, 2)
	assert.Equal(t, id, blocks[0].ID)
	assert.True(t, blocks[1].IsGenesis())

	resp = getJSON(t, srv.URL+"/explorer/latest-blocks?n=1", &blocks)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, blocks, 1)

	resp = getJSON(t, srv.URL+"/explorer/latest-blocks?n=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExplorer_RequestIDIsEchoed(t *testing.T) {
	_, srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/explorer/batches", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func TestExplorer_BlockAndItem(t *testing.T) {
	svc, srv := newTestServer(t)
	id := registerBatch(t, svc)

	var block struct {
		Block  types.Block `json:"block"`
		Number uint64      `json:"number"`
		Detail struct {
			Kind string `json:"kind"`
		} `json:"detail"`
	}
	resp := getJSON(t, srv.URL+"/explorer/block/"+id, &block)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(1), block.Number)
	assert.Equal(t, "COLLECTION", block.Detail.Kind)
	assert.Equal(t, types.KindCollection, block.Block.Kind())

	var item map[string]interface{}
	resp = getJSON(t, srv.URL+"/explorer/item/"+id, &item)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Collected", item["status"])

	resp = getJSON(t, srv.URL+"/explorer/item/ffffffff", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = getJSON(t, srv.URL+"/explorer/block/ffffffff", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExplorer_TraceAndLabel(t *testing.T) {
	svc, srv := newTestServer(t)
	id := registerBatch(t, svc)
	_, err := svc.ProcessBatch(txfactory.ProcessingInput{
		BatchID: id, Processor: "Raj", ProcessType: "Dried", OutputQuantity: 4,
	})
	require.NoError(t, err)

	var trace []map[string]interface{}
	getJSON(t, srv.URL+"/explorer/trace/"+id, &trace)
	require.Len(t, trace, 2)
	assert.Equal(t, "COLLECTION", trace[0]["kind"])
	assert.Equal(t, "PROCESSING", trace[1]["kind"])

	var l map[string]interface{}
	getJSON(t, srv.URL+"/explorer/label/"+id, &l)
	assert.Equal(t, "Ashwagandha", l["name"])
	assert.Equal(t, true, l["verified"])
}

func TestExplorer_Scan(t *testing.T) {
	svc, srv := newTestServer(t)
	id := registerBatch(t, svc)

	post := func(body string) *http.Response {
		resp, err := http.Post(srv.URL+"/explorer/scan", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusOK, post(`{"type":"item-marker","id":"`+id+`"}`).StatusCode)
	assert.Equal(t, http.StatusNotFound, post(`{"type":"item-marker","id":"ffffffff"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{"type":"other","id":"`+id+`"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).StatusCode)
}

func TestExplorer_Verify(t *testing.T) {
	svc, srv := newTestServer(t)
	registerBatch(t, svc)

	var out map[string]interface{}
	getJSON(t, srv.URL+"/explorer/verify", &out)
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, float64(2), out["blocks"])
}

func TestExplorer_Metrics(t *testing.T) {
	svc, srv := newTestServer(t)
	registerBatch(t, svc)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `herbchain_chain_blocks_appended_total{kind="COLLECTION"} 1`)
}

func TestExplorer_StreamBlocks(t *testing.T) {
	svc, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/explorer/stream/blocks")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	id := registerBatch(t, svc)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if strings.HasPrefix(sc.Text(), "data: ") {
				lines <- strings.TrimPrefix(sc.Text(), "data: ")
				return
			}
		}
	}()

	select {
	case data := <-lines:
		var b types.Block
		require.NoError(t, json.Unmarshal([]byte(data), &b))
		assert.Equal(t, id, b.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no block streamed")
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(traceability.ErrNotFound))
	assert.Equal(t, http.StatusConflict, statusOf(&traceability.UnknownBatchError{BatchID: "x"}))
	assert.Equal(t, http.StatusBadRequest, statusOf(&txfactory.ValidationError{}))
	assert.Equal(t, http.StatusInternalServerError, statusOf(blockchain.ErrIntegrity))
}
