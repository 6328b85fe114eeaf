package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/shopsync/internal/config"
	"github.com/shopstack/shopsync/internal/models"
)

func testClient(t *testing.T, handler nethttp.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.New()
	cfg.APIBaseURL = server.URL

	client, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return client, server
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	cfg := config.New()
	_, err := NewClient(cfg, nil)
	assert.ErrorIs(t, err, config.ErrMissingBaseURL)
}

func TestClient_SetsTunnelHeader(t *testing.T) {
	var gotHeader atomic.Value
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotHeader.Store(r.Header.Get("ngrok-skip-browser-warning"))
		w.Write([]byte(`{"products":[]}`))
	}))

	_, err := client.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "true", gotHeader.Load())
}

func TestClient_SurfacesServerErrorMessage(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(422)
		w.Write([]byte(`{"detail":[{"msg":"value is not a valid float"}]}`))
	}))

	err := client.AddProduct(context.Background(), models.CatalogItem{ProductID: "P1"})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Equal(t, "value is not a valid float", apiErr.Message)
}

func TestClient_GetProductUnwrapsEnvelope(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, "/products/get_product_id/P100", r.URL.Path)
		w.Write([]byte(`{"product":{"product_id":"P100","name":"Earbuds","price":59.99}}`))
	}))

	item, err := client.GetProduct(context.Background(), "P100")
	require.NoError(t, err)
	assert.Equal(t, "Earbuds", item.Name)
	assert.Equal(t, 59.99, item.Price)
}

func TestClient_BehaviorIdentityGateSkipsNetwork(t *testing.T) {
	var requests atomic.Int64
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		requests.Add(1)
		w.Write([]byte(`{}`))
	}))

	err := client.UpdateBehavior(context.Background(), "", models.BehaviorRecord{UserID: "U1"})
	assert.ErrorIs(t, err, ErrMissingIdentity)

	err = client.DeleteBehavior(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingIdentity)

	assert.Equal(t, int64(0), requests.Load(), "missing-identity calls must never reach the network")
}

func TestClient_BehaviorUpdateHitsEndpoint(t *testing.T) {
	var gotPath atomic.Value
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotPath.Store(r.Method + " " + r.URL.Path)
		w.Write([]byte(`{}`))
	}))

	err := client.UpdateBehavior(context.Background(), "665f1c", models.BehaviorRecord{Action: "view"})
	require.NoError(t, err)
	assert.Equal(t, "PUT /behavior/update_behavior/665f1c", gotPath.Load())
}

func TestUploadCSV_MultipartFieldAndProgress(t *testing.T) {
	dir := t.TempDir()
	path1 := filepath.Join(dir, "a.csv")
	path2 := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(path1, []byte("product_id,name\nP1,Hub\n"), 0644))
	require.NoError(t, os.WriteFile(path2, []byte("product_id,name\nP2,Mouse\n"), 0644))

	var fields []string
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			fields = append(fields, part.FormName())
			io.Copy(io.Discard, part)
		}
		w.Write([]byte(`{"message":"uploaded"}`))
	}))

	var lastSent, lastTotal int64
	body, err := client.UploadCSV(context.Background(), TargetProducts, []string{path1, path2},
		func(sent, total int64) {
			lastSent, lastTotal = sent, total
		})
	require.NoError(t, err)
	assert.Contains(t, string(body), "uploaded")

	assert.Equal(t, []string{"products", "products"}, fields, "every file goes under the target form field")
	assert.Equal(t, lastTotal, lastSent, "final progress call must report the full body sent")
	assert.Greater(t, lastTotal, int64(0))
}

func TestUploadCSV_ServerErrorBecomesAPIError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0644))

	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"message":"No file provided"}`))
	}))

	_, err := client.UploadCSV(context.Background(), TargetBehavior, []string{path}, nil)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "No file provided", apiErr.Message)
}

func TestUploadCSV_MissingFileFailsBeforeRequest(t *testing.T) {
	var requests atomic.Int64
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		requests.Add(1)
	}))

	_, err := client.UploadCSV(context.Background(), TargetProducts, []string{"/nonexistent/file.csv"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, int64(0), requests.Load())
}
