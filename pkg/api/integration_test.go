package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sarychdb/sarychdb/pkg/auth"
	"github.com/sarychdb/sarychdb/pkg/engine"
	"github.com/sarychdb/sarychdb/pkg/storage"
)

// TestServer represents a test HTTP server backed by a real data directory
type TestServer struct {
	Server  *httptest.Server
	DataDir string
	Store   *storage.Store
	Engine  *engine.Engine
	BaseURL string
}

// NewTestServer creates a new test server with temporary storage
func NewTestServer(t *testing.T) *TestServer {
	dataDir := t.TempDir()

	store := storage.NewStore(storage.WithDataDir(dataDir))
	users, err := auth.NewUserStore(dataDir, store, auth.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	eng := engine.New(store, engine.WithPartitions(2))

	handler := NewHandler(eng, users, WithAdminToken("admin-secret"))
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		DataDir: dataDir,
		Store:   store,
		Engine:  eng,
		BaseURL: server.URL,
	}
}

func (ts *TestServer) POST(path string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return http.Post(ts.BaseURL+path, "application/json", bytes.NewBuffer(jsonData))
}

func (ts *TestServer) GET(path string) (*http.Response, error) {
	return http.Get(ts.BaseURL + path)
}

// Sarych sends a sarychdb:// URL with an optional raw JSON body.
func (ts *TestServer) Sarych(method, sarychURL, body string) (*http.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, ts.BaseURL+"/sarych?url="+url.QueryEscape(sarychURL), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

// decode reads resp into a generic JSON map and closes the body
func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// provision creates alice with the people database
func (ts *TestServer) provision(t *testing.T) {
	t.Helper()
	resp, err := ts.POST("/api/users", CreateUserRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.POST("/api/databases", CreateDatabaseRequest{Username: "alice", Password: "secret", DBName: "people"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_Integration_Accounts(t *testing.T) {
	ts := NewTestServer(t)
	ts.provision(t)

	t.Run("duplicate user", func(t *testing.T) {
		resp, err := ts.POST("/api/users", CreateUserRequest{Username: "alice", Password: "other"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("invalid username", func(t *testing.T) {
		resp, err := ts.POST("/api/users", CreateUserRequest{Username: "bad/name", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(ts.BaseURL+"/api/users", "application/json", bytes.NewBufferString("{"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("database with wrong password", func(t *testing.T) {
		resp, err := ts.POST("/api/databases", CreateDatabaseRequest{Username: "alice", Password: "nope", DBName: "other"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("database file created", func(t *testing.T) {
		assert.FileExists(t, filepath.Join(ts.DataDir, "users", "alice", "people.json"))
	})

	t.Run("list databases", func(t *testing.T) {
		resp, err := ts.GET("/api/databases?username=alice&password=secret")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode(t, resp)
		assert.Equal(t, "alice", body["user"])
		assert.Equal(t, []interface{}{map[string]interface{}{"namedb": "people"}}, body["databases"])
	})

	t.Run("list databases missing credentials", func(t *testing.T) {
		resp, err := ts.GET("/api/databases?username=alice")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestAPI_Integration_DocumentLifecycle(t *testing.T) {
	ts := NewTestServer(t)
	ts.provision(t)

	base := "sarychdb://alice@secret/people/"

	var insertedID string
	t.Run("post", func(t *testing.T) {
		resp, err := ts.Sarych("POST", base+"post", `{"name": "Ana", "city": "Lima"}`)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decode(t, resp)
		assert.Equal(t, "post", body["operation"])
		assert.Equal(t, "people", body["database"])
		insertedID, _ = body["id"].(string)
		assert.NotEmpty(t, insertedID)

		doc := body["document"].(map[string]interface{})
		assert.Equal(t, "Ana", doc["name"])
		assert.Equal(t, insertedID, doc["_id"])
	})

	t.Run("second post", func(t *testing.T) {
		resp, err := ts.Sarych("POST", base+"post", `{"name": "Luis", "city": "Quito"}`)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("post without body", func(t *testing.T) {
		resp, err := ts.Sarych("POST", base+"post", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("post with invalid JSON", func(t *testing.T) {
		resp, err := ts.Sarych("POST", base+"post", `{"name": `)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("get by substring then cached", func(t *testing.T) {
		resp, err := ts.Sarych("GET", base+"get?query=Lima", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, float64(1), body["count"])
		assert.Equal(t, false, body["cached"])
		assert.Equal(t, "Lima", body["query"])

		resp, err = ts.Sarych("GET", base+"get?query=Lima", "")
		require.NoError(t, err)
		body = decode(t, resp)
		assert.Equal(t, true, body["cached"])
	})

	t.Run("get all", func(t *testing.T) {
		resp, err := ts.Sarych("GET", base+"get", "")
		require.NoError(t, err)
		body := decode(t, resp)
		assert.Equal(t, float64(2), body["count"])
	})

	t.Run("put by query", func(t *testing.T) {
		resp, err := ts.Sarych("PUT", base+"put?query=Ana", `{"age": 30}`)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, float64(1), body["affected"])
		assert.Equal(t, "Updated 1 records", body["message"])
	})

	t.Run("put by id", func(t *testing.T) {
		resp, err := ts.Sarych("PUT", base+"put?idUpdate="+insertedID, `{"city": "Cusco"}`)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, float64(1), body["affected"])
	})

	t.Run("write invalidates cache", func(t *testing.T) {
		resp, err := ts.Sarych("GET", base+"get?query=Lima", "")
		require.NoError(t, err)
		body := decode(t, resp)
		assert.Equal(t, float64(0), body["count"])
		assert.Equal(t, false, body["cached"])
	})

	t.Run("put without selector", func(t *testing.T) {
		resp, err := ts.Sarych("PUT", base+"put", `{"x": 1}`)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("get by key", func(t *testing.T) {
		resp, err := ts.Sarych("GET", base+"get?query=age&queryType=key", "")
		require.NoError(t, err)
		body := decode(t, resp)
		assert.Equal(t, float64(1), body["count"])
		assert.Equal(t, "key", body["query_type"])
	})

	t.Run("browse", func(t *testing.T) {
		resp, err := ts.Sarych("GET", base+"browse?page=2&limit=1", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, "paginated", body["mode"])
		assert.Equal(t, float64(2), body["total_records"])
		pagination := body["pagination"].(map[string]interface{})
		assert.Equal(t, true, pagination["has_prev"])
		assert.Equal(t, false, pagination["has_next"])
	})

	t.Run("get with only limit browses", func(t *testing.T) {
		resp, err := ts.Sarych("GET", base+"get?limit=1", "")
		require.NoError(t, err)
		body := decode(t, resp)
		assert.Equal(t, "limit_only", body["mode"])
		assert.Equal(t, float64(1), body["returned_count"])
	})

	t.Run("list sorted and filtered", func(t *testing.T) {
		filters := url.QueryEscape(`{"city": ["Quito", "Cusco"]}`)
		resp, err := ts.Sarych("GET", base+"list?sortBy=name&sortOrder=desc&filters="+filters, "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, float64(2), body["filtered_records"])
		data := body["data"].([]interface{})
		require.Len(t, data, 2)
		assert.Equal(t, "Luis", data[0].(map[string]interface{})["name"])
		assert.Equal(t, "desc", body["sort_order"])
	})

	t.Run("stats", func(t *testing.T) {
		resp, err := ts.Sarych("GET", base+"stats", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, float64(2), body["total_records"])
		assert.Equal(t, "alice", body["username"])
	})

	t.Run("backup delete restore", func(t *testing.T) {
		resp, err := ts.Sarych("POST", base+"backup", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, float64(2), body["documents"])

		resp, err = ts.Sarych("DELETE", base+"delete?query=Luis", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body = decode(t, resp)
		assert.Equal(t, float64(1), body["affected"])

		resp, err = ts.Sarych("POST", base+"restore", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp, err = ts.Sarych("GET", base+"get?query=Luis", "")
		require.NoError(t, err)
		body = decode(t, resp)
		assert.Equal(t, float64(1), body["count"])
	})

	t.Run("delete without query", func(t *testing.T) {
		resp, err := ts.Sarych("DELETE", base+"delete", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestAPI_Integration_SarychErrors(t *testing.T) {
	ts := NewTestServer(t)
	ts.provision(t)

	resp, err := ts.POST("/api/users", CreateUserRequest{Username: "bob", Password: "pw"})
	require.NoError(t, err)
	resp.Body.Close()

	tests := []struct {
		name           string
		url            string
		expectedStatus int
	}{
		{name: "wrong scheme", url: "http://alice@secret/people/get", expectedStatus: http.StatusBadRequest},
		{name: "missing operation", url: "sarychdb://alice@secret/people", expectedStatus: http.StatusBadRequest},
		{name: "wrong password", url: "sarychdb://alice@wrong/people/get", expectedStatus: http.StatusUnauthorized},
		{name: "unknown user", url: "sarychdb://carol@pw/people/get", expectedStatus: http.StatusUnauthorized},
		{name: "not the owner", url: "sarychdb://bob@pw/people/get", expectedStatus: http.StatusForbidden},
		{name: "unknown operation", url: "sarychdb://alice@secret/people/explode", expectedStatus: http.StatusBadRequest},
		{name: "bad query type", url: "sarychdb://alice@secret/people/get?queryType=fuzzy", expectedStatus: http.StatusBadRequest},
		{name: "zero limit", url: "sarychdb://alice@secret/people/get?limit=0", expectedStatus: http.StatusBadRequest},
		{name: "restore without backup", url: "sarychdb://alice@secret/people/restore", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ts.Sarych("GET", tt.url, "")
			require.NoError(t, err)
			body := decode(t, resp)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Equal(t, float64(tt.expectedStatus), body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}

	t.Run("missing url parameter", func(t *testing.T) {
		resp, err := ts.GET("/sarych")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}
