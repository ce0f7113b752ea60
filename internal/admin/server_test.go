package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/penne/internal/auth"
	"github.com/danmuck/penne/internal/client"
	"github.com/danmuck/penne/internal/protocol"
	"github.com/danmuck/penne/internal/protocol/schema"
	"github.com/danmuck/penne/internal/protocol/session"
	"github.com/danmuck/penne/internal/testutil/noodlestest"
	"github.com/danmuck/penne/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdmin(t *testing.T) (*Server, *client.Client, *noodlestest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := noodlestest.NewServer(t)
	srv.Add(schema.MsgMethodCreate, protocol.Method{ID: protocol.MethodID{Slot: 0}, Name: "echo", Doc: "Returns its first argument"}).
		Add(schema.MsgMethodCreate, protocol.Method{ID: protocol.MethodID{Slot: 1}, Name: "fail"}).
		Add(schema.MsgMethodCreate, protocol.Method{ID: protocol.MethodID{Slot: 2}, Name: "noo::tbl_subscribe"}).
		Add(schema.MsgEntityCreate, protocol.Entity{ID: protocol.EntityID{Slot: 0}, Name: "cube", MethodsList: []protocol.MethodID{{Slot: 0}}}).
		Add(schema.MsgTableCreate, protocol.Table{ID: protocol.TableID{Slot: 0}, Name: "scores"})
	srv.Handle(protocol.MethodID{Slot: 0}, func(inv protocol.InvokeMethod) (any, *protocol.MethodException) {
		if len(inv.Args) == 0 {
			return nil, nil
		}
		return inv.Args[0], nil
	})
	srv.Handle(protocol.MethodID{Slot: 1}, func(inv protocol.InvokeMethod) (any, *protocol.MethodException) {
		return nil, &protocol.MethodException{Code: protocol.ExceptionInternalError, Message: "boom"}
	})

	cfg := session.DefaultConfig()
	cfg.MaxConnectAttempts = 1
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, srv.URL(), client.WithSession(cfg), client.WithName("admin test"))
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)
	return New("pennectl", c, nil), c, srv
}

func do(t *testing.T, s *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	var out map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}
	return rr.Code, out
}

func TestHealth(t *testing.T) {
	testlog.Start(t)
	s, c, _ := newAdmin(t)

	code, body := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "admin test", body["client"])
	assert.Equal(t, c.SessionID(), body["session"])

	c.Shutdown()
	<-c.Done()
	code, body = do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "closed", body["status"])
}

func TestStateAndMethods(t *testing.T) {
	testlog.Start(t)
	s, _, _ := newAdmin(t)

	code, body := do(t, s, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["delegates"], 5)

	code, body = do(t, s, http.MethodGet, "/state?kind=entities", nil)
	require.Equal(t, http.StatusOK, code)
	entities := body["delegates"].([]any)
	require.Len(t, entities, 1)
	cube := entities[0].(map[string]any)
	assert.Equal(t, "cube", cube["name"])
	assert.Equal(t, "|0/0|", cube["id"])
	assert.Equal(t, []any{"echo"}, cube["methods"])

	code, body = do(t, s, http.MethodGet, "/methods", nil)
	require.Equal(t, http.StatusOK, code)
	methods := body["methods"].([]any)
	require.Len(t, methods, 2)
	assert.Equal(t, "echo", methods[0].(map[string]any)["name"])
	assert.Equal(t, "Returns its first argument", methods[0].(map[string]any)["doc"])
}

func TestTableView(t *testing.T) {
	testlog.Start(t)
	s, _, _ := newAdmin(t)

	code, body := do(t, s, http.MethodGet, "/tables/scores", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "scores", body["name"])
	assert.Empty(t, body["rows"])

	code, _ = do(t, s, http.MethodGet, "/tables/cube", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, s, http.MethodGet, "/tables/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInvokeRoute(t *testing.T) {
	testlog.Start(t)
	s, _, _ := newAdmin(t)

	code, body := do(t, s, http.MethodPost, "/methods/echo/invoke", map[string]any{"args": []any{"hello"}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", body["result"])
	assert.Equal(t, "0", body["invoke_id"])

	code, body = do(t, s, http.MethodPost, "/methods/fail/invoke", nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	exc := body["exception"].(map[string]any)
	assert.Equal(t, "boom", exc["message"])
	assert.EqualValues(t, protocol.ExceptionInternalError, exc["code"])

	code, _ = do(t, s, http.MethodPost, "/methods/missing/invoke", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInvokeRouteRequiresToken(t *testing.T) {
	testlog.Start(t)
	s, _, _ := newAdmin(t)
	s.RequireToken(auth.StaticToken{Token: "secret"})

	post := func(header string) int {
		req := httptest.NewRequest(http.MethodPost, "/methods/echo/invoke", bytes.NewBufferString(`{"args":[1]}`))
		req.Header.Set("Content-Type", "application/json")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusUnauthorized, post(""))
	assert.Equal(t, http.StatusUnauthorized, post("Bearer wrong"))
	assert.Equal(t, http.StatusOK, post("Bearer secret"))

	code, _ := do(t, s, http.MethodGet, "/methods", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestStateWhileEntitiesUpdate(t *testing.T) {
	testlog.Start(t)
	s, c, srv := newAdmin(t)
	conn := srv.Accepted()

	const updates = 50
	sent := make(chan error, 1)
	go func() {
		for i := 0; i < updates; i++ {
			methods := []protocol.MethodID{{Slot: 0}}
			if i%2 == 1 {
				methods = []protocol.MethodID{}
			}
			err := conn.SendBody(schema.MsgEntityUpdate, map[string]any{
				"id":           protocol.EntityID{Slot: 0},
				"name":         fmt.Sprintf("cube-%d", i),
				"methods_list": methods,
			})
			if err != nil {
				sent <- err
				return
			}
		}
		sent <- nil
	}()

	for i := 0; i < updates; i++ {
		code, _ := do(t, s, http.MethodGet, "/state", nil)
		require.Equal(t, http.StatusOK, code)
		code, _ = do(t, s, http.MethodGet, "/methods", nil)
		require.Equal(t, http.StatusOK, code)
	}
	require.NoError(t, <-sent)

	last := fmt.Sprintf("cube-%d", updates-1)
	require.Eventually(t, func() bool {
		_, err := c.DelegateByName(last)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	code, body := do(t, s, http.MethodGet, "/state?kind=entities", nil)
	require.Equal(t, http.StatusOK, code)
	entities := body["delegates"].([]any)
	require.Len(t, entities, 1)
	assert.Equal(t, last, entities[0].(map[string]any)["name"])
	assert.Nil(t, entities[0].(map[string]any)["methods"])
}
