package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarcoPoloResearchLab/snippyvault/internal/snippets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

func newFakeVault(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorded := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		if r.Body != nil && r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&recorded.Body)
		}
		requests = append(requests, recorded)
		w.Header().Set("Content-Type", "application/json")
		respond(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL + "/"})
	require.NoError(t, err)
	return client.WithUsername("alice"), &requests
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "  "})
	require.ErrorIs(t, err, errMissingBaseURL)
}

func TestUnboundClientRefusesCalls(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = client.List(ctx)
	assert.ErrorIs(t, err, ErrMissingUsername)
	_, err = client.Create(ctx, snippets.Draft{Content: "x"})
	assert.ErrorIs(t, err, ErrMissingUsername)
	assert.ErrorIs(t, client.Update(ctx, "a", snippets.Draft{Content: "x"}), ErrMissingUsername)
	assert.ErrorIs(t, client.Delete(ctx, "a"), ErrMissingUsername)
	assert.ErrorIs(t, client.Reorder(ctx, []string{"a"}), ErrMissingUsername)
	_, err = client.Login(ctx, " ")
	assert.ErrorIs(t, err, ErrMissingUsername)
}

func TestWithUsernameLeavesOriginalUnbound(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	bound := client.WithUsername("  bob ")
	assert.Equal(t, "bob", bound.Username())
	assert.Empty(t, client.Username())
}

func TestLoginReturnsGreeting(t *testing.T) {
	client, requests := newFakeVault(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"message":"welcome back, alice"}`))
	})

	message, err := client.Login(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "welcome back, alice", message)
	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodPost, (*requests)[0].Method)
	assert.Equal(t, "/login", (*requests)[0].Path)
	assert.Equal(t, "alice", (*requests)[0].Body["username"])
}

func TestListDecodesRecords(t *testing.T) {
	client, requests := newFakeVault(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"id":"a","title":"First","content":"one","tags":["Go"],"order":1},
			{"id":"b","content":"legacy","tags":[]}
		]}`))
	})

	records, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a", records[0].ID)
	require.NotNil(t, records[0].Title)
	assert.Equal(t, "First", *records[0].Title)
	require.NotNil(t, records[0].Order)
	assert.Equal(t, 1, *records[0].Order)
	assert.Nil(t, records[1].Title)
	assert.Nil(t, records[1].Order)

	assert.Equal(t, "/snippets", (*requests)[0].Path)
	assert.Equal(t, "username=alice", (*requests)[0].Query)
}

func TestListToleratesMissingData(t *testing.T) {
	client, _ := newFakeVault(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	records, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCreateReturnsIDAndEchoedOrder(t *testing.T) {
	client, requests := newFakeVault(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"new-1","order":4}}`))
	})

	created, err := client.Create(context.Background(), snippets.Draft{Title: "T", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)
	require.NotNil(t, created.Order)
	assert.Equal(t, 4, *created.Order)

	body := (*requests)[0].Body
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "body", body["content"])
	assert.Equal(t, []any{}, body["tags"])
}

func TestCreateRejectsResponseWithoutID(t *testing.T) {
	client, _ := newFakeVault(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	})

	_, err := client.Create(context.Background(), snippets.Draft{Content: "body"})
	require.Error(t, err)
}

func TestUpdateAndDeleteAddressSnippetPath(t *testing.T) {
	client, requests := newFakeVault(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	ctx := context.Background()
	require.NoError(t, client.Update(ctx, "a b", snippets.Draft{Content: "x"}))
	require.NoError(t, client.Delete(ctx, "a b"))

	require.Len(t, *requests, 2)
	assert.Equal(t, http.MethodPut, (*requests)[0].Method)
	assert.Equal(t, "/snippets/a b", (*requests)[0].Path)
	assert.Equal(t, http.MethodDelete, (*requests)[1].Method)
	assert.Equal(t, "username=alice", (*requests)[1].Query)
}

func TestReorderSendsOrderedIDs(t *testing.T) {
	client, requests := newFakeVault(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	require.NoError(t, client.Reorder(context.Background(), []string{"c", "a", "b"}))
	assert.Equal(t, "/snippets/reorder", (*requests)[0].Path)
	assert.Equal(t, []any{"c", "a", "b"}, (*requests)[0].Body["ordered_ids"])
}

func TestUnsuccessfulResponsesBecomeRemoteErrors(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "success-false", status: http.StatusOK, body: `{"success":false,"message":"nope"}`, wantMessage: "nope"},
		{name: "conflict", status: http.StatusConflict, body: `{"success":false,"message":"ordered ids do not match stored snippets"}`, wantMessage: "ordered ids do not match stored snippets"},
		{name: "undecodable", status: http.StatusBadGateway, body: `<html>`, wantMessage: "undecodable response"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			client, _ := newFakeVault(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			})

			err := client.Reorder(context.Background(), []string{"a"})
			var remote *RemoteError
			require.True(t, errors.As(err, &remote), "expected RemoteError, got %v", err)
			assert.Equal(t, testCase.status, remote.Status)
			assert.Equal(t, testCase.wantMessage, remote.Message)
		})
	}
}
