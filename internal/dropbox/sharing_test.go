package dropbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSharedLink_Success(t *testing.T) {
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, routeCreateSharedLink, r.URL.Path)

		var arg pathArg
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&arg))
		gotPath = arg.Path

		_, _ = w.Write([]byte(`{".tag":"folder","url":"https://www.dropbox.com/scl/fo/abc/Proj1","name":"Proj1","path_lower":"/proj1"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
	url, err := client.CreateSharedLink(context.Background(), "/Proj1")

	require.NoError(t, err)
	assert.Equal(t, "/Proj1", gotPath)
	assert.Equal(t, "https://www.dropbox.com/scl/fo/abc/Proj1", url)
}

func TestCreateSharedLink_ExistingFromMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == routeListSharedLinks {
			t.Error("list_shared_links should not be called when metadata is present")
		}

		writeError(w, http.StatusConflict, "shared_link_already_exists/metadata/..",
			`{".tag":"shared_link_already_exists","shared_link_already_exists":{".tag":"metadata","metadata":{".tag":"folder","url":"https://www.dropbox.com/scl/fo/old/Proj1"}}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
	url, err := client.CreateSharedLink(context.Background(), "/Proj1")

	require.NoError(t, err)
	assert.Equal(t, "https://www.dropbox.com/scl/fo/old/Proj1", url)
}

func TestCreateSharedLink_ExistingFromList(t *testing.T) {
	var listed listSharedLinksArg

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case routeCreateSharedLink:
			writeError(w, http.StatusConflict, "shared_link_already_exists/..", `{".tag":"shared_link_already_exists"}`)
		case routeListSharedLinks:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&listed))
			_, _ = w.Write([]byte(`{"links":[{"url":"https://www.dropbox.com/scl/fo/listed/Proj1"}],"has_more":false}`))
		default:
			t.Errorf("unexpected route %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
	url, err := client.CreateSharedLink(context.Background(), "/Proj1")

	require.NoError(t, err)
	assert.Equal(t, "https://www.dropbox.com/scl/fo/listed/Proj1", url)
	assert.Equal(t, "/Proj1", listed.Path)
	assert.True(t, listed.DirectOnly)
}

func TestCreateSharedLink_ExistingButListEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == routeCreateSharedLink {
			writeError(w, http.StatusConflict, "shared_link_already_exists/..", `{".tag":"shared_link_already_exists"}`)
			return
		}

		_, _ = w.Write([]byte(`{"links":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
	_, err := client.CreateSharedLink(context.Background(), "/Proj1")

	assert.ErrorIs(t, err, ErrNoSharedLink)
}

func TestCreateSharedLink_OtherConflictPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusConflict, "path/not_found/..", `{".tag":"path","path":{".tag":"not_found"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
	_, err := client.CreateSharedLink(context.Background(), "/missing")

	require.ErrorIs(t, err, ErrConflict)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.HasSummaryPrefix("path/not_found"))
}

func TestCreateSharedLink_ThrottledPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		writeError(w, http.StatusTooManyRequests, "too_many_requests/..", `{"reason":{".tag":"too_many_requests"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeAuth{token: "t"}, Options{})
	_, err := client.CreateSharedLink(context.Background(), "/Proj1")

	assert.ErrorIs(t, err, ErrThrottled)
}

func TestExistingLinkURL(t *testing.T) {
	assert.Empty(t, existingLinkURL(nil))
	assert.Empty(t, existingLinkURL(json.RawMessage(`"bogus"`)))
	assert.Empty(t, existingLinkURL(json.RawMessage(`{".tag":"shared_link_already_exists"}`)))
	assert.Equal(t, "https://x", existingLinkURL(json.RawMessage(
		`{"shared_link_already_exists":{"metadata":{"url":"https://x"}}}`)))
}
