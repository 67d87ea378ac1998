package steam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lobbywatch/backend/internal/lobby"
)

const (
	aliceID lobby.SteamID = 76561197960265839
	bobID   lobby.SteamID = 76561197960265950
)

func TestPlayerSummaries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ISteamUser/GetPlayerSummaries/v0002/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		if got := r.URL.Query().Get("steamids"); got != "76561197960265839,76561197960265950" {
			t.Errorf("steamids = %q", got)
		}
		fmt.Fprint(w, `{"response":{"players":[
			{"steamid":"76561197960265839","personaname":"alice","avatar":"s.jpg","avatarmedium":"m.jpg","avatarfull":"f.jpg","timecreated":1700000000},
			{"steamid":"bogus","personaname":"skip"}
		]}}`)
	}))
	defer srv.Close()

	c := NewClient("secret", srv.URL, time.Second, 100)
	infos, err := c.PlayerSummaries(context.Background(), []lobby.SteamID{aliceID, bobID})
	if err != nil {
		t.Fatalf("PlayerSummaries: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %d profiles, want 1", len(infos))
	}
	got := infos[0]
	if got.SteamID != aliceID || got.Name != "alice" || got.Avatar != "s.jpg" || got.AvatarMedium != "m.jpg" || got.AvatarFull != "f.jpg" {
		t.Errorf("profile = %+v", got)
	}
	if got.AccountCreated == nil || got.AccountCreated.Unix() != 1700000000 {
		t.Errorf("AccountCreated = %v", got.AccountCreated)
	}
}

func TestPlayerSummariesBatches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		ids := strings.Split(r.URL.Query().Get("steamids"), ",")
		if len(ids) > 2 {
			t.Errorf("batch of %d ids exceeds 2", len(ids))
		}
		var entries []string
		for _, id := range ids {
			entries = append(entries, fmt.Sprintf(`{"steamid":%q}`, id))
		}
		fmt.Fprintf(w, `{"response":{"players":[%s]}}`, strings.Join(entries, ","))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, time.Second, 2)
	ids := []lobby.SteamID{aliceID, bobID, aliceID + 1000, aliceID + 2000, aliceID + 3000}
	infos, err := c.PlayerSummaries(context.Background(), ids)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if len(infos) != len(ids) {
		t.Errorf("got %d profiles, want %d", len(infos), len(ids))
	}
}

func TestPlayerSummariesErrors(t *testing.T) {
	t.Run("no key", func(t *testing.T) {
		c := NewClient("", "http://127.0.0.1:1", time.Second, 100)
		if c.HasKey() {
			t.Error("HasKey = true")
		}
		if _, err := c.PlayerSummaries(context.Background(), []lobby.SteamID{aliceID}); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("err = %v, want ErrNoAPIKey", err)
		}
	})

	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()
		c := NewClient("k", srv.URL, time.Second, 100)
		_, err := c.PlayerSummaries(context.Background(), []lobby.SteamID{aliceID})
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusForbidden {
			t.Fatalf("err = %v, want 403 HTTPError", err)
		}
		if strings.Contains(err.Error(), "key=") {
			t.Error("error leaks the api key")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"response":`)
		}))
		defer srv.Close()
		c := NewClient("k", srv.URL, time.Second, 100)
		if _, err := c.PlayerSummaries(context.Background(), []lobby.SteamID{aliceID}); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestPlayerSummariesEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":{}}`)
	}))
	defer srv.Close()
	c := NewClient("k", srv.URL, time.Second, 100)
	infos, err := c.PlayerSummaries(context.Background(), []lobby.SteamID{aliceID})
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 0 {
		t.Errorf("got %d profiles", len(infos))
	}
}
