package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/session"
)

func TestEventsStream(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + testToken
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close(websocket.StatusNormalClosure, "")

	var ev session.Event
	if err := wsjson.Read(ctx, c, &ev); err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if ev.Type != session.EventSnapshot || ev.State == nil || ev.State.Catalog.Size() != 19 {
		t.Fatalf("first event = %+v", ev)
	}

	if !a.deps.Session.Spin(menu.Drink) {
		t.Fatal("spin refused")
	}
	if err := wsjson.Read(ctx, c, &ev); err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	if ev.Type != session.EventFrame || ev.Frame == nil || ev.Frame.Category != menu.Drink || !ev.Frame.Final {
		t.Errorf("frame event = %+v", ev)
	}
}

func TestEventsStream_RequiresToken(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err == nil {
		t.Fatal("dial without token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %+v", resp)
	}
}
