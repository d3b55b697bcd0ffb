package feed

import (
	"context"
	"encoding/json"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	feedmodel "github.com/echofeed/backend/internal/model/feed"
	feedservice "github.com/echofeed/backend/internal/service/feed"
	"github.com/echofeed/backend/internal/service/relay"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rl := relay.New(feedservice.NewService(), log.Default())
	go rl.Run(ctx)

	r := chi.NewRouter()
	New(rl).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) feedmodel.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env feedmodel.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return env
}

func writeEnvelope(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(feedmodel.Envelope{Event: event, Data: payload}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func TestConnectReceivesInitPosts(t *testing.T) {
	srv := startTestServer(t)
	conn := dial(t, srv)

	env := readEnvelope(t, conn)
	if env.Event != feedmodel.EventInitPosts {
		t.Fatalf("expected %s on connect, got %s", feedmodel.EventInitPosts, env.Event)
	}
}

func TestMutationsBroadcastOverSocket(t *testing.T) {
	srv := startTestServer(t)

	a := dial(t, srv)
	b := dial(t, srv)
	readEnvelope(t, a) // initPosts
	readEnvelope(t, b)

	writeEnvelope(t, a, feedmodel.EventNewPost, feedmodel.Post{ID: 1, Content: "hi", Author: "bob"})

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		if env.Event != feedmodel.EventNewPost {
			t.Fatalf("expected %s, got %s", feedmodel.EventNewPost, env.Event)
		}
		var p feedmodel.Post
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ID != 1 {
			t.Fatalf("unexpected post payload: %s (%v)", env.Data, err)
		}
	}

	writeEnvelope(t, b, feedmodel.EventLikePost, map[string]any{"postId": 1, "user": "carol", "type": "like"})

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		var p feedmodel.Post
		if err := json.Unmarshal(env.Data, &p); err != nil {
			t.Fatalf("unmarshal post: %v", err)
		}
		if env.Event != feedmodel.EventUpdatePost || p.Likes != 1 || p.LikedBy[0] != "carol" {
			t.Fatalf("expected like applied, got %s %+v", env.Event, p)
		}
	}

	writeEnvelope(t, a, feedmodel.EventDeletePost, 1)

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		if env.Event != feedmodel.EventDeletePost {
			t.Fatalf("expected %s, got %s", feedmodel.EventDeletePost, env.Event)
		}
	}
}

func TestMalformedFramesAreDropped(t *testing.T) {
	srv := startTestServer(t)
	conn := dial(t, srv)
	readEnvelope(t, conn)

	// Unknown and malformed events produce no response and no disconnect.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"bogus"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`garbage`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The connection is still usable afterwards.
	writeEnvelope(t, conn, feedmodel.EventNewPost, feedmodel.Post{ID: 2, Content: "still here", Author: "bob"})
	env := readEnvelope(t, conn)
	if env.Event != feedmodel.EventNewPost {
		t.Fatalf("expected %s after dropped frames, got %s", feedmodel.EventNewPost, env.Event)
	}
}

// Reconnecting yields a fresh session whose snapshot reflects mutations
// made while disconnected.
func TestReconnectConverges(t *testing.T) {
	srv := startTestServer(t)

	a := dial(t, srv)
	readEnvelope(t, a)
	writeEnvelope(t, a, feedmodel.EventNewPost, feedmodel.Post{ID: 1, Content: "hi", Author: "bob"})
	readEnvelope(t, a)

	b := dial(t, srv)
	env := readEnvelope(t, b)
	b.Close()

	var posts []feedmodel.Post
	if err := json.Unmarshal(env.Data, &posts); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != 1 {
		t.Fatalf("expected snapshot with post 1, got %+v", posts)
	}

	b2 := dial(t, srv)
	env = readEnvelope(t, b2)
	if env.Event != feedmodel.EventInitPosts {
		t.Fatalf("expected fresh snapshot on reconnect, got %s", env.Event)
	}
}
