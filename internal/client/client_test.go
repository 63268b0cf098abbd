package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-client/internal/events"
	"github.com/lox/holdem-client/internal/protocol"
	"github.com/lox/holdem-client/internal/snapshot"
	"github.com/lox/holdem-client/internal/testserver"
)

// carol (p3) is to act: currentBet 50, her bet 20, chips 200
const tableState = `{
	"roomId": "room-1",
	"pot": 150,
	"currentBet": 50,
	"currentPlayerIndex": 2,
	"dealerIndex": 0,
	"gamePhase": "flop",
	"players": [
		{"id": "p1", "name": "alice", "chips": 500, "bet": 50, "isDealer": true},
		{"id": "p2", "name": "bob", "chips": 300, "bet": 50},
		{"id": "p3", "name": "carol", "chips": 200, "bet": 20, "isCurrentPlayer": true}
	],
	"communityCards": []
}`

const aliceToAct = `{
	"roomId": "room-1",
	"pot": 180,
	"currentBet": 50,
	"currentPlayerIndex": 0,
	"dealerIndex": 0,
	"gamePhase": "flop",
	"players": [
		{"id": "p1", "name": "alice", "chips": 500, "bet": 50},
		{"id": "p2", "name": "bob", "chips": 300, "bet": 50},
		{"id": "p3", "name": "carol", "chips": 170, "bet": 50}
	],
	"communityCards": []
}`

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestClient(t *testing.T, serverURL string, configure ...func(*Options)) *Client {
	t.Helper()

	opts := DefaultOptions(serverURL)
	opts.ConnectTimeout = 2 * time.Second
	opts.ReconnectDelay = 10 * time.Millisecond
	for _, fn := range configure {
		fn(&opts)
	}

	c := New(opts, testLogger())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func expectEvent[T events.Event](t *testing.T, sub *events.Subscription) T {
	t.Helper()

	var zero T
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed while waiting for %T", zero)
		typed, ok := ev.(T)
		require.True(t, ok, "expected %T, got %T (%+v)", zero, ev, ev)
		return typed
	case <-time.After(testserver.EventTimeout):
		t.Fatalf("timed out waiting for %T", zero)
	}
	return zero
}

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

// joinedClient returns a client seated as carol (p3) with tableState applied
func joinedClient(t *testing.T) (*Client, *testserver.Server, *events.Subscription) {
	t.Helper()

	srv := testserver.New(t)
	c := newTestClient(t, srv.URL())
	sub := c.Subscribe()

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Join("room-1", "carol"))
	expectEvent[events.Connected](t, sub)
	srv.Expect(protocol.TypeJoinRoom)

	srv.Send(protocol.TypeJoinedRoom, protocol.JoinedRoomData{
		Success:   true,
		PlayerID:  "p3",
		GameState: raw(tableState),
	})
	result := expectEvent[events.JoinResult](t, sub)
	require.True(t, result.Success)
	require.Equal(t, StateJoined, c.State())

	return c, srv, sub
}

func TestJoinIsSentOnceAfterConnect(t *testing.T) {
	srv := testserver.New(t)
	release := srv.Hold()
	c := newTestClient(t, srv.URL())
	sub := c.Subscribe()

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Join("room-1", "carol"))

	// The handshake is stalled, so the join is queued rather than sent
	assert.False(t, c.IsConnected())
	assert.Equal(t, StateConnecting, c.State())
	srv.AssertNoMessage(50 * time.Millisecond)

	release()

	connected := expectEvent[events.Connected](t, sub)
	assert.Equal(t, 1, connected.Attempt)
	assert.NotEmpty(t, connected.SessionID)

	msg := srv.Expect(protocol.TypeJoinRoom)
	assert.JSONEq(t, `{"roomId":"room-1","playerName":"carol"}`, string(msg.Data))
	assert.NotEmpty(t, msg.RequestID)

	srv.AssertNoMessage(100 * time.Millisecond)
	assert.Equal(t, StateJoinPending, c.State())
	assert.ErrorIs(t, c.Join("room-1", "carol"), ErrAlreadyJoined)
}

func TestJoinAfterConnectedSendsImmediately(t *testing.T) {
	srv := testserver.New(t)
	c := newTestClient(t, srv.URL())
	sub := c.Subscribe()

	require.NoError(t, c.Connect(context.Background()))
	expectEvent[events.Connected](t, sub)
	assert.True(t, c.IsConnected())
	assert.Equal(t, StateConnected, c.State())

	require.NoError(t, c.Join("room-2", "dave"))
	msg := srv.Expect(protocol.TypeJoinRoom)
	assert.JSONEq(t, `{"roomId":"room-2","playerName":"dave"}`, string(msg.Data))
	assert.Equal(t, StateJoinPending, c.State())
}

func TestJoinValidation(t *testing.T) {
	c := newTestClient(t, "ws://127.0.0.1:1/ws")

	assert.ErrorIs(t, c.Join("", "carol"), ErrInvalidJoin)
	assert.ErrorIs(t, c.Join("room-1", ""), ErrInvalidJoin)
	assert.ErrorIs(t, c.Join("room-1", "carol"), ErrNotConnected)
}

func TestJoinedRoomAppliesSnapshotAndIdentity(t *testing.T) {
	c, srv, sub := joinedClient(t)

	sess, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, "p3", sess.PlayerID)
	assert.Equal(t, "room-1", sess.RoomID)
	assert.Equal(t, "carol", sess.PlayerName)

	view := c.View()
	require.NotNil(t, view.State)
	assert.Equal(t, 2, view.Seat)
	assert.True(t, view.IsMyTurn())
	assert.True(t, view.Legality.Call)
	assert.Equal(t, 30, view.Legality.CallAmount)
	assert.True(t, view.Legality.Raise)
	assert.True(t, view.Legality.AllIn)

	// Identity is captured once at join; later ids are not consulted
	srv.Send(protocol.TypeGameStateUpdated, protocol.GameUpdateData{
		GameState:       raw(aliceToAct),
		CurrentPlayerID: "p1",
	})
	updated := expectEvent[events.StateUpdated](t, sub)
	assert.Equal(t, "p3", updated.PlayerID)
	assert.Equal(t, 180, updated.State.Pot)
	assert.Same(t, updated.State, c.Snapshot())

	view = updated.View()
	assert.Equal(t, 2, view.Seat)
	assert.False(t, view.Legality.Any())

	sess, _ = c.Session()
	assert.Equal(t, "p3", sess.PlayerID)
}

func TestJoinRejected(t *testing.T) {
	srv := testserver.New(t)
	c := newTestClient(t, srv.URL())
	sub := c.Subscribe()

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Join("room-1", "carol"))
	expectEvent[events.Connected](t, sub)
	srv.Expect(protocol.TypeJoinRoom)

	srv.Send(protocol.TypeJoinedRoom, protocol.JoinedRoomData{
		Success:   false,
		Message:   "room full",
		GameState: raw(tableState),
	})

	result := expectEvent[events.JoinResult](t, sub)
	assert.False(t, result.Success)
	assert.Equal(t, "room full", result.Message)
	assert.Nil(t, result.State)

	errEvent := expectEvent[events.Error](t, sub)
	assert.Equal(t, events.ErrorJoinRejected, errEvent.Kind)
	assert.True(t, errEvent.Fatal)
	assert.Contains(t, errEvent.Err.Error(), "room full")

	expectEvent[events.Disconnected](t, sub)

	select {
	case <-c.Done():
	case <-time.After(testserver.EventTimeout):
		t.Fatal("connection loop did not stop after rejection")
	}

	assert.Equal(t, StateJoinFailed, c.State())
	assert.False(t, c.IsConnected())
	assert.Nil(t, c.Snapshot())

	var rejected *JoinRejectedError
	require.ErrorAs(t, c.Err(), &rejected)
	assert.Equal(t, "room full", rejected.Message)
	assert.ErrorIs(t, c.Err(), ErrJoinRejected)

	// No reconnect after a rejection
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, srv.Connections())
	assert.ErrorIs(t, c.Fold(), ErrNotConnected)
}

func TestDecodeFailureKeepsPreviousSnapshot(t *testing.T) {
	c, srv, sub := joinedClient(t)
	before := c.Snapshot()
	require.NotNil(t, before)

	srv.Send(protocol.TypeGameStateUpdated, protocol.GameUpdateData{
		GameState: raw(`{"roomId":"room-1","currentBet":0,"currentPlayerIndex":0,"dealerIndex":0,"gamePhase":"flop","players":[]}`),
	})

	errEvent := expectEvent[events.Error](t, sub)
	assert.Equal(t, events.ErrorDecode, errEvent.Kind)
	assert.False(t, errEvent.Fatal)

	var decodeErr *snapshot.DecodeError
	require.ErrorAs(t, errEvent.Err, &decodeErr)
	assert.Equal(t, "pot", decodeErr.Field)
	assert.Same(t, before, c.Snapshot())

	srv.SendRaw([]byte("not json"))
	errEvent = expectEvent[events.Error](t, sub)
	assert.Equal(t, events.ErrorDecode, errEvent.Kind)
	assert.Same(t, before, c.Snapshot())

	// The session carries on
	srv.Send(protocol.TypeGameStateUpdated, protocol.GameUpdateData{GameState: raw(aliceToAct)})
	expectEvent[events.StateUpdated](t, sub)
	assert.Equal(t, StateJoined, c.State())
}

func TestUnknownMessageTypeIsIgnored(t *testing.T) {
	_, srv, sub := joinedClient(t)

	srv.Send(protocol.MessageType("chatMessage"), map[string]string{"text": "hi"})
	srv.Send(protocol.TypeGameStateUpdated, protocol.GameUpdateData{GameState: raw(aliceToAct)})

	expectEvent[events.StateUpdated](t, sub)
}

func TestServerErrorFrame(t *testing.T) {
	_, srv, sub := joinedClient(t)

	srv.Send(protocol.TypeError, protocol.ErrorData{Code: "not_your_turn", Message: "wait your turn"})

	errEvent := expectEvent[events.Error](t, sub)
	assert.Equal(t, events.ErrorServer, errEvent.Kind)
	assert.False(t, errEvent.Fatal)

	var serverErr *ServerError
	require.ErrorAs(t, errEvent.Err, &serverErr)
	assert.Equal(t, "not_your_turn", serverErr.Code)
	assert.Equal(t, "wait your turn", serverErr.Message)
}

func TestPlayerJoinedAndLeft(t *testing.T) {
	_, srv, sub := joinedClient(t)

	srv.Send(protocol.TypePlayerJoined, protocol.PlayerJoinedData{
		Player:    raw(`{"id":"p4","name":"erin"}`),
		GameState: raw(tableState),
	})
	joined := expectEvent[events.PlayerJoined](t, sub)
	require.NotNil(t, joined.Player)
	assert.Equal(t, "erin", joined.Player.Name)
	assert.Equal(t, 1000, joined.Player.Chips)

	srv.Send(protocol.TypePlayerJoined, protocol.PlayerJoinedData{GameState: raw(tableState)})
	joined = expectEvent[events.PlayerJoined](t, sub)
	assert.Nil(t, joined.Player)

	srv.Send(protocol.TypePlayerLeft, protocol.PlayerLeftData{PlayerID: "p2", GameState: raw(aliceToAct)})
	left := expectEvent[events.PlayerLeft](t, sub)
	assert.Equal(t, "p2", left.LeftPlayerID)
	assert.Equal(t, 180, left.State.Pot)
}

func TestGameStartedSuppliesMissingIdentity(t *testing.T) {
	srv := testserver.New(t)
	c := newTestClient(t, srv.URL())
	sub := c.Subscribe()

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Join("room-1", "bob"))
	expectEvent[events.Connected](t, sub)
	srv.Expect(protocol.TypeJoinRoom)

	srv.Send(protocol.TypeJoinedRoom, protocol.JoinedRoomData{Success: true})
	result := expectEvent[events.JoinResult](t, sub)
	assert.Empty(t, result.PlayerID)
	assert.Nil(t, result.State)
	assert.Nil(t, c.Snapshot())

	srv.Send(protocol.TypeGameStarted, protocol.GameUpdateData{GameState: raw(tableState), CurrentPlayerID: "p2"})
	started := expectEvent[events.GameStarted](t, sub)
	assert.Equal(t, "p2", started.PlayerID)
	assert.Equal(t, 1, started.View().Seat)

	// Later acknowledgements never replace the identity
	srv.Send(protocol.TypeGameStarted, protocol.GameUpdateData{GameState: raw(tableState), CurrentPlayerID: "p1"})
	started = expectEvent[events.GameStarted](t, sub)
	assert.Equal(t, "p2", started.PlayerID)
}

func TestSendsRejectedWithoutSession(t *testing.T) {
	c := newTestClient(t, "ws://127.0.0.1:1/ws")

	assert.ErrorIs(t, c.Fold(), ErrNotConnected)
	assert.ErrorIs(t, c.Call(), ErrNotConnected)
	assert.ErrorIs(t, c.Raise(10), ErrNotConnected)
	assert.ErrorIs(t, c.AllIn(), ErrNotConnected)
	assert.ErrorIs(t, c.StartGame(), ErrNotConnected)
	assert.False(t, c.IsConnected())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestSendsRejectedBeforeJoin(t *testing.T) {
	srv := testserver.New(t)
	c := newTestClient(t, srv.URL())
	sub := c.Subscribe()

	require.NoError(t, c.Connect(context.Background()))
	expectEvent[events.Connected](t, sub)

	assert.ErrorIs(t, c.Call(), ErrNotJoined)
	assert.ErrorIs(t, c.StartGame(), ErrNotJoined)

	require.NoError(t, c.Join("room-1", "carol"))
	srv.Expect(protocol.TypeJoinRoom)
	assert.ErrorIs(t, c.Fold(), ErrNotJoined)
}

func TestOutboundActions(t *testing.T) {
	c, srv, _ := joinedClient(t)

	require.NoError(t, c.Raise(40))
	msg := srv.Expect(protocol.TypeMakeBet)
	assert.JSONEq(t, `{"roomId":"room-1","action":"raise","amount":40}`, string(msg.Data))

	require.NoError(t, c.Call())
	msg = srv.Expect(protocol.TypeMakeBet)
	assert.JSONEq(t, `{"roomId":"room-1","action":"call"}`, string(msg.Data))

	require.NoError(t, c.MakeBet(protocol.ActionFold, 99))
	msg = srv.Expect(protocol.TypeMakeBet)
	assert.JSONEq(t, `{"roomId":"room-1","action":"fold"}`, string(msg.Data))

	require.NoError(t, c.AllIn())
	msg = srv.Expect(protocol.TypeMakeBet)
	assert.JSONEq(t, `{"roomId":"room-1","action":"allIn"}`, string(msg.Data))

	require.NoError(t, c.StartGame())
	msg = srv.Expect(protocol.TypeStartGame)
	assert.JSONEq(t, `{"roomId":"room-1"}`, string(msg.Data))
	assert.NotEmpty(t, msg.RequestID)

	assert.ErrorIs(t, c.Raise(0), ErrInvalidAmount)
	assert.ErrorIs(t, c.Raise(-5), ErrInvalidAmount)
	assert.ErrorIs(t, c.MakeBet(protocol.Action("check"), 0), protocol.ErrUnknownAction)
	srv.AssertNoMessage(50 * time.Millisecond)
}

func TestActionsDoNotMutateSnapshot(t *testing.T) {
	c, srv, _ := joinedClient(t)
	before := c.Snapshot()

	require.NoError(t, c.Fold())
	srv.Expect(protocol.TypeMakeBet)

	assert.Same(t, before, c.Snapshot())
	me, ok := c.View().Me()
	require.True(t, ok)
	assert.False(t, me.Folded)
}

func TestReconnectRejoinsWithFreshSession(t *testing.T) {
	c, srv, sub := joinedClient(t)
	first, _ := c.Session()

	srv.Drop()

	disconnected := expectEvent[events.Disconnected](t, sub)
	assert.Equal(t, first.ID, disconnected.SessionID)
	assert.Error(t, disconnected.Err)
	assert.Nil(t, c.Snapshot())

	lost := expectEvent[events.Error](t, sub)
	assert.Equal(t, events.ErrorConnection, lost.Kind)
	assert.False(t, lost.Fatal)

	connected := expectEvent[events.Connected](t, sub)
	assert.NotEqual(t, first.ID, connected.SessionID)

	msg := srv.Expect(protocol.TypeJoinRoom)
	assert.JSONEq(t, `{"roomId":"room-1","playerName":"carol"}`, string(msg.Data))
	assert.Equal(t, 2, srv.Connections())

	second, ok := c.Session()
	require.True(t, ok)
	assert.Empty(t, second.PlayerID)
	assert.Equal(t, StateJoinPending, c.State())

	srv.Send(protocol.TypeJoinedRoom, protocol.JoinedRoomData{Success: true, PlayerID: "p3", GameState: raw(aliceToAct)})
	result := expectEvent[events.JoinResult](t, sub)
	assert.Equal(t, "p3", result.PlayerID)
	assert.Equal(t, StateJoined, c.State())
}

func TestReconnectExhaustion(t *testing.T) {
	srv := testserver.New(t)
	url := srv.URL()
	srv.Close()

	mClock := quartz.NewMock(t)
	c := newTestClient(t, url, func(o *Options) {
		o.ReconnectAttempts = 2
		o.ReconnectDelay = time.Second
		o.Clock = mClock
	})
	sub := c.Subscribe()

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Join("room-1", "carol"))

	require.Eventually(t, func() bool {
		mClock.Advance(time.Second)
		return c.State() == StateFailed
	}, 5*time.Second, 10*time.Millisecond)

	for i := 0; i < 2; i++ {
		ev := expectEvent[events.Error](t, sub)
		assert.Equal(t, events.ErrorConnection, ev.Kind)
		assert.False(t, ev.Fatal)
	}

	fatal := expectEvent[events.Error](t, sub)
	assert.True(t, fatal.Fatal)
	assert.ErrorIs(t, fatal.Err, ErrReconnectExhausted)
	assert.ErrorIs(t, c.Err(), ErrReconnectExhausted)

	select {
	case <-c.Done():
	case <-time.After(testserver.EventTimeout):
		t.Fatal("connection loop still running")
	}
	assert.ErrorIs(t, c.Call(), ErrNotConnected)
}

func TestDisconnectIsClean(t *testing.T) {
	c, srv, sub := joinedClient(t)

	require.NoError(t, c.Disconnect())

	disconnected := expectEvent[events.Disconnected](t, sub)
	assert.NoError(t, disconnected.Err)
	assert.Equal(t, StateDisconnected, c.State())
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Err())
	assert.Nil(t, c.Snapshot())

	_, ok := c.Session()
	assert.False(t, ok)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, srv.Connections())

	// The client can be connected again, without the old join request
	require.NoError(t, c.Connect(context.Background()))
	expectEvent[events.Connected](t, sub)
	srv.AssertNoMessage(50 * time.Millisecond)
	assert.Equal(t, StateConnected, c.State())
}

func TestConnectTwice(t *testing.T) {
	srv := testserver.New(t)
	c := newTestClient(t, srv.URL())

	require.NoError(t, c.Connect(context.Background()))
	assert.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyConnected)
}

func TestContextCancelStopsLoop(t *testing.T) {
	srv := testserver.New(t)
	c := newTestClient(t, srv.URL())
	sub := c.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Connect(ctx))
	expectEvent[events.Connected](t, sub)

	cancel()
	expectEvent[events.Disconnected](t, sub)

	select {
	case <-c.Done():
	case <-time.After(testserver.EventTimeout):
		t.Fatal("connection loop still running after cancel")
	}
	assert.Equal(t, StateDisconnected, c.State())
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "ws://localhost:3000/ws", want: "ws://localhost:3000/ws"},
		{in: "http://localhost:3000", want: "ws://localhost:3000/ws"},
		{in: "https://poker.example.com/", want: "wss://poker.example.com/ws"},
		{in: "wss://poker.example.com/socket", want: "wss://poker.example.com/socket"},
		{in: "", wantErr: true},
		{in: "ftp://localhost", wantErr: true},
		{in: "ws://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := websocketURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnStateString(t *testing.T) {
	assert.Equal(t, "join_failed", StateJoinFailed.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateJoinFailed.Terminal())
	assert.False(t, StateJoined.Terminal())
	assert.False(t, errors.Is(&JoinRejectedError{Message: "x"}, ErrReconnectExhausted))
}
