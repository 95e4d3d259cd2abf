package server

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockredis/mockredis/internal/engine"
	"github.com/mockredis/mockredis/internal/protocol"
	"github.com/mockredis/mockredis/internal/reply"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	in, err := engine.New(engine.Config{Seed: 1})
	require.NoError(t, err)

	s := New("127.0.0.1:0", in)
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		in.Close()
	})
	return s
}

type client struct {
	conn net.Conn
	rd   *protocol.Reader
}

func dial(t *testing.T, s *Server) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", s.Addr(), 2*time.Second)
	require.NoError(t, err)
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	t.Cleanup(func() { conn.Close() })
	return &client{conn: conn, rd: protocol.NewReader(conn)}
}

func (c *client) send(t *testing.T, args ...string) {
	t.Helper()
	_, err := c.conn.Write(protocol.AppendCommand(nil, args...))
	require.NoError(t, err)
}

func (c *client) read(t *testing.T) reply.Reply {
	t.Helper()
	r, err := c.rd.ReadReply()
	require.NoError(t, err)
	return r
}

func (c *client) do(t *testing.T, args ...string) reply.Reply {
	t.Helper()
	c.send(t, args...)
	return c.read(t)
}

func TestServer_Commands(t *testing.T) {
	s := startTestServer(t)
	c := dial(t, s)

	assert.Equal(t, "PONG", c.do(t, "PING").String())
	assert.Equal(t, int64(1), s.Clients())
	assert.Equal(t, "OK", c.do(t, "SET", "k", "v").String())
	assert.Equal(t, reply.BulkString("v"), c.do(t, "GET", "k"))
	assert.True(t, c.do(t, "GET", "missing").IsNil())
	assert.Equal(t, int64(2), c.do(t, "RPUSH", "l", "a", "b").Int)
	assert.Equal(t, "[\"a\" \"b\"]", c.do(t, "LRANGE", "l", "0", "-1").String())

	r := c.do(t, "LPUSH", "k", "x")
	require.Equal(t, reply.TypeError, r.Type)
	assert.Equal(t, "WRONGTYPE", r.Err.Code)

	r = c.do(t, "NOSUCH")
	require.Equal(t, reply.TypeError, r.Type)
	assert.Equal(t, "ERR unknown command 'NOSUCH'", r.Err.Error())
}

func TestServer_Pipeline(t *testing.T) {
	s := startTestServer(t)
	c := dial(t, s)

	var batch []byte
	for i := 0; i < 10; i++ {
		batch = protocol.AppendCommand(batch, "INCR", "n")
	}
	_, err := c.conn.Write(batch)
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		assert.Equal(t, int64(i), c.read(t).Int)
	}
}

func TestServer_Quit(t *testing.T) {
	s := startTestServer(t)
	c := dial(t, s)

	assert.Equal(t, "OK", c.do(t, "QUIT").String())
	_, err := c.rd.ReadReply()
	assert.ErrorIs(t, err, io.EOF)
}

func TestServer_SharedInstance(t *testing.T) {
	s := startTestServer(t)

	const clients, incrs = 8, 50
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		c := dial(t, s)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < incrs; j++ {
				if _, err := c.conn.Write(protocol.AppendCommand(nil, "INCR", "counter")); !assert.NoError(t, err) {
					return
				}
				if _, err := c.rd.ReadReply(); !assert.NoError(t, err) {
					return
				}
			}
		}()
	}
	wg.Wait()

	r, err := s.Exec("GET", "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(clients*incrs), string(r.Str))

	// A database selected on one connection is seen by all of them.
	a, b := dial(t, s), dial(t, s)
	a.do(t, "SELECT", "3")
	b.do(t, "SET", "where", "three")
	dbs := s.Stats().DBs
	require.Len(t, dbs, 2)
	assert.Equal(t, engine.DBStats{Index: 3, Keys: 1}, dbs[1])
}

func TestServer_CloseIdempotent(t *testing.T) {
	in, err := engine.New(engine.Config{})
	require.NoError(t, err)
	defer in.Close()

	s := New("127.0.0.1:0", in)
	assert.NoError(t, s.Close())
	assert.Error(t, s.Serve(context.Background()))
	assert.Equal(t, "127.0.0.1:0", s.Addr())
}
