// mockredis-cli sends commands to a mockredis server and prints the replies.
//
// Usage:
//
//	mockredis-cli [-addr host:port] [command [arg...]]
//
// Without a command it reads one command per line from standard input.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/mockredis/mockredis/internal/protocol"
	"github.com/mockredis/mockredis/internal/reply"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "Server address")
	timeout := flag.Duration("timeout", 5*time.Second, "Dial timeout")
	flag.Parse()

	conn, err := net.DialTimeout("tcp", *addr, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	c := &client{conn: conn, rd: protocol.NewReader(conn)}

	if flag.NArg() > 0 {
		r, err := c.do(flag.Args())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(protocol.Format(r))
		if r.Type == reply.TypeError {
			os.Exit(1)
		}
		return
	}

	if err := c.repl(os.Stdin, os.Stdout, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type client struct {
	conn net.Conn
	rd   *protocol.Reader
}

func (c *client) do(args []string) (reply.Reply, error) {
	if _, err := c.conn.Write(protocol.AppendCommand(nil, args...)); err != nil {
		return reply.Reply{}, err
	}
	return c.rd.ReadReply()
}

func (c *client) repl(in io.Reader, out io.Writer, addr string) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s> ", addr)
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		args := protocol.SplitCommand(sc.Text())
		if len(args) == 0 {
			continue
		}
		r, err := c.do(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, protocol.Format(r))
		if strings.EqualFold(args[0], "quit") {
			return nil
		}
	}
}
