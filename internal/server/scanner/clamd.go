package scanner

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
)

const (
	defaultChunkSize = 64 << 10
	defaultTimeout   = 30 * time.Second
)

// Clamd is a client for a clamd daemon listening on TCP.
type Clamd struct {
	Address   string
	Timeout   time.Duration
	ChunkSize int

	dialer net.Dialer
}

func NewClamd(address string, timeout time.Duration) *Clamd {
	return &Clamd{Address: address, Timeout: timeout}
}

func (c *Clamd) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c *Clamd) chunkSize() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return defaultChunkSize
}

func unavailable(err error) (Result, error) {
	return Result{Verdict: Unavailable}, fmt.Errorf("%w: %w", common.ErrScanUnavailable, err)
}

func (c *Clamd) conn(ctx context.Context) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	conn, err := c.dialer.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(c.timeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	return conn, nil
}

// command sends a z-prefixed (NUL terminated) command and optional stream
// body, then reads the NUL terminated reply.
func (c *Clamd) command(ctx context.Context, cmd string, body []byte, stream bool) (string, error) {
	conn, err := c.conn(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString("z" + cmd + "\x00"); err != nil {
		return "", err
	}
	if stream {
		var hdr [4]byte
		size := c.chunkSize()
		for off := 0; off < len(body); off += size {
			end := min(off+size, len(body))
			binary.BigEndian.PutUint32(hdr[:], uint32(end-off))
			if _, err := w.Write(hdr[:]); err != nil {
				return "", err
			}
			if _, err := w.Write(body[off:end]); err != nil {
				return "", err
			}
		}
		binary.BigEndian.PutUint32(hdr[:], 0)
		if _, err := w.Write(hdr[:]); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}

	reply, err := bufio.NewReader(conn).ReadString(0)
	if err != nil && reply == "" {
		return "", err
	}
	return strings.TrimSpace(strings.TrimRight(reply, "\x00")), nil
}

// Scan streams data with INSTREAM. Replies look like "stream: OK",
// "stream: Eicar-Signature FOUND" or "... ERROR".
func (c *Clamd) Scan(ctx context.Context, data []byte) (Result, error) {
	reply, err := c.command(ctx, "INSTREAM", data, true)
	if err != nil {
		return unavailable(err)
	}
	return parseReply(reply)
}

func parseReply(reply string) (Result, error) {
	body := strings.TrimPrefix(reply, "stream: ")
	switch {
	case body == "OK":
		return Result{Verdict: Clean}, nil
	case strings.HasSuffix(body, " FOUND"):
		return Result{Verdict: Infected, Signature: strings.TrimSuffix(body, " FOUND")}, nil
	default:
		return unavailable(fmt.Errorf("clamd: %s", reply))
	}
}

func (c *Clamd) Ping(ctx context.Context) error {
	reply, err := c.command(ctx, "PING", nil, false)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrScanUnavailable, err)
	}
	if reply != "PONG" {
		return fmt.Errorf("%w: unexpected ping reply %q", common.ErrScanUnavailable, reply)
	}
	return nil
}
