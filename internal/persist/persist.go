// Package persist provides the collaborators that load and save the key
// space of a named engine instance: an in-process Registry, snapshot files
// in a directory, and a Badger database.
package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/mockredis/mockredis/internal/codec"
	"github.com/mockredis/mockredis/internal/reply"
	"github.com/mockredis/mockredis/internal/store"
)

// ErrLocked is returned when another process holds the state of a server.
var ErrLocked = errors.New("persist: state is locked by another process")

var imageMagic = []byte("MRKS\x01")

// encodeImage frames a snappy-compressed keyspace with a magic prefix and a
// CRC32 trailer.
func encodeImage(ks *store.Keyspace) []byte {
	buf := append([]byte(nil), imageMagic...)
	buf = append(buf, snappy.Encode(nil, codec.EncodeKeyspace(ks))...)
	return binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
}

func decodeImage(data []byte, now float64) (*store.Keyspace, error) {
	if len(data) < len(imageMagic)+4 || string(data[:len(imageMagic)]) != string(imageMagic) {
		return nil, reply.ErrBadFormat
	}
	body, sum := data[:len(data)-4], data[len(data)-4:]
	if crc32.ChecksumIEEE(body) != binary.BigEndian.Uint32(sum) {
		return nil, reply.ErrBadFormat
	}
	raw, err := snappy.Decode(nil, body[len(imageMagic):])
	if err != nil {
		return nil, reply.ErrBadFormat
	}
	ks, err := codec.DecodeKeyspace(raw, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", reply.ErrBadFormat, err)
	}
	return ks, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("persist: invalid server name %q", name)
	}
	return nil
}

func unixTime(now float64) time.Time {
	return time.Unix(0, int64(now*1e9))
}
