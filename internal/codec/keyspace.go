package codec

import (
	"fmt"

	"github.com/mockredis/mockredis/internal/store"
)

// EncodeKeyspace serializes every live-looking entry of ks. Expiry times are
// kept as absolute unix seconds.
func EncodeKeyspace(ks *store.Keyspace) []byte {
	var dbs []pair
	for _, i := range ks.Indexes() {
		var entries []pair
		ks.DB(i).Each(func(key string, e *store.Entry) {
			if e.Value == nil || e.Value.Empty() {
				return
			}
			n := encodeEntry(e.Value)
			n.pairs = append(n.pairs, pair{key: stringNode("expire"), value: floatNode(e.ExpireAt)})
			entries = append(entries, pair{key: stringNode(key), value: n})
		})
		if len(entries) == 0 {
			continue
		}
		dbs = append(dbs, pair{key: intNode(int64(i)), value: mapNode(entries...)})
	}
	return appendNode(nil, mapNode(dbs...))
}

// DecodeKeyspace rebuilds a keyspace, dropping entries already expired at now.
func DecodeKeyspace(data []byte, now float64) (*store.Keyspace, error) {
	root, err := decodeNode(data)
	if err != nil {
		return nil, err
	}
	if root.tag != tagMap {
		return nil, ErrCorrupt
	}
	ks := store.NewKeyspace()
	for _, dp := range root.pairs {
		if dp.key.tag != tagInt || dp.key.i < 0 || dp.value.tag != tagMap {
			return nil, ErrCorrupt
		}
		db := ks.DB(int(dp.key.i))
		for _, ep := range dp.value.pairs {
			if ep.key.tag != tagBytes {
				return nil, ErrCorrupt
			}
			v, err := decodeEntry(ep.value)
			if err != nil {
				return nil, fmt.Errorf("codec: key %q in db %d: %w", ep.key.b, dp.key.i, err)
			}
			expire := store.NoExpiry
			if xn, ok := ep.value.field("expire"); ok && xn.tag == tagFloat {
				expire = xn.f
			}
			if expire != store.NoExpiry && expire <= now {
				continue
			}
			db.Put(string(ep.key.b), &store.Entry{Value: v, ExpireAt: expire})
		}
	}
	return ks, nil
}
