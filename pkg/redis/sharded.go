package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/spaolacci/murmur3"
	"github.com/yndnr/redwire-go/pkg/cmap"
	"github.com/yndnr/redwire-go/pkg/resp"
)

// virtualNodesPerAddr is the number of ring positions each address
// occupies. More positions give a more even key distribution.
const virtualNodesPerAddr = 256

// Sharded routes keyed commands across a fixed set of server
// addresses using consistent hashing. Each address gets its own
// independently pooled Client, created on first use. The address set
// is fixed at construction; there is no live rebalancing.
type Sharded struct {
	settings Settings
	opts     []Option
	log      *slog.Logger

	ring    *hashRing
	clients *cmap.Map[string, *Client]
	closed  atomic.Bool
}

// NewSharded constructs a sharded client over settings.Addresses.
// With a single address it behaves like a plain Client behind the
// keyed API. All per-node settings are validated up front.
func NewSharded(settings Settings, opts ...Option) (*Sharded, error) {
	s := settings.withDefaults()

	addrs := s.Addresses
	if len(addrs) == 0 && s.Address != "" {
		addrs = []string{s.Address}
	}
	if len(addrs) == 0 {
		return nil, &Error{Kind: KindConfig, Op: "sharded", Message: "no addresses configured"}
	}
	seen := make(map[string]struct{}, len(addrs))
	for _, addr := range addrs {
		if _, dup := seen[addr]; dup {
			return nil, &Error{Kind: KindConfig, Op: "sharded", Message: "duplicate address " + addr}
		}
		seen[addr] = struct{}{}

		ns := s
		ns.Address = addr
		ns.Addresses = nil
		if err := ns.validate(); err != nil {
			return nil, err
		}
	}

	return &Sharded{
		settings: s,
		opts:     opts,
		log:      s.Logger,
		ring:     newHashRing(addrs),
		clients:  cmap.New[string, *Client](),
	}, nil
}

// Addrs returns the configured addresses.
func (s *Sharded) Addrs() []string { return s.ring.addrs }

// Node returns the address the given key maps to.
func (s *Sharded) Node(key string) string {
	return s.ring.lookup(key)
}

// ForKey returns the Client owning key, creating it on first use.
func (s *Sharded) ForKey(key string) (*Client, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.clientFor(s.ring.lookup(key))
}

func (s *Sharded) clientFor(addr string) (*Client, error) {
	if c, ok := s.clients.Get(addr); ok {
		return c, nil
	}

	// Construction happens outside the registry's shard lock: warming
	// MinIdle connections dials the node, and the map contract keeps
	// compute functions cheap and non-blocking. A racing caller may
	// build a duplicate; the loser is closed.
	ns := s.settings
	ns.Address = addr
	ns.Addresses = nil
	cl, err := New(ns, s.opts...)
	if err != nil {
		s.log.Error("sharded node client init failed",
			slog.String("addr", RedactEndpoint(addr)), slog.Any("error", err))
		return nil, err
	}

	c, existed := s.clients.GetOrCompute(addr, func() *Client { return cl })
	if existed {
		cl.Close()
	}
	return c, nil
}

// Do executes an arbitrary command on the node owning key. The key
// only selects the node; it is not prepended to the arguments.
func (s *Sharded) Do(ctx context.Context, key string, args ...any) (resp.Value, error) {
	c, err := s.ForKey(key)
	if err != nil {
		return resp.Value{}, err
	}
	return c.Do(ctx, args...)
}

// Get fetches the value of key from its owning node.
func (s *Sharded) Get(ctx context.Context, key string) ([]byte, error) {
	c, err := s.ForKey(key)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, key)
}

// Set stores value under key on its owning node.
func (s *Sharded) Set(ctx context.Context, key string, value []byte) error {
	c, err := s.ForKey(key)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, value)
}

// SetWithTTL stores value under key with an expiry.
func (s *Sharded) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c, err := s.ForKey(key)
	if err != nil {
		return err
	}
	return c.SetWithTTL(ctx, key, value, ttl)
}

// Del removes key from its owning node.
func (s *Sharded) Del(ctx context.Context, key string) (bool, error) {
	c, err := s.ForKey(key)
	if err != nil {
		return false, err
	}
	n, err := c.Del(ctx, key)
	return n > 0, err
}

// Append appends value to key on its owning node.
func (s *Sharded) Append(ctx context.Context, key string, value []byte) (int64, error) {
	c, err := s.ForKey(key)
	if err != nil {
		return 0, err
	}
	return c.Append(ctx, key, value)
}

// TTL returns the remaining lifetime of key.
func (s *Sharded) TTL(ctx context.Context, key string) (time.Duration, error) {
	c, err := s.ForKey(key)
	if err != nil {
		return 0, err
	}
	return c.TTL(ctx, key)
}

// Ping checks connectivity to every configured node, dialing nodes
// that have not been used yet. The first failure is returned.
func (s *Sharded) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	for _, addr := range s.ring.addrs {
		c, err := s.clientFor(addr)
		if err != nil {
			return err
		}
		if err := c.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns pool statistics per address for nodes that have been
// used so far.
func (s *Sharded) Stats() map[string]Stats {
	out := make(map[string]Stats, s.clients.Len())
	s.clients.Range(func(addr string, c *Client) bool {
		out[addr] = c.Stats()
		return true
	})
	return out
}

// Close tears down every node client. Safe to call more than once.
func (s *Sharded) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	s.clients.Range(func(addr string, c *Client) bool {
		if err := c.Close(); err != nil && !errors.Is(err, ErrClosed) {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

// hashRing is a consistent hash ring over a fixed address list. It is
// immutable after construction and needs no locking.
type hashRing struct {
	addrs  []string
	hashes []uint64
	owner  map[uint64]string
}

func newHashRing(addrs []string) *hashRing {
	r := &hashRing{
		addrs: append([]string(nil), addrs...),
		owner: make(map[uint64]string, len(addrs)*virtualNodesPerAddr),
	}
	for _, addr := range addrs {
		for i := 0; i < virtualNodesPerAddr; i++ {
			r.owner[virtualNodeHash(addr, i)] = addr
		}
	}
	r.hashes = make([]uint64, 0, len(r.owner))
	for h := range r.owner {
		r.hashes = append(r.hashes, h)
	}
	sort.Slice(r.hashes, func(i, j int) bool { return r.hashes[i] < r.hashes[j] })
	return r
}

// lookup returns the address owning key: the first virtual node at or
// after the key's hash, wrapping around the ring.
func (r *hashRing) lookup(key string) string {
	if len(r.addrs) == 1 {
		return r.addrs[0]
	}
	h := murmur3.Sum64([]byte(key))
	idx := sort.Search(len(r.hashes), func(i int) bool { return r.hashes[i] >= h })
	if idx == len(r.hashes) {
		idx = 0
	}
	return r.owner[r.hashes[idx]]
}

func virtualNodeHash(addr string, index int) uint64 {
	h := murmur3.New64()
	h.Write([]byte(addr))

	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(index))
	h.Write(idx[:])
	return h.Sum64()
}
