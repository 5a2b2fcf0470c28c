package client

import (
	"sort"
	"strings"
)

// Registry is the command factory: the set of commands a client can
// build and send. A client whose registry lacks a command refuses to
// execute it, which is also how capability checks probe support.
type Registry struct {
	names map[string]struct{}
}

// defaultCommands is the baseline command set of a general-purpose
// client profile.
var defaultCommands = []string{
	"AUTH", "SELECT", "PING", "ECHO", "QUIT",
	"GET", "SET", "SETEX", "DEL", "EXISTS", "TYPE", "KEYS", "SCAN",
	"EXPIRE", "TTL", "PERSIST",
	"INCR", "INCRBY", "DECR", "DECRBY", "APPEND", "STRLEN",
	"HGET", "HSET", "HDEL", "HGETALL", "HKEYS", "HLEN",
	"LPUSH", "RPUSH", "LPOP", "RPOP", "LRANGE", "LLEN",
	"SADD", "SREM", "SMEMBERS", "SISMEMBER", "SCARD",
	"ZADD", "ZREM", "ZRANGE", "ZSCORE", "ZCARD",
	"SUBSCRIBE", "UNSUBSCRIBE", "PUBLISH",
	"INFO", "DBSIZE", "FLUSHDB", "FLUSHALL",
	"MONITOR",
}

// NewRegistry builds a registry over exactly the given commands.
func NewRegistry(names ...string) *Registry {
	r := &Registry{names: make(map[string]struct{}, len(names))}
	r.Register(names...)
	return r
}

// DefaultRegistry returns a registry with the baseline command set,
// monitoring included.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultCommands...)
}

// Register adds commands to the registry.
func (r *Registry) Register(names ...string) {
	for _, name := range names {
		r.names[normalize(name)] = struct{}{}
	}
}

// Supports reports whether the registry knows the command. Lookups are
// case-insensitive, matching the server's own command handling.
func (r *Registry) Supports(name string) bool {
	_, ok := r.names[normalize(name)]
	return ok
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
