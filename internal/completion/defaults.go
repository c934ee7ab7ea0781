package completion

// Builtin schema knowledge for the common command set. The metadata cache
// merges this table under whatever the server reports, so completion has
// argument roles and option literals even for servers whose COMMAND DOCS
// output is unavailable or sparse.

var (
	// genericValueHints are non-binding placeholders for free-text slots.
	genericValueHints = []string{`"value"`, "123", "true", "false"}

	// numericHints are common TTL-ish durations in seconds.
	numericHints = []string{"0", "60", "300", "3600", "86400"}

	// patternHints seed glob-pattern slots.
	patternHints = []string{"*", "user:*", "session:*", "cache:*"}

	setOptionLiterals  = []string{"EX", "PX", "EXAT", "PXAT", "NX", "XX", "KEEPTTL", "GET"}
	infoSectionLiteral = []string{
		"server", "clients", "memory", "persistence", "stats", "replication",
		"cpu", "commandstats", "latencystats", "cluster", "keyspace", "everything",
	}
	configParamLiterals = []string{"*", "maxmemory", "maxmemory-policy", "timeout", "save", "appendonly"}
)

type builtinSpec struct {
	name     string
	min, max int
	roles    []ArgRole
	literals map[int][]string
}

func builtinSchemas() map[string]*CommandSchema {
	specs := []builtinSpec{
		// Strings.
		{name: "GET", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "SET", min: 2, max: Unbounded,
			roles:    []ArgRole{RoleKey, RoleValue, RoleEnum},
			literals: map[int][]string{2: setOptionLiterals}},
		{name: "GETSET", min: 2, max: 2, roles: []ArgRole{RoleKey, RoleValue}},
		{name: "APPEND", min: 2, max: 2, roles: []ArgRole{RoleKey, RoleValue}},
		{name: "STRLEN", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "INCR", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "DECR", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "INCRBY", min: 2, max: 2, roles: []ArgRole{RoleKey, RoleNumeric}},
		{name: "DECRBY", min: 2, max: 2, roles: []ArgRole{RoleKey, RoleNumeric}},
		{name: "MGET", min: 1, max: Unbounded, roles: []ArgRole{RoleKey}},

		// Generic.
		{name: "DEL", min: 1, max: Unbounded, roles: []ArgRole{RoleKey}},
		{name: "UNLINK", min: 1, max: Unbounded, roles: []ArgRole{RoleKey}},
		{name: "EXISTS", min: 1, max: Unbounded, roles: []ArgRole{RoleKey}},
		{name: "TYPE", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "TTL", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "PTTL", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "EXPIRE", min: 2, max: Unbounded,
			roles:    []ArgRole{RoleKey, RoleNumeric, RoleEnum},
			literals: map[int][]string{2: {"NX", "XX", "GT", "LT"}}},
		{name: "PERSIST", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "RENAME", min: 2, max: 2, roles: []ArgRole{RoleKey, RoleKey}},
		{name: "COPY", min: 2, max: Unbounded,
			roles:    []ArgRole{RoleKey, RoleKey, RoleEnum},
			literals: map[int][]string{2: {"DB", "REPLACE"}}},
		{name: "DUMP", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "KEYS", min: 1, max: 1, roles: []ArgRole{RolePattern}},
		{name: "SCAN", min: 1, max: Unbounded,
			roles:    []ArgRole{RoleNumeric, RoleEnum},
			literals: map[int][]string{1: {"MATCH", "COUNT", "TYPE"}}},
		{name: "RANDOMKEY", min: 0, max: 0},

		// Hashes.
		{name: "HGET", min: 2, max: 2, roles: []ArgRole{RoleKey, RoleField}},
		{name: "HSET", min: 3, max: Unbounded, roles: []ArgRole{RoleKey, RoleField, RoleValue}},
		{name: "HDEL", min: 2, max: Unbounded, roles: []ArgRole{RoleKey, RoleField}},
		{name: "HGETALL", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "HKEYS", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "HVALS", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "HLEN", min: 1, max: 1, roles: []ArgRole{RoleKey}},

		// Lists.
		{name: "LPUSH", min: 2, max: Unbounded, roles: []ArgRole{RoleKey, RoleValue}},
		{name: "RPUSH", min: 2, max: Unbounded, roles: []ArgRole{RoleKey, RoleValue}},
		{name: "LPOP", min: 1, max: 2, roles: []ArgRole{RoleKey, RoleNumeric}},
		{name: "RPOP", min: 1, max: 2, roles: []ArgRole{RoleKey, RoleNumeric}},
		{name: "LLEN", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "LRANGE", min: 3, max: 3, roles: []ArgRole{RoleKey, RoleNumeric, RoleNumeric}},

		// Sets.
		{name: "SADD", min: 2, max: Unbounded, roles: []ArgRole{RoleKey, RoleValue}},
		{name: "SREM", min: 2, max: Unbounded, roles: []ArgRole{RoleKey, RoleValue}},
		{name: "SMEMBERS", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "SCARD", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "SISMEMBER", min: 2, max: 2, roles: []ArgRole{RoleKey, RoleValue}},

		// Sorted sets.
		{name: "ZADD", min: 3, max: Unbounded, roles: []ArgRole{RoleKey, RoleNumeric, RoleValue}},
		{name: "ZREM", min: 2, max: Unbounded, roles: []ArgRole{RoleKey, RoleValue}},
		{name: "ZRANGE", min: 3, max: Unbounded,
			roles:    []ArgRole{RoleKey, RoleNumeric, RoleNumeric, RoleEnum},
			literals: map[int][]string{3: {"BYSCORE", "BYLEX", "REV", "LIMIT", "WITHSCORES"}}},
		{name: "ZCARD", min: 1, max: 1, roles: []ArgRole{RoleKey}},
		{name: "ZSCORE", min: 2, max: 2, roles: []ArgRole{RoleKey, RoleValue}},

		// Server and connection.
		{name: "CONFIG", min: 1, max: Unbounded,
			roles:    []ArgRole{RoleEnum},
			literals: map[int][]string{0: {"GET", "SET", "RESETSTAT", "REWRITE"}}},
		{name: "CONFIG GET", min: 1, max: 1,
			roles:    []ArgRole{RoleEnum},
			literals: map[int][]string{0: configParamLiterals}},
		{name: "CONFIG SET", min: 2, max: 2,
			roles:    []ArgRole{RoleEnum, RoleValue},
			literals: map[int][]string{0: configParamLiterals[1:]}},
		{name: "CONFIG RESETSTAT", min: 0, max: 0},
		{name: "CONFIG REWRITE", min: 0, max: 0},
		{name: "INFO", min: 0, max: 1,
			roles:    []ArgRole{RoleEnum},
			literals: map[int][]string{0: infoSectionLiteral}},
		{name: "DBSIZE", min: 0, max: 0},
		{name: "FLUSHDB", min: 0, max: 1,
			roles:    []ArgRole{RoleEnum},
			literals: map[int][]string{0: {"ASYNC", "SYNC"}}},
		{name: "SELECT", min: 1, max: 1, roles: []ArgRole{RoleNumeric}},
		{name: "PING", min: 0, max: 1, roles: []ArgRole{RoleValue}},
		{name: "ECHO", min: 1, max: 1, roles: []ArgRole{RoleValue}},
		{name: "AUTH", min: 1, max: 2, roles: []ArgRole{RoleValue, RoleValue}},
		{name: "COMMAND", min: 0, max: Unbounded,
			roles:    []ArgRole{RoleEnum},
			literals: map[int][]string{0: {"COUNT", "DOCS", "INFO", "LIST"}}},
		{name: "MONITOR", min: 0, max: 0},
		{name: "QUIT", min: 0, max: 0},
	}

	schemas := make(map[string]*CommandSchema, len(specs))
	for _, spec := range specs {
		schemas[spec.name] = &CommandSchema{
			Name:     spec.name,
			MinArgs:  spec.min,
			MaxArgs:  spec.max,
			Roles:    spec.roles,
			Literals: spec.literals,
		}
	}
	return schemas
}
