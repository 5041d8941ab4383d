package config

// Map defaults.
const (
	DefaultMapKind         = KindHash
	DefaultInitialCapacity = 16
	DefaultLoadFactor      = 0.75
	DefaultHasher          = HasherMaphash
)

// Bench defaults.
const (
	DefaultBenchOps      = 100_000
	DefaultBenchKeySpace = 10_000
	DefaultBenchSeed     = 1
	DefaultBenchRemove   = 0.2
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = FormatText
)

// Telemetry and persistence defaults.
const (
	DefaultServiceName  = "assoc"
	DefaultMetricsAddr  = ""
	DefaultOTLPEndpoint = ""
	DefaultCodec        = "json"
	DefaultSnapshotDir  = "."
)
