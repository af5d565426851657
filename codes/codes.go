// Package codes defines the numeric error/event taxonomy shared by every
// component of the mesh, partitioned by component the same way
// PeerTracker::ErrorType is partitioned in the original vsm sources
// (mesh = 100s, peer tracker = 200s, ego sphere = 300s).
package codes

// Severity classifies how loudly a Code should be surfaced by a Sink.
type Severity int

const (
	Trace Severity = iota
	Debug
	Info
	Warn
	Error
	Fatal
)

// String renders the severity the way slog level names read.
func (s Severity) String() string {
	switch s {
	case Trace:
		return "TRACE"
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Code is a taxonomy entry: a stable numeric id plus a severity and a
// human label. Components never construct ad-hoc strings for logging;
// they emit one of these.
type Code struct {
	Num      int
	Severity Severity
	Label    string
}

func (c Code) String() string { return c.Label }

// Error lets a Code be wrapped directly by github.com/pkg/errors at
// fatal construction sites without an adapter type.
func (c Code) Error() string { return c.Label }

// Success is the zero-value "everything worked" code shared by every
// component, mirroring the original vsm sources' ErrorType::SUCCESS = 0.
var Success = Code{0, Trace, "success"}

// Mesh node codes (100s).
var (
	NoTransport          = Code{100, Fatal, "no transport specified"}
	AddReceiverFail      = Code{101, Fatal, "failed to register message receiver"}
	AddTimerFail         = Code{102, Fatal, "failed to register timer"}
	Initialized          = Code{103, Info, "mesh node initialized"}
	MessageVerifyFail    = Code{104, Warn, "failed to verify message"}
	PeerUpdatesSent      = Code{105, Trace, "peer updates sent"}
	SourceUpdateReceived = Code{106, Trace, "source updates received"}
	EntitiesForwarded    = Code{107, Trace, "entity updates forwarded"}
	BatchTooLarge        = Code{108, Warn, "single entity exceeds batch size, sent alone"}
)

// Peer tracker codes (200s).
var (
	AddressConfigEmpty   = Code{200, Fatal, "self address must not be empty"}
	PeerIsNull           = Code{201, Warn, "node info is nil"}
	PeerAddressMissing   = Code{202, Warn, "node info is missing an address"}
	PeerCoordsMissing    = Code{203, Warn, "node info is missing coordinates"}
	PeerIsSelf           = Code{204, Trace, "node info refers to self"}
	NewPeerDiscovered    = Code{205, Info, "new peer discovered"}
	PeerLatched          = Code{206, Info, "peer latched"}
	PeerSequenceStale    = Code{207, Debug, "peer sequence stale, rejected"}
	SourceSequenceStale  = Code{208, Debug, "source sequence stale, rejected"}
	PeerUpdated          = Code{209, Trace, "peer updated"}
	SelectionsGenerated  = Code{210, Trace, "peer selections generated"}
)

// Ego sphere codes (300s).
var (
	EntityNameMissing       = Code{300, Warn, "entity is missing a name"}
	EntityCoordsMissing     = Code{301, Warn, "entity is missing coordinates"}
	EntityAlreadyReceived   = Code{302, Trace, "entity timestamp already received"}
	MessageSourceInvalid    = Code{303, Warn, "nearest filter requires a message source"}
	EntityNearestFiltered   = Code{304, Trace, "entity rejected by nearest filter"}
	EntityExpired           = Code{305, Debug, "entity expired"}
	EntityRangeExceeded     = Code{306, Trace, "entity range exceeded"}
	EntityCreated           = Code{307, Debug, "entity created"}
	EntityUpdated           = Code{308, Trace, "entity updated"}
	EntityDeleted           = Code{309, Debug, "entity deleted"}
	EntityTimestampsTrimmed = Code{310, Debug, "entity timestamp lookup trimmed"}
	EntityVetoed            = Code{311, Trace, "entity update vetoed by handler"}
)
