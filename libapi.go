package meshrelay

import (
	relaypkg "github.com/tacmesh/meshrelay/internal/relay"
	configpkg "github.com/tacmesh/meshrelay/internal/relay/config"
	"github.com/tacmesh/meshrelay/internal/relay/cot"
	errspkg "github.com/tacmesh/meshrelay/internal/relay/errors"
	idspkg "github.com/tacmesh/meshrelay/internal/relay/ids"
	"github.com/tacmesh/meshrelay/internal/relay/jsoncodec"
	loggingpkg "github.com/tacmesh/meshrelay/internal/relay/logging"
	transportpkg "github.com/tacmesh/meshrelay/internal/relay/transport"
)

type (
	Config       = configpkg.Config
	Relay        = relaypkg.Relay
	Dependencies = relaypkg.Dependencies

	Interceptor       = relaypkg.Interceptor
	Dispatcher        = relaypkg.Dispatcher
	ProcessDispatcher = relaypkg.ProcessDispatcher

	Stats         = relaypkg.Stats
	StatsSnapshot = relaypkg.StatsSnapshot

	Event         = cot.Event
	EventEnvelope = cot.Envelope
	EventPayload  = cot.Payload

	Transport        = transportpkg.Transport
	TransportFactory = transportpkg.Factory

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
)

var (
	New            = relaypkg.New
	DefaultConfig  = configpkg.DefaultConfig
	ValidateConfig = configpkg.ValidateConfig

	NewInterceptor       = relaypkg.NewInterceptor
	NewProcessDispatcher = relaypkg.NewProcessDispatcher
	NewStats             = relaypkg.NewStats

	EncodeEvent = cot.Encode
	DecodeEvent = cot.Decode

	DefaultTransportFactory = transportpkg.DefaultFactory

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewWatermillAdapter  = loggingpkg.NewWatermillAdapter
	ParseLogLevel        = loggingpkg.ParseLevel

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal

	NewID = idspkg.New

	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired
	ErrConsumeTopicRequired = errspkg.ErrConsumeTopicRequired
	ErrEventRequired        = errspkg.ErrEventRequired
)

// MeshMarker is the detail token whose presence requests mesh relay.
const MeshMarker = cot.MeshMarker

// Mesh interface kinds accepted in Config.Interface.
const (
	InterfaceSerial = configpkg.InterfaceSerial
	InterfaceTCP    = configpkg.InterfaceTCP
	InterfaceBLE    = configpkg.InterfaceBLE
)
