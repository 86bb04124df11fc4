package runner

// Stage describes a high-level phase of one unit of work.
type Stage string

const (
	// StageParse covers directive parsing of a fixture file.
	StageParse Stage = "parse"
	// StageResolve covers preamble resolution and materialization.
	StageResolve Stage = "resolve"
	// StageCompile covers the external compiler invocation.
	StageCompile Stage = "compile"
	// StageMatch covers expectation matching.
	StageMatch Stage = "match"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one fixture file (Case and Descriptor
// narrow it to a single pair when set).
type Event struct {
	File       string
	Case       string
	Descriptor string
	Stage      Stage
	Status     Status
	Err        error
}

// Sink consumes progress events.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
