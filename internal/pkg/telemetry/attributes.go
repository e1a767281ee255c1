package telemetry

// Span attribute keys shared by the use cases and adapters.
const (
	AttrOperation = "digipin.operation"
	AttrPin       = "digipin.pin"
	AttrBatchSize = "digipin.batch_size"
	AttrOutcome   = "digipin.outcome"

	AttrAgentTurnID = "agent.turn_id"
	AttrAgentTool   = "agent.tool"
	AttrAgentRounds = "agent.rounds"
	AttrAgentCached = "agent.cached"
)

// TracerName is the instrumentation scope for spans opened by this module.
const TracerName = "github.com/samirrijal/digipin"
