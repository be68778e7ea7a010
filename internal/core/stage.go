package core

// Stage identifies the pipeline stage that emitted an event. The set is
// open: servers add stages over time and the client must keep rendering,
// so Stage is a plain string with helpers for the stages this client
// knows how to label.
type Stage string

const (
	StageStart         Stage = "start"
	StageResearcher    Stage = "researcher"
	StagePlanner       Stage = "planner"
	StageWriter        Stage = "writer"
	StageQuestioner    Stage = "questioner"
	StageDeepenContent Stage = "deepen_content"
	StageCoder         Stage = "coder"
	StageArtist        Stage = "artist"
	StageReviewer      Stage = "reviewer"
	StageRevision      Stage = "revision"
	StageAssembler     Stage = "assembler"
	StageGenerator     Stage = "generator"
	StageSearchService Stage = "search_service"
	StageBlogService   Stage = "blog_service"
)

// KnownStages returns the stages this client can label, in pipeline order.
func KnownStages() []Stage {
	return []Stage{
		StageStart, StageResearcher, StagePlanner, StageWriter,
		StageQuestioner, StageDeepenContent, StageCoder, StageArtist,
		StageReviewer, StageRevision, StageAssembler, StageGenerator,
		StageSearchService, StageBlogService,
	}
}

// Known reports whether the stage has a client-side label.
func (s Stage) Known() bool {
	switch s {
	case StageStart, StageResearcher, StagePlanner, StageWriter,
		StageQuestioner, StageDeepenContent, StageCoder, StageArtist,
		StageReviewer, StageRevision, StageAssembler, StageGenerator,
		StageSearchService, StageBlogService:
		return true
	default:
		return false
	}
}

// String returns the wire value of the stage.
func (s Stage) String() string {
	return string(s)
}

// Label returns a human-readable name for the stage. Unknown stages
// render their wire value so new server stages degrade gracefully.
func (s Stage) Label() string {
	switch s {
	case StageStart:
		return "Starting"
	case StageResearcher:
		return "Researching topic"
	case StagePlanner:
		return "Planning outline"
	case StageWriter:
		return "Writing sections"
	case StageQuestioner:
		return "Raising follow-up questions"
	case StageDeepenContent:
		return "Deepening content"
	case StageCoder:
		return "Writing code examples"
	case StageArtist:
		return "Generating illustrations"
	case StageReviewer:
		return "Reviewing draft"
	case StageRevision:
		return "Revising draft"
	case StageAssembler:
		return "Assembling article"
	case StageGenerator:
		return "Finalizing output"
	case StageSearchService:
		return "Searching the web"
	case StageBlogService:
		return "Publishing service"
	default:
		return string(s)
	}
}
