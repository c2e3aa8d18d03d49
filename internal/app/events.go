package app

// Event names passed to the Service's emitter.
const (
	EventRecording = "recording"     // bool
	EventLevel     = "audio-level"   // float64 in [0, 1]
	EventPartial   = "partial"       // string
	EventRouted    = "routed"        // types.RouteResult
	EventLanguage  = "language"      // Language
	EventBlocked   = "privacy-block" // bool
)

// Language is the detected language of a final transcript.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Emitter receives pipeline events. It is called from pipeline goroutines
// and must not block.
type Emitter func(name string, data any)
