package llm

import (
	"strings"

	"go.aimuz.me/echoflow/internal/types"
)

const routerInstruction = `You are EchoFlow, a high-performance audio router.
Analyze the following transcribed text from the user.
Your ONLY job is to call either the ` + "`process_dictation`" + ` tool OR the ` + "`run_system_command`" + ` tool.
Classify and transform the text; never answer questions or add content of your own.
DO NOT respond with conversational text.`

// ContextHint returns the formatting instruction for the focused
// application. A nil context yields the generic hint.
func ContextHint(app *types.AppContext) string {
	if app == nil {
		return "Format the text cleanly for general writing."
	}
	name := app.ApplicationName
	switch strings.ToLower(name) {
	case "xcode", "cursor", "visual studio code":
		return "The user is currently dictating into a code editor (" + name + "). Prefer standard programming naming conventions (e.g. camelCase for Swift, snake_case for Python) and format technical terms as code if appropriate."
	case "mail", "outlook", "spark":
		return "The user is currently dictating an email (" + name + "). Maintain a professional, polite, and cohesive formal tone."
	case "messages", "slack", "discord":
		return "The user is dictating a quick chat message. Keep formatting natural, loose, and do not over-punctuate informal speech."
	case "terminal", "iterm2":
		return "The user is dictating into a terminal. Favour concise, lower-case UNIX-style command outputs without trailing periods where applicable."
	default:
		return "Format the text cleanly for general writing."
	}
}

// SystemPrompt builds the routing instruction with the context and
// vocabulary hints.
func SystemPrompt(app *types.AppContext, vocabulary string) string {
	var b strings.Builder
	b.WriteString(routerInstruction)
	b.WriteString("\n\nCONTEXT:\n")
	b.WriteString(ContextHint(app))
	if vocabulary != "" {
		b.WriteString("\n\nVOCABULARY:\nPrefer these spellings when they match what was said: ")
		b.WriteString(vocabulary)
	}
	return b.String()
}

// UserMessage wraps the transcript in labelled sections. Used by providers
// that take context in the user turn.
func UserMessage(transcript string, app *types.AppContext) string {
	var b strings.Builder
	if app != nil {
		b.WriteString("[CONTEXT]\n")
		b.WriteString(ContextHint(app))
		b.WriteString("\n\n")
	}
	b.WriteString("[TRANSCRIPTION]\n")
	b.WriteString(transcript)
	return b.String()
}

// connectionPrompt is the prompt used by TestConnection.
const connectionPrompt = "Reply with OK"
