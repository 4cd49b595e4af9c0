package advice

import (
	"context"
	"strings"

	"github.com/lithammer/dedent"
)

// Prompt is the fixed instruction sent with every photo. It pins the reply to
// four numbered sections; the reply is displayed as-is and never parsed.
var Prompt = strings.TrimSpace(dedent.Dedent(`
	You are a nutrition expert. Analyze this food image and provide a response in the following exact structure:

	1. **Identified Food Item:** (What food is shown?)
	2. **Estimated Calories:** (Approximate number of calories)
	3. **Health Assessment:** (Is it healthy or not? Why?)
	4. **Suggested Healthier Alternative:** (Recommend 1 better option, or say 'None needed')

	Keep it concise, informative, and user-friendly. Follow this format strictly.
`))

// FallbackMessage is the only text users see when the model could not be
// reached or answered with something unusable.
const FallbackMessage = "Gemini API Error."

// UnreadableMessage is shown when the upload itself could not be decoded.
const UnreadableMessage = "Unreadable image."

// Payload is one request to an advice backend: a base64 encoded image and the
// instruction that goes with it.
type Payload struct {
	Base64      string
	MIMEType    string
	Instruction string
}

// NewPayload builds a payload for b64 with the standard prompt.
func NewPayload(b64, mimeType string) Payload {
	return Payload{Base64: b64, MIMEType: mimeType, Instruction: Prompt}
}

// Advisor sends a photo to a multimodal model and returns its free-text
// answer. Implementations return *Error for every failure so callers can tell
// failure kinds apart.
type Advisor interface {
	Advise(ctx context.Context, p Payload) (string, error)
}

// Display flattens an advice outcome to the string shown on the page. It never
// returns an empty string.
func Display(text string, err error) string {
	if err != nil {
		if KindOf(err) == KindDecode {
			return UnreadableMessage
		}
		return FallbackMessage
	}
	if strings.TrimSpace(text) == "" {
		return FallbackMessage
	}
	return text
}
