package conversation

import (
	"fmt"

	"github.com/felixgeelhaar/concierge/internal/llm"
)

// Notices shown in place of a reply when a dispatch fails
const (
	NoticeMissingAPIKey      = "⚠️ Please configure a valid AI API key in settings."
	NoticeInvalidURL         = "⚠️ Please enter a valid custom API endpoint."
	NoticeUnknownProvider    = "⚠️ Please select a valid LLM provider."
	NoticeInvalidCredentials = "⚠️ Invalid API key, please check your settings."
	NoticeNetwork            = "⚠️ AI request failed, please check your API key or network connection."
)

// Render turns a dispatch outcome into the text of an assistant message
func Render(o llm.Outcome) string {
	switch o.Kind {
	case llm.KindSuccess:
		return o.Text
	case llm.KindMissingAPIKey:
		return NoticeMissingAPIKey
	case llm.KindValidation:
		if o.Field == llm.FieldAPIURL {
			return NoticeInvalidURL
		}
		return "⚠️ Invalid request: " + o.Detail
	case llm.KindUnknownProvider:
		return NoticeUnknownProvider
	case llm.KindInvalidCredentials:
		return NoticeInvalidCredentials
	case llm.KindRequestFailed:
		body := o.Body
		if body == "" {
			body = "{}"
		}
		return fmt.Sprintf("⚠️ Request failed, status code: %d, error: %s", o.Status, body)
	default:
		return NoticeNetwork
	}
}
