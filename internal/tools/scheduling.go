package tools

import (
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// schedulingMessage accompanies the inline calendar in the transcript.
const schedulingMessage = "I've opened our scheduling calendar below. Pick a time that works for you and we'll confirm the details."

// schedulingEmbedParams hides the event details header so the widget stays
// compact inside the chat panel.
const schedulingEmbedParams = "hide_event_type_details=1&hide_gdpr_banner=1"

// registerSchedulingTool defines the consultation-booking tool. It renders an
// inline calendar component instead of returning a link as text.
func registerSchedulingTool(g *genkit.Genkit, defaultURL string) ai.Tool {
	return genkit.DefineTool(
		g, NameScheduleConsultation,
		"Use this tool when the user wants to schedule a meeting, consultation, call, or demo. This will display an inline calendar for them to book directly in the chat.",
		func(ctx *ai.ToolContext, _ struct{}) (string, error) {
			url := schedulingURLFrom(ctx)
			if url == "" {
				url = defaultURL
			}

			Notify(ctx, ComponentEvent{
				Component: "calendly",
				Props:     map[string]any{"url": embedURL(url)},
				Message:   schedulingMessage,
			})
			return schedulingMessage, nil
		},
	)
}

func embedURL(url string) string {
	if strings.Contains(url, "?") {
		return url + "&" + schedulingEmbedParams
	}
	return url + "?" + schedulingEmbedParams
}
