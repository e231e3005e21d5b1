package copywriter

import (
	"fmt"
	"strings"
)

// Feature names accepted by Service.Run.
const (
	FeatureCaption  = "caption"
	FeatureHashtags = "hashtags"
	FeatureRewrite  = "rewrite"
	FeatureIdeas    = "ideas"
)

// Request carries the user inputs for a feature. Which fields are required
// depends on the feature.
type Request struct {
	Topic    string `json:"topic" binding:"max=500"`
	Platform string `json:"platform" binding:"omitempty,oneof=instagram tiktok twitter linkedin facebook"`
	Tone     string `json:"tone" binding:"max=50"`
	Text     string `json:"text" binding:"max=4000"`
}

type template struct {
	system string
	// requires names the Request field that must be non-empty.
	requires string
	build    func(r Request) string
}

var templates = map[string]template{
	FeatureCaption: {
		system:   "You are a social media copywriter. Reply with the caption only, no preamble.",
		requires: "topic",
		build: func(r Request) string {
			return fmt.Sprintf("Write a %s caption for %s about: %s", tone(r), platform(r), r.Topic)
		},
	},
	FeatureHashtags: {
		system:   "You suggest hashtags. Reply with 10 to 15 hashtags separated by spaces and nothing else.",
		requires: "topic",
		build: func(r Request) string {
			return fmt.Sprintf("Suggest hashtags for a %s post about: %s", platform(r), r.Topic)
		},
	},
	FeatureRewrite: {
		system:   "You edit social media copy. Keep the meaning, improve clarity and engagement. Reply with the rewritten text only.",
		requires: "text",
		build: func(r Request) string {
			return fmt.Sprintf("Rewrite this %s post in a %s tone:\n\n%s", platform(r), tone(r), r.Text)
		},
	},
	FeatureIdeas: {
		system:   "You are a content strategist. Reply with a numbered list of 5 short post ideas.",
		requires: "topic",
		build: func(r Request) string {
			return fmt.Sprintf("Give me post ideas for %s about: %s", platform(r), r.Topic)
		},
	},
}

func tone(r Request) string {
	if t := strings.TrimSpace(r.Tone); t != "" {
		return t
	}
	return "friendly"
}

func platform(r Request) string {
	if p := strings.TrimSpace(r.Platform); p != "" {
		return p
	}
	return "social media"
}

// Features lists the supported feature names.
func Features() []string {
	return []string{FeatureCaption, FeatureHashtags, FeatureRewrite, FeatureIdeas}
}
