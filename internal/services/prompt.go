package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

// SystemPrompt constrains the model to a bare JSON array of songs.
const SystemPrompt = "You are a music recommendation engine. Return EXACTLY the requested number of songs as a JSON array with fields: title, artist, reason (1 sentence). Return ONLY the JSON array, no markdown, no explanation."

var (
	openingFence = regexp.MustCompile("^```(?:json)?\\n?")
	closingFence = regexp.MustCompile("\\n?```$")
)

// BuildMessage renders the user message for a generate request.
func BuildMessage(req GenerateRequest) string {
	if req.Feedback == nil {
		return BuildInitialMessage(req.Prompt, req.Count, req.Exclude)
	}

	removed := req.Feedback.Removed
	if len(req.Exclude) > 0 {
		removed = append(append([]models.FeedbackEntry{}, removed...), excludedFeedback(req.Exclude)...)
	}
	return BuildRegenerateMessage(req.Prompt, req.Feedback.Kept, removed, req.Count)
}

// BuildInitialMessage asks for count songs, listing songs that must not be suggested.
func BuildInitialMessage(prompt string, count int, avoid []models.SongRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a playlist of %d songs: %q", count, prompt)

	if len(avoid) > 0 {
		b.WriteString("\n\nDo NOT suggest these songs:")
		for _, s := range avoid {
			fmt.Fprintf(&b, "\n- %q by %s", s.Title, s.Artist)
		}
	}
	return b.String()
}

// BuildRegenerateMessage asks for count new songs, steering with kept and removed feedback.
func BuildRegenerateMessage(prompt string, kept, removed []models.FeedbackEntry, count int) string {
	return fmt.Sprintf(`Create a playlist: %q

KEPT (user liked these, do NOT suggest again):
%s

REMOVED (user disliked these, avoid similar):
%s

Based on the feedback patterns, adjust your recommendations accordingly.
Suggest %d NEW songs that complement the kept songs.`, prompt, feedbackList(kept), feedbackList(removed), count)
}

func feedbackList(entries []models.FeedbackEntry) string {
	if len(entries) == 0 {
		return "(none)"
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("- %q by %s", e.Title, e.Artist)
		if len(e.Reasons) > 0 {
			line += " — user feedback: " + strings.Join(e.Reasons, ", ")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func excludedFeedback(refs []models.SongRef) []models.FeedbackEntry {
	out := make([]models.FeedbackEntry, 0, len(refs))
	for _, r := range refs {
		out = append(out, models.FeedbackEntry{Title: r.Title, Artist: r.Artist})
	}
	return out
}

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = openingFence.ReplaceAllString(cleaned, "")
		cleaned = closingFence.ReplaceAllString(cleaned, "")
	}
	return cleaned
}

// ParseCandidates decodes model output into candidates.
//
// The text must be a JSON array of objects once fences are stripped. Missing
// or null fields become empty strings and non-string scalars are formatted.
func ParseCandidates(text string) ([]models.Candidate, error) {
	cleaned := StripFences(text)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	if items == nil {
		return nil, fmt.Errorf("%w: response is not an array", shared.ErrMalformedResponse)
	}

	candidates := make([]models.Candidate, 0, len(items))
	for i, item := range items {
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			return nil, fmt.Errorf("%w: element %d is not an object", shared.ErrMalformedResponse, i)
		}
		candidates = append(candidates, models.Candidate{
			Title:  stringField(obj, "title"),
			Artist: stringField(obj, "artist"),
			Reason: stringField(obj, "reason"),
		})
	}
	return candidates, nil
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
