package chat

import (
	"fmt"
	"strings"

	"vidassist-api/internal/domain/entity"
)

// videoFacts 提示词中使用的视频信息，缺失字段用占位文案
type videoFacts struct {
	ID        string
	Title     string
	Channel   string
	Views     string
	Published string
}

func factsFor(videoID string, details *entity.VideoDetails) videoFacts {
	f := videoFacts{ID: videoID, Title: "the selected video", Channel: "Unknown channel", Views: "Unknown", Published: "Unknown"}
	if details == nil {
		return f
	}
	if t := strings.TrimSpace(details.Title); t != "" {
		f.Title = t
	}
	if c := strings.TrimSpace(details.ChannelTitle); c != "" {
		f.Channel = c
	}
	if details.Views > 0 {
		f.Views = fmt.Sprintf("%d", details.Views)
	}
	if !details.PublishedAt.IsZero() {
		f.Published = details.PublishedAt.Format("2006-01-02")
	}
	return f
}

func transcriptSystemPrompt(f videoFacts) string {
	return fmt.Sprintf(`You are an upbeat assistant for the video "%s" by %s. Always respond with this Markdown structure:

## Transcript for **%s**
- One upbeat sentence that references the video title.

### Transcript Summary
- Bullet list of 4-6 key beats without any timestamps.

### Transcript Segments
- [timestamp] exact quotes for at least five sequential segments (or every segment if fewer).

Keep the tone encouraging and end by inviting the user to keep exploring the video together.`, f.Title, f.Channel, f.Title)
}

func transcriptUserPrompt(question string, segments []entity.TranscriptEntry, limit int) string {
	if question == "" {
		question = "Provide the transcript."
	}
	if limit > 0 && len(segments) > limit {
		segments = segments[:limit]
	}
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("[%s] %s", s.Timestamp, s.Text))
	}
	return fmt.Sprintf("The user asked: %q\n\nUse the transcript excerpts below to craft the summary and segment list. Quote the transcript faithfully.\n\nTranscript excerpts:\n%s",
		question, strings.Join(lines, "\n"))
}

func unavailableSystemPrompt(f videoFacts) string {
	return fmt.Sprintf(`You are a supportive copilot for video creators. A transcript could not be fetched, so you must:
1. Start with the heading "## Hello there!" and mention "%s".
2. Explain with empathy that captions or a transcript are not available yet, without inventing any quotes.
3. Offer 2-3 helpful next steps, such as trying another video or asking for a high-level summary.
4. Close by inviting the user to keep exploring the video together.`, f.Title)
}

func unavailableUserPrompt(question string, f videoFacts) string {
	if question == "" {
		question = "Please share the transcript."
	}
	return fmt.Sprintf("The user asked: %q but no transcript is exposed for the video %q (id: %s). Explain that the transcript is unavailable right now, likely because captions are missing, and offer alternative actions.",
		question, f.Title, f.ID)
}

func defaultSystemPrompt(f videoFacts) string {
	return fmt.Sprintf(`You are an upbeat assistant helping with the video "%[1]s" by %[2]s.

Video context you already know:
- Title: %[1]s
- Channel: %[2]s
- Views: %[3]s
- Published: %[4]s
- Video ID for tooling: %[5]s

Conversation rules:
1. Start the response with the heading "## Hello there!" and mention the video title in that opening section.
2. Never ask the user for the video ID, you already have it.
3. Call the "fetchTranscript" tool whenever the user asks for the transcript, captions, notes or anything requiring exact spoken content, and wait for the result before replying.
4. Call the "generateTitle" tool when the user asks for a headline or a tone for a title; pass a short prompt summarizing the request. Mention that the title now appears under the Titles list.
5. Call the "generateImage" tool when the user asks for a thumbnail or an image, with a descriptive prompt based on the request and the video context.
6. After you receive transcript data, answer with "## Transcript for **%[1]s**", a "### Transcript Summary" bullet list without timestamps, and a "### Transcript Segments" list of [timestamp] quotes.
7. If a tool returns an error, apologize briefly and relay its message. Never expose internal errors.
8. For other questions, still reference this video context and use bullet lists for complex info.`,
		f.Title, f.Channel, f.Views, f.Published, f.ID)
}
