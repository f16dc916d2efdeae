package artifact

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"vidassist-api/internal/domain/entity"
)

const maxImagePromptRunes = 1000

var (
	urlPattern        = regexp.MustCompile(`(?i)\bhttps?://\S+`)
	angleBracketsExpr = regexp.MustCompile(`[<>]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizePrompt 清理用户给出的图像描述：去掉链接与尖括号、压缩空白并截断
func SanitizePrompt(prompt string) string {
	p := urlPattern.ReplaceAllString(prompt, " ")
	p = angleBracketsExpr.ReplaceAllString(p, " ")
	p = strings.TrimSpace(whitespacePattern.ReplaceAllString(p, " "))
	if utf8.RuneCountInString(p) > maxImagePromptRunes {
		p = string([]rune(p)[:maxImagePromptRunes])
		p = strings.TrimSpace(p)
	}
	return p
}

func videoLabel(details *entity.VideoDetails, fallback string) (title, channel string) {
	title, channel = fallback, ""
	if details != nil {
		if t := strings.TrimSpace(details.Title); t != "" {
			title = t
		}
		channel = strings.TrimSpace(details.ChannelTitle)
	}
	return title, channel
}

// fallbackImagePrompt 用户没有给出描述时的默认缩略图提示词
func fallbackImagePrompt(details *entity.VideoDetails) string {
	title, channel := videoLabel(details, "this video")
	if channel == "" {
		channel = "the channel owner"
	}
	return strings.Join([]string{
		fmt.Sprintf("Design a cinematic, high-contrast video thumbnail for %q.", title),
		"Feature the hosts on the left with expressive faces and a bokeh background.",
		fmt.Sprintf("Add bold neon typography referencing the channel %s.", channel),
		"Use vibrant purples and blues with subtle lens flare.",
	}, " ")
}

// fallbackTitleInstruction 用户没有指定风格时的默认要求
func fallbackTitleInstruction(details *entity.VideoDetails) string {
	title, channel := videoLabel(details, "this video")
	if channel == "" {
		channel = "this creator"
	}
	return fmt.Sprintf("Craft an engaging, high-retention title for %q by %s.", title, channel)
}

const titleSystemPrompt = "You are a creative video title generator. Generate unique, original titles with varied vocabulary and fresh angles. " +
	"Each title must be SEO-friendly, engaging, and 100 characters or less. Reply with the title only."

func titlePrompt(videoID string, details *entity.VideoDetails, instructions, seed string) string {
	summary := "Video ID " + videoID
	previous := ""
	if details != nil {
		summary = fmt.Sprintf("Title: %s. Channel: %s. Published: %s. Views: %d.",
			details.Title, details.ChannelTitle, details.PublishedAt.Format("2006-01-02"), details.Views)
		previous = details.Title
	}

	var b strings.Builder
	b.WriteString("Generate ONE concise, SEO-friendly title (100 characters or less).\n")
	b.WriteString("Video context: " + summary + "\n")
	b.WriteString("Variation seed: " + seed + "\n")
	if previous != "" {
		b.WriteString(fmt.Sprintf("Make it different from: %q\n", previous))
	}
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		b.WriteString("User style preference: " + instructions + "\n")
	}
	b.WriteString("Try different formats such as questions, statements or emotional hooks.")
	return b.String()
}

// cleanTitle 去掉模型常见的引号与多余行
func cleanTitle(raw string) string {
	line := strings.TrimSpace(raw)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	line = strings.Trim(line, "\"'`*# ")
	if utf8.RuneCountInString(line) > 100 {
		line = strings.TrimSpace(string([]rune(line)[:100]))
	}
	return line
}
