package services

import (
	"regexp"
	"strings"

	"orgchat/internal/models"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

const previewLength = 100

func extractMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, strings.ToLower(m[1]))
	}
	return tokens
}

// isMentioned: any token is a case-insensitive substring of the user's full name or email.
func isMentioned(u *models.User, tokens []string) bool {
	if u == nil || len(tokens) == 0 {
		return false
	}
	name := strings.ToLower(u.FullName())
	email := strings.ToLower(u.Email)
	for _, t := range tokens {
		if strings.Contains(name, t) || strings.Contains(email, t) {
			return true
		}
	}
	return false
}

func preview(content *string) string {
	if content == nil {
		return ""
	}
	r := []rune(*content)
	if len(r) > previewLength {
		r = r[:previewLength]
	}
	return string(r)
}

func personName(u *models.User) string {
	if u == nil {
		return "Someone"
	}
	if n := u.FullName(); n != "" {
		return n
	}
	if u.Email != "" {
		return u.Email
	}
	return "Someone"
}

func groupName(c *models.Chat) string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return "group"
}
