package services

import (
	"golang.org/x/text/language"

	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/trigger"
)

// Notification bodies are Japanese unless the deployment asks for English.
var (
	supportedLocales = []language.Tag{language.Japanese, language.English}
	localeMatcher    = language.NewMatcher(supportedLocales)
)

type bodyKey struct {
	status trigger.Status
	kind   models.PostKind
}

var notificationBodies = map[language.Tag]map[bodyKey]string{
	language.Japanese: {
		{trigger.StatusCreate, models.PostKindEvent}: "新しい予定が登録されました",
		{trigger.StatusCreate, models.PostKindMail}:  "新しい連絡が投稿されました",
		{trigger.StatusUpdate, models.PostKindEvent}: "予定が更新されました",
		{trigger.StatusUpdate, models.PostKindMail}:  "連絡が更新されました",
	},
	language.English: {
		{trigger.StatusCreate, models.PostKindEvent}: "A new event was added",
		{trigger.StatusCreate, models.PostKindMail}:  "A new message was posted",
		{trigger.StatusUpdate, models.PostKindEvent}: "An event was updated",
		{trigger.StatusUpdate, models.PostKindMail}:  "A message was updated",
	},
}

// ParseLocale picks the supported locale closest to s. Unknown or
// malformed values fall back to Japanese.
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return supportedLocales[0]
	}
	_, idx, conf := localeMatcher.Match(tag)
	if conf == language.No {
		return supportedLocales[0]
	}
	return supportedLocales[idx]
}

// NotificationBody returns the body text for a write, or "" when the write
// does not notify (deletes).
func NotificationBody(status trigger.Status, kind models.PostKind, locale language.Tag) string {
	bodies, ok := notificationBodies[locale]
	if !ok {
		bodies = notificationBodies[supportedLocales[0]]
	}
	return bodies[bodyKey{status, kind}]
}
