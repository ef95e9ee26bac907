// internal/engine/normalize-params/handler.go
package normalizeparams

import (
	"strconv"
	"strings"
	"time"

	extractentities "attendance-chat/internal/engine/extract-entities"
	"attendance-chat/internal/models"
)

const StageName = "normalize-params"

// Normalize reconciles a classified ParameterSet with the raw question and
// fills the remaining gaps with defaults. The question text outranks the
// classifier: an explicit "today"/"yesterday"/date cue in the text wins over
// whatever date the classifier proposed, and a proposed date from an earlier
// year is discarded when the text gives no date cue at all.
func Normalize(params models.ParameterSet, question string, now time.Time) models.ParameterSet {
	out := params
	out.Intent = models.ParseIntent(string(params.Intent))

	qLower := strings.ToLower(question)
	mentioned := extractentities.DateMentioned(question)
	listLike := out.Intent == models.IntentAttendanceList || out.Intent == models.IntentAttendanceSummary

	switch {
	case listLike && !mentioned:
		out.Date = ""
	case strings.Contains(qLower, "today"):
		out.Date = ""
	case strings.Contains(qLower, "yesterday"):
		out.Date = now.AddDate(0, 0, -1).Format(extractentities.DateLayout)
	case mentioned:
		if extracted := extractentities.ParseDate(question, now); extracted != "" {
			out.Date = extracted
		}
	}

	if !mentioned && len(out.Date) >= 4 {
		if year, err := strconv.Atoi(out.Date[:4]); err == nil && year < now.Year() {
			out.Date = ""
		}
	}

	out = applyDefaults(out, now)

	if out.Intent == models.IntentAttendanceList && models.IsNullish(out.Status) {
		out.Status = models.StatusAbsent
	}

	return out
}

// applyDefaults resolves placeholder values: null/"today" dates become the
// current date, "yesterday" the day before, and empty section/session the
// ALL sentinel.
func applyDefaults(params models.ParameterSet, now time.Time) models.ParameterSet {
	out := params

	switch strings.ToLower(strings.TrimSpace(out.Date)) {
	case "", "null", "today":
		out.Date = now.Format(extractentities.DateLayout)
	case "yesterday":
		out.Date = now.AddDate(0, 0, -1).Format(extractentities.DateLayout)
	}

	if models.IsNullish(out.Section) {
		out.Section = models.ScopeAll
	}
	if models.IsNullish(out.Session) {
		out.Session = models.ScopeAll
	}

	return out
}
