// internal/engine/classify-intent/handler.go
package classifyintent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	extractentities "attendance-chat/internal/engine/extract-entities"
	"attendance-chat/internal/models"
)

const StageName = "classify-intent"

var typoFolds = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`\babscent\b`), "absent"},
	{regexp.MustCompile(`\babsente?\b`), "absent"},
	{regexp.MustCompile(`\babsentees?\b`), "absent"},
	{regexp.MustCompile(`\bskipped\b`), "absent"},
	{regexp.MustCompile(`\bmissing\b`), "absent"},
	{regexp.MustCompile(`\bcame\b`), "present"},
	{regexp.MustCompile(`\battended\b`), "present"},
}

var (
	rollTokenRe    = regexp.MustCompile(`(?i)\b(\d+|[a-z0-9]{2,10})\b`)
	findStudentRe  = regexp.MustCompile(`(?i)(?:find|show)\s+student\s+(\w+)`)
	moreThanDaysRe = regexp.MustCompile(`more than\s*(\d+)`)
	// Word-bounded so "today" and "yesterday" do not read as "day".
	dayWordRe     = regexp.MustCompile(`\bdays?\b`)
	dayMonthCueRe = regexp.MustCompile(`(?i)\d{1,2}\s*(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
)

var sectionLookupStopwords = map[string]bool{
	"which": true, "section": true, "is": true, "in": true,
	"the": true, "a": true, "an": true,
}

// Normalize lower-cases the question and folds common typos and
// conversational synonyms into the engine's vocabulary, so "abscent",
// "skipped", and "came" classify the same as "absent" and "present".
func Normalize(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, f := range typoFolds {
		q = f.re.ReplaceAllString(q, f.with)
	}
	return q
}

// Classify maps a question onto an intent and parameter draft using a
// strict keyword cascade. The branch order matters: narrow multi-keyword
// rules run before the broad attendance_list catch-all, otherwise summary,
// count, and list questions would land there. Works entirely offline and
// never fails; anything unmatched becomes general_question.
func Classify(question string, now time.Time) models.ParameterSet {
	q := Normalize(question)
	today := now.Format(extractentities.DateLayout)
	parsedDate := extractentities.ParseDate(question, now)
	if parsedDate == "" {
		parsedDate = today
	}
	section := extractentities.ExtractSection(question)

	out := models.ParameterSet{
		Intent:  models.IntentGeneralQuestion,
		Date:    parsedDate,
		Section: sectionOrAll(section),
		Session: models.ScopeAll,
	}

	if strings.Contains(q, "which section") && strings.Contains(q, "most absent") {
		out.Intent = models.IntentSectionMostAbsent
		out.Date = today
		return out
	}

	if strings.Contains(q, "this week") || strings.Contains(q, "last week") ||
		(strings.Contains(q, "attendance") && strings.Contains(q, "week")) {
		out.Intent = models.IntentAttendanceWeek
		return out
	}

	if strings.Contains(q, "which section") && (strings.Contains(q, " in") || strings.Contains(q, " is ")) {
		out.Intent = models.IntentSectionLookup
		for _, w := range strings.Fields(strings.ReplaceAll(q, "?", "")) {
			if !sectionLookupStopwords[w] && len(w) > 1 {
				out.StudentName = w
				break
			}
		}
		return out
	}

	if strings.Contains(q, "find student") || strings.Contains(q, "show student") ||
		(strings.Contains(q, "details") && strings.Contains(q, "roll")) {
		out.Intent = models.IntentStudentLookup
		if strings.Contains(q, "roll") && (strings.Contains(q, "number") || strings.Contains(q, "no")) {
			if m := rollTokenRe.FindStringSubmatch(question); m != nil {
				out.RollNo = m[1]
			}
		} else if m := findStudentRe.FindStringSubmatch(question); m != nil {
			out.StudentName = strings.TrimSpace(m[1])
		}
		out.Date = today
		return out
	}

	if strings.Contains(q, "roll") && (strings.Contains(q, "number") || strings.Contains(q, "no") || strings.Contains(q, "details")) {
		out.Intent = models.IntentStudentLookup
		if m := rollTokenRe.FindStringSubmatch(question); m != nil {
			out.RollNo = m[1]
		}
		out.Date = today
		return out
	}

	if strings.Contains(q, "how many students") {
		out.Intent = models.IntentCountStudents
		out.Section = sectionOrAll(section)
		out.Date = today
		return out
	}

	if strings.Contains(q, "total students") || strings.Contains(q, "number of students") {
		out.Intent = models.IntentCountStudents
		out.Section = sectionOrAll(section)
		return out
	}

	if strings.Contains(q, "absent") && (dayWordRe.MatchString(q) || strings.Contains(q, "more than")) {
		out.Intent = models.IntentAbsentMoreThan
		out.Date = today
		out.Days = 3
		if m := moreThanDaysRe.FindStringSubmatch(q); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				out.Days = n
			}
		}
		return out
	}

	if strings.Contains(q, "low attendance") || strings.Contains(q, "below 75") {
		out.Intent = models.IntentLowAttendance
		out.Date = today
		return out
	}

	if strings.Contains(q, "summary") || strings.Contains(q, "overall") || strings.Contains(q, "whole school") ||
		(strings.Contains(q, "how many") && (strings.Contains(q, "absent") || strings.Contains(q, "came") || strings.Contains(q, "present"))) ||
		strings.Contains(q, "attendance rate") {
		out.Intent = models.IntentAttendanceSummary
		out.Date = parsedDate
		out.Section = sectionOrAll(section)
		out.Session = sessionFrom(q)
		return out
	}

	if strings.Contains(q, "list") && strings.Contains(q, "student") {
		out.Intent = models.IntentStudentList
		out.Section = sectionOrAll(section)
		out.Date = today
		return out
	}
	if strings.Contains(q, "students") && strings.Contains(q, "in ") && section != "" {
		out.Intent = models.IntentStudentList
		out.Section = section
		out.Date = today
		return out
	}

	if strings.Contains(q, "absent") || strings.Contains(q, "present") ||
		(strings.Contains(q, "who") && (strings.Contains(q, "didn't") || strings.Contains(q, "did not") || strings.Contains(q, "come") || strings.Contains(q, "skip"))) ||
		strings.Contains(q, "missing") ||
		(strings.Contains(q, "attendance") && (strings.Contains(q, "today") || strings.Contains(q, "yesterday") || dayMonthCueRe.MatchString(q))) {
		out.Intent = models.IntentAttendanceList
		out.Date = parsedDate
		out.Section = sectionOrAll(section)
		out.Session = sessionFrom(q)
		if strings.Contains(q, "absent") || strings.Contains(q, "didn't") || strings.Contains(q, "did not") ||
			strings.Contains(q, "skip") || strings.Contains(q, "missing") {
			out.Status = models.StatusAbsent
		} else {
			out.Status = models.StatusPresent
		}
		return out
	}

	return out
}

func sectionOrAll(section string) string {
	if section == "" {
		return models.ScopeAll
	}
	return section
}

func sessionFrom(q string) string {
	if strings.Contains(q, "morning") && !strings.Contains(q, "afternoon") {
		return models.SessionMorning
	}
	if strings.Contains(q, "afternoon") {
		return models.SessionAfternoon
	}
	return models.ScopeAll
}
