// internal/engine/remote-intent/prompt.go
package remoteintent

import (
	"strings"

	"attendance-chat/pkg/registry"
)

const promptIntro = `You convert user questions about attendance and students into structured JSON. Be strict: only output valid JSON.

IMPORTANT: Prefer attendance/student intents whenever the question mentions: attendance, absent, present, students, section, roll number, who didn't come, who skipped, missing, summary, count, how many, which section, low attendance, days absent, came, attended. Use general_question ONLY when clearly unrelated (e.g. weather, jokes).`

const promptReturnFormat = `Return format (JSON only):
{"intent": "intent_name", "date": "YYYY-MM-DD or null", "section": "Section name or ALL or null", "session": "morning or afternoon or ALL or null", "status": "present or absent or null", "roll_no": "value or null", "student_name": "value or null", "days": number or null}

Date rules: Use YYYY-MM-DD. For "today" use actual today. For "yesterday" use yesterday's date. For "23 Feb" use 2026-02-23 (current year). For "01-02-2026" or "1-2-2026" use that date. For "last Monday" use the most recent Monday. Section: extract names like "ECE A", "ECE", "AIML", "CSE" when user says "in ECE A", "for ECE", etc. Session: "morning attendance" -> morning, "afternoon attendance" -> afternoon. Return JSON only, no explanation.`

// BuildSystemPrompt assembles the classifier instruction text around the
// catalog's intent list.
func BuildSystemPrompt(catalog *registry.IntentCatalog) string {
	return strings.Join([]string{promptIntro, catalog.PromptSection(), promptReturnFormat}, "\n\n")
}
