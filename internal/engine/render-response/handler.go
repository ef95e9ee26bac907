// internal/engine/render-response/handler.go
package renderresponse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	extractentities "attendance-chat/internal/engine/extract-entities"
	"attendance-chat/internal/models"
)

const StageName = "render-response"

// scalarKeys is the fixed ordering of summary-style fields at the top of a
// rendered reply.
var scalarKeys = []string{
	"date", "scope", "period", "section", "total_students", "present", "absent",
	"count", "threshold_percent", "min_absent_days", "attendance_rate_percent",
	"section_most_absent", "absent_count", "total_present", "total_absent",
}

// queryKeyOrder fixes the field order when the echoed query is a map.
var queryKeyOrder = []string{"roll_no", "student_name"}

// Render converts a QueryResult into deterministic structured text with bold
// labels, markdown tables for breakdowns and numbered lists for flat student
// rows. It needs no network and always produces something readable; an error
// result renders as a single error line.
func Render(result models.QueryResult, now time.Time) string {
	if result == nil {
		return dumpJSON(result, 1500)
	}
	if msg, ok := result["error"]; ok && truthy(msg) {
		return "**Error:** " + pyStr(msg)
	}

	lines := make([]string, 0, 16)
	todayStr := now.Format(extractentities.DateLayout)

	for _, key := range scalarKeys {
		val, ok := result[key]
		if !ok || val == nil {
			continue
		}
		label := titleCase(key)
		if key == "date" {
			if s, isStr := val.(string); isStr {
				t := strings.TrimSpace(s)
				if strings.EqualFold(t, "today") || t == todayStr {
					val = todayStr
				}
			}
		}
		if key == "attendance_rate_percent" {
			label = "Attendance rate (%)"
		}
		lines = append(lines, fmt.Sprintf("**%s:** %s", label, pyStr(val)))
	}

	query, hasQuery := result["query"]
	found, hasFound := result["found"]
	if hasQuery && hasFound {
		q := pyStr(query)
		if m, isMap := query.(map[string]interface{}); isMap {
			q = joinQuery(m)
		}
		yesNo := "No"
		if truthy(found) {
			yesNo = "Yes"
		}
		lines = append(lines, fmt.Sprintf("**Query:** %s | **Found:** %s", q, yesNo))
	}

	if msg, ok := result["message"]; ok && truthy(msg) {
		lines = append(lines, pyStr(msg))
	}

	if rows := rowList(result["by_section"]); len(rows) > 0 {
		lines = append(lines, "\n**By section (absent count):**")
		lines = append(lines, "| Section | Absent |")
		lines = append(lines, "| --- | --- |")
		for _, row := range rows[:min(len(rows), 15)] {
			lines = append(lines, fmt.Sprintf("| %s | %s |", pyStr(row["section"]), pyStrOr(row["absent"], "0")))
		}
	}

	if rows := rowList(result["by_day"]); len(rows) > 0 {
		lines = append(lines, "\n**By day:**")
		lines = append(lines, "| Date | Present | Absent |")
		lines = append(lines, "| --- | --- | --- |")
		for _, row := range rows[:min(len(rows), 10)] {
			lines = append(lines, fmt.Sprintf("| %s | %s | %s |",
				pyStr(row["date"]), pyStrOr(row["present"], "0"), pyStrOr(row["absent"], "0")))
		}
	}

	for _, listKey := range []string{"students", "list", "by_section_session"} {
		items := rowList(result[listKey])
		if len(items) == 0 {
			continue
		}
		label := titleCase(listKey)

		if listKey == "by_section_session" {
			lines = append(lines, "\n**By section / session:**")
			for _, row := range items[:min(len(items), 15)] {
				lines = append(lines, fmt.Sprintf("  • %s — %s: Present %s, Absent %s",
					pyStr(row["section"]), pyStr(row["session"]),
					pyStrOr(row["present"], "0"), pyStrOr(row["absent"], "0")))
			}
			continue
		}

		showAsTable := hasKey(items[0], "roll_no") && hasKey(items[0], "name")
		statusToday := anyHasKey(items, 3, "status_today")

		switch {
		case showAsTable && statusToday:
			lines = append(lines, fmt.Sprintf("\n**%s (table):**", label))
			lines = append(lines, "| Roll No | Name | Section | Status (today) |")
			lines = append(lines, "| --- | --- | --- | --- |")
			for _, s := range items[:min(len(items), 50)] {
				lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s |",
					pyStr(s["roll_no"]), pyStr(s["name"]), pyStr(s["section_name"]), pyStr(s["status_today"])))
			}
		case showAsTable && (anyHasKey(items, 3, "section_name") || anyHasKey(items, 3, "session")):
			lines = append(lines, fmt.Sprintf("\n**%s**", label))
			lines = append(lines, "| Name | Roll No | Session absent (morning/afternoon) |")
			lines = append(lines, "| --- | --- | --- |")
			for _, s := range items[:min(len(items), 50)] {
				sess := pyStr(s["session"])
				if sess == "" {
					sess = "—"
				}
				lines = append(lines, fmt.Sprintf("| %s | %s | %s |", pyStr(s["name"]), pyStr(s["roll_no"]), sess))
			}
		default:
			lines = append(lines, fmt.Sprintf("\n**%s:**", label))
			for i, s := range items[:min(len(items), 25)] {
				switch {
				case hasKey(s, "name") && hasKey(s, "roll_no"):
					line := fmt.Sprintf("  %d. %s (%s)", i+1, pyStr(s["name"]), pyStr(s["roll_no"]))
					if truthy(s["section_name"]) {
						line += " — " + pyStr(s["section_name"])
					}
					if truthy(s["session"]) {
						line += " — " + pyStr(s["session"])
					}
					if rate, ok := s["rate"]; ok && rate != nil {
						line += fmt.Sprintf(" — %.0f%% attendance", toFloat(rate)*100)
					}
					if days, ok := s["absent_days"]; ok {
						line += fmt.Sprintf(" — %s days absent", pyStr(days))
					}
					lines = append(lines, line)
				case hasKey(s, "name") && hasKey(s, "section"):
					lines = append(lines, fmt.Sprintf("  %d. %s (%s) — %s",
						i+1, pyStr(s["name"]), pyStr(s["roll_no"]), pyStr(s["section"])))
				default:
					lines = append(lines, fmt.Sprintf("  %d. %s", i+1, truncate(dumpCompact(s), 80)))
				}
			}
		}
	}

	if truthy(result["truncated"]) {
		lines = append(lines, "\n(Showing first entries only.)")
	}

	if len(lines) == 0 {
		return dumpJSON(result, 1500)
	}
	return strings.Join(lines, "\n")
}

// rowList narrows a result value to a list of row maps.
func rowList(v interface{}) []map[string]interface{} {
	rows, _ := v.([]map[string]interface{})
	return rows
}

func hasKey(row map[string]interface{}, key string) bool {
	_, ok := row[key]
	return ok
}

// anyHasKey reports whether any of the first n rows carries the key.
func anyHasKey(rows []map[string]interface{}, n int, key string) bool {
	for _, row := range rows[:min(len(rows), n)] {
		if hasKey(row, key) {
			return true
		}
	}
	return false
}

// truthy mirrors the loose emptiness test rendering decisions hinge on:
// nil, empty strings, zero numbers and false are all falsy.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// pyStr renders a scalar the way the reply text expects: integral floats
// keep a trailing ".0", everything else prints plainly.
func pyStr(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case bool:
		if t {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// pyStrOr is pyStr with a fallback for missing values.
func pyStrOr(v interface{}, fallback string) string {
	if v == nil {
		return fallback
	}
	return pyStr(v)
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	}
	return 0
}

// joinQuery renders a query map as "k=v" pairs joined with " | ", skipping
// empty values, in a fixed key order.
func joinQuery(m map[string]interface{}) string {
	parts := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range queryKeyOrder {
		if v, ok := m[k]; ok {
			seen[k] = true
			if truthy(v) {
				parts = append(parts, fmt.Sprintf("%s=%s", k, pyStr(v)))
			}
		}
	}
	rest := make([]string, 0)
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if truthy(m[k]) {
			parts = append(parts, fmt.Sprintf("%s=%s", k, pyStr(m[k])))
		}
	}
	return strings.Join(parts, " | ")
}

// titleCase maps a snake_case key to a display label.
func titleCase(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func dumpJSON(v interface{}, capRunes int) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return truncate(string(data), capRunes)
}

func dumpCompact(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func truncate(s string, capRunes int) string {
	runes := []rune(s)
	if len(runes) <= capRunes {
		return s
	}
	return string(runes[:capRunes])
}
