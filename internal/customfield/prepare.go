package customfield

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// prepareValue shapes a raw value according to the field's settings.
func prepareValue(v any, fc *FieldConfig) any {
	f := fc.Field
	if f.ReturnFormat == "array" {
		v = projectArray(v)
	}
	if s, ok := v.(string); ok {
		switch f.NewLines {
		case "wpautop":
			v = autop(s)
		case "br":
			v = nl2br(s)
		}
	}
	switch fc.SourceFieldType {
	case "date_picker", "date_time_picker", "time_picker":
		if f.ReturnFormat != "" {
			v = reformatDate(v, fc.SourceFieldType, f.ReturnFormat)
		}
	case "number", "range":
		v = toFloat(v)
	}
	return v
}

// projectArray reduces a list of {value, label} objects to their values.
func projectArray(v any) any {
	items, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			out[i] = it
			continue
		}
		if val, ok := m["value"]; ok {
			out[i] = val
		} else {
			out[i] = m["label"]
		}
	}
	return out
}

func toFloat(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return f
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return nil
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// autop wraps blank-line separated text in paragraphs and turns the
// remaining newlines into line breaks.
func autop(s string) string {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, p := range paragraphBreak.Split(s, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(p, "\n", "<br />\n"))
		b.WriteString("</p>\n")
	}
	return b.String()
}

func nl2br(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br />\n")
}

// storedLayouts are the formats date fields are saved in.
var storedLayouts = map[string][]string{
	"date_picker":      {"20060102", "2006-01-02"},
	"date_time_picker": {"2006-01-02 15:04:05", time.RFC3339},
	"time_picker":      {"15:04:05", "15:04"},
}

// reformatDate parses a stored date and renders it with a PHP-style format.
// Values that do not parse are returned unchanged.
func reformatDate(v any, fieldType, format string) any {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case nil:
		return nil
	default:
		s = fmt.Sprint(x)
	}
	if s == "" {
		return nil
	}
	for _, layout := range storedLayouts[fieldType] {
		t, err := time.Parse(layout, s)
		if err == nil {
			return formatPHP(t, format)
		}
	}
	return v
}

// formatPHP renders t using PHP date() format characters.
func formatPHP(t time.Time, format string) string {
	var b strings.Builder
	escaped := false
	for _, c := range format {
		if escaped {
			b.WriteRune(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case 'd':
			b.WriteString(t.Format("02"))
		case 'D':
			b.WriteString(t.Format("Mon"))
		case 'j':
			b.WriteString(strconv.Itoa(t.Day()))
		case 'l':
			b.WriteString(t.Format("Monday"))
		case 'N':
			wd := int(t.Weekday())
			if wd == 0 {
				wd = 7
			}
			b.WriteString(strconv.Itoa(wd))
		case 'S':
			b.WriteString(ordinalSuffix(t.Day()))
		case 'w':
			b.WriteString(strconv.Itoa(int(t.Weekday())))
		case 'z':
			b.WriteString(strconv.Itoa(t.YearDay() - 1))
		case 'F':
			b.WriteString(t.Format("January"))
		case 'm':
			b.WriteString(t.Format("01"))
		case 'M':
			b.WriteString(t.Format("Jan"))
		case 'n':
			b.WriteString(strconv.Itoa(int(t.Month())))
		case 't':
			b.WriteString(strconv.Itoa(time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()))
		case 'Y':
			b.WriteString(strconv.Itoa(t.Year()))
		case 'y':
			b.WriteString(t.Format("06"))
		case 'a':
			b.WriteString(t.Format("pm"))
		case 'A':
			b.WriteString(t.Format("PM"))
		case 'g':
			b.WriteString(t.Format("3"))
		case 'G':
			b.WriteString(strconv.Itoa(t.Hour()))
		case 'h':
			b.WriteString(t.Format("03"))
		case 'H':
			b.WriteString(t.Format("15"))
		case 'i':
			b.WriteString(t.Format("04"))
		case 's':
			b.WriteString(t.Format("05"))
		case 'T':
			b.WriteString(t.Format("MST"))
		case 'O':
			b.WriteString(t.Format("-0700"))
		case 'P':
			b.WriteString(t.Format("-07:00"))
		case 'U':
			b.WriteString(strconv.FormatInt(t.Unix(), 10))
		case 'c':
			b.WriteString(t.Format("2006-01-02T15:04:05-07:00"))
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
