package logger

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// Reporter contact details and credentials never reach the log output.
var sensitiveFields = map[string]bool{
	"access_token":   true,
	"refresh_token":  true,
	"token":          true,
	"password":       true,
	"phone":          true,
	"contact_number": true,
	"email":          true,
}

func redact(key string, value interface{}) interface{} {
	if !sensitiveFields[key] {
		return value
	}
	s := fmt.Sprint(value)
	if len(s) <= 4 || strings.Contains(key, "token") || key == "password" {
		return "[redacted]"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

type CustomJSONFormatter struct {
	TimestampFormat string
	PrettyPrint     bool
	AppName         string
	Version         string
}

type CustomTextFormatter struct {
	TimestampFormat string
	ForceColors     bool
	DisableColors   bool
	AppName         string
}

func (f *CustomJSONFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	data := make(map[string]interface{}, len(entry.Data)+6)
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		data[k] = redact(k, v)
	}

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = time.RFC3339
	}
	data["timestamp"] = entry.Time.Format(timestampFormat)
	data["level"] = entry.Level.String()
	data["message"] = entry.Message
	if f.AppName != "" {
		data["app"] = f.AppName
	}
	if f.Version != "" {
		data["version"] = f.Version
	}
	if entry.HasCaller() {
		data["caller"] = fmt.Sprintf("%s:%d", entry.Caller.File, entry.Caller.Line)
	}

	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}
	encoder := json.NewEncoder(b)
	if f.PrettyPrint {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to marshal fields to JSON: %w", err)
	}
	return b.Bytes(), nil
}

// Format writes "time [LEVEL] [app] [component] message k=v ...". The
// component field is lifted out of the sorted field list.
func (f *CustomTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = "2006-01-02 15:04:05"
	}

	levelColor, reset := f.colors(entry.Level)
	fmt.Fprintf(b, "%s [%s%s%s] ", entry.Time.Format(timestampFormat), levelColor, strings.ToUpper(entry.Level.String()), reset)

	if f.AppName != "" {
		fmt.Fprintf(b, "[%s] ", f.AppName)
	}
	if component, ok := entry.Data["component"]; ok {
		fmt.Fprintf(b, "[%v] ", component)
	}
	if entry.HasCaller() {
		fmt.Fprintf(b, "[%s:%d] ", entry.Caller.File, entry.Caller.Line)
	}

	b.WriteString(entry.Message)

	fields := make([]string, 0, len(entry.Data))
	for k, v := range entry.Data {
		if k == "component" {
			continue
		}
		fields = append(fields, fmt.Sprintf("%s=%v", k, redact(k, v)))
	}
	if len(fields) > 0 {
		sort.Strings(fields)
		fmt.Fprintf(b, " %s", strings.Join(fields, " "))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *CustomTextFormatter) colors(level logrus.Level) (string, string) {
	if f.DisableColors || !f.ForceColors {
		return "", ""
	}
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return "\033[31m", "\033[0m"
	case logrus.WarnLevel:
		return "\033[33m", "\033[0m"
	case logrus.InfoLevel:
		return "\033[36m", "\033[0m"
	default:
		return "\033[37m", "\033[0m"
	}
}
