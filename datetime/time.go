// Package datetime 提供线路时间格式（ISO-8601）的解析与格式化。
package datetime

import (
	"fmt"
	"time"
)

// 线路上的时间戳为 ISO-8601 字符串，可能携带或省略时区与时间部分。
var iso8601Layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseISO8601 解析 ISO-8601 时间字符串。
// 无时区信息的输入按 UTC 处理。
func ParseISO8601(s string) (time.Time, error) {
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp: %q", s)
}

// FormatISO8601 将时间格式化为 ISO-8601 字符串（UTC）。
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
