package risk

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeRange 一个允许交易的时间段 [start, end)，以当天分钟数表示
type TimeRange struct {
	StartMinute int
	EndMinute   int
}

// TimeRules 周几 -> 允许交易的时间段列表。
// 周几编号：0=周一 ... 6=周日（与配置文件保持一致）。
type TimeRules map[int][]TimeRange

// ParseTimeRules 解析配置中的时间规则。
// 配置格式：{"0": ["09:00-11:30", "13:00-15:00"], ...}
func ParseTimeRules(raw map[string][]string) (TimeRules, error) {
	rules := make(TimeRules)
	for dayStr, ranges := range raw {
		day, err := strconv.Atoi(dayStr)
		if err != nil || day < 0 || day > 6 {
			return nil, fmt.Errorf("无效的周几编号: %q（应为0-6，0=周一）", dayStr)
		}

		for _, rangeStr := range ranges {
			tr, err := parseTimeRange(rangeStr)
			if err != nil {
				return nil, fmt.Errorf("解析时间段 %q 失败: %w", rangeStr, err)
			}
			rules[day] = append(rules[day], tr)
		}
	}
	return rules, nil
}

func parseTimeRange(s string) (TimeRange, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("格式应为 HH:MM-HH:MM")
	}

	start, err := parseMinute(strings.TrimSpace(parts[0]))
	if err != nil {
		return TimeRange{}, err
	}
	end, err := parseMinute(strings.TrimSpace(parts[1]))
	if err != nil {
		return TimeRange{}, err
	}
	if start >= end {
		return TimeRange{}, fmt.Errorf("开始时间必须早于结束时间")
	}
	return TimeRange{StartMinute: start, EndMinute: end}, nil
}

func parseMinute(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("时间格式应为 HH:MM")
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("无效的小时: %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("无效的分钟: %q", parts[1])
	}
	return hour*60 + minute, nil
}

// Allowed 判断给定时刻是否在允许交易的时间段内。
// 该周几没有配置任何时间段时视为全天禁止交易。
func (tr TimeRules) Allowed(now time.Time) bool {
	// Go的Weekday以周日为0，转换为周一为0的编号
	day := (int(now.Weekday()) + 6) % 7
	minute := now.Hour()*60 + now.Minute()

	for _, r := range tr[day] {
		if minute >= r.StartMinute && minute < r.EndMinute {
			return true
		}
	}
	return false
}
