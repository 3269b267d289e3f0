package util

import (
	"time"
)

const DayLayout = "2006-01-02"

// ParseDayRange 将 yyyy-mm-dd 形式的起止日期解析为 [from, to] 闭区间，to 取当天最后一刻；
// 空字符串表示不限
func ParseDayRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.ParseInLocation(DayLayout, from, time.UTC); err != nil {
			return start, end, err
		}
	}
	if to != "" {
		if end, err = time.ParseInLocation(DayLayout, to, time.UTC); err != nil {
			return start, end, err
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, nil
}

// PtrUint64 用于将 uint64 转换为 *uint64
func PtrUint64(i uint64) *uint64 {
	return &i
}
