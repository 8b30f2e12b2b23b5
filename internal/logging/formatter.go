package logging

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// TimestampFormat 是日志行前缀的时间格式。
const TimestampFormat = "2006-01-02 15:04:05"

// LineFormatter 输出 `[timestamp] [SEVERITY] message` 单行格式，
// 附带字段时按 key 排序追加为 ` key=value`，控制台与文件内容完全一致。
type LineFormatter struct{}

// Format 实现 logrus.Formatter。
func (f *LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] [%s] %s", entry.Time.Format(TimestampFormat), SeverityName(entry.Level), entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
