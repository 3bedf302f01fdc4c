package observability

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/yuqie6/StudyMirror/internal/dto"
)

var (
	reLogTime  = regexp.MustCompile(`\btime=([^ ]+)`)
	reLogLevel = regexp.MustCompile(`\blevel=([^ ]+)`)
	reLogMsg   = regexp.MustCompile(`\bmsg=("[^"]*"|[^ ]+)`)
)

// ReadRecentErrors 从日志文件尾部读取最近的 WARN/ERROR 行（新的在前）
func ReadRecentErrors(logPath string, limit int) []dto.RecentErrorDTO {
	path := strings.TrimSpace(logPath)
	if path == "" {
		return nil
	}
	lines, err := tailLines(path, 256*1024)
	if err != nil {
		return []dto.RecentErrorDTO{{Message: "读取日志失败: " + err.Error()}}
	}

	if limit <= 0 {
		limit = 20
	}

	out := make([]dto.RecentErrorDTO, 0, limit)
	for i := len(lines) - 1; i >= 0 && len(out) < limit; i-- {
		raw := strings.TrimSpace(lines[i])
		if raw == "" {
			continue
		}
		lower := strings.ToLower(raw)
		if !strings.Contains(lower, "level=error") && !strings.Contains(lower, "level=warn") {
			continue
		}
		out = append(out, parseLogLine(raw))
	}
	return out
}

func parseLogLine(line string) dto.RecentErrorDTO {
	e := dto.RecentErrorDTO{Raw: line, Message: line}
	if m := reLogTime.FindStringSubmatch(line); len(m) == 2 {
		e.Time = m[1]
	}
	if m := reLogLevel.FindStringSubmatch(line); len(m) == 2 {
		e.Level = strings.Trim(m[1], "\"")
	}
	if m := reLogMsg.FindStringSubmatch(line); len(m) == 2 {
		e.Message = strings.Trim(m[1], "\"")
	}
	return e
}

func tailLines(path string, maxBytes int64) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	start := int64(0)
	if size := st.Size(); size > maxBytes {
		start = size - maxBytes
	}
	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			return nil, err
		}
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	s := string(b)
	if start > 0 {
		// 丢弃被截断的首行
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n"), nil
}
