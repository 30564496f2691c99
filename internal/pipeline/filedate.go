package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	filenamePrefix = "未月活-"
	filenameSuffix = ".xlsx"
)

// DateFromFilename derives the data-date label from an upload's filename.
// Filenames look like "未月活-0427.xlsx"; the four digits between prefix and
// suffix are MMDD and become "4月27日". An extra leading "-" before the digits
// is tolerated. The second return is false when the filename carries no
// usable date; that is not an error and ingestion proceeds without updating
// the stored label.
func DateFromFilename(name string) (string, bool) {
	if !strings.HasPrefix(name, filenamePrefix) || !strings.HasSuffix(name, filenameSuffix) {
		return "", false
	}

	dateStr := name[len(filenamePrefix) : len(name)-len(filenameSuffix)]
	dateStr = strings.TrimPrefix(dateStr, "-")
	if len(dateStr) != 4 {
		return "", false
	}

	month, err := strconv.Atoi(dateStr[:2])
	if err != nil {
		return "", false
	}
	day, err := strconv.Atoi(dateStr[2:])
	if err != nil {
		return "", false
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}

	return fmt.Sprintf("%d月%d日", month, day), true
}
