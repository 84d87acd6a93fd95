package util

import (
	"fmt"
	"regexp"
	"strconv"
)

// IdentifierWidth 编号数字部分的最小位数
const IdentifierWidth = 3

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// NextIdentifier 根据当前最大编号生成下一个编号，例如 ("ALRT", "ALRT041") -> "ALRT042"。
// current 为空或尾部无法解析为数字时从 1 开始。
func NextIdentifier(prefix, current string) string {
	return FormatIdentifier(prefix, IdentifierSeq(current)+1)
}

// IdentifierSeq 提取编号尾部的序号，无法解析时返回 0
func IdentifierSeq(id string) int64 {
	m := trailingDigits.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatIdentifier 渲染编号，数字部分补零到 IdentifierWidth 位
func FormatIdentifier(prefix string, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, IdentifierWidth, seq)
}
