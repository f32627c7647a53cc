package qibot

import (
	"fmt"
	"io"
	"runtime"

	"github.com/tokmz/qibot/pkg/chain"
)

// Version 版本号
const Version = "0.3.0"

// banner ASCII Art
const banner = `
 ██████╗ ██╗██████╗  ██████╗ ████████╗
██╔═══██╗██║██╔══██╗██╔═══██╗╚══██╔══╝   qibot OneBot v11 机器人
██║   ██║██║██████╔╝██║   ██║   ██║      github: https://github.com/tokmz/qibot
██║▄▄ ██║██║██╔══██╗██║   ██║   ██║      connect: %s
╚██████╔╝██║██████╔╝╚██████╔╝   ██║      version: %s
 ╚══▀▀═╝ ╚═╝╚═════╝  ╚═════╝    ╚═╝
`

// printBanner 打印启动 banner 和处理器表
func (b *Bot) printBanner(out io.Writer, unions []*chain.MatchUnion) {
	fPrint(out, banner, b.config.URL, Version)
	fPrint(out, "\n")

	if len(unions) > 0 {
		printUnions(out, unions)
		fPrint(out, "\n")
	}

	fPrint(out, "[qibot] Go version: %s | OS: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fPrint(out, "[qibot] %d plugins, %d handlers\n", len(b.Plugins()), len(unions))
}

// priorityColor 根据优先级返回 ANSI 颜色码
func priorityColor(priority int) string {
	switch {
	case priority > 0:
		return "\033[32m" // 绿色
	case priority < 0:
		return "\033[90m" // 灰色
	default:
		return "\033[34m" // 蓝色
	}
}

const resetColor = "\033[0m"

// printUnions 按执行顺序打印处理器表
func printUnions(out io.Writer, unions []*chain.MatchUnion) {
	// 计算列宽，用于对齐
	maxPlugin, maxDesc := 0, 0
	for _, u := range unions {
		maxPlugin = max(maxPlugin, len(u.Plugin()))
		maxDesc = max(maxDesc, len(u.Description()))
	}

	for _, u := range unions {
		fPrint(out, "[qibot] %s%11d%s %-*s %-*s --> %s\n",
			priorityColor(u.Priority()), u.Priority(), resetColor,
			maxPlugin, u.Plugin(),
			maxDesc, u.Description(),
			u.Matcher())
	}
}

// fPrint 打印到 writer，忽略错误（banner 输出场景）
func fPrint(out io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(out, format, a...)
}
