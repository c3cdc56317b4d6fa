package action

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xutil"
)

// Xdotool 通过 xdotool 命令行向 X11 注入输入，Display 为空时继承进程环境
type Xdotool struct {
	Bin     string
	Display string
}

func NewXdotool(bin, display string) *Xdotool {
	return &Xdotool{Bin: xutil.GetOrDefault(bin, "xdotool"), Display: display}
}

// Run 执行一条 xdotool 子命令并返回去掉首尾空白的标准输出
func (x *Xdotool) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, x.Bin, args...)
	if x.Display != "" {
		cmd.Env = append(os.Environ(), "DISPLAY="+x.Display)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", xerror.Wrap(xerror.KindCancelled, "action", "xdotool", ctx.Err())
		}
		return "", fmt.Errorf("xdotool %s failed, stderr=[%s], err=[%v]", strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (x *Xdotool) MoveTo(ctx context.Context, p image.Point) error {
	_, err := x.Run(ctx, "mousemove", "--sync", strconv.Itoa(p.X), strconv.Itoa(p.Y))
	return err
}

func (x *Xdotool) MouseDown(ctx context.Context) error {
	_, err := x.Run(ctx, "mousedown", "1")
	return err
}

func (x *Xdotool) MouseUp(ctx context.Context) error {
	_, err := x.Run(ctx, "mouseup", "1")
	return err
}

func (x *Xdotool) TypeText(ctx context.Context, text string) error {
	_, err := x.Run(ctx, "type", "--delay", "12", "--", text)
	return err
}

// ScreenSize 解析 getdisplaygeometry 输出 "1920 1080"
func (x *Xdotool) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := x.Run(ctx, "getdisplaygeometry")
	if err != nil {
		return 0, 0, err
	}
	return parseGeometry(out)
}

func parseGeometry(out string) (int, int, error) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected geometry output [%s]", out)
	}
	w, err1 := strconv.Atoi(fields[0])
	h, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("unexpected geometry output [%s]", out)
	}
	return w, h, nil
}
