package xgin

import (
	"fmt"

	"github.com/xiaoshicae/xvision/xconfig"
)

// PrintBanner 控制面启动时打印
func PrintBanner(addr string) {
	fmt.Println(bannerTxt)
	coloredName := fmt.Sprintf("\x1b[32m%s\x1b[0m", ":: XVision Control ::")
	fmt.Printf("   %s   (%s) listen on %s\n\n", coloredName, xconfig.GetServerVersion(), addr)
}

var bannerTxt = `
 __  ____     ___     _
 \ \/ /\ \   / (_)___(_) ___  _ __
  \  /  \ \ / /| / __| |/ _ \| '_ \
  /  \   \ V / | \__ \ | (_) | | | |
 /_/\_\   \_/  |_|___/_|\___/|_| |_|`
