package xutil

import (
	"os"
	"path/filepath"
)

// FileExist 文件是否存在
func FileExist(filePath string) bool {
	stat, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !stat.IsDir()
}

// DirExist 目录是否存在
func DirExist(filePath string) bool {
	stat, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return stat.IsDir()
}

// ResolvePath 相对路径基于 base 目录解析，绝对路径原样返回
func ResolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}
