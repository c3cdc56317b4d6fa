package vision

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/xiaoshicae/xvision/xcache"
	"github.com/xiaoshicae/xvision/xerror"
)

// Template 解码后的模板灰度图
type Template struct {
	Name  string
	plane *grayPlane
}

func (t *Template) Width() int  { return t.plane.w }
func (t *Template) Height() int { return t.plane.h }

// TemplateFromImage 直接由内存图片构造模板
func TemplateFromImage(name string, img image.Image) *Template {
	return &Template{Name: name, plane: grayOfImage(img)}
}

// TemplateStore 模板加载器，按 路径+修改时间 缓存解码结果，文件变化后自动失效
type TemplateStore struct {
	cache *xcache.TypedCache[*Template]
}

// NewTemplateStore cache 为 nil 时使用全局 xcache
func NewTemplateStore(cache *xcache.Cache) *TemplateStore {
	return &TemplateStore{cache: xcache.Of[*Template](cache)}
}

// Load 加载模板，文件不存在或无法解码为配置错误
func (s *TemplateStore) Load(path string) (*Template, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return nil, xerror.Config("vision", "loadTemplate", "template [%s] not found", path)
	}

	key := fmt.Sprintf("tpl:%s:%d", abs, info.ModTime().UnixNano())
	return s.cache.GetOrLoad(key, func() (*Template, int64, error) {
		img, err := imaging.Open(abs)
		if err != nil {
			return nil, 0, xerror.Config("vision", "loadTemplate", "decode template [%s] failed, err=[%v]", path, err)
		}
		if img.Bounds().Empty() {
			return nil, 0, xerror.Config("vision", "loadTemplate", "template [%s] is empty", path)
		}
		t := TemplateFromImage(path, img)
		return t, int64(len(t.plane.pix) * 8), nil
	})
}
