package capture

import (
	"bytes"
	"encoding/base64"
	"image"

	"github.com/disintegration/imaging"

	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xerror"
)

const pngDataURLPrefix = "data:image/png;base64,"

// FrameImage 前端可直接展示的帧图像
type FrameImage struct {
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// EncodePNG 帧编码为 PNG，region 为帧坐标系下的裁剪区域
func EncodePNG(f *vision.Frame, region *vision.Rect) ([]byte, int, int, error) {
	var img image.Image = f.Image
	if region != nil {
		r := region.ToImage().Intersect(f.Image.Bounds())
		if r.Empty() {
			return nil, 0, 0, xerror.Config("capture", "encode", "region %+v outside frame %dx%d", *region, f.Width(), f.Height())
		}
		img = imaging.Crop(f.Image, r)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, 0, 0, xerror.Newf("capture", "encode", "encode png failed, err=[%v]", err)
	}
	b := img.Bounds()
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}

// EncodeDataURL data:image/png;base64,...
func EncodeDataURL(f *vision.Frame, region *vision.Rect) (*FrameImage, error) {
	data, w, h, err := EncodePNG(f, region)
	if err != nil {
		return nil, err
	}
	return &FrameImage{Image: pngDataURLPrefix + base64.StdEncoding.EncodeToString(data), Width: w, Height: h}, nil
}
