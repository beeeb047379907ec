package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// Fit rescales res to exactly width x height when its pixel size differs.
// Results without dimensions or undecodable data are returned unchanged.
func Fit(res *Result, width, height int) (*Result, error) {
	if res == nil || width <= 0 || height <= 0 {
		return res, nil
	}
	src, format, err := stdimage.Decode(bytes.NewReader(res.Data))
	if err != nil {
		return res, nil
	}
	bounds := src.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return res, nil
	}

	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	mime := "image/png"
	if format == "jpeg" {
		mime = "image/jpeg"
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	} else {
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}

	out := *res
	out.Data = buf.Bytes()
	out.MIME = mime
	out.Width = width
	out.Height = height
	return &out, nil
}
