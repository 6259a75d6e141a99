package main

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"math"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/icza/mjpeg"
	"golang.org/x/time/rate"
)

const videoJPEGQuality = 90

// ExportVideo reads the persisted frames 0..numFrames-1 back from store and
// writes them, in order, into a Motion-JPEG AVI at the rounded target rate.
// It returns the path of the video.
func ExportVideo(store *FileStore, numFrames int, fps float64, bounds image.Rectangle, progress io.Writer) (string, error) {
	path := filepath.Join(store.Dir, store.Series+".avi")
	rateHz := int32(math.Round(fps))
	if rateHz < 1 {
		rateHz = 1
	}
	aw, err := mjpeg.New(path, int32(bounds.Dx()), int32(bounds.Dy()), rateHz)
	if err != nil {
		return "", fmt.Errorf("create video %s: %w", path, err)
	}

	dots := &rate.Sometimes{Every: progressEvery}
	var buf bytes.Buffer
	for id := 0; id < numFrames; id++ {
		img, err := imaging.Open(store.Path(id))
		if err != nil {
			aw.Close()
			return "", fmt.Errorf("read frame %d: %w", id, err)
		}
		buf.Reset()
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(videoJPEGQuality)); err != nil {
			aw.Close()
			return "", fmt.Errorf("encode frame %d: %w", id, err)
		}
		if err := aw.AddFrame(buf.Bytes()); err != nil {
			aw.Close()
			return "", fmt.Errorf("add frame %d: %w", id, err)
		}
		dots.Do(func() { dot(progress) })
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("finish video %s: %w", path, err)
	}
	return path, nil
}
