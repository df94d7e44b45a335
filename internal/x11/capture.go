package x11

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
)

// ErrNotCapturable is returned when the server refuses to hand out pixels for
// a window (unmapped without a backing pixmap, or an unsupported visual).
var ErrNotCapturable = errors.New("window contents not capturable")

type imageResult struct {
	reply *xproto.GetImageReply
	err   error
}

// CaptureWindow reads the window contents as RGBA. With Composite enabled the
// window's backing pixmap is read, which also works while it is covered.
// The wait for the reply honours ctx; a late reply is discarded.
func (c *Connection) CaptureWindow(ctx context.Context, windowID xproto.Window) (*image.RGBA, error) {
	conn := c.XUtil.Conn()

	geom, err := xproto.GetGeometry(conn, xproto.Drawable(windowID)).Reply()
	if err != nil {
		return nil, fmt.Errorf("get geometry: %w", err)
	}
	if geom.Width == 0 || geom.Height == 0 {
		return nil, ErrNotCapturable
	}

	drawable := xproto.Drawable(windowID)
	if c.Composite {
		if pix, err := xproto.NewPixmapId(conn); err == nil {
			if err := composite.NameWindowPixmapChecked(conn, windowID, pix).Check(); err == nil {
				drawable = xproto.Drawable(pix)
				defer xproto.FreePixmap(conn, pix)
			}
		}
	}

	cookie := xproto.GetImage(conn, xproto.ImageFormatZPixmap, drawable,
		0, 0, geom.Width, geom.Height, 0xffffffff)

	done := make(chan imageResult, 1)
	go func() {
		reply, err := cookie.Reply()
		done <- imageResult{reply: reply, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			if _, ok := res.err.(xproto.MatchError); ok {
				return nil, ErrNotCapturable
			}
			return nil, fmt.Errorf("get image: %w", res.err)
		}
		return zpixmapToRGBA(res.reply.Data, int(geom.Width), int(geom.Height))
	}
}

// zpixmapToRGBA converts 32 bits-per-pixel BGRX scanlines into RGBA.
func zpixmapToRGBA(data []byte, width, height int) (*image.RGBA, error) {
	if len(data) < width*height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrNotCapturable, len(data), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		o := i * 4
		img.Pix[o+0] = data[o+2]
		img.Pix[o+1] = data[o+1]
		img.Pix[o+2] = data[o+0]
		img.Pix[o+3] = 0xff
	}
	return img, nil
}
