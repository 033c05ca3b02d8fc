package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// Clipboard implements clipboard_get/clipboard_update. Text and raw
// bytes are exchanged with the OS clipboard via the same shell-tool
// pattern display.go uses; image payloads are validated through real PNG
// and BMP decoders before they touch the clipboard.
type Clipboard struct {
	Log *logrus.Entry
}

func (h *Clipboard) HandleGeneric(_ context.Context, msg protocol.Message, req *protocol.Generic) *protocol.Generic {
	switch req.Op {
	case protocol.OpClipboardGet:
		return h.get(req)
	case protocol.OpClipboardUpdate:
		return h.update(req)
	}
	return nil
}

func (h *Clipboard) get(req *protocol.Generic) *protocol.Generic {
	data, mimeType, err := readClipboard()
	if err != nil {
		return &protocol.Generic{Op: protocol.OpClipboardGet, Error: err.Error()}
	}
	return &protocol.Generic{
		Op:      protocol.OpClipboardGet,
		Success: true,
		Fields: map[string]string{
			"mime_type": mimeType,
			"data":      string(data),
		},
	}
}

func (h *Clipboard) update(req *protocol.Generic) *protocol.Generic {
	clipType := req.Fields["type"]
	data := []byte(req.Fields["data"])
	mimeType := req.Fields["mime_type"]

	if clipType == "image" {
		if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
			return &protocol.Generic{Op: protocol.OpClipboardUpdate, Error: fmt.Sprintf("invalid image data: %v", err)}
		}
	}

	if err := writeClipboard(data, mimeType, clipType); err != nil {
		return &protocol.Generic{Op: protocol.OpClipboardUpdate, Error: err.Error()}
	}
	return &protocol.Generic{Op: protocol.OpClipboardUpdate, Success: true}
}
