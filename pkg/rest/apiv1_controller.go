package rest

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/smtpsink/smtpsink/pkg/sanitize"
	"github.com/smtpsink/smtpsink/pkg/server/web"
)

// MessageListV1 renders all captured messages, newest first.
func MessageListV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	return web.RenderJSON(w, ctx.Store.All())
}

// MessageShowV1 renders a single captured message.
func MessageShowV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	msg := ctx.Store.Get(ctx.Vars["id"])
	if msg == nil {
		http.NotFound(w, req)
		return nil
	}
	return web.RenderJSON(w, msg)
}

// MessageSourceV1 displays the raw source of a message, including headers.
// Renders text/plain.
func MessageSourceV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	msg := ctx.Store.Get(ctx.Vars["id"])
	if msg == nil {
		http.NotFound(w, req)
		return nil
	}
	w.Header().Set("Content-Type", "text/plain")
	_, err := w.Write([]byte(msg.RawMessage))
	return err
}

// MessageHTMLV1 renders a sanitized HTML view of the message body.
func MessageHTMLV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	msg := ctx.Store.Get(ctx.Vars["id"])
	if msg == nil {
		http.NotFound(w, req)
		return nil
	}
	safe, err := sanitize.HTML(msg.Body)
	if err != nil {
		return fmt.Errorf("sanitizing message %q: %v", msg.ID, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = w.Write([]byte(safe))
	return err
}

// AttachmentDownloadV1 serves one attachment's decoded bytes.  Both the
// owning message ID and the attachment ID must match.
func AttachmentDownloadV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	att := ctx.Store.Attachment(ctx.Vars["id"], ctx.Vars["attachmentID"])
	if att == nil {
		http.NotFound(w, req)
		return nil
	}
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+sanitizeFileName(att.FileName)+`"`)
	w.Header().Set("Content-Type", mediaType(att.ContentType))
	w.Header().Set("Content-Length", strconv.FormatInt(att.Size, 10))
	_, err := w.Write(att.Data)
	return err
}

// MessageDeleteV1 removes a particular message.  Responds 404 when the ID is
// unknown, since the store's Remove is a silent no-op.
func MessageDeleteV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	id := ctx.Vars["id"]
	if ctx.Store.Get(id) == nil {
		http.NotFound(w, req)
		return nil
	}
	ctx.Store.Remove(id)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// MessagePurgeV1 deletes all captured messages.
func MessagePurgeV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	ctx.Store.Clear()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// mediaType validates the declared content type for the download response,
// falling back to octet-stream when it is empty or unparseable.
func mediaType(declared string) string {
	if strings.TrimSpace(declared) == "" {
		return "application/octet-stream"
	}
	if _, _, err := mime.ParseMediaType(declared); err != nil {
		return "application/octet-stream"
	}
	return declared
}

// sanitizeFileName keeps header-breaking characters out of the download
// disposition.
func sanitizeFileName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "attachment"
	}
	return strings.NewReplacer("\r", "_", "\n", "_", `"`, "_").Replace(name)
}
