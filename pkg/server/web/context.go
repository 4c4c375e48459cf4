package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smtpsink/smtpsink/pkg/config"
	"github.com/smtpsink/smtpsink/pkg/msghub"
	"github.com/smtpsink/smtpsink/pkg/storage"
)

// Context is passed into every request handler function.
type Context struct {
	Vars      map[string]string
	MsgHub    *msghub.Hub
	Store     storage.Store
	WebConfig config.Web
}

// NewContext returns a Context for the given HTTP request.
func NewContext(req *http.Request) (*Context, error) {
	ctx := &Context{
		Vars:      mux.Vars(req),
		MsgHub:    msgHub,
		Store:     store,
		WebConfig: rootConfig.Web,
	}
	return ctx, nil
}
