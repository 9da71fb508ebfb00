package tools

import (
	"net/http"

	"github.com/linanwx/notebot/notes"
)

// RegisterDefaultTools registers the built-in tools backed by store.
func (r *Registry) RegisterDefaultTools(store notes.Store, httpClient *http.Client) error {
	calc, err := NewCalculatorTool()
	if err != nil {
		return err
	}
	for _, t := range []Tool{
		calc,
		NewFetchURLContentTool(httpClient),
		NewCreateTodoTool(store),
		NewTakeNoteTool(store),
		NewWriteArticleTool(store),
	} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
