package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/stenstromen/todogate/model"
	"github.com/stenstromen/todogate/sanitize"
	"github.com/stenstromen/todogate/session"
)

type listPage struct {
	model.PageData
	Items  []model.TodoItem
	Search string
	Today  time.Time
}

type itemPage struct {
	model.PageData
	Action string
}

func (h *handler) todoList(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	l := currentLogin(s)
	search := sanitize.String(r.URL.Query().Get("search"))

	items, out := h.todos.List(r.Context(), l.ID, search)
	if !out.OK() {
		h.outcome(w, r, s, out, "/error")
		return
	}

	pd, ok := h.formPage(w, r, s, "To-do list")
	if !ok {
		return
	}
	h.render(w, r, s, "todo", listPage{
		PageData: pd,
		Items:    items,
		Search:   search,
		Today:    h.todos.Today(),
	})
}

func (h *handler) entryPage(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	pd, ok := h.formPage(w, r, s, "New item")
	if !ok {
		return
	}
	h.render(w, r, s, "item", itemPage{PageData: pd, Action: "/todo/entry"})
}

func (h *handler) addItem(r *http.Request, s *session.Session, f *model.TodoForm) result {
	if _, out := h.todos.Add(r.Context(), currentLogin(s).ID, *f); !out.OK() {
		return rejected(out)
	}
	return done("/todo", model.MsgItemCreated)
}

// editPage shows the stored item, or the values of a refused submission.
func (h *handler) editPage(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	it, out := h.todos.Get(r.Context(), currentLogin(s).ID, r.URL.Query().Get("item_id"))
	if !out.OK() {
		h.outcome(w, r, s, out, "/todo")
		return
	}

	pd, ok := h.formPage(w, r, s, "Edit item")
	if !ok {
		return
	}
	if pd.Fill == nil || pd.Fill["item_id"] != strconv.FormatInt(it.ID, 10) {
		pd.Fill = itemFill(it)
	}
	h.render(w, r, s, "item", itemPage{PageData: pd, Action: "/todo/edit"})
}

func itemFill(it *model.TodoItem) model.Fill {
	f := model.Fill{
		"item_id":         strconv.FormatInt(it.ID, 10),
		"title":           it.Title,
		"assignee":        it.Assignee,
		"expiration_date": it.ExpirationDate.Format(dateLayout),
	}
	if it.Finished() {
		f["finished"] = "1"
	}
	return f
}

func (h *handler) updateItem(r *http.Request, s *session.Session, f *model.TodoForm) result {
	out := h.todos.Update(r.Context(), currentLogin(s).ID, *f)
	if !out.OK() {
		if out.Reason == model.MsgItemNotFound {
			return result{out: out, back: "/todo"}
		}
		return rejected(out)
	}
	return done("/todo", model.MsgItemUpdated)
}

func (h *handler) completeItem(r *http.Request, s *session.Session, f *model.ItemForm) result {
	if out := h.todos.Complete(r.Context(), currentLogin(s).ID, *f); !out.OK() {
		return rejected(out)
	}
	return done("/todo", model.MsgItemCompleted)
}

func (h *handler) deleteItem(r *http.Request, s *session.Session, f *model.ItemForm) result {
	if out := h.todos.Delete(r.Context(), currentLogin(s).ID, *f); !out.OK() {
		return rejected(out)
	}
	return done("/todo", model.MsgItemDeleted)
}
