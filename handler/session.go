package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jorellortega/covionpartners-sub001/editor"
	"github.com/jorellortega/covionpartners-sub001/fields"
	"github.com/jorellortega/covionpartners-sub001/middleware"
	"github.com/jorellortega/covionpartners-sub001/model"
	"github.com/jorellortega/covionpartners-sub001/service"
)

type SessionHandler struct {
	contracts *service.ContractService
	editing   *service.EditingService
}

func NewSessionHandler(contracts *service.ContractService, editing *service.EditingService) *SessionHandler {
	return &SessionHandler{contracts: contracts, editing: editing}
}

// sessionView is the editor state returned after every session call.
type sessionView struct {
	ID          string                   `json:"id"`
	ContractID  string                   `json:"contract_id"`
	PageSize    int                      `json:"page_size"`
	PageCount   int                      `json:"page_count"`
	CurrentPage int                      `json:"current_page"`
	PageStart   int                      `json:"page_start"`
	Page        string                   `json:"page"`
	Caret       editor.Caret             `json:"caret"`
	Fields      []model.FieldDefinition  `json:"fields"`
	Pending     *editor.PendingHighlight `json:"pending,omitempty"`
}

func viewOf(sess *editor.Session) sessionView {
	v := sessionView{
		PageSize:    sess.PageSize(),
		PageCount:   sess.PageCount(),
		CurrentPage: sess.CurrentPage(),
		Caret:       sess.Caret(),
		Fields:      sess.Fields(),
	}
	v.Page, _ = sess.Page(sess.CurrentPage())
	v.PageStart, _ = sess.PageStart(sess.CurrentPage())
	if p, ok := sess.Pending(); ok {
		v.Pending = &p
	}
	return v
}

// run applies fn to the :sid session and answers with the resulting state and,
// when fn returns one, an extra result under "result".
func (h *SessionHandler) run(c *gin.Context, status int, fn func(*editor.Session) (any, error)) {
	var (
		view   sessionView
		result any
	)
	entry, err := h.editing.Do(c.Param("sid"), middleware.GetUserID(c), func(sess *editor.Session) error {
		r, err := fn(sess)
		if err != nil {
			return err
		}
		result = r
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	view.ID = entry.ID
	view.ContractID = entry.ContractID

	body := gin.H{"session": view}
	if result != nil {
		body["result"] = result
	}
	c.JSON(status, body)
}

func pageParam(c *gin.Context) (int, bool) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return 0, false
	}
	return page, true
}

// Open starts an editing session on a contract
func (h *SessionHandler) Open(c *gin.Context) {
	contract, grant, err := h.contracts.Load(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	entry, err := h.editing.Open(c.Request.Context(), grant, contract)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Params = append(c.Params, gin.Param{Key: "sid", Value: entry.ID})
	h.run(c, http.StatusCreated, func(*editor.Session) (any, error) { return nil, nil })
}

// Get returns the session state
func (h *SessionHandler) Get(c *gin.Context) {
	h.run(c, http.StatusOK, func(*editor.Session) (any, error) { return nil, nil })
}

// GetPage moves to a page and returns it
func (h *SessionHandler) GetPage(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	h.run(c, http.StatusOK, func(sess *editor.Session) (any, error) {
		return nil, sess.SetCurrentPage(page)
	})
}

type EditPageRequest struct {
	Text *string `json:"text" binding:"required"`
}

// EditPage replaces the free text of a page
func (h *SessionHandler) EditPage(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	var req EditPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	h.run(c, http.StatusOK, func(sess *editor.Session) (any, error) {
		if err := sess.EditPage(page, *req.Text); err != nil {
			return nil, err
		}
		return nil, sess.SetCurrentPage(page)
	})
}

// AddPage appends an empty page
func (h *SessionHandler) AddPage(c *gin.Context) {
	h.run(c, http.StatusCreated, func(sess *editor.Session) (any, error) {
		page, err := sess.AddPage()
		if err != nil {
			return nil, err
		}
		return gin.H{"page": page}, nil
	})
}

// SelectionRequest addresses a range on the current page, or on a given page,
// or across the whole document when Document is set.
type SelectionRequest struct {
	Page     *int                 `json:"page"`
	Start    int                  `json:"start"`
	End      int                  `json:"end"`
	Document bool                 `json:"document"`
	Field    *editor.FieldRequest `json:"field"`
}

func (r SelectionRequest) resolve(sess *editor.Session) (editor.Selection, error) {
	if r.Document {
		return sess.SelectDocumentRange(r.Start, r.End)
	}
	if r.Page != nil {
		if err := sess.SetCurrentPage(*r.Page); err != nil {
			return editor.Selection{}, err
		}
	}
	return editor.Selection{Start: r.Start, End: r.End}, nil
}

// Convert replaces a selection with a new field's placeholder token
func (h *SessionHandler) Convert(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Field == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	h.run(c, http.StatusCreated, func(sess *editor.Session) (any, error) {
		sel, err := req.resolve(sess)
		if err != nil {
			return nil, err
		}
		def, err := sess.ConvertSelection(sel, *req.Field)
		if err != nil {
			return nil, err
		}
		return def, nil
	})
}

// Highlight marks a selection for preview
func (h *SessionHandler) Highlight(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	h.run(c, http.StatusOK, func(sess *editor.Session) (any, error) {
		sel, err := req.resolve(sess)
		if err != nil {
			return nil, err
		}
		p, err := sess.Highlight(sel)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// CommitHighlight turns the pending highlight into a field
func (h *SessionHandler) CommitHighlight(c *gin.Context) {
	var req editor.FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	h.run(c, http.StatusCreated, func(sess *editor.Session) (any, error) {
		def, err := sess.CommitHighlight(req)
		if err != nil {
			return nil, err
		}
		return def, nil
	})
}

// CancelHighlight drops the pending highlight
func (h *SessionHandler) CancelHighlight(c *gin.Context) {
	h.run(c, http.StatusOK, func(sess *editor.Session) (any, error) {
		return nil, sess.CancelHighlight()
	})
}

// UpdateFieldRequest edits a field. Omitted attributes keep their current value.
type UpdateFieldRequest struct {
	Label    *string          `json:"label"`
	Type     *model.FieldType `json:"type"`
	Required *bool            `json:"required"`
	Position *model.Position  `json:"position"`
}

// UpdateField edits a field definition
func (h *SessionHandler) UpdateField(c *gin.Context) {
	var req UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	patch := fields.Patch{Label: req.Label, Type: req.Type, Required: req.Required, Position: req.Position}
	h.run(c, http.StatusOK, func(sess *editor.Session) (any, error) {
		updated, err := sess.UpdateField(c.Param("fid"), patch)
		if err != nil {
			return nil, err
		}
		return updated, nil
	})
}

// RemoveField drops a field. With ?restore=true its original text replaces the token.
func (h *SessionHandler) RemoveField(c *gin.Context) {
	restore := c.Query("restore") == "true"
	h.run(c, http.StatusOK, func(sess *editor.Session) (any, error) {
		remove := sess.RemoveField
		if restore {
			remove = sess.RevertField
		}
		def, err := remove(c.Param("fid"))
		if err != nil {
			return nil, err
		}
		return def, nil
	})
}

// Save writes the session back to the contract
func (h *SessionHandler) Save(c *gin.Context) {
	contract, err := h.editing.Save(c.Request.Context(), c.Param("sid"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         contract.ID,
		"fields":     contract.Fields,
		"updated_at": contract.UpdatedAt,
	})
}

// Close discards the session
func (h *SessionHandler) Close(c *gin.Context) {
	if err := h.editing.Close(c.Param("sid"), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session closed"})
}
