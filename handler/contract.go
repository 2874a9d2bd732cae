package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jorellortega/covionpartners-sub001/access"
	"github.com/jorellortega/covionpartners-sub001/fields"
	"github.com/jorellortega/covionpartners-sub001/middleware"
	"github.com/jorellortega/covionpartners-sub001/model"
	"github.com/jorellortega/covionpartners-sub001/pager"
	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
	"github.com/jorellortega/covionpartners-sub001/service"
)

const mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var pdfMagic = []byte("%PDF-")

var (
	errUnsupportedType = errors.New("Only PDF and DOCX files are allowed")
	errInvalidType     = errors.New("Invalid file type")
)

type ContractHandler struct {
	contracts      *service.ContractService
	forms          *service.FormService
	pager          *pager.Pager
	maxUploadBytes int64
}

func NewContractHandler(contracts *service.ContractService, forms *service.FormService, p *pager.Pager, maxUploadMB int) *ContractHandler {
	return &ContractHandler{
		contracts:      contracts,
		forms:          forms,
		pager:          p,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

// load resolves the :id contract for the caller. It writes the error response
// itself and reports false when the handler should stop.
func (h *ContractHandler) load(c *gin.Context) (*model.Contract, access.Grant, bool) {
	contract, grant, err := h.contracts.Load(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, access.Grant{}, false
	}
	return contract, grant, true
}

type CreateContractRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
	Org   string `json:"org"`
}

// Create stores a new draft contract in the caller's organization
func (h *ContractHandler) Create(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	org := req.Org
	if org == "" {
		org = middleware.GetOrg(c)
	}

	contract, err := h.contracts.Create(c.Request.Context(), middleware.GetUserID(c), service.NewContract{
		Title: req.Title,
		Body:  req.Body,
		OrgID: org,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

// List returns contracts of an organization
func (h *ContractHandler) List(c *gin.Context) {
	org := c.Query("org")
	if org == "" {
		org = middleware.GetOrg(c)
	}

	contracts, err := h.contracts.List(c.Request.Context(), middleware.GetUserID(c), org)
	if err != nil {
		respondError(c, err)
		return
	}

	list := make([]gin.H, 0, len(contracts))
	for _, ct := range contracts {
		item := gin.H{
			"id":         ct.ID,
			"title":      ct.Title,
			"status":     ct.Status,
			"created_at": ct.CreatedAt,
			"updated_at": ct.UpdatedAt,
		}
		if ct.File != nil {
			item["file"] = ct.File
		}
		list = append(list, item)
	}

	c.JSON(http.StatusOK, gin.H{"org": org, "contracts": list, "total": len(list)})
}

// Get returns a contract and the caller's grant on it
func (h *ContractHandler) Get(c *gin.Context) {
	contract, grant, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract": contract, "grant": grant})
}

type UpdateContractRequest struct {
	Title  *string       `json:"title"`
	Status *model.Status `json:"status"`
}

// Update changes title and status
func (h *ContractHandler) Update(c *gin.Context) {
	var req UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	_, grant, ok := h.load(c)
	if !ok {
		return
	}

	contract, err := h.contracts.UpdateMeta(c.Request.Context(), grant, c.Param("id"), req.Title, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// Delete deletes a contract
func (h *ContractHandler) Delete(c *gin.Context) {
	_, grant, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.contracts.Delete(c.Request.Context(), grant, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
}

// UploadFile stores a PDF or DOCX under a fresh key and points the contract at it
func (h *ContractHandler) UploadFile(c *gin.Context) {
	_, grant, ok := h.load(c)
	if !ok {
		return
	}
	if err := grant.Require(access.CapEdit); err != nil {
		respondError(c, err)
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File exceeds %d MB", h.maxUploadBytes>>20)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	contentType, err := uploadContentType(header.Filename, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.forms.PublishFile(c.Request.Context(), grant, c.Param("id"), header.Filename, contentType, data)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info(c.Request.Context(), "contract file uploaded", "contract_id", contract.ID, "key", contract.File.Path, "size", len(data))

	c.JSON(http.StatusOK, gin.H{
		"id":       contract.ID,
		"file":     contract.File,
		"fillable": contract.File.IsPDF(),
	})
}

// FileLink returns a download link for the contract's current file
func (h *ContractHandler) FileLink(c *gin.Context) {
	contract, grant, ok := h.load(c)
	if !ok {
		return
	}
	link, err := h.forms.FileLink(c.Request.Context(), grant, contract)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link, "file": contract.File})
}

// uploadContentType accepts PDF and DOCX by extension. The content must sniff
// as the same kind: a PDF header for .pdf and a zip container for .docx.
func uploadContentType(filename string, data []byte) (string, error) {
	detected := http.DetectContentType(data)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		if detected != model.MimePDF || !bytes.HasPrefix(data, pdfMagic) {
			return "", errInvalidType
		}
		return model.MimePDF, nil
	case ".docx":
		if detected != "application/zip" {
			return "", errInvalidType
		}
		return mimeDOCX, nil
	}
	return "", errUnsupportedType
}

// Pages returns the read view of the body split at the shared page size
func (h *ContractHandler) Pages(c *gin.Context) {
	contract, _, ok := h.load(c)
	if !ok {
		return
	}
	pages := h.pager.Split(contract.Body)
	c.JSON(http.StatusOK, gin.H{
		"page_size":  h.pager.Size(),
		"page_count": len(pages),
		"pages":      pages,
	})
}

// Page returns one page of the read view
func (h *ContractHandler) Page(c *gin.Context) {
	contract, _, ok := h.load(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	book := h.pager.Paginate(contract.Body)
	text, err := book.Page(index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":       index,
		"page_count": book.Len(),
		"page_size":  h.pager.Size(),
		"text":       text,
	})
}

// Render resolves placeholders against the stored values
func (h *ContractHandler) Render(c *gin.Context) {
	contract, _, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, fields.Render(contract.Body, contract.Fields, contract.Values))
}

type ValuesRequest struct {
	Values map[string]string `json:"values"`
}

// SaveValues merges entered values into the contract
func (h *ContractHandler) SaveValues(c *gin.Context) {
	var req ValuesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Values == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	_, grant, ok := h.load(c)
	if !ok {
		return
	}

	contract, err := h.forms.SaveValues(c.Request.Context(), grant, c.Param("id"), req.Values)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": contract.ID, "values": contract.Values})
}

// PDFFields lists the native form fields of the contract's PDF
func (h *ContractHandler) PDFFields(c *gin.Context) {
	contract, grant, ok := h.load(c)
	if !ok {
		return
	}
	listing, err := h.forms.Fields(c.Request.Context(), grant, contract)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Fill merges values, fills the PDF and publishes the filled copy
func (h *ContractHandler) Fill(c *gin.Context) {
	var req ValuesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}
	_, grant, ok := h.load(c)
	if !ok {
		return
	}

	outcome, err := h.forms.FillAndPublish(c.Request.Context(), grant, c.Param("id"), req.Values)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

type IssueCodeRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
	MaxUses   int        `json:"max_uses"`
}

// IssueCode creates an external access code
func (h *ContractHandler) IssueCode(c *gin.Context) {
	var req IssueCodeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}
	if req.MaxUses == 0 {
		req.MaxUses = 1
	}
	_, grant, ok := h.load(c)
	if !ok {
		return
	}

	code, err := h.contracts.IssueCode(c.Request.Context(), grant, c.Param("id"), req.ExpiresAt, req.MaxUses)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, code)
}

// ListCodes returns the contract's access codes
func (h *ContractHandler) ListCodes(c *gin.Context) {
	_, grant, ok := h.load(c)
	if !ok {
		return
	}
	codes, err := h.contracts.ListCodes(c.Request.Context(), grant, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": codes, "total": len(codes)})
}

// RevokeCode revokes an access code
func (h *ContractHandler) RevokeCode(c *gin.Context) {
	_, grant, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.contracts.RevokeCode(c.Request.Context(), grant, c.Param("id"), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Access code revoked"})
}
