package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-manager/internal/application/service"
)

// SubmitExpenseBody is the JSON form of an expense submission. Multipart
// submissions use the same field names plus a "receipt" file part.
type SubmitExpenseBody struct {
	Title      string `json:"title" form:"title"`
	Amount     string `json:"amount" form:"amount"`
	Currency   string `json:"currency" form:"currency"`
	Date       string `json:"date" form:"date"`
	CategoryID string `json:"category_id" form:"category_id"`
	StoreID    string `json:"store_id" form:"store_id"`
	Notes      string `json:"notes" form:"notes"`
}

// RejectExpenseBody is the body of POST /expenses/:id/reject
type RejectExpenseBody struct {
	Reason string `json:"reason" form:"reason"`
}

// SubmitExpense handles POST /api/v1/expenses
func (h *Handlers) SubmitExpense(c *gin.Context) {
	var body SubmitExpenseBody
	if err := c.ShouldBind(&body); err != nil {
		badRequest(c, "invalid expense body")
		return
	}

	req := service.SubmitExpenseRequest{
		Title:      body.Title,
		Amount:     body.Amount,
		Currency:   body.Currency,
		Date:       body.Date,
		CategoryID: body.CategoryID,
		StoreID:    body.StoreID,
		Notes:      body.Notes,
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		receipt, err := h.readReceipt(c)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Receipt = receipt
	}

	expense, err := h.services.Expenses.Submit(c.Request.Context(), principal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, expense)
}

// readReceipt returns the optional "receipt" file part
func (h *Handlers) readReceipt(c *gin.Context) (*service.ReceiptUpload, error) {
	header, err := c.FormFile("receipt")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid receipt upload")
	}
	if h.config.MaxUploadBytes > 0 && header.Size > h.config.MaxUploadBytes {
		return nil, fmt.Errorf("receipt exceeds %d bytes", h.config.MaxUploadBytes)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("invalid receipt upload")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("invalid receipt upload")
	}
	return &service.ReceiptUpload{Filename: header.Filename, Content: content}, nil
}

// ListExpenses handles GET /api/v1/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	expenses, err := h.services.Expenses.List(c.Request.Context(), principal(c), service.ListExpensesRequest{
		Search:     c.Query("search"),
		Status:     c.Query("status"),
		CategoryID: c.Query("category_id"),
		Limit:      queryInt(c, "limit", 0),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, expenses)
}

// ListPendingExpenses handles GET /api/v1/expenses/pending
func (h *Handlers) ListPendingExpenses(c *gin.Context) {
	expenses, err := h.services.Expenses.ListPending(c.Request.Context(), principal(c), c.Query("search"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, expenses)
}

// ListApprovedExpenses handles GET /api/v1/expenses/approved
func (h *Handlers) ListApprovedExpenses(c *gin.Context) {
	expenses, err := h.services.Expenses.ListApproved(c.Request.Context(), principal(c), c.Query("search"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, expenses)
}

// ExpenseLimits handles GET /api/v1/expenses/limits
func (h *Handlers) ExpenseLimits(c *gin.Context) {
	limits, err := h.services.Expenses.Limits(c.Request.Context(), principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, limits)
}

// GetExpense handles GET /api/v1/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	expense, err := h.services.Expenses.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, expense)
}

// ApproveExpense handles POST /api/v1/expenses/:id/approve
func (h *Handlers) ApproveExpense(c *gin.Context) {
	expense, err := h.services.Expenses.Approve(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, expense)
}

// RejectExpense handles POST /api/v1/expenses/:id/reject
func (h *Handlers) RejectExpense(c *gin.Context) {
	var body RejectExpenseBody
	if err := c.ShouldBind(&body); err != nil {
		badRequest(c, "invalid reject body")
		return
	}

	expense, err := h.services.Expenses.Reject(c.Request.Context(), principal(c), c.Param("id"), body.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, expense)
}

// ReimburseExpense handles POST /api/v1/expenses/:id/reimburse
func (h *Handlers) ReimburseExpense(c *gin.Context) {
	expense, err := h.services.Expenses.Reimburse(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, expense)
}
