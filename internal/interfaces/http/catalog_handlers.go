package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-manager/internal/application/service"
)

// CreateCategoryBody is the body of POST /categories
type CreateCategoryBody struct {
	Name string `json:"name"`
}

// ListCategories handles GET /api/v1/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.services.Catalog.ListCategories(c.Request.Context(), principal(c), c.Query("search"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, categories)
}

// CreateCategory handles POST /api/v1/categories
func (h *Handlers) CreateCategory(c *gin.Context) {
	var body CreateCategoryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid category body")
		return
	}

	category, err := h.services.Catalog.CreateCategory(c.Request.Context(), principal(c), body.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, category)
}

// DeleteCategory handles DELETE /api/v1/categories/:id
func (h *Handlers) DeleteCategory(c *gin.Context) {
	if err := h.services.Catalog.DeleteCategory(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

// ListPolicies handles GET /api/v1/policies
func (h *Handlers) ListPolicies(c *gin.Context) {
	policies, err := h.services.Catalog.ListPolicies(c.Request.Context(), principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, policies)
}

// CreatePolicy handles POST /api/v1/policies
func (h *Handlers) CreatePolicy(c *gin.Context) {
	var req service.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid policy body")
		return
	}

	policy, err := h.services.Catalog.CreatePolicy(c.Request.Context(), principal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, policy)
}

// DeletePolicy handles DELETE /api/v1/policies/:id
func (h *Handlers) DeletePolicy(c *gin.Context) {
	if err := h.services.Catalog.DeletePolicy(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

// ListBudgets handles GET /api/v1/budgets
func (h *Handlers) ListBudgets(c *gin.Context) {
	budgets, err := h.services.Catalog.ListBudgets(c.Request.Context(), principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, budgets)
}

// CreateBudget handles POST /api/v1/budgets
func (h *Handlers) CreateBudget(c *gin.Context) {
	var req service.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid budget body")
		return
	}

	budget, err := h.services.Catalog.CreateBudget(c.Request.Context(), principal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, budget)
}

// DeleteBudget handles DELETE /api/v1/budgets/:id
func (h *Handlers) DeleteBudget(c *gin.Context) {
	if err := h.services.Catalog.DeleteBudget(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

// ListStores handles GET /api/v1/stores
func (h *Handlers) ListStores(c *gin.Context) {
	stores, err := h.services.Catalog.ListStores(c.Request.Context(), principal(c), c.Query("search"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, stores)
}

// CreateStore handles POST /api/v1/stores
func (h *Handlers) CreateStore(c *gin.Context) {
	var req service.CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid store body")
		return
	}

	store, err := h.services.Catalog.CreateStore(c.Request.Context(), principal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, store)
}

// DeleteStore handles DELETE /api/v1/stores/:id
func (h *Handlers) DeleteStore(c *gin.Context) {
	if err := h.services.Catalog.DeleteStore(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}
