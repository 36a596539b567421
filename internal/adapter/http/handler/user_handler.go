package handler

import (
	"strconv"

	"p2p-transfer-service/internal/adapter/http/dto"
	"p2p-transfer-service/internal/core/ports"
	"p2p-transfer-service/pkg/apperror"
	"p2p-transfer-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserHandler handles account registration and lookup endpoints.
type UserHandler struct {
	userSvc ports.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userSvc ports.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Register handles POST /v1/users.
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	account, err := h.userSvc.Register(c.Request.Context(), ports.RegisterRequest{
		FullName: req.FullName,
		Document: req.Document,
		Email:    req.Email,
		Password: req.Password,
		Balance:  req.Balance,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewAccountResponse(account))
}

// GetByEmail handles GET /v1/users/:email.
func (h *UserHandler) GetByEmail(c *gin.Context) {
	account, err := h.userSvc.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountResponse(account))
}

// List handles GET /v1/users.
func (h *UserHandler) List(c *gin.Context) {
	params := parseListParams(c)

	page, err := h.userSvc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.AccountResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewAccountResponse(&page.Items[i]))
	}

	totalPages := int(page.Total) / params.PageSize
	if int(page.Total)%params.PageSize != 0 {
		totalPages++
	}

	response.OK(c, dto.AccountListResponse{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages,
	})
}

// parseListParams reads pagination and sorting query parameters, clamping
// them to sane bounds. Unknown sort fields fall back at the repository.
func parseListParams(c *gin.Context) ports.ListParams {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return ports.ListParams{
		Page:     page,
		PageSize: size,
		Sort:     c.DefaultQuery("sort", "full_name"),
		SortDesc: c.DefaultQuery("order", "asc") == "desc",
	}
}
