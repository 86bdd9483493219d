package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"pagamentos/internal/models/response_models"
	"pagamentos/internal/services"
	"pagamentos/pkg/utils"
)

// UserController backs recipient selection in transfer flows.
type UserController struct {
	accountService services.AccountServiceInterface
}

func NewUserController(accountService services.AccountServiceInterface) *UserController {
	return &UserController{
		accountService: accountService,
	}
}

func (u *UserController) ListUsers(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	accounts, err := u.accountService.ListAccounts(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	responses := make([]response_models.AccountResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, response_models.FromAccount(&accounts[i]))
	}
	utils.RespondSuccess(c, responses, "Users retrieved")
}

func (u *UserController) LookupByEmail(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	email := c.Query("email")
	if email == "" {
		utils.RespondError(c, http.StatusBadRequest, "Query parameter email is required")
		return
	}

	account, err := u.accountService.LookupByEmail(c.Request.Context(), email)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.FromAccount(account), "User retrieved")
}
