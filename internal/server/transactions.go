package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/lokapasar/lokapasar/pkg/tenantctx"
	"go.uber.org/zap"

	transactiondomain "github.com/lokapasar/lokapasar/internal/transaction/domain"
	transactionservice "github.com/lokapasar/lokapasar/internal/transaction/service"
)

type createTransactionRequest struct {
	UserID  string                       `json:"user_id"`
	ItemID  string                       `json:"item_id"`
	Items   []transactiondomain.LineItem `json:"items"`
	Amount  int64                        `json:"amount"`
	Method  string                       `json:"method"`
	BankRef string                       `json:"bank_ref"`
}

// CreateTransaction records purchase intent: a pending transaction plus a
// preview enrollment so the buyer sees the item before payment settles.
func (s *Server) CreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, err := parseID(req.UserID)
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
		return
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		AbortWithError(c, newValidationError("item_id", "invalid_item_id", "invalid item_id"))
		return
	}

	var tenantID *snowflake.ID
	if tenant, ok := tenantctx.FromContext(c.Request.Context()); ok {
		tenantID = &tenant.ID
	}

	tx, err := s.txSvc.Create(c.Request.Context(), transactionservice.CreateRequest{
		TenantID: tenantID,
		UserID:   userID,
		ItemID:   itemID,
		Items:    req.Items,
		Amount:   req.Amount,
		Method:   transactiondomain.PaymentMethod(strings.TrimSpace(req.Method)),
		BankRef:  req.BankRef,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if _, err := s.enrollSvc.EnsurePreview(c.Request.Context(), userID, itemID); err != nil {
		s.log.Error("failed to create preview enrollment",
			zap.String("order_number", tx.OrderNumber),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"data": tx})
}

func (s *Server) GetTransaction(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	tx, err := s.txSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tx})
}

type approveTransactionRequest struct {
	Status   string `json:"status"`
	ProofRef string `json:"proof_ref"`
}

// ApproveTransaction applies an operator decision to a manual transfer. The
// same decision submitted twice settles on the first outcome.
func (s *Server) ApproveTransaction(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req approveTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var proofRef *string
	if trimmed := strings.TrimSpace(req.ProofRef); trimmed != "" {
		proofRef = &trimmed
	}

	res, err := s.paymentSvc.Approve(c.Request.Context(), id, req.Status, proofRef)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    res.Transaction,
		"changed": res.Changed,
	})
}

type attachProofRequest struct {
	ProofRef string `json:"proof_ref"`
}

func (s *Server) AttachTransactionProof(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req attachProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tx, err := s.txSvc.AttachProof(c.Request.Context(), id, req.ProofRef)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tx})
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}
