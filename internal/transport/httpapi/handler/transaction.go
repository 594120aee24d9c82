package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/money"
)

// TransactionWriter appends transactions to the ledger
type TransactionWriter interface {
	Save(ctx context.Context, txn *ledger.Transaction) error
}

// TransactionHandler handles transaction import requests
type TransactionHandler struct {
	writer TransactionWriter
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(writer TransactionWriter) *TransactionHandler {
	return &TransactionHandler{writer: writer}
}

// CreateTransactionRequest is the JSON shape of an imported transaction.
// Shares and money amounts are decimal strings ("12.5", "1234.56").
type CreateTransactionRequest struct {
	OwnerKind    string  `json:"owner_kind"`
	OwnerID      string  `json:"owner_id"`
	Type         string  `json:"type"`
	Date         string  `json:"date"`
	SecurityID   *string `json:"security_id,omitempty"`
	Shares       string  `json:"shares,omitempty"`
	Amount       string  `json:"amount"`
	Fees         string  `json:"fees,omitempty"`
	Taxes        string  `json:"taxes,omitempty"`
	Currency     string  `json:"currency"`
	CrossEntryID *string `json:"cross_entry_id,omitempty"`
}

func (req *CreateTransactionRequest) toTransaction() (*ledger.Transaction, error) {
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		return nil, errors.New("invalid owner id")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, errors.New("invalid date, want YYYY-MM-DD")
	}

	txn := &ledger.Transaction{
		ID:        uuid.New(),
		OwnerKind: ledger.OwnerKind(req.OwnerKind),
		OwnerID:   ownerID,
		Type:      ledger.TransactionType(req.Type),
		Date:      date,
		Currency:  req.Currency,
	}

	if req.SecurityID != nil {
		securityID, err := uuid.Parse(*req.SecurityID)
		if err != nil {
			return nil, errors.New("invalid security id")
		}
		txn.SecurityID = &securityID
	}
	if req.CrossEntryID != nil {
		crossEntryID, err := uuid.Parse(*req.CrossEntryID)
		if err != nil {
			return nil, errors.New("invalid cross entry id")
		}
		txn.CrossEntryID = &crossEntryID
	}

	if req.Shares != "" {
		if txn.Shares, err = money.ParseShares(req.Shares); err != nil {
			return nil, errors.New("invalid shares")
		}
	}
	if req.Amount != "" {
		if txn.Amount, err = money.ParseCents(req.Amount); err != nil {
			return nil, errors.New("invalid amount")
		}
	}
	if req.Fees != "" {
		if txn.Fees, err = money.ParseCents(req.Fees); err != nil {
			return nil, errors.New("invalid fees")
		}
	}
	if req.Taxes != "" {
		if txn.Taxes, err = money.ParseCents(req.Taxes); err != nil {
			return nil, errors.New("invalid taxes")
		}
	}

	return txn, nil
}

// CreateTransaction handles POST /api/v1/transactions
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := req.toTransaction()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := txn.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.writer.Save(r.Context(), txn); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": txn.ID.String()})
}
