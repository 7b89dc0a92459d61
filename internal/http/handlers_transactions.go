package http

import (
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// transactionHandlers serves one ledger. Incomes and expenses share the code;
// only the descriptor field name and the messages differ.
type transactionHandlers struct {
	ledger LedgerService
}

func (h transactionHandlers) list(w http.ResponseWriter, r *http.Request, owner core.UserID) {
	items, err := h.ledger.List(r.Context(), owner)
	if err != nil {
		writeError(w, r, err, applog.OpList)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionViews(items))
}

func (h transactionHandlers) add(w http.ResponseWriter, r *http.Request, owner core.UserID) {
	var req TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}

	var (
		amount     core.Money
		descriptor string
		date       core.Date
	)
	if req.Amount != nil {
		amount = *req.Amount
	}
	if d := req.descriptor(h.ledger.Kind()); d != nil {
		descriptor = *d
	}
	if d := req.date(); d != nil {
		date = *d
	}

	t, err := h.ledger.Add(r.Context(), owner, amount, descriptor, date)
	if err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionView(t))
}

func (h transactionHandlers) update(w http.ResponseWriter, r *http.Request, owner core.UserID) {
	var req TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, applog.OpUpdate)
		return
	}

	t, err := h.ledger.Update(r.Context(), owner, pathValue(r, "id"), req.Patch(h.ledger.Kind()))
	if err != nil {
		writeError(w, r, err, applog.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionView(t))
}

func (h transactionHandlers) remove(w http.ResponseWriter, r *http.Request, owner core.UserID) {
	if err := h.ledger.Remove(r.Context(), owner, pathValue(r, "id")); err != nil {
		writeError(w, r, err, applog.OpDelete)
		return
	}
	writeMessage(w, http.StatusOK, h.deletedMessage())
}

func (h transactionHandlers) deletedMessage() string {
	if h.ledger.Kind() == core.Income {
		return "Income deleted successfully"
	}
	return "Expense deleted successfully"
}
