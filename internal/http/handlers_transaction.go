package http

import (
	"fmt"
	"net/http"
)

const noTransactionMessage = "There is no transaction with this id"

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		writeDomainError(w, r, err, noTransactionMessage)
		return
	}
	if len(transactions) == 0 {
		writeError(w, http.StatusNotFound, "There are no transactions")
		return
	}

	data := make([]transactionJSON, len(transactions))
	for i, t := range transactions {
		data[i] = toTransactionJSON(t)
	}
	writeSuccess(w, http.StatusOK, "Transactions information retrieved!", data)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusNotFound, noTransactionMessage)
		return
	}

	transaction, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, noTransactionMessage)
		return
	}
	writeSuccess(w, http.StatusOK, "Transaction information retrieved!", toTransactionJSON(transaction))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	description, err := stringField(body, "description")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := amountField(body, "payment_amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	envelopeID, err := idField(body, "enveloppe_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	transaction, err := s.ledger.RecordTransaction(r.Context(), description, amount, envelopeID)
	if err != nil {
		writeDomainError(w, r, err, noEnvelopeMessage)
		return
	}
	writeSuccess(w, http.StatusCreated, "New transaction created!", toTransactionJSON(transaction))
}

func (s *Server) handleAmendTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusNotFound, noTransactionMessage)
		return
	}
	body, err := parseBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	description, err := stringField(body, "description")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := amountField(body, "payment_amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	transaction, err := s.ledger.AmendTransaction(r.Context(), id, description, amount)
	if err != nil {
		writeDomainError(w, r, err, noTransactionMessage)
		return
	}
	writeSuccess(w, http.StatusOK, "The transaction has been updated!", toTransactionJSON(transaction))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusNotFound, noTransactionMessage)
		return
	}

	if err := s.ledger.RemoveTransaction(r.Context(), id); err != nil {
		writeDomainError(w, r, err, noTransactionMessage)
		return
	}
	message := fmt.Sprintf("Transaction number %d has been successfully deleted!", id)
	writeSuccess(w, http.StatusOK, message, nil)
}
