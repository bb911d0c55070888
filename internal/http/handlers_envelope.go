package http

import (
	"fmt"
	"net/http"
)

const noEnvelopeMessage = "There is no enveloppe with this id"

func (s *Server) handleListEnvelopes(w http.ResponseWriter, r *http.Request) {
	envelopes, err := s.store.ListEnvelopes(r.Context())
	if err != nil {
		writeDomainError(w, r, err, noEnvelopeMessage)
		return
	}
	// The store returns an empty list; the boundary maps it to a 404.
	if len(envelopes) == 0 {
		writeError(w, http.StatusNotFound, "There are no enveloppes")
		return
	}

	data := make([]envelopeJSON, len(envelopes))
	for i, e := range envelopes {
		data[i] = toEnvelopeJSON(e)
	}
	writeSuccess(w, http.StatusOK, "Enveloppes information retrieved!", data)
}

func (s *Server) handleGetEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusNotFound, noEnvelopeMessage)
		return
	}

	envelope, err := s.store.GetEnvelope(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, noEnvelopeMessage)
		return
	}
	writeSuccess(w, http.StatusOK, "Enveloppe information retrieved!", toEnvelopeJSON(envelope))
}

func (s *Server) handleCreateEnvelope(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title, err := stringField(body, "title")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	budget, err := amountField(body, "budget")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	envelope, err := s.store.CreateEnvelope(r.Context(), title, budget)
	if err != nil {
		writeDomainError(w, r, err, noEnvelopeMessage)
		return
	}
	writeSuccess(w, http.StatusCreated, "New enveloppe created!", toEnvelopeJSON(envelope))
}

func (s *Server) handleUpdateEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusNotFound, noEnvelopeMessage)
		return
	}
	body, err := parseBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title, err := stringField(body, "title")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	budget, err := amountField(body, "budget")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	envelope, err := s.store.UpdateEnvelope(r.Context(), id, title, budget)
	if err != nil {
		writeDomainError(w, r, err, noEnvelopeMessage)
		return
	}
	writeSuccess(w, http.StatusOK, "The enveloppe has been updated!", toEnvelopeJSON(envelope))
}

func (s *Server) handleDeleteEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusNotFound, noEnvelopeMessage)
		return
	}

	if err := s.store.DeleteEnvelope(r.Context(), id); err != nil {
		writeDomainError(w, r, err, noEnvelopeMessage)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	fromID, err := pathID(r, "from")
	if err != nil {
		writeError(w, http.StatusNotFound, noEnvelopeMessage)
		return
	}
	toID, err := pathID(r, "to")
	if err != nil {
		writeError(w, http.StatusNotFound, noEnvelopeMessage)
		return
	}
	body, err := parseBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := amountField(body, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := s.ledger.Transfer(r.Context(), fromID, toID, amount)
	if err != nil {
		writeDomainError(w, r, err, noEnvelopeMessage)
		return
	}

	message := fmt.Sprintf("The budget of the enveloppes number %d and %d have been successfully updated", fromID, toID)
	writeSuccess(w, http.StatusOK, message, transferJSON{
		From: toEnvelopeJSON(receipt.From),
		To:   toEnvelopeJSON(receipt.To),
	})
}
