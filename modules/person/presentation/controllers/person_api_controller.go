package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/modules/person/domain/entities/change"
	"github.com/harborworks/crewdb/modules/person/domain/entities/profilelock"
	"github.com/harborworks/crewdb/modules/person/services"
	"github.com/harborworks/crewdb/pkg/application"
	"github.com/harborworks/crewdb/pkg/configuration"
	"github.com/harborworks/crewdb/pkg/serrors"
)

type PersonAPIController struct {
	app            application.Application
	personService  *services.PersonService
	lockService    *services.LockService
	changeService  *services.ChangeService
	clientIDHeader string
	basePath       string
}

func NewPersonAPIController(app application.Application) application.Controller {
	return &PersonAPIController{
		app:            app,
		personService:  app.Service(services.PersonService{}).(*services.PersonService),
		lockService:    app.Service(services.LockService{}).(*services.LockService),
		changeService:  app.Service(services.ChangeService{}).(*services.ChangeService),
		clientIDHeader: configuration.Use().ClientIDHeader,
		basePath:       "/person/api",
	}
}

func (c *PersonAPIController) Key() string {
	return c.basePath
}

func (c *PersonAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/persons", c.createPerson).Methods(http.MethodPost)
	router.HandleFunc("/persons/{id}", c.getPerson).Methods(http.MethodGet)
	router.HandleFunc("/persons/{id}", c.updatePerson).Methods(http.MethodPut)
	router.HandleFunc("/persons/{id}/lock", c.acquireLock).Methods(http.MethodPost)
	router.HandleFunc("/persons/{id}/lock", c.refreshLock).Methods(http.MethodPut)
	router.HandleFunc("/persons/{id}/lock", c.getLock).Methods(http.MethodGet)
	router.HandleFunc("/persons/{id}/lock", c.releaseLockBySubject).Methods(http.MethodDelete)
	router.HandleFunc("/persons/{id}/changes", c.listChanges).Methods(http.MethodGet)
	router.HandleFunc("/lock", c.releaseOwnLock).Methods(http.MethodDelete)
}

func (c *PersonAPIController) clientID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(c.clientIDHeader)
	if raw == "" {
		writeAPIError(w, r, http.StatusUnauthorized, "CLIENT_ID_MISSING", "client identity header is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeAPIError(w, r, http.StatusUnauthorized, "CLIENT_ID_INVALID", "client identity header is not a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_ID", "record id is not a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (c *PersonAPIController) createPerson(w http.ResponseWriter, r *http.Request) {
	editorID, ok := c.clientID(w, r)
	if !ok {
		return
	}
	var req personPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		return
	}
	p := req.toDomain(uuid.New())
	if err := c.personService.Create(r.Context(), editorID, p); err != nil {
		c.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]string{"id": p.ID.String()})
}

func (c *PersonAPIController) getPerson(w http.ResponseWriter, r *http.Request) {
	readerID, ok := c.clientID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := c.personService.View(r.Context(), readerID, id)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toPersonPayload(p))
}

func (c *PersonAPIController) updatePerson(w http.ResponseWriter, r *http.Request) {
	editorID, ok := c.clientID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req personPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		return
	}
	result, err := c.personService.Update(r.Context(), editorID, req.toDomain(id))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updateResponse{
		Applied:  result.Applied,
		Rejected: result.Rejected,
	})
}

func (c *PersonAPIController) acquireLock(w http.ResponseWriter, r *http.Request) {
	editorID, ok := c.clientID(w, r)
	if !ok {
		return
	}
	subjectID, ok := pathID(w, r)
	if !ok {
		return
	}
	lock, err := c.lockService.Acquire(r.Context(), editorID, subjectID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.toLockPayload(lock, ""))
}

func (c *PersonAPIController) refreshLock(w http.ResponseWriter, r *http.Request) {
	editorID, ok := c.clientID(w, r)
	if !ok {
		return
	}
	subjectID, ok := pathID(w, r)
	if !ok {
		return
	}
	lock, err := c.lockService.Refresh(r.Context(), editorID, subjectID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.toLockPayload(lock, ""))
}

func (c *PersonAPIController) getLock(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.clientID(w, r); !ok {
		return
	}
	subjectID, ok := pathID(w, r)
	if !ok {
		return
	}
	info, err := c.lockService.Get(r.Context(), subjectID)
	if errors.Is(err, profilelock.ErrNotFound) {
		writeAPIError(w, r, http.StatusNotFound, "LOCK_NOT_FOUND", "record is not locked")
		return
	}
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.toLockPayload(info.Lock, info.OwnerName))
}

func (c *PersonAPIController) releaseLockBySubject(w http.ResponseWriter, r *http.Request) {
	editorID, ok := c.clientID(w, r)
	if !ok {
		return
	}
	subjectID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := c.lockService.ReleaseBySubject(r.Context(), editorID, subjectID); err != nil {
		c.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (c *PersonAPIController) releaseOwnLock(w http.ResponseWriter, r *http.Request) {
	editorID, ok := c.clientID(w, r)
	if !ok {
		return
	}
	if err := c.lockService.ReleaseOwn(r.Context(), editorID); err != nil {
		c.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (c *PersonAPIController) listChanges(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.clientID(w, r); !ok {
		return
	}
	personID, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	entries, err := c.changeService.List(r.Context(), &change.FindParams{
		PersonID: personID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	out := make([]changePayload, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toChangePayload(entry))
	}
	writeJSON(w, r, http.StatusOK, out)
}

// writeError maps domain errors to HTTP statuses. Lock contention is a
// conflict, a missing lock is a locked resource, capability refusals are
// forbidden, bad values are unprocessable.
func (c *PersonAPIController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ownedErr *services.LockOwnedError
	if errors.As(err, &ownedErr) {
		writeAPIError(w, r, http.StatusConflict, "LOCK_OWNED", ownedErr.Error())
		return
	}
	var impossibleErr *services.LockImpossibleError
	if errors.As(err, &impossibleErr) {
		writeAPIError(w, r, http.StatusForbidden, "LOCK_IMPOSSIBLE", impossibleErr.Error())
		return
	}
	var fieldsErr *serrors.FieldsError
	if errors.As(err, &fieldsErr) {
		status := http.StatusUnprocessableEntity
		if fieldsErr.Code == "PERSON_AUTHORIZATION" {
			status = http.StatusForbidden
		}
		writeFieldsError(w, r, status, fieldsErr.Code, fieldsErr.Message, fieldsErr.Fields)
		return
	}
	var baseErr *serrors.BaseError
	if errors.As(err, &baseErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrLockNotHeld):
			status = http.StatusLocked
		case errors.Is(err, services.ErrLockForbidden):
			status = http.StatusForbidden
		case errors.Is(err, services.ErrPersonNotFound):
			status = http.StatusNotFound
		}
		writeAPIError(w, r, status, baseErr.Code, baseErr.Message)
		return
	}
	c.app.Logger().WithError(err).Error("unhandled API error")
	writeAPIError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

type lockPayload struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	SubjectID  string    `json:"subjectId"`
	OwnerName  string    `json:"ownerName,omitempty"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (c *PersonAPIController) toLockPayload(lock *profilelock.ProfileLock, ownerName string) lockPayload {
	return lockPayload{
		ID:         lock.ID.String(),
		OwnerID:    lock.OwnerID.String(),
		SubjectID:  lock.SubjectID.String(),
		OwnerName:  ownerName,
		AcquiredAt: lock.AcquiredAt,
		ExpiresAt:  lock.AcquiredAt.Add(c.lockService.MaxAge()),
	}
}

type updateResponse struct {
	Applied  []string `json:"applied"`
	Rejected []string `json:"rejected"`
}

type changePayload struct {
	ID        string          `json:"id"`
	EditorID  string          `json:"editorId"`
	Field     string          `json:"field"`
	Old       json.RawMessage `json:"old"`
	New       json.RawMessage `json:"new"`
	Remark    string          `json:"remark,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toChangePayload(c *change.Change) changePayload {
	return changePayload{
		ID:        c.ID.String(),
		EditorID:  c.EditorID.String(),
		Field:     c.Field,
		Old:       c.Old,
		New:       c.New,
		Remark:    c.Remark,
		CreatedAt: c.CreatedAt,
	}
}

// personPayload is the full-record wire form. Updates submit the whole
// record; fields left out of the JSON arrive as zero values and diff
// accordingly, except accountHistory where absence means "not included".
// Reads blank fields the client may not see, and omitempty keeps the
// blanked fields out of the response entirely.
type personPayload struct {
	FirstName      string `json:"firstName,omitempty"`
	MiddleName     string `json:"middleName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	Rate           string `json:"rate,omitempty"`
	Title          string `json:"title,omitempty"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	Remarks        string `json:"remarks,omitempty"`
	Division       string `json:"division,omitempty"`
	Department     string `json:"department,omitempty"`
	Command        string `json:"command,omitempty"`
	Supervisor     string `json:"supervisor,omitempty"`
	WorkRemarks    string `json:"workRemarks,omitempty"`
	ContactRemarks string `json:"contactRemarks,omitempty"`

	EmailAddresses    []emailPayload   `json:"emailAddresses,omitempty"`
	PhoneNumbers      []phonePayload   `json:"phoneNumbers,omitempty"`
	PhysicalAddresses []addressPayload `json:"physicalAddresses,omitempty"`
	AccountHistory    []historyPayload `json:"accountHistory,omitempty"`
}

type emailPayload struct {
	ID            string `json:"id"`
	Address       string `json:"address"`
	IsContactable bool   `json:"isContactable"`
	IsPreferred   bool   `json:"isPreferred"`
}

type phonePayload struct {
	ID            string `json:"id"`
	Number        string `json:"number"`
	Carrier       string `json:"carrier"`
	NumberType    string `json:"numberType"`
	IsContactable bool   `json:"isContactable"`
	IsPreferred   bool   `json:"isPreferred"`
}

type addressPayload struct {
	ID            string `json:"id"`
	StreetNumber  string `json:"streetNumber"`
	Route         string `json:"route"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zipCode"`
	IsHomeAddress bool   `json:"isHomeAddress"`
}

type historyPayload struct {
	ID         string    `json:"id"`
	EventType  string    `json:"eventType"`
	OccurredAt time.Time `json:"occurredAt"`
}

// parseID tolerates empty and malformed IDs: new children arrive without
// one and receive a fresh identity during reconciliation.
func parseID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (p *personPayload) toDomain(id uuid.UUID) *person.Person {
	out := &person.Person{
		ID:             id,
		FirstName:      p.FirstName,
		MiddleName:     p.MiddleName,
		LastName:       p.LastName,
		Rate:           p.Rate,
		Title:          p.Title,
		DateOfBirth:    p.DateOfBirth,
		Remarks:        p.Remarks,
		Division:       p.Division,
		Department:     p.Department,
		Command:        p.Command,
		Supervisor:     p.Supervisor,
		WorkRemarks:    p.WorkRemarks,
		ContactRemarks: p.ContactRemarks,
	}
	for _, e := range p.EmailAddresses {
		out.EmailAddresses = append(out.EmailAddresses, person.EmailAddress{
			ID:            parseID(e.ID),
			OwnerID:       id,
			Address:       e.Address,
			IsContactable: e.IsContactable,
			IsPreferred:   e.IsPreferred,
		})
	}
	for _, n := range p.PhoneNumbers {
		out.PhoneNumbers = append(out.PhoneNumbers, person.PhoneNumber{
			ID:            parseID(n.ID),
			OwnerID:       id,
			Number:        n.Number,
			Carrier:       n.Carrier,
			NumberType:    n.NumberType,
			IsContactable: n.IsContactable,
			IsPreferred:   n.IsPreferred,
		})
	}
	for _, a := range p.PhysicalAddresses {
		out.PhysicalAddresses = append(out.PhysicalAddresses, person.PhysicalAddress{
			ID:            parseID(a.ID),
			OwnerID:       id,
			StreetNumber:  a.StreetNumber,
			Route:         a.Route,
			City:          a.City,
			State:         a.State,
			ZipCode:       a.ZipCode,
			IsHomeAddress: a.IsHomeAddress,
		})
	}
	if p.AccountHistory != nil {
		out.AccountHistory = make([]person.AccountEvent, 0, len(p.AccountHistory))
		for _, h := range p.AccountHistory {
			out.AccountHistory = append(out.AccountHistory, person.AccountEvent{
				ID:         parseID(h.ID),
				OwnerID:    id,
				EventType:  h.EventType,
				OccurredAt: h.OccurredAt,
			})
		}
	}
	return out
}

func toPersonPayload(p *person.Person) personPayload {
	out := personPayload{
		FirstName:      p.FirstName,
		MiddleName:     p.MiddleName,
		LastName:       p.LastName,
		Rate:           p.Rate,
		Title:          p.Title,
		DateOfBirth:    p.DateOfBirth,
		Remarks:        p.Remarks,
		Division:       p.Division,
		Department:     p.Department,
		Command:        p.Command,
		Supervisor:     p.Supervisor,
		WorkRemarks:    p.WorkRemarks,
		ContactRemarks: p.ContactRemarks,
	}
	for _, e := range p.EmailAddresses {
		out.EmailAddresses = append(out.EmailAddresses, emailPayload{
			ID:            e.ID.String(),
			Address:       e.Address,
			IsContactable: e.IsContactable,
			IsPreferred:   e.IsPreferred,
		})
	}
	for _, n := range p.PhoneNumbers {
		out.PhoneNumbers = append(out.PhoneNumbers, phonePayload{
			ID:            n.ID.String(),
			Number:        n.Number,
			Carrier:       n.Carrier,
			NumberType:    n.NumberType,
			IsContactable: n.IsContactable,
			IsPreferred:   n.IsPreferred,
		})
	}
	for _, a := range p.PhysicalAddresses {
		out.PhysicalAddresses = append(out.PhysicalAddresses, addressPayload{
			ID:            a.ID.String(),
			StreetNumber:  a.StreetNumber,
			Route:         a.Route,
			City:          a.City,
			State:         a.State,
			ZipCode:       a.ZipCode,
			IsHomeAddress: a.IsHomeAddress,
		})
	}
	for _, h := range p.AccountHistory {
		out.AccountHistory = append(out.AccountHistory, historyPayload{
			ID:         h.ID.String(),
			EventType:  h.EventType,
			OccurredAt: h.OccurredAt,
		})
	}
	return out
}
