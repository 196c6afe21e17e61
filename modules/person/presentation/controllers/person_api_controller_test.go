package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/modules/person/domain/value_objects/capability"
	"github.com/harborworks/crewdb/modules/person/infrastructure/capabilities"
	"github.com/harborworks/crewdb/modules/person/infrastructure/persistence/memory"
	"github.com/harborworks/crewdb/modules/person/presentation/controllers"
	"github.com/harborworks/crewdb/modules/person/services"
	"github.com/harborworks/crewdb/modules/person/validators"
	"github.com/harborworks/crewdb/pkg/application"
	"github.com/harborworks/crewdb/pkg/eventbus"
)

type fixture struct {
	server  *httptest.Server
	store   *memory.Store
	caps    *capabilities.StaticProvider
	changes *services.ChangeService
}

func fullAccess() capability.Set {
	var names []string
	for _, f := range person.Fields() {
		if !f.Reserved {
			names = append(names, f.Name)
		}
	}
	return capability.NewSet(names, names)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("LOG_PATH", filepath.Join(t.TempDir(), "app.log"))
	t.Setenv("LOG_LEVEL", "silent")

	store := memory.NewStore()
	caps := capabilities.NewStaticProvider(fullAccess())
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	locks := services.NewLockService(store.Locks(), store.Persons(), caps, clockwork.NewRealClock(), time.Hour)
	changes := services.NewChangeService(store.Changes())
	persons := services.NewPersonService(
		store.Persons(), locks, caps,
		validators.NewPersonValidator(), changes,
		store.Transactor(), eventbus.NewEventPublisher(log),
	)

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(log),
		Logger:   log,
	})
	app.RegisterServices(locks, changes, persons)

	router := mux.NewRouter()
	controllers.NewPersonAPIController(app).Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &fixture{server: server, store: store, caps: caps, changes: changes}
}

func (f *fixture) seed(t *testing.T) *person.Person {
	t.Helper()
	p := &person.Person{ID: uuid.New(), FirstName: "Daniel", LastName: "Atwood", Rate: "CTI2"}
	require.NoError(t, f.store.Persons().Create(context.Background(), p))
	return p
}

func (f *fixture) do(t *testing.T, method, path string, clientID uuid.UUID, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, f.server.URL+"/person/api"+path, reader)
	require.NoError(t, err)
	if clientID != uuid.Nil {
		req.Header.Set("X-Client-ID", clientID.String())
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestPersonAPIController_RequiresClientID(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t)

	resp, _ := f.do(t, http.MethodPost, "/persons/"+p.ID.String()+"/lock", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPersonAPIController_LockAndUpdateFlow(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t)
	editorID := uuid.New()

	resp, _ := f.do(t, http.MethodPost, "/persons/"+p.ID.String()+"/lock", editorID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := f.do(t, http.MethodGet, "/persons/"+p.ID.String(), editorID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var record map[string]any
	require.NoError(t, json.Unmarshal(raw, &record))
	record["firstName"] = "Dan"

	resp, raw = f.do(t, http.MethodPut, "/persons/"+p.ID.String(), editorID, record)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Applied  []string `json:"applied"`
		Rejected []string `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, []string{"FirstName"}, result.Applied)
	assert.Empty(t, result.Rejected)

	f.changes.Wait()
	resp, raw = f.do(t, http.MethodGet, "/persons/"+p.ID.String()+"/changes", editorID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "FirstName", entries[0]["field"])
	assert.Equal(t, "Person Edited", entries[0]["remark"])

	resp, _ = f.do(t, http.MethodDelete, "/persons/"+p.ID.String()+"/lock", editorID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestPersonAPIController_ReadRedaction(t *testing.T) {
	f := newFixture(t)
	p := &person.Person{
		ID:        uuid.New(),
		FirstName: "Daniel",
		LastName:  "Atwood",
		Rate:      "CTI2",
		Division:  "N31",
	}
	p.EmailAddresses = []person.EmailAddress{
		{ID: uuid.New(), OwnerID: p.ID, Address: "daniel@example.com"},
	}
	require.NoError(t, f.store.Persons().Create(context.Background(), p))

	reader := uuid.New()
	f.caps.Grant(reader, capability.NewSet([]string{"FirstName", "LastName"}, nil))

	resp, raw := f.do(t, http.MethodGet, "/persons/"+p.ID.String(), reader, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record map[string]any
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, "Daniel", record["firstName"])
	assert.Equal(t, "Atwood", record["lastName"])
	assert.NotContains(t, record, "rate")
	assert.NotContains(t, record, "division")
	assert.NotContains(t, record, "emailAddresses")
	assert.NotContains(t, record, "accountHistory")
}

func TestPersonAPIController_LockContention(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t)
	holder := uuid.New()

	resp, _ := f.do(t, http.MethodPost, "/persons/"+p.ID.String()+"/lock", holder, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := f.do(t, http.MethodPost, "/persons/"+p.ID.String()+"/lock", uuid.New(), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "LOCK_OWNED", body.Error.Code)

	resp, _ = f.do(t, http.MethodDelete, "/persons/"+p.ID.String()+"/lock", uuid.New(), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/persons/"+p.ID.String()+"/lock", uuid.New(), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPersonAPIController_UpdateWithoutLock(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t)

	resp, raw := f.do(t, http.MethodPut, "/persons/"+p.ID.String(), uuid.New(), map[string]any{
		"firstName": "Dan",
		"lastName":  "Atwood",
	})
	assert.Equal(t, http.StatusLocked, resp.StatusCode)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "LOCK_NOT_HELD", body.Error.Code)
}

func TestPersonAPIController_ValidationFailure(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t)
	editorID := uuid.New()

	resp, _ := f.do(t, http.MethodPost, "/persons/"+p.ID.String()+"/lock", editorID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := f.do(t, http.MethodGet, "/persons/"+p.ID.String(), editorID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var record map[string]any
	require.NoError(t, json.Unmarshal(raw, &record))
	record["lastName"] = ""

	resp, raw = f.do(t, http.MethodPut, "/persons/"+p.ID.String(), editorID, record)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var body struct {
		Error struct {
			Code   string   `json:"code"`
			Fields []string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "PERSON_VALIDATION", body.Error.Code)
	assert.Equal(t, []string{"LastName"}, body.Error.Fields)
}

func TestPersonAPIController_LockNotFound(t *testing.T) {
	f := newFixture(t)
	p := f.seed(t)

	resp, _ := f.do(t, http.MethodGet, "/persons/"+p.ID.String()+"/lock", uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPersonAPIController_PersonNotFound(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/persons/"+uuid.NewString(), uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
