package person

import (
	"embed"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/harborworks/crewdb/modules/person/domain/aggregates/person"
	"github.com/harborworks/crewdb/modules/person/infrastructure/capabilities"
	"github.com/harborworks/crewdb/modules/person/infrastructure/persistence"
	"github.com/harborworks/crewdb/modules/person/presentation/controllers"
	"github.com/harborworks/crewdb/modules/person/services"
	"github.com/harborworks/crewdb/modules/person/validators"
	"github.com/harborworks/crewdb/pkg/application"
	"github.com/harborworks/crewdb/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/person-schema.sql
var migrationFiles embed.FS

type Module struct{}

func NewModule() application.Module {
	return &Module{}
}

func (m *Module) Name() string {
	return "person"
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	personRepo := persistence.NewPersonRepository()
	lockRepo := persistence.NewLockRepository()
	changeRepo := persistence.NewChangeRepository()

	capProvider, err := capabilities.NewCasbinProvider(map[string][]string{
		person.ObjectName: fieldNames(),
	})
	if err != nil {
		return err
	}

	lockService := services.NewLockService(
		lockRepo, personRepo, capProvider,
		clockwork.NewRealClock(), conf.Lock.MaxAge,
	)
	changeService := services.NewChangeService(changeRepo)
	personService := services.NewPersonService(
		personRepo, lockService, capProvider,
		validators.NewPersonValidator(), changeService,
		persistence.NewTransactor(), app.EventPublisher(),
	)

	app.RegisterServices(lockService, changeService, personService)
	app.RegisterServices(capProvider)

	// Change-event feed: downstream notification delivery is an external
	// collaborator, so the built-in subscriber only logs.
	logger := app.Logger()
	app.EventPublisher().Subscribe(func(e person.UpdatedEvent) {
		logger.WithFields(logrus.Fields{
			"person_id": e.PersonID,
			"editor_id": e.EditorID,
			"applied":   person.FieldNames(e.Applied),
			"rejected":  e.Rejected,
		}).Info("person record updated")
	})

	app.RegisterControllers(controllers.NewPersonAPIController(app))
	app.Migrations().RegisterSchema(&migrationFiles)
	return nil
}

func fieldNames() []string {
	defs := person.Fields()
	names := make([]string, 0, len(defs))
	for _, f := range defs {
		names = append(names, f.Name)
	}
	return names
}
